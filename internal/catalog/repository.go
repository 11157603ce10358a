package catalog

import (
	"context"
	"fmt"

	"github.com/PizzaHomicide/reel/internal/log"
)

// Repository reads the media feed from a GraphQL endpoint
type Repository struct {
	client *Client
}

func NewRepository(client *Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Feed fetches every entry of the feed
func (r *Repository) Feed(ctx context.Context) ([]Entry, error) {
	query := `
        query {
            feed {
                id
                title
                uri
                tag
            }
        }
    `

	var response struct {
		Feed []struct {
			ID    string
			Title string
			URI   string
			Tag   string
		}
	}

	if err := r.client.Query(ctx, query, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	entries := make([]Entry, 0, len(response.Feed))
	for _, item := range response.Feed {
		entry := Entry{ID: item.ID, Title: item.Title, URI: item.URI, Tag: item.Tag}
		if err := entry.validate(); err != nil {
			log.Warn("Skipping invalid feed entry", "id", item.ID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	log.Info("Fetched feed", "count", len(entries))
	return entries, nil
}

// Search fetches the feed entries matching query
func (r *Repository) Search(ctx context.Context, query string) ([]Entry, error) {
	gql := `
        query ($search: String) {
            feed(search: $search) {
                id
                title
                uri
                tag
            }
        }
    `

	var response struct {
		Feed []Entry
	}

	if err := r.client.Query(ctx, gql, map[string]interface{}{"search": query}, &response); err != nil {
		return nil, fmt.Errorf("failed to search feed: %w", err)
	}

	log.Debug("Searched feed", "query", query, "count", len(response.Feed))
	return response.Feed, nil
}
