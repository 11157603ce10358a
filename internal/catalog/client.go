package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/machinebox/graphql"
)

const requestTimeout = 10 * time.Second

// Client is a generic GraphQL client for the media feed endpoint
type Client struct {
	client    *graphql.Client
	authToken string
}

func NewClient(endpoint, authToken string) (*Client, error) {
	if endpoint == "" {
		log.Error("Catalog client endpoint is empty.")
		return nil, fmt.Errorf("catalog client endpoint is empty")
	}

	client := graphql.NewClient(endpoint, graphql.WithHTTPClient(&http.Client{Timeout: requestTimeout}))
	client.Log = func(s string) { log.Trace("graphql", "message", s) }

	return &Client{
		client:    client,
		authToken: authToken,
	}, nil
}

func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	req := graphql.NewRequest(query)

	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	for key, value := range variables {
		req.Var(key, value)
	}

	if err := c.client.Run(ctx, req, result); err != nil {
		if isNetworkError(err) {
			return NetworkError{Err: err}
		}
		return err
	}
	return nil
}

// NetworkError marks failures to reach the endpoint, as opposed to errors reported by it
type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

func isNetworkError(err error) bool {
	var netErr *url.Error
	if !errors.As(err, &netErr) {
		return false
	}
	return netErr.Timeout() ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "i/o timeout")
}
