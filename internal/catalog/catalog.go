// Package catalog provides the list of media the host offers, either from a YAML file or a GraphQL endpoint.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"gopkg.in/yaml.v3"
)

// Entry is one item of the media feed
type Entry struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	URI   string `yaml:"uri" json:"uri"`
	// Tag overrides the playback tag.  Empty means the media identity.
	Tag string `yaml:"tag,omitempty" json:"tag"`
}

// Media returns the media the entry points at
func (e Entry) Media() domain.Media {
	return domain.NewMediaWithID(e.URI, e.ID)
}

// Config returns base with the entry's tag applied
func (e Entry) Config(base domain.Config) domain.Config {
	if e.Tag == "" {
		return base
	}
	return base.WithTag(e.Tag)
}

// DisplayTitle returns the title, falling back to the URI
func (e Entry) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.URI
}

func (e Entry) validate() error {
	if e.URI == "" {
		return errors.New("uri is empty")
	}
	return nil
}

// Source provides feed entries
type Source interface {
	Feed(ctx context.Context) ([]Entry, error)
}

// File is a Source backed by a YAML file
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

type feedFile struct {
	Entries []Entry `yaml:"entries"`
}

// Feed reads the file on every call
func (f *File) Feed(_ context.Context) ([]Entry, error) {
	return LoadFile(f.path)
}

// LoadFile reads a YAML feed file of the form `entries: [{id, title, uri, tag}]`
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read feed file: %w", err)
	}

	var file feedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse feed file: %w", err)
	}

	entries := make([]Entry, 0, len(file.Entries))
	for i, entry := range file.Entries {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("feed entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	log.Info("Loaded feed file", "path", path, "count", len(entries))
	return entries, nil
}

// SaveFile writes entries in the format LoadFile reads
func SaveFile(path string, entries []Entry) error {
	data, err := yaml.Marshal(feedFile{Entries: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// NewSource picks the source configured in cfg
func NewSource(cfg config.CatalogConfig) (Source, error) {
	switch cfg.Source {
	case "", "file":
		if cfg.FilePath == "" {
			return nil, errors.New("catalog file_path is not set")
		}
		return NewFile(cfg.FilePath), nil
	case "graphql":
		client, err := NewClient(cfg.Endpoint, cfg.Token)
		if err != nil {
			return nil, err
		}
		return NewRepository(client), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// Load reads the feed from the configured source
func Load(ctx context.Context, cfg config.CatalogConfig) ([]Entry, error) {
	source, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}
	return source.Feed(ctx)
}
