package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/PizzaHomicide/reel/internal/config"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newFeedServer(t *testing.T, handler func(req graphqlRequest, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(req, w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRepository_Feed(t *testing.T) {
	srv := newFeedServer(t, func(req graphqlRequest, w http.ResponseWriter) {
		assert.Contains(t, req.Query, "feed")
		_, _ = w.Write([]byte(`{"data":{"feed":[
			{"id":"bbb","title":"Big Buck Bunny","uri":"https://cdn.example.com/bbb.mp4","tag":""},
			{"id":"broken","title":"No URI","uri":""},
			{"id":"sintel","title":"Sintel","uri":"https://cdn.example.com/sintel.mp4","tag":"hero"}
		]}}`))
	})

	client, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	entries, err := NewRepository(client).Feed(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 2, "entries without a uri are skipped")
	assert.Equal(t, "Big Buck Bunny", entries[0].Title)
	assert.Equal(t, "hero", entries[1].Tag)
}

func TestRepository_Search(t *testing.T) {
	srv := newFeedServer(t, func(req graphqlRequest, w http.ResponseWriter) {
		assert.Equal(t, "sin", req.Variables["search"])
		_, _ = w.Write([]byte(`{"data":{"feed":[{"id":"sintel","title":"Sintel","uri":"file:///sintel.mkv"}]}}`))
	})

	client, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	entries, err := NewRepository(client).Search(t.Context(), "sin")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sintel", entries[0].ID)
}

func TestRepository_GraphQLError(t *testing.T) {
	srv := newFeedServer(t, func(_ graphqlRequest, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"feed unavailable"}]}`))
	})

	client, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = NewRepository(client).Feed(t.Context())
	assert.ErrorContains(t, err, "feed unavailable")
	var netErr NetworkError
	assert.NotErrorAs(t, err, &netErr)
}

func TestRepository_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, "")
	require.NoError(t, err)

	_, err = NewRepository(client).Feed(t.Context())
	var netErr NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient("", "token")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	want := []Entry{
		{ID: "bbb", Title: "Big Buck Bunny", URI: "file:///bbb.mkv"},
		{ID: "sintel", Title: "Sintel", URI: "file:///sintel.mkv", Tag: "hero"},
	}
	require.NoError(t, SaveFile(path, want))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = Load(t.Context(), config.CatalogConfig{Source: "file", FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("entries: ["), 0600))
	_, err = LoadFile(invalid)
	assert.Error(t, err)

	noURI := filepath.Join(dir, "nouri.yaml")
	require.NoError(t, os.WriteFile(noURI, []byte("entries:\n  - id: x\n    title: X\n"), 0600))
	_, err = LoadFile(noURI)
	assert.ErrorContains(t, err, "feed entry 0")
}

func TestNewSource(t *testing.T) {
	_, err := NewSource(config.CatalogConfig{Source: "file"})
	assert.Error(t, err, "file source needs a path")

	_, err = NewSource(config.CatalogConfig{Source: "ftp"})
	assert.Error(t, err)

	src, err := NewSource(config.CatalogConfig{Source: "graphql", Endpoint: "http://localhost/graphql"})
	require.NoError(t, err)
	assert.IsType(t, &Repository{}, src)
}

func TestEntry(t *testing.T) {
	e := Entry{ID: "bbb", URI: "file:///bbb.mkv"}
	assert.Equal(t, domain.Media{URI: "file:///bbb.mkv", ID: "bbb"}, e.Media())
	assert.Equal(t, "file:///bbb.mkv", e.DisplayTitle())

	base := domain.DefaultConfig()
	assert.Equal(t, "", e.Config(base).Tag)
	e.Tag = "hero"
	assert.Equal(t, "hero", e.Config(base).Tag)
}
