package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

func redditListingJSON(posts ...string) string {
	children := ""
	for i, p := range posts {
		if i > 0 {
			children += ","
		}
		children += fmt.Sprintf(`{"data": %s}`, p)
	}
	return fmt.Sprintf(`{"data": {"children": [%s]}}`, children)
}

func TestRedditClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/r/artificial/hot.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("raw_json"))
		assert.Equal(t, "sentiment-pulse/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, redditListingJSON(
			`{"title": "GPT release thread", "selftext": "Huge improvements this cycle.", "created_utc": 1767000000, "permalink": "/r/artificial/comments/abc/gpt"}`,
			`{"title": "Link post", "selftext": "", "created_utc": 0, "permalink": "/r/artificial/comments/def/link"}`,
		))
	}))
	defer server.Close()

	client := NewRedditClient(server.URL, "sentiment-pulse/1.0", time.Second)
	records, err := client.Fetch(context.Background(), []string{"artificial"}, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "reddit", first.Platform)
	assert.Equal(t, "artificial", first.Query)
	assert.Equal(t, "GPT release thread Huge improvements this cycle.", first.Text)
	assert.Equal(t, server.URL+"/r/artificial/comments/abc/gpt", first.URL)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Unix(1767000000, 0).UTC(), *first.Timestamp)

	// created_utc of zero means the timestamp is unknown.
	assert.Nil(t, records[1].Timestamp)
	assert.Equal(t, "Link post", records[1].Text)
}

func TestRedditClientFetchBudgetAcrossSubreddits(t *testing.T) {
	var limits []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, redditListingJSON(
			`{"title": "post 1", "created_utc": 1767000000, "permalink": "/p1"}`,
			`{"title": "post 2", "created_utc": 1767000060, "permalink": "/p2"}`,
		))
	}))
	defer server.Close()

	client := NewRedditClient(server.URL, "sentiment-pulse/1.0", time.Second)
	records, err := client.Fetch(context.Background(), []string{"artificial", "technology", "MachineLearning"}, 3)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	require.Len(t, limits, 2)
	assert.Equal(t, "3", limits[0])
	assert.Equal(t, "1", limits[1])
}

func TestRedditClientFetchZeroBudget(t *testing.T) {
	client := NewRedditClient("http://unused.invalid", "sentiment-pulse/1.0", time.Second)
	records, err := client.Fetch(context.Background(), []string{"artificial"}, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedditClientFetchMissingUserAgent(t *testing.T) {
	client := NewRedditClient("http://unused.invalid", "", time.Second)
	_, err := client.Fetch(context.Background(), []string{"artificial"}, 5)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.UpstreamFetch))
	assert.Contains(t, err.Error(), "user agent")
}

func TestRedditClientFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Blocked"))
	}))
	defer server.Close()

	client := NewRedditClient(server.URL, "sentiment-pulse/1.0", time.Second)
	_, err := client.Fetch(context.Background(), []string{"artificial"}, 5)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.UpstreamFetch))
	assert.Contains(t, err.Error(), "status 403")
}

func TestRedditClientFetchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"children": [`))
	}))
	defer server.Close()

	client := NewRedditClient(server.URL, "sentiment-pulse/1.0", time.Second)
	_, err := client.Fetch(context.Background(), []string{"artificial"}, 5)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.UpstreamFetch))
}

func TestRedditClientDefaults(t *testing.T) {
	client := NewRedditClient("", "agent", 0)
	assert.Equal(t, defaultRedditBaseURL, client.baseURL)
}
