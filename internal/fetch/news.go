package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

const (
	defaultNewsAPIURL = "https://newsapi.org/v2/everything"
	// NewsAPI caps pageSize at 100 regardless of the requested budget.
	newsMaxPageSize = 100
)

// NewsClient fetches articles from a NewsAPI-compatible endpoint.
type NewsClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

type newsResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code,omitempty"`
	Message      string        `json:"message,omitempty"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func NewNewsClient(apiKey, apiURL string, timeout time.Duration) *NewsClient {
	if apiURL == "" {
		apiURL = defaultNewsAPIURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &NewsClient{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch collects up to maxRecords articles across the queries, walking
// the query list in order until the budget is spent.
func (c *NewsClient) Fetch(ctx context.Context, queries []string, maxRecords int) ([]dataset.Record, error) {
	if maxRecords <= 0 {
		return []dataset.Record{}, nil
	}
	if c.apiKey == "" {
		return nil, errdefs.New(errdefs.UpstreamFetch, "news API key is not configured")
	}

	records := make([]dataset.Record, 0, maxRecords)
	for _, query := range queries {
		remaining := maxRecords - len(records)
		if remaining <= 0 {
			break
		}

		articles, err := c.search(ctx, query, remaining)
		if err != nil {
			return nil, err
		}

		for _, a := range articles {
			if len(records) >= maxRecords {
				break
			}
			records = append(records, dataset.Record{
				Platform:  "news",
				Timestamp: dataset.ParseTimestamp(a.PublishedAt),
				Query:     query,
				Text:      joinText(a.Title, a.Description),
				URL:       a.URL,
			})
		}
	}
	return records, nil
}

func (c *NewsClient) search(ctx context.Context, query string, limit int) ([]newsArticle, error) {
	if limit > newsMaxPageSize {
		limit = newsMaxPageSize
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "build news request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "news request failed").
			WithContext("query", query)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "read news response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errdefs.Newf(errdefs.UpstreamFetch, "news API error (status %d): %s", resp.StatusCode, truncate(string(body), 200)).
			WithContext("query", query)
	}

	var decoded newsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "parse news response")
	}
	if decoded.Status != "ok" {
		return nil, errdefs.Newf(errdefs.UpstreamFetch, "news API rejected request: %s %s", decoded.Code, decoded.Message).
			WithContext("query", query)
	}

	return decoded.Articles, nil
}

func joinText(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ Fetcher = (*NewsClient)(nil)
