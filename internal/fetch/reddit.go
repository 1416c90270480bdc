package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

const (
	defaultRedditBaseURL = "https://www.reddit.com"
	redditMaxListing     = 100
)

// RedditClient fetches hot submissions from public subreddit listings.
// Reddit rejects requests without a descriptive User-Agent, so the caller
// must always provide one.
type RedditClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// NewRedditClient creates a client for the public Reddit JSON API.
// baseURL may be empty to use the default endpoint.
func NewRedditClient(baseURL, userAgent string, timeout time.Duration) *RedditClient {
	if baseURL == "" {
		baseURL = defaultRedditBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RedditClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves hot posts from each subreddit in queries until maxRecords
// records have been collected. Subreddits are visited in order and each
// request asks only for the remaining budget.
func (c *RedditClient) Fetch(ctx context.Context, queries []string, maxRecords int) ([]dataset.Record, error) {
	if maxRecords <= 0 {
		return []dataset.Record{}, nil
	}
	if c.userAgent == "" {
		return nil, errdefs.New(errdefs.UpstreamFetch, "reddit user agent is not configured")
	}

	records := make([]dataset.Record, 0, maxRecords)
	for _, subreddit := range queries {
		remaining := maxRecords - len(records)
		if remaining <= 0 {
			break
		}
		posts, err := c.listHot(ctx, subreddit, remaining)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			if len(records) >= maxRecords {
				break
			}
			records = append(records, dataset.Record{
				Platform:  "reddit",
				Timestamp: unixTimestamp(post.CreatedUTC),
				Query:     subreddit,
				Text:      joinText(post.Title, post.SelfText),
				URL:       c.baseURL + post.Permalink,
			})
		}
	}
	return records, nil
}

func (c *RedditClient) listHot(ctx context.Context, subreddit string, limit int) ([]redditPost, error) {
	if limit > redditMaxListing {
		limit = redditMaxListing
	}

	endpoint := c.baseURL + "/r/" + url.PathEscape(subreddit) + "/hot.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "failed to create reddit request")
	}
	params := req.URL.Query()
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "reddit request failed").
			WithContext("subreddit", subreddit)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "failed to read reddit response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errdefs.Newf(errdefs.UpstreamFetch, "reddit returned status %d: %s",
			resp.StatusCode, truncate(string(body), 200)).
			WithContext("subreddit", subreddit)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, errdefs.Wrap(err, errdefs.UpstreamFetch, "failed to decode reddit response").
			WithContext("subreddit", subreddit)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func unixTimestamp(createdUTC float64) *time.Time {
	if createdUTC <= 0 {
		return nil
	}
	ts := time.Unix(int64(createdUTC), 0).UTC()
	return &ts
}

var _ Fetcher = (*RedditClient)(nil)
