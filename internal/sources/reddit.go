package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/ratelimit"
)

const (
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditSearchURL = "https://oauth.reddit.com/r/%s/search"

	// Per-run caps. Only the first redditMaxKeywords lexicon terms are
	// queried, at most redditPerQuery results each.
	redditMaxKeywords = 5
	redditPerQuery    = 10
)

// RedditCredentials holds the script-app OAuth credentials. Both fields empty
// means the adapter is unconfigured and degrades to zero results.
type RedditCredentials struct {
	ClientID     string
	ClientSecret string
}

// RedditFetcher searches protest keywords across general-interest and
// city-derived subreddits.
type RedditFetcher struct {
	creds   RedditCredentials
	limiter *ratelimit.Limiter
	config  FetcherConfig
	logger  *logging.Logger
	client  *http.Client

	// Overridable in tests.
	tokenURL  string
	searchURL string
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
	NumComms  int     `json:"num_comments"`
}

func NewRedditFetcher(creds RedditCredentials, limiter *ratelimit.Limiter, config FetcherConfig, logger *logging.Logger) *RedditFetcher {
	return &RedditFetcher{
		creds:   creds,
		limiter: limiter,
		config:  config,
		logger:  logger,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		tokenURL:  redditTokenURL,
		searchURL: redditSearchURL,
	}
}

func (f *RedditFetcher) Name() string {
	return "reddit"
}

func (f *RedditFetcher) Source() models.Source {
	return models.SourceReddit
}

func (f *RedditFetcher) Configured() bool {
	return f.creds.ClientID != "" && f.creds.ClientSecret != ""
}

// Fetch queries keyword x subreddit combinations until limit posts match the
// city. Individual query failures are logged and skipped so one private or
// missing subreddit never sinks the rest of the sweep.
func (f *RedditFetcher) Fetch(ctx context.Context, city string, limit int) ([]RawPost, error) {
	if !f.Configured() {
		f.logger.Warn("Reddit credentials not configured, skipping Reddit search")
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	token, err := f.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit auth failed: %w", err)
	}

	subreddits := append(append([]string{}, generalSubreddits...), citySubreddits(city)...)
	keywords := protestKeywords
	if len(keywords) > redditMaxKeywords {
		keywords = keywords[:redditMaxKeywords]
	}

	posts := make([]RawPost, 0, limit)
	seen := make(map[string]bool)

	for _, subreddit := range subreddits {
		for _, keyword := range keywords {
			results, err := f.search(ctx, token, subreddit, city+" "+keyword)
			if err != nil {
				f.logger.Debug("Reddit query failed", logging.WithFields(map[string]interface{}{
					"subreddit": subreddit,
					"keyword":   keyword,
					"error":     err.Error(),
				}))
				continue
			}

			for _, post := range results {
				if seen[post.ID] {
					continue
				}
				if !containsFold(post.Title, city) && !containsFold(post.Selftext, city) {
					continue
				}
				seen[post.ID] = true

				author := post.Author
				if author == "" {
					author = "unknown"
				}

				posts = append(posts, RawPost{
					Source:       models.SourceReddit,
					ID:           post.ID,
					Title:        post.Title,
					Text:         post.Selftext,
					Author:       author,
					CreatedAt:    time.Unix(int64(post.Created), 0).UTC(),
					Score:        post.Score,
					CommentCount: post.NumComms,
					URL:          "https://reddit.com" + post.Permalink,
					Subreddit:    subreddit,
				})

				if len(posts) >= limit {
					return posts, nil
				}
			}
		}
	}

	return posts, nil
}

func (f *RedditFetcher) fetchToken(ctx context.Context) (string, error) {
	f.limiter.Wait("www.reddit.com")

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(f.creds.ClientID, f.creds.ClientSecret)
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token redditTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	return token.AccessToken, nil
}

func (f *RedditFetcher) search(ctx context.Context, token, subreddit, query string) ([]redditPost, error) {
	f.limiter.Wait("oauth.reddit.com")

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", "hot")
	params.Set("t", "month")
	params.Set("limit", fmt.Sprintf("%d", redditPerQuery))

	endpoint := fmt.Sprintf(f.searchURL, url.PathEscape(subreddit)) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode reddit response: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
