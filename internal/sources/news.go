package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/ratelimit"
)

const (
	newsAPIEndpoint    = "https://newsapi.org/v2/everything"
	googleNewsEndpoint = "https://news.google.com/rss/search"

	// Only the first newsMaxKeywords lexicon terms are queried, capped at
	// newsPageSize articles per query and a 30-day lookback window.
	newsMaxKeywords = 3
	newsPageSize    = 20
	newsLookback    = 30 * 24 * time.Hour
)

// NewsFetcher searches professional news coverage. With an API key it uses
// the NewsAPI everything endpoint; without one it falls back to Google News
// RSS search as the keyword-based primary. When the primary path under-returns
// (fewer than half the adapter's limit) a generic web search supplements it.
type NewsFetcher struct {
	apiKey   string
	limiter  *ratelimit.Limiter
	config   FetcherConfig
	logger   *logging.Logger
	client   *http.Client
	parser   *gofeed.Parser
	fallback *WebFetcher

	// Overridable in tests.
	apiURL string
	rssURL string
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func NewNewsFetcher(apiKey string, fallback *WebFetcher, limiter *ratelimit.Limiter, config FetcherConfig, logger *logging.Logger) *NewsFetcher {
	return &NewsFetcher{
		apiKey:   apiKey,
		limiter:  limiter,
		config:   config,
		logger:   logger,
		client:   &http.Client{Timeout: config.Timeout},
		parser:   gofeed.NewParser(),
		fallback: fallback,
		apiURL:   newsAPIEndpoint,
		rssURL:   googleNewsEndpoint,
	}
}

func (f *NewsFetcher) Name() string {
	return "news"
}

func (f *NewsFetcher) Source() models.Source {
	return models.SourceNews
}

// Configured is always true: the Google News RSS path needs no credentials.
func (f *NewsFetcher) Configured() bool {
	return true
}

// Fetch runs the primary keyword search capped at limit/2 and, when it
// under-returns, supplements with the web fallback path capped at the same
// half. Both halves are concatenated in that order.
func (f *NewsFetcher) Fetch(ctx context.Context, city string, limit int) ([]RawPost, error) {
	if limit <= 0 {
		return nil, nil
	}

	half := limit / 2
	if half < 1 {
		half = 1
	}

	var posts []RawPost
	if f.apiKey != "" {
		posts = f.searchNewsAPI(ctx, city, half)
	} else {
		f.logger.Info("News API key not configured, using Google News RSS search")
		posts = f.searchGoogleNews(ctx, city, half)
	}

	if len(posts) < half && f.fallback != nil {
		supplement, err := f.fallback.Fetch(ctx, city, half)
		if err != nil {
			f.logger.Warn("Web fallback search failed", logging.WithField("error", err.Error()))
		} else {
			posts = append(posts, supplement...)
		}
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (f *NewsFetcher) searchNewsAPI(ctx context.Context, city string, limit int) []RawPost {
	keywords := protestKeywords
	if len(keywords) > newsMaxKeywords {
		keywords = keywords[:newsMaxKeywords]
	}

	from := time.Now().UTC().Add(-newsLookback).Format("2006-01-02")
	pageSize := newsPageSize
	if limit < pageSize {
		pageSize = limit
	}

	posts := make([]RawPost, 0, limit)
	seen := make(map[string]bool)

	for _, keyword := range keywords {
		articles, err := f.queryNewsAPI(ctx, city+" "+keyword, from, pageSize)
		if err != nil {
			f.logger.Debug("NewsAPI query failed", logging.WithFields(map[string]interface{}{
				"keyword": keyword,
				"error":   err.Error(),
			}))
			continue
		}

		for _, article := range articles {
			if seen[article.URL] {
				continue
			}
			if !containsFold(article.Title, city) && !containsFold(article.Description, city) {
				continue
			}
			seen[article.URL] = true

			publishedAt := time.Now().UTC()
			if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
				publishedAt = t.UTC()
			}

			author := article.Author
			if author == "" {
				author = "unknown"
			}

			posts = append(posts, RawPost{
				Source:    models.SourceNews,
				ID:        generateID("news", article.URL),
				Title:     article.Title,
				Text:      article.Description,
				Author:    author,
				CreatedAt: publishedAt,
				URL:       article.URL,
				Outlet:    article.Source.Name,
			})

			if len(posts) >= limit {
				return posts
			}
		}
	}

	return posts
}

func (f *NewsFetcher) queryNewsAPI(ctx context.Context, query, from string, pageSize int) ([]newsAPIArticle, error) {
	f.limiter.Wait("newsapi.org")

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("from", from)
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", f.apiKey)
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}

	var decoded newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode newsapi response: %w", err)
	}
	if decoded.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q", decoded.Status)
	}

	return decoded.Articles, nil
}

func (f *NewsFetcher) searchGoogleNews(ctx context.Context, city string, limit int) []RawPost {
	keywords := protestKeywords
	if len(keywords) > newsMaxKeywords {
		keywords = keywords[:newsMaxKeywords]
	}

	posts := make([]RawPost, 0, limit)
	seen := make(map[string]bool)

	for _, keyword := range keywords {
		feed, err := f.queryGoogleNews(ctx, city+" "+keyword)
		if err != nil {
			f.logger.Debug("Google News query failed", logging.WithFields(map[string]interface{}{
				"keyword": keyword,
				"error":   err.Error(),
			}))
			continue
		}

		for _, item := range feed.Items {
			if item.Link == "" || seen[item.Link] {
				continue
			}
			title, outlet := splitGoogleNewsTitle(item.Title)
			if !containsFold(title, city) && !containsFold(item.Description, city) {
				continue
			}
			seen[item.Link] = true

			publishedAt := time.Now().UTC()
			if item.PublishedParsed != nil {
				publishedAt = item.PublishedParsed.UTC()
			}
			if time.Since(publishedAt) > newsLookback {
				continue
			}

			posts = append(posts, RawPost{
				Source:    models.SourceNews,
				ID:        generateID("news", item.Link),
				Title:     title,
				Text:      item.Description,
				Author:    "unknown",
				CreatedAt: publishedAt,
				URL:       item.Link,
				Outlet:    outlet,
			})

			if len(posts) >= limit {
				return posts
			}
		}
	}

	return posts
}

func (f *NewsFetcher) queryGoogleNews(ctx context.Context, query string) (*gofeed.Feed, error) {
	f.limiter.Wait("news.google.com")

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	ctxWithTimeout, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.rssURL+"?"+params.Encode(), ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}
	return feed, nil
}

// splitGoogleNewsTitle separates the outlet suffix Google News appends to
// item titles ("Headline - Outlet"). Titles without the suffix keep an
// "unknown" outlet.
func splitGoogleNewsTitle(title string) (string, string) {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
	}
	return title, "unknown"
}
