package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/ratelimit"
)

const (
	duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

	// Only the first webMaxTerms protest terms are searched, and at most
	// webMaxSnippets snippets are inspected per results page.
	webMaxTerms    = 2
	webMaxSnippets = 5
)

// webTerms is the snippet-matching lexicon: a snippet must mention the city
// and at least one of these to count as a protest signal.
var webTerms = []string{"protest", "demonstration", "rally"}

// WebFetcher is the generic web-search fallback. It scrapes the DuckDuckGo
// HTML results page and keeps short snippets that mention both the city and a
// protest term. Snippets carry no stable upstream identity or timestamp, so
// they get fresh UUIDs and the current time.
type WebFetcher struct {
	limiter *ratelimit.Limiter
	config  FetcherConfig
	logger  *logging.Logger
	client  *http.Client

	// Overridable in tests.
	searchURL string
}

func NewWebFetcher(limiter *ratelimit.Limiter, config FetcherConfig, logger *logging.Logger) *WebFetcher {
	return &WebFetcher{
		limiter:   limiter,
		config:    config,
		logger:    logger,
		client:    &http.Client{Timeout: config.Timeout},
		searchURL: duckDuckGoEndpoint,
	}
}

func (f *WebFetcher) Name() string {
	return "web"
}

func (f *WebFetcher) Source() models.Source {
	return models.SourceWeb
}

func (f *WebFetcher) Configured() bool {
	return true
}

func (f *WebFetcher) Fetch(ctx context.Context, city string, limit int) ([]RawPost, error) {
	if limit <= 0 {
		return nil, nil
	}

	terms := webTerms
	if len(terms) > webMaxTerms {
		terms = terms[:webMaxTerms]
	}

	posts := make([]RawPost, 0, limit)
	seen := make(map[string]bool)

	for _, term := range terms {
		results, err := f.search(ctx, city+" "+term+" news")
		if err != nil {
			f.logger.Debug("Web search failed", logging.WithFields(map[string]interface{}{
				"term":  term,
				"error": err.Error(),
			}))
			continue
		}

		for _, result := range results {
			if result.link != "" && seen[result.link] {
				continue
			}
			if !containsFold(result.snippet, city) || !matchesAnyTerm(result.snippet) {
				continue
			}
			seen[result.link] = true

			title := result.title
			if title == "" {
				title = truncate(result.snippet, 100)
			}

			posts = append(posts, RawPost{
				Source:    models.SourceWeb,
				ID:        uuid.NewString(),
				Title:     title,
				Text:      result.snippet,
				Author:    "web_search",
				CreatedAt: time.Now().UTC(),
				URL:       result.link,
				Outlet:    "web_search",
			})

			if len(posts) >= limit {
				return posts, nil
			}
		}
	}

	return posts, nil
}

type webResult struct {
	title   string
	snippet string
	link    string
}

func (f *WebFetcher) search(ctx context.Context, query string) ([]webResult, error) {
	f.limiter.Wait("html.duckduckgo.com")

	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]webResult, 0, webMaxSnippets)
	doc.Find(".result__body").Each(func(i int, s *goquery.Selection) {
		if i >= webMaxSnippets {
			return
		}

		link, _ := s.Find(".result__a").Attr("href")
		results = append(results, webResult{
			title:   strings.TrimSpace(s.Find(".result__a").Text()),
			snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
			link:    link,
		})
	})

	return results, nil
}

func matchesAnyTerm(snippet string) bool {
	for _, term := range webTerms {
		if containsFold(snippet, term) {
			return true
		}
	}
	return false
}
