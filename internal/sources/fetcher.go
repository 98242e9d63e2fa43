package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnrirwin/citywatch/internal/models"
)

// RawPost is the source-shaped record an adapter returns before
// normalization. Each post carries the tag of the adapter that produced it;
// the news adapter emits both news and web-tagged posts when the fallback
// path runs. Field meanings are source-dependent: Score is Reddit upvotes and
// stays 0 for news and web results; Subreddit is set only by the Reddit
// adapter, Outlet only by the news and web adapters.
type RawPost struct {
	Source       models.Source
	ID           string
	Title        string
	Text         string
	Author       string
	CreatedAt    time.Time
	Score        int
	CommentCount int
	URL          string
	Subreddit    string
	Outlet       string
}

// Fetcher is one source adapter. Fetch queries the upstream source for
// city-related protest content and returns at most limit raw posts. Adapters
// absorb per-query failures internally; a returned error means the whole
// source was unusable for this call, and the orchestrator treats it as zero
// results rather than failing the run.
type Fetcher interface {
	Name() string
	Source() models.Source
	Configured() bool
	Fetch(ctx context.Context, city string, limit int) ([]RawPost, error)
}

// FetcherConfig carries the knobs shared by all adapters.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   15 * time.Second,
		UserAgent: "CityWatch/1.0",
	}
}

// protestKeywords is the query lexicon. Adapters use only a fixed prefix of
// it per run (5 for Reddit, 3 for news, 2 for web) to bound outbound call
// volume; recall is traded for latency and quota.
var protestKeywords = []string{
	"protest", "demonstration", "rally", "march", "strike",
	"activism", "demonstrators", "protesters", "civil disobedience",
	"police", "arrest", "riot", "crowd", "gathering", "blm", "justice",
}

// generalSubreddits are the fixed communities searched for every city. Two
// city-derived names are appended at query time.
var generalSubreddits = []string{
	"news", "worldnews", "politics", "PublicFreakout", "protest",
	"activism", "Bad_Cop_No_Donut", "2020PoliceBrutality",
}

// citySubreddits derives the two community names tried for a city,
// e.g. "New York" -> "newyork", "newyorknews".
func citySubreddits(city string) []string {
	compact := strings.ToLower(strings.ReplaceAll(city, " ", ""))
	return []string{compact, compact + "news"}
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// generateID builds a short stable identifier from a source name and URL.
func generateID(source, url string) string {
	hash := sha256.Sum256([]byte(source + url))
	return fmt.Sprintf("%x", hash[:8])
}

// truncate caps s near maxLen bytes with an ellipsis marker, backing up to a
// rune boundary so multibyte text is never cut mid-sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
