package models

import "time"

// Source identifies which adapter produced an event.
type Source string

const (
	SourceReddit Source = "reddit"
	SourceNews   Source = "news"
	SourceWeb    Source = "web"
)

// Fetch statuses reported by the pipeline.
const (
	StatusSuccess   = "success"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

// ProtestEvent is the canonical event record. Instances are built once by the
// normalizer and never mutated afterwards; they live for a single pipeline run.
type ProtestEvent struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Text            string    `json:"text"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	City            string    `json:"city"`
	Source          Source    `json:"source"`
	SourceDetail    string    `json:"source_detail,omitempty"`
	Sentiment       float64   `json:"sentiment"`
	EngagementScore int       `json:"engagement_score"`
	CommentCount    int       `json:"comment_count"`
	URL             string    `json:"url"`
}

// FetchResult is the outcome of one search run. Events are sorted by
// CreatedAt descending. The Filtered* fields are only set by keyword filtering.
type FetchResult struct {
	Status          string         `json:"status"`
	Message         string         `json:"message,omitempty"`
	City            string         `json:"city"`
	TotalEvents     int            `json:"total_events"`
	RedditEvents    int            `json:"reddit_events"`
	NewsEvents      int            `json:"news_events"`
	SearchTimestamp time.Time      `json:"search_timestamp"`
	Events          []ProtestEvent `json:"events"`

	FilteredBy    []string `json:"filtered_by,omitempty"`
	OriginalCount int      `json:"original_count,omitempty"`
	FilteredCount int      `json:"filtered_count,omitempty"`
}

// CountEntry is one row of an ordered frequency table.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SentimentBreakdown buckets events by polarity.
type SentimentBreakdown struct {
	Positive         int     `json:"positive"`
	Negative         int     `json:"negative"`
	Neutral          int     `json:"neutral"`
	AverageSentiment float64 `json:"average_sentiment"`
}

// EngagementSummary aggregates community attention signals.
type EngagementSummary struct {
	TotalRedditUpvotes int     `json:"total_reddit_upvotes"`
	TotalComments      int     `json:"total_comments"`
	AvgRedditScore     float64 `json:"avg_reddit_score"`
	AvgCommentsPerPost float64 `json:"avg_comments_per_post"`
}

// AnalysisSummary carries the headline statistics of an analysis.
type AnalysisSummary struct {
	TotalEvents        int                `json:"total_events"`
	RedditEvents       int                `json:"reddit_events"`
	NewsEvents         int                `json:"news_events"`
	SentimentBreakdown SentimentBreakdown `json:"sentiment_breakdown"`
	Engagement         EngagementSummary  `json:"engagement"`
}

// Analysis is the full aggregation over one fetch result. The count tables
// are ordered (count descending, then name ascending) so repeated analyses of
// the same result serialize identically.
type Analysis struct {
	Summary        AnalysisSummary `json:"summary"`
	TopThemes      []CountEntry    `json:"top_themes"`
	TopNewsSources []CountEntry    `json:"top_news_sources"`
	TopSubreddits  []CountEntry    `json:"top_subreddits"`
	Insights       []string        `json:"insights"`
}
