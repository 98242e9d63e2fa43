package normalize

import (
	"math"
	"unicode/utf8"

	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/sources"
)

// maxDisplayText caps the display text of an event. Text beyond the cap is
// cut and marked with an ellipsis; sentiment is always computed from the
// untruncated text before the cut.
const maxDisplayText = 500

// Scorer computes a bounded polarity score for a piece of text.
type Scorer interface {
	Score(text string) float64
}

// Normalizer maps raw, source-shaped posts into canonical protest events.
// Only the normalizer understands every adapter's raw shape; everything
// downstream sees models.ProtestEvent.
type Normalizer struct {
	scorer Scorer
}

func New(scorer Scorer) *Normalizer {
	return &Normalizer{scorer: scorer}
}

// Event builds the canonical event for one raw post. The id is namespaced by
// source so identifiers never collide across adapters within a run; city is
// the query city verbatim, not any location detected in the post.
func (n *Normalizer) Event(post sources.RawPost, source models.Source, city string) models.ProtestEvent {
	author := post.Author
	if author == "" {
		author = "unknown"
	}

	detail := post.Subreddit
	if source != models.SourceReddit {
		detail = post.Outlet
	}

	engagement := 0
	if source == models.SourceReddit && post.Score > 0 {
		engagement = post.Score
	}

	comments := post.CommentCount
	if comments < 0 {
		comments = 0
	}

	return models.ProtestEvent{
		ID:              string(source) + "_" + post.ID,
		Title:           post.Title,
		Text:            truncateDisplay(post.Text),
		Author:          author,
		CreatedAt:       post.CreatedAt.UTC(),
		City:            city,
		Source:          source,
		SourceDetail:    detail,
		Sentiment:       round3(n.scorer.Score(post.Title + " " + post.Text)),
		EngagementScore: engagement,
		CommentCount:    comments,
		URL:             post.URL,
	}
}

// truncateDisplay cuts at the cap, backing up to a rune boundary so multibyte
// text never ends in a partial sequence.
func truncateDisplay(text string) string {
	if len(text) <= maxDisplayText {
		return text
	}
	cut := maxDisplayText
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
