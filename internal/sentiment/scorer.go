package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer computes a bounded polarity score over free text using the VADER
// lexicon. Scoring is pure: no state changes between calls, so identical
// input always yields an identical score.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer creates a scorer with the default VADER lexicon.
func NewScorer() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text in [-1, 1]. Empty or
// whitespace-only text scores 0.
func (s *Scorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	compound := s.analyzer.PolarityScores(text).Compound
	if compound > 1 {
		return 1
	}
	if compound < -1 {
		return -1
	}
	return compound
}
