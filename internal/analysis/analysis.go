package analysis

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/johnrirwin/citywatch/internal/models"
)

// Polarity cut points for the sentiment distribution and the insight
// thresholds below are documented heuristics carried over unchanged; they are
// not tuned here.
const (
	positiveCut = 0.1
	negativeCut = -0.1

	escalationCut      = -0.3
	peacefulCut        = 0.3
	engagementPerPost  = 50
	grassrootsRatio    = 2
	commentsPerPostCut = 20
)

const (
	topThemes  = 10
	topSources = 5
)

// ErrNoEvents is returned when there is nothing to analyze.
var ErrNoEvents = errors.New("no events to analyze")

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// themeStoplist excludes the query domain's own vocabulary from theme
// extraction so the table surfaces context words instead of the search terms.
// Matching is prefix-based to catch inflections (protesters, marching).
var themeStoplist = []string{"protest", "demonstr", "march"}

// Analyze computes the full aggregation over one fetch result: sentiment
// distribution, engagement sums, theme and source frequency tables, and the
// threshold-driven insights. Count tables are ordered by count descending,
// then name ascending, so analyzing the same result twice yields identical
// output.
func Analyze(result models.FetchResult) (models.Analysis, error) {
	events := result.Events
	if len(events) == 0 {
		return models.Analysis{}, ErrNoEvents
	}

	var (
		positive, negative int
		sentimentSum       float64
		redditCount        int
		redditUpvotes      int
		totalComments      int
	)

	for _, event := range events {
		sentimentSum += event.Sentiment
		if event.Sentiment > positiveCut {
			positive++
		} else if event.Sentiment < negativeCut {
			negative++
		}

		totalComments += event.CommentCount
		if event.Source == models.SourceReddit {
			redditCount++
			redditUpvotes += event.EngagementScore
		}
	}

	total := len(events)
	newsCount := total - redditCount
	avgSentiment := round3(sentimentSum / float64(total))

	avgRedditScore := 0.0
	if redditCount > 0 {
		avgRedditScore = round1(float64(redditUpvotes) / float64(redditCount))
	}

	analysis := models.Analysis{
		Summary: models.AnalysisSummary{
			TotalEvents:  total,
			RedditEvents: redditCount,
			NewsEvents:   newsCount,
			SentimentBreakdown: models.SentimentBreakdown{
				Positive:         positive,
				Negative:         negative,
				Neutral:          total - positive - negative,
				AverageSentiment: avgSentiment,
			},
			Engagement: models.EngagementSummary{
				TotalRedditUpvotes: redditUpvotes,
				TotalComments:      totalComments,
				AvgRedditScore:     avgRedditScore,
				AvgCommentsPerPost: round1(float64(totalComments) / float64(total)),
			},
		},
		TopThemes:      extractThemes(events),
		TopNewsSources: sourceTable(events, false),
		TopSubreddits:  sourceTable(events, true),
		Insights:       buildInsights(avgSentiment, redditCount, newsCount, redditUpvotes, totalComments, total),
	}

	return analysis, nil
}

// extractThemes tokenizes event titles into lowercase words, keeps tokens
// longer than four characters that are not domain stopwords, and returns the
// ten most frequent.
func extractThemes(events []models.ProtestEvent) []models.CountEntry {
	counts := make(map[string]int)
	for _, event := range events {
		for _, word := range wordPattern.FindAllString(strings.ToLower(event.Title), -1) {
			if len(word) <= 4 || isStopword(word) {
				continue
			}
			counts[word]++
		}
	}
	return topEntries(counts, topThemes)
}

func isStopword(word string) bool {
	for _, stop := range themeStoplist {
		if strings.HasPrefix(word, stop) {
			return true
		}
	}
	return false
}

// sourceTable builds the source_detail frequency table for reddit events
// (subreddits) or non-reddit events (news outlets, including web fallback).
func sourceTable(events []models.ProtestEvent, reddit bool) []models.CountEntry {
	counts := make(map[string]int)
	for _, event := range events {
		if (event.Source == models.SourceReddit) != reddit {
			continue
		}
		detail := event.SourceDetail
		if detail == "" {
			detail = "unknown"
		}
		counts[detail]++
	}
	return topEntries(counts, topSources)
}

// topEntries orders a count map deterministically and keeps the top n.
func topEntries(counts map[string]int, n int) []models.CountEntry {
	entries := make([]models.CountEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, models.CountEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// buildInsights evaluates the fixed observation set in order. Conditions are
// independent except for the two sentiment notes and the coverage-dominance
// pair, which are mutually exclusive by construction.
func buildInsights(avgSentiment float64, redditCount, newsCount, redditUpvotes, totalComments, total int) []string {
	insights := make([]string, 0, 4)

	if avgSentiment < escalationCut {
		insights = append(insights, "High negative sentiment detected - potential for escalation")
	} else if avgSentiment > peacefulCut {
		insights = append(insights, "Positive sentiment suggests peaceful demonstrations")
	}

	if redditUpvotes > redditCount*engagementPerPost {
		insights = append(insights, "High Reddit engagement - content resonating with community")
	}

	if newsCount > redditCount {
		insights = append(insights, "More news coverage than social discussion - major event")
	} else if redditCount > newsCount*grassrootsRatio {
		insights = append(insights, "High social media discussion - grassroots movement")
	}

	if totalComments > total*commentsPerPostCut {
		insights = append(insights, "High discussion volume - controversial or engaging topic")
	}

	return insights
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
