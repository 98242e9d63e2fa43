package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnrirwin/citywatch/internal/models"
)

const (
	maxReportEvents = 3
	maxThemes       = 5
	maxNewsSources  = 3
	maxSubreddits   = 3
	previewLen      = 150
)

// Render formats a fetch result and its analysis into the fixed-structure
// text report. Pure formatting: the same inputs always render the same bytes.
func Render(result models.FetchResult, analysis models.Analysis) string {
	var b strings.Builder

	writeHeader(&b, result.City)

	fmt.Fprintf(&b, "OVERVIEW:\n")
	fmt.Fprintf(&b, "- Total Events Found: %d\n", result.TotalEvents)
	fmt.Fprintf(&b, "- Reddit Posts: %d\n", result.RedditEvents)
	fmt.Fprintf(&b, "- News Articles: %d\n", result.NewsEvents)
	fmt.Fprintf(&b, "- Search Timestamp: %s\n", result.SearchTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Status: %s\n\n", result.Status)

	sb := analysis.Summary.SentimentBreakdown
	fmt.Fprintf(&b, "SENTIMENT ANALYSIS:\n")
	fmt.Fprintf(&b, "- Positive Posts: %d\n", sb.Positive)
	fmt.Fprintf(&b, "- Negative Posts: %d\n", sb.Negative)
	fmt.Fprintf(&b, "- Neutral Posts: %d\n", sb.Neutral)
	fmt.Fprintf(&b, "- Average Sentiment: %.3f\n\n", sb.AverageSentiment)

	eng := analysis.Summary.Engagement
	fmt.Fprintf(&b, "ENGAGEMENT METRICS:\n")
	fmt.Fprintf(&b, "- Total Reddit Upvotes: %d\n", eng.TotalRedditUpvotes)
	fmt.Fprintf(&b, "- Total Comments: %d\n", eng.TotalComments)
	fmt.Fprintf(&b, "- Avg Reddit Score: %.1f\n", eng.AvgRedditScore)
	fmt.Fprintf(&b, "- Avg Comments per Post: %.1f\n\n", eng.AvgCommentsPerPost)

	fmt.Fprintf(&b, "TOP THEMES:\n")
	writeTable(&b, analysis.TopThemes, maxThemes, "mentions")

	fmt.Fprintf(&b, "\nTOP NEWS SOURCES:\n")
	writeTable(&b, analysis.TopNewsSources, maxNewsSources, "articles")

	fmt.Fprintf(&b, "\nTOP SUBREDDITS:\n")
	for i, entry := range analysis.TopSubreddits {
		if i >= maxSubreddits {
			break
		}
		fmt.Fprintf(&b, "- r/%s: %d posts\n", entry.Name, entry.Count)
	}

	fmt.Fprintf(&b, "\nKEY INSIGHTS:\n")
	for _, insight := range analysis.Insights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}

	if len(result.Events) > 0 {
		fmt.Fprintf(&b, "\nRECENT POSTS (showing first %d):\n", maxReportEvents)
		for i, event := range result.Events {
			if i >= maxReportEvents {
				break
			}
			writeEvent(&b, i+1, event)
		}
	}

	return b.String()
}

// RenderEmpty is the short-circuit report for a run that found nothing.
func RenderEmpty(city string) string {
	var b strings.Builder
	writeHeader(&b, city)
	fmt.Fprintf(&b, "No protest-related content found for %s.\n", city)
	return b.String()
}

func writeHeader(b *strings.Builder, city string) {
	upper := cases.Upper(language.AmericanEnglish).String(city)
	fmt.Fprintf(b, "PROTEST ACTIVITY SUMMARY FOR %s\n", upper)
	fmt.Fprintf(b, "%s\n\n", strings.Repeat("=", 50))
}

func writeTable(b *strings.Builder, entries []models.CountEntry, limit int, unit string) {
	for i, entry := range entries {
		if i >= limit {
			break
		}
		fmt.Fprintf(b, "- %s: %d %s\n", entry.Name, entry.Count, unit)
	}
}

func writeEvent(b *strings.Builder, n int, event models.ProtestEvent) {
	label := event.SourceDetail
	if event.Source == models.SourceReddit {
		if label == "" {
			label = "unknown"
		}
		label = "r/" + label
	} else if label == "" {
		label = "unknown"
	}

	fmt.Fprintf(b, "\n%d. %s | %s (%s):\n", n, event.Author, label, event.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "   Title: %q\n", event.Title)
	if event.Text != "" {
		fmt.Fprintf(b, "   Text: %q\n", preview(event.Text))
	}

	if event.Source == models.SourceReddit {
		fmt.Fprintf(b, "   %d upvotes | %d comments\n", event.EngagementScore, event.CommentCount)
	} else {
		fmt.Fprintf(b, "   %d comments\n", event.CommentCount)
	}
	fmt.Fprintf(b, "   %s\n", event.URL)
}

func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
