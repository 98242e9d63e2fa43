package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/citywatch/internal/analysis"
	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/normalize"
	"github.com/johnrirwin/citywatch/internal/observability"
	"github.com/johnrirwin/citywatch/internal/report"
	"github.com/johnrirwin/citywatch/internal/sources"
)

// DefaultMaxResults is the event cap used when the pipeline is constructed
// without a configured default.
const DefaultMaxResults = 100

// ErrNoKeywords is returned by FilterByKeywords when no usable keyword
// survives normalization.
var ErrNoKeywords = errors.New("no keywords provided")

// Pipeline sequences adapters, normalization, scoring, and aggregation. It
// holds no per-run state: every Search call is independent, so concurrent
// calls are safe.
type Pipeline struct {
	fetchers   []sources.Fetcher
	normalizer *normalize.Normalizer
	metrics    *observability.Metrics
	clock      clockwork.Clock
	defaultMax int
	logger     *logging.Logger
}

// New builds a pipeline. defaultMax is the event cap used by Summarize and by
// Search when the caller passes a non-positive limit; non-positive defaultMax
// falls back to DefaultMaxResults.
func New(fetchers []sources.Fetcher, normalizer *normalize.Normalizer, metrics *observability.Metrics, clock clockwork.Clock, defaultMax int, logger *logging.Logger) *Pipeline {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxResults
	}
	return &Pipeline{
		fetchers:   fetchers,
		normalizer: normalizer,
		metrics:    metrics,
		clock:      clock,
		defaultMax: defaultMax,
		logger:     logger,
	}
}

type fetchOutcome struct {
	name   string
	source models.Source
	posts  []sources.RawPost
	err    error
}

// Search queries every adapter for city-related protest content, splitting
// maxResults evenly across adapters. Adapter failures are absorbed as zero
// results; the run only reports status "error" when no adapter is usable at
// all. Events come back sorted by created_at descending, truncated to
// maxResults.
func (p *Pipeline) Search(ctx context.Context, city string, maxResults int) models.FetchResult {
	if maxResults <= 0 {
		maxResults = p.defaultMax
	}

	configured := 0
	for _, f := range p.fetchers {
		if f.Configured() {
			configured++
		}
	}
	if configured == 0 {
		p.metrics.Searches.WithLabelValues(models.StatusError).Inc()
		return models.FetchResult{
			Status:          models.StatusError,
			Message:         fmt.Sprintf("no data source configured, cannot search for protests in %s", city),
			City:            city,
			SearchTimestamp: p.clock.Now().UTC(),
			Events:          []models.ProtestEvent{},
		}
	}

	perAdapter := maxResults / len(p.fetchers)
	if perAdapter < 1 {
		perAdapter = 1
	}

	var wg sync.WaitGroup
	outcomes := make(chan fetchOutcome, len(p.fetchers))

	for _, fetcher := range p.fetchers {
		wg.Add(1)
		go func(f sources.Fetcher) {
			defer wg.Done()
			p.metrics.FetchRequests.WithLabelValues(string(f.Source())).Inc()
			posts, err := f.Fetch(ctx, city, perAdapter)
			outcomes <- fetchOutcome{
				name:   f.Name(),
				source: f.Source(),
				posts:  posts,
				err:    err,
			}
		}(fetcher)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	events := make([]models.ProtestEvent, 0, maxResults)
	for outcome := range outcomes {
		if outcome.err != nil {
			p.metrics.FetchFailures.WithLabelValues(string(outcome.source)).Inc()
			p.logger.Warn("Source fetch failed, continuing with partial data", logging.WithFields(map[string]interface{}{
				"source": outcome.name,
				"error":  outcome.err.Error(),
			}))
			continue
		}

		p.logger.Info("Fetched raw posts from source", logging.WithFields(map[string]interface{}{
			"source": outcome.name,
			"count":  len(outcome.posts),
		}))

		for _, post := range outcome.posts {
			events = append(events, p.normalizer.Event(post, post.Source, city))
			p.metrics.EventsNormalized.Inc()
		}
	}

	sortByCreated(events)
	if len(events) > maxResults {
		events = events[:maxResults]
	}

	result := models.FetchResult{
		City:            city,
		TotalEvents:     len(events),
		SearchTimestamp: p.clock.Now().UTC(),
		Events:          events,
	}
	for _, event := range events {
		if event.Source == models.SourceReddit {
			result.RedditEvents++
		} else {
			result.NewsEvents++
		}
	}

	if len(events) == 0 {
		result.Status = models.StatusNoResults
		result.Message = fmt.Sprintf("No protest-related content found for %s", city)
	} else {
		result.Status = models.StatusSuccess
	}

	p.metrics.Searches.WithLabelValues(result.Status).Inc()
	p.logger.Info("Search complete", logging.WithFields(map[string]interface{}{
		"city":   city,
		"status": result.Status,
		"events": len(events),
	}))

	return result
}

// Analyze aggregates a fetch result into statistics, themes, and insights.
func (p *Pipeline) Analyze(result models.FetchResult) (models.Analysis, error) {
	return analysis.Analyze(result)
}

// FilterByKeywords narrows a fetch result to events whose display text
// contains any of the keywords, case-insensitively. Event order and fields
// are preserved; the returned result records what it was filtered by and the
// before/after counts.
func (p *Pipeline) FilterByKeywords(result models.FetchResult, keywords []string) (models.FetchResult, error) {
	normalized := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			normalized = append(normalized, keyword)
		}
	}
	if len(normalized) == 0 {
		return models.FetchResult{}, ErrNoKeywords
	}

	filtered := make([]models.ProtestEvent, 0, len(result.Events))
	for _, event := range result.Events {
		text := strings.ToLower(event.Text)
		for _, keyword := range normalized {
			if strings.Contains(text, keyword) {
				filtered = append(filtered, event)
				break
			}
		}
	}

	out := result
	out.Events = filtered
	out.FilteredBy = normalized
	out.OriginalCount = len(result.Events)
	out.FilteredCount = len(filtered)
	return out, nil
}

// Summarize runs the full chain: search, aggregate, render. A run that finds
// nothing short-circuits to the no-data report; only orchestration-level
// failures surface as errors.
func (p *Pipeline) Summarize(ctx context.Context, city string) (string, error) {
	result := p.Search(ctx, city, p.defaultMax)

	switch result.Status {
	case models.StatusError:
		return "", errors.New(result.Message)
	case models.StatusNoResults:
		return report.RenderEmpty(city), nil
	}

	aggregated, err := p.Analyze(result)
	if err != nil {
		return "", fmt.Errorf("failed to analyze fetch result: %w", err)
	}

	return report.Render(result, aggregated), nil
}

func sortByCreated(events []models.ProtestEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
}
