package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/normalize"
	"github.com/johnrirwin/citywatch/internal/observability"
	"github.com/johnrirwin/citywatch/internal/pipeline"
	"github.com/johnrirwin/citywatch/internal/sources"
	"github.com/johnrirwin/citywatch/internal/testutil"
)

type fakeFetcher struct {
	posts []sources.RawPost
}

func (f *fakeFetcher) Name() string          { return "reddit" }
func (f *fakeFetcher) Source() models.Source { return models.SourceReddit }
func (f *fakeFetcher) Configured() bool      { return true }

func (f *fakeFetcher) Fetch(ctx context.Context, city string, limit int) ([]sources.RawPost, error) {
	return f.posts, nil
}

type zeroScorer struct{}

func (zeroScorer) Score(text string) float64 { return 0 }

func newTestHandler(posts ...sources.RawPost) *Handler {
	pipe := pipeline.New(
		[]sources.Fetcher{&fakeFetcher{posts: posts}},
		normalize.New(zeroScorer{}),
		observability.NewMetricsForTesting(),
		clockwork.NewFakeClock(),
		0,
		testutil.NullLogger(),
	)
	return NewHandler(pipe, testutil.NullLogger())
}

func samplePost() sources.RawPost {
	return sources.RawPost{
		Source:    models.SourceReddit,
		ID:        "abc",
		Title:     "Portland protest downtown",
		Text:      "march through Portland",
		Author:    "user",
		CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		Score:     10,
		Subreddit: "portland",
	}
}

func TestGetTools(t *testing.T) {
	h := newTestHandler()
	tools := h.GetTools()

	want := []string{"search_protests", "analyze_protest_sentiment", "filter_by_keywords", "get_protest_summary"}
	if len(tools) != len(want) {
		t.Fatalf("GetTools() returned %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tool[%d] = %q, want %q", i, tools[i].Name, name)
		}
		if !json.Valid(tools[i].InputSchema) {
			t.Errorf("tool %q has invalid input schema JSON", name)
		}
	}
}

func TestHandleToolCall_Search(t *testing.T) {
	h := newTestHandler(samplePost())

	result, err := h.HandleToolCall(context.Background(), "search_protests", json.RawMessage(`{"city":"Portland"}`))
	if err != nil {
		t.Fatalf("HandleToolCall() error = %v", err)
	}

	fetchResult, ok := result.(models.FetchResult)
	if !ok {
		t.Fatalf("result type = %T, want models.FetchResult", result)
	}
	if fetchResult.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d, want 1", fetchResult.TotalEvents)
	}
}

func TestHandleToolCall_SearchRequiresCity(t *testing.T) {
	h := newTestHandler()

	if _, err := h.HandleToolCall(context.Background(), "search_protests", json.RawMessage(`{}`)); err == nil {
		t.Error("search without a city should fail")
	}
}

func TestHandleToolCall_Summary(t *testing.T) {
	h := newTestHandler(samplePost())

	result, err := h.HandleToolCall(context.Background(), "get_protest_summary", json.RawMessage(`{"city":"Portland"}`))
	if err != nil {
		t.Fatalf("HandleToolCall() error = %v", err)
	}

	summary, ok := result.(string)
	if !ok {
		t.Fatalf("result type = %T, want string", result)
	}
	if !strings.Contains(summary, "PROTEST ACTIVITY SUMMARY FOR PORTLAND") {
		t.Error("summary missing report header")
	}
}

func TestHandleToolCall_Filter(t *testing.T) {
	h := newTestHandler()

	args, _ := json.Marshal(FilterParams{
		Result: models.FetchResult{
			Events: []models.ProtestEvent{
				{ID: "a", Text: "police response downtown"},
				{ID: "b", Text: "quiet vigil"},
			},
		},
		Keywords: []string{"police"},
	})

	result, err := h.HandleToolCall(context.Background(), "filter_by_keywords", args)
	if err != nil {
		t.Fatalf("HandleToolCall() error = %v", err)
	}

	filtered := result.(models.FetchResult)
	if filtered.FilteredCount != 1 {
		t.Errorf("FilteredCount = %d, want 1", filtered.FilteredCount)
	}
}

func TestHandleToolCall_UnknownTool(t *testing.T) {
	h := newTestHandler()

	if _, err := h.HandleToolCall(context.Background(), "does_not_exist", nil); err == nil {
		t.Error("unknown tool should return an error")
	}
}
