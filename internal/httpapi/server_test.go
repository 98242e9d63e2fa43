package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/citywatch/internal/cache"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/normalize"
	"github.com/johnrirwin/citywatch/internal/observability"
	"github.com/johnrirwin/citywatch/internal/pipeline"
	"github.com/johnrirwin/citywatch/internal/sources"
	"github.com/johnrirwin/citywatch/internal/testutil"
)

type fakeFetcher struct {
	source models.Source
	posts  []sources.RawPost
}

func (f *fakeFetcher) Name() string          { return string(f.source) }
func (f *fakeFetcher) Source() models.Source { return f.source }
func (f *fakeFetcher) Configured() bool      { return true }

func (f *fakeFetcher) Fetch(ctx context.Context, city string, limit int) ([]sources.RawPost, error) {
	return f.posts, nil
}

type flatScorer struct{}

func (flatScorer) Score(text string) float64 { return 0.4 }

func newTestServer(t *testing.T, posts ...sources.RawPost) (*Server, *cache.MemoryCache) {
	t.Helper()

	fetcher := &fakeFetcher{source: models.SourceReddit, posts: posts}
	pipe := pipeline.New(
		[]sources.Fetcher{fetcher},
		normalize.New(flatScorer{}),
		observability.NewMetricsForTesting(),
		clockwork.NewFakeClock(),
		0,
		testutil.NullLogger(),
	)

	summaryCache := cache.NewMemory(time.Minute)
	t.Cleanup(summaryCache.Stop)

	return New(pipe, summaryCache, testutil.NullLogger()), summaryCache
}

func samplePosts() []sources.RawPost {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return []sources.RawPost{
		{
			Source:       models.SourceReddit,
			ID:           "abc",
			Title:        "Protest march downtown Portland",
			Text:         "Thousands gathered for a peaceful demonstration",
			Author:       "reporter",
			CreatedAt:    base,
			Score:        12,
			CommentCount: 4,
			Subreddit:    "portland",
			URL:          "https://reddit.com/abc",
		},
		{
			Source:    models.SourceReddit,
			ID:        "def",
			Title:     "Portland rally continues",
			Text:      "Police made two arrests near the square",
			Author:    "witness",
			CreatedAt: base.Add(time.Hour),
			Score:     3,
			Subreddit: "portlandnews",
			URL:       "https://reddit.com/def",
		},
	}
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t, samplePosts()...)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/search?city=Portland&max_results=10", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result models.FetchResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2", result.TotalEvents)
	}
}

func TestHandleSearch_MissingCity(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["code"] != "invalid_input" {
		t.Errorf("code = %q, want invalid_input", response["code"])
	}
}

func TestHandleSearch_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/search?city=Portland", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleAnalyze(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	result := models.FetchResult{
		Status:      models.StatusSuccess,
		City:        "Portland",
		TotalEvents: 1,
		Events: []models.ProtestEvent{
			{
				ID:        "reddit_abc",
				Title:     "March downtown",
				Source:    models.SourceReddit,
				Sentiment: 0.5,
			},
		},
	}

	body, _ := json.Marshal(result)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var analysis models.Analysis
	if err := json.NewDecoder(w.Body).Decode(&analysis); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if analysis.Summary.SentimentBreakdown.Positive != 1 {
		t.Errorf("Positive = %d, want 1", analysis.Summary.SentimentBreakdown.Positive)
	}
}

func TestHandleAnalyze_NoEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	body, _ := json.Marshal(models.FetchResult{Status: models.StatusNoResults})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestHandleFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	payload := filterRequest{
		Result: models.FetchResult{
			Status:      models.StatusSuccess,
			TotalEvents: 2,
			Events: []models.ProtestEvent{
				{ID: "a", Text: "police arrested three"},
				{ID: "b", Text: "a quiet gathering"},
			},
		},
		Keywords: []string{"police"},
	}

	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/filter", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var filtered models.FetchResult
	if err := json.NewDecoder(w.Body).Decode(&filtered); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if filtered.FilteredCount != 1 || len(filtered.Events) != 1 {
		t.Errorf("FilteredCount = %d with %d events, want 1/1", filtered.FilteredCount, len(filtered.Events))
	}
}

func TestHandleFilter_NoKeywords(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	body, _ := json.Marshal(filterRequest{Keywords: []string{" "}})
	req := httptest.NewRequest(http.MethodPost, "/api/filter", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleSummary_CachesRenderedReport(t *testing.T) {
	srv, summaryCache := newTestServer(t, samplePosts()...)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/summary?city=Portland", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["city"] != "Portland" {
		t.Errorf("city = %q, want Portland", response["city"])
	}
	if response["summary"] == "" {
		t.Error("summary should not be empty")
	}

	if _, ok := summaryCache.Get("summary:Portland"); !ok {
		t.Error("summary should be cached after first request")
	}

	// Second request is served from cache and returns the same text.
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/summary?city=Portland", nil))

	var second map[string]string
	if err := json.NewDecoder(w2.Body).Decode(&second); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if second["summary"] != response["summary"] {
		t.Error("cached summary should match the first response")
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCORSMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	handlerFunc := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
		w := httptest.NewRecorder()

		handlerFunc(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("Missing Access-Control-Allow-Origin header")
		}
	})

	t.Run("GET request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		w := httptest.NewRecorder()

		handlerFunc(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
