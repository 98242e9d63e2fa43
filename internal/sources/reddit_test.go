package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/ratelimit"
	"github.com/johnrirwin/citywatch/internal/testutil"
)

func newRedditTestFetcher(tokenURL, searchURL string) *RedditFetcher {
	f := NewRedditFetcher(
		RedditCredentials{ClientID: "id", ClientSecret: "secret"},
		ratelimit.New(0),
		DefaultConfig(),
		testutil.NullLogger(),
	)
	f.tokenURL = tokenURL
	f.searchURL = searchURL
	return f
}

func redditListingJSON(posts ...redditPost) []byte {
	var listing redditListing
	for _, p := range posts {
		listing.Data.Children = append(listing.Data.Children, struct {
			Data redditPost `json:"data"`
		}{Data: p})
	}
	data, _ := json.Marshal(listing)
	return data
}

func TestRedditFetcher_Unconfigured(t *testing.T) {
	f := NewRedditFetcher(RedditCredentials{}, ratelimit.New(0), DefaultConfig(), testutil.NullLogger())

	if f.Configured() {
		t.Error("Configured() should be false without credentials")
	}

	posts, err := f.Fetch(context.Background(), "Portland", 10)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil for unconfigured adapter", err)
	}
	if posts != nil {
		t.Errorf("Fetch() = %v, want nil", posts)
	}
}

func TestRedditFetcher_Fetch(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(redditTokenResponse{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 3600})
	}))
	defer tokenSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(redditListingJSON(
			redditPost{
				ID:        "post1",
				Title:     "Protest in Portland downtown",
				Selftext:  "Crowds gathered",
				Author:    "someone",
				Permalink: "/r/news/post1",
				Created:   1_755_600_000,
				Score:     42,
				NumComms:  7,
			},
			redditPost{
				ID:       "post2",
				Title:    "Seattle traffic report",
				Selftext: "nothing relevant",
				Author:   "other",
			},
		))
	}))
	defer searchSrv.Close()

	f := newRedditTestFetcher(tokenSrv.URL, searchSrv.URL+"/r/%s/search")

	posts, err := f.Fetch(context.Background(), "Portland", 10)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// The same listing comes back for every subreddit/keyword combination, so
	// dedup by post ID leaves exactly one city-matching post.
	if len(posts) != 1 {
		t.Fatalf("Fetch() returned %d posts, want 1 after dedup and city filter", len(posts))
	}

	got := posts[0]
	if got.Source != models.SourceReddit {
		t.Errorf("Source = %q, want reddit", got.Source)
	}
	if got.ID != "post1" {
		t.Errorf("ID = %q, want post1", got.ID)
	}
	if got.Score != 42 || got.CommentCount != 7 {
		t.Errorf("engagement = %d/%d, want 42/7", got.Score, got.CommentCount)
	}
	if got.URL != "https://reddit.com/r/news/post1" {
		t.Errorf("URL = %q", got.URL)
	}
	if got.CreatedAt.IsZero() || got.CreatedAt.Location() != got.CreatedAt.UTC().Location() {
		t.Error("CreatedAt should be a UTC timestamp from created_utc")
	}
}

func TestRedditFetcher_LimitStopsSweep(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(redditTokenResponse{AccessToken: "tok"})
	}))
	defer tokenSrv.Close()

	calls := 0
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(redditListingJSON(redditPost{
			ID:    "p" + r.URL.Query().Get("q"),
			Title: "Portland protest " + r.URL.Query().Get("q"),
		}))
	}))
	defer searchSrv.Close()

	f := newRedditTestFetcher(tokenSrv.URL, searchSrv.URL+"/r/%s/search")

	posts, err := f.Fetch(context.Background(), "Portland", 2)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Fetch() returned %d posts, want limit of 2", len(posts))
	}
	if calls != 2 {
		t.Errorf("made %d search calls, want the sweep to stop at 2", calls)
	}
}

func TestRedditFetcher_AuthFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenSrv.Close()

	f := newRedditTestFetcher(tokenSrv.URL, "http://unused/r/%s/search")

	if _, err := f.Fetch(context.Background(), "Portland", 10); err == nil {
		t.Error("Fetch() should fail when the token endpoint rejects credentials")
	}
}

func TestRedditFetcher_QueryFailuresAbsorbed(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(redditTokenResponse{AccessToken: "tok"})
	}))
	defer tokenSrv.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer searchSrv.Close()

	f := newRedditTestFetcher(tokenSrv.URL, searchSrv.URL+"/r/%s/search")

	posts, err := f.Fetch(context.Background(), "Portland", 10)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want per-query failures absorbed", err)
	}
	if len(posts) != 0 {
		t.Errorf("Fetch() = %d posts, want 0", len(posts))
	}
}
