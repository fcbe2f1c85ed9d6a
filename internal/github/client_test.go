package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer serves canned GitHub API responses: two repos, each with a
// languages map.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"name":             "devtool",
				"full_name":        "alice/devtool",
				"language":         "Go",
				"stargazers_count": 42,
				"html_url":         "https://github.com/alice/devtool",
			},
			{
				"name":             "scripts",
				"full_name":        "alice/scripts",
				"language":         "Python",
				"stargazers_count": 3,
				"html_url":         "https://github.com/alice/scripts",
			},
		})
	})
	mux.HandleFunc("/repos/alice/devtool/languages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"Go": 120000, "Makefile": 300})
	})
	mux.HandleFunc("/repos/alice/scripts/languages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"Python": 5000, "Makefile": 200})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRepos(t *testing.T) {
	srv := newTestServer(t)
	c := NewWithBaseURL(srv.Client(), srv.URL)

	repos, err := c.Repos(context.Background())
	if err != nil {
		t.Fatalf("Repos() error = %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("got %d repos, want 2", len(repos))
	}
	if repos[0].Name != "devtool" || repos[0].Language != "Go" || repos[0].Stars != 42 {
		t.Errorf("repos[0] = %+v", repos[0])
	}
	if repos[0].URL != "https://github.com/alice/devtool" {
		t.Errorf("URL = %q", repos[0].URL)
	}
}

func TestLanguages_SumsAcrossRepos(t *testing.T) {
	srv := newTestServer(t)
	c := NewWithBaseURL(srv.Client(), srv.URL)

	langs, err := c.Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages() error = %v", err)
	}

	want := map[string]int64{"Go": 120000, "Python": 5000, "Makefile": 500}
	for lang, bytes := range want {
		if langs[lang] != bytes {
			t.Errorf("Languages()[%s] = %d, want %d", lang, langs[lang], bytes)
		}
	}
}

func TestRepos_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewWithBaseURL(srv.Client(), srv.URL)
	if _, err := c.Repos(context.Background()); err == nil {
		t.Fatal("Repos() should surface non-200 responses as errors")
	}
}
