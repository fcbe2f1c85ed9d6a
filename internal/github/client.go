// Package github is a minimal client for the pieces of the GitHub REST API
// the application consumes: the authenticated user's repositories and their
// per-repository language byte counts.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sakif/devconnect/internal/model"
)

const defaultBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API with a token-bearing http.Client
// (built by auth.GitHubProvider.HTTPClient).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a Client. httpClient must already carry the OAuth token.
func New(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient, baseURL: defaultBaseURL}
}

// NewWithBaseURL creates a Client against a different API root.
// Used by tests to point at an httptest server.
func NewWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// apiRepo is the subset of the /user/repos response we read.
type apiRepo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Language      string `json:"language"`
	Stars         int    `json:"stargazers_count"`
	HTMLURL       string `json:"html_url"`
	LanguagesPath string `json:"languages_url"`
}

// Repos returns descriptors for the authenticated user's repositories.
func (c *Client) Repos(ctx context.Context) ([]model.Repo, error) {
	repos, err := c.fetchRepos(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Repo, 0, len(repos))
	for _, r := range repos {
		out = append(out, model.Repo{
			Name:     r.Name,
			Language: r.Language,
			Stars:    r.Stars,
			URL:      r.HTMLURL,
		})
	}
	return out, nil
}

// Languages fetches the /languages map of every repository and sums the
// byte counts into one language → total bytes map.
func (c *Client) Languages(ctx context.Context) (map[string]int64, error) {
	repos, err := c.fetchRepos(ctx)
	if err != nil {
		return nil, err
	}

	totals := map[string]int64{}
	for _, r := range repos {
		var perRepo map[string]int64
		url := fmt.Sprintf("%s/repos/%s/languages", c.baseURL, r.FullName)
		if err := c.getJSON(ctx, url, &perRepo); err != nil {
			return nil, fmt.Errorf("github: fetching languages for %s: %w", r.FullName, err)
		}
		for lang, bytes := range perRepo {
			totals[lang] += bytes
		}
	}
	return totals, nil
}

func (c *Client) fetchRepos(ctx context.Context) ([]apiRepo, error) {
	var repos []apiRepo
	url := c.baseURL + "/user/repos?per_page=100&sort=updated"
	if err := c.getJSON(ctx, url, &repos); err != nil {
		return nil, fmt.Errorf("github: fetching repositories: %w", err)
	}
	return repos, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", url, err)
	}
	return nil
}
