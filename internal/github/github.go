// Package github fetches a user's public repositories from the GitHub REST API.
//
// Requests are anonymous unless a token is configured, in which case
// golang.org/x/oauth2 adds "Authorization: Bearer <token>" to every call.
// Authenticated requests get a far higher rate limit.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/devconnect/internal/apperror"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// RepoLimit is how many repositories Repos returns.
const RepoLimit = 5

// Repo is the portion of a GitHub repository object we pass on to clients.
type Repo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	WatchersCount   int    `json:"watchers_count"`
	ForksCount      int    `json:"forks_count"`
}

// Client calls the GitHub API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
// An empty token means anonymous requests.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		httpClient.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Repos returns the RepoLimit oldest-created public repositories of username.
// An unknown user yields apperror.ErrNotFound.
func (c *Client) Repos(ctx context.Context, username string) ([]Repo, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NotFoundMsg("No GitHub profile found")
	}

	q := url.Values{}
	q.Set("per_page", fmt.Sprint(RepoLimit))
	q.Set("sort", "created")
	q.Set("direction", "asc")
	endpoint := fmt.Sprintf("%s/users/%s/repos?%s", c.baseURL, url.PathEscape(username), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "devconnect")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: calling repos API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFoundMsg("No GitHub profile found")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("github: repos API returned status %d", resp.StatusCode)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("github: decoding repos response: %w", err)
	}
	if repos == nil {
		repos = []Repo{}
	}
	return repos, nil
}
