// Package search is the web-search fallback used when bounded crawling
// cannot resolve a canonical event page. Queries are built as multiple
// variants from the record's title, organizer and date, and results are
// filtered through the same content policy as crawled links.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Result is one search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Service is the search boundary; satisfied by *Client.
type Service interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Client talks to a Tavily-style search API over JSON HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient builds a search client. An empty apiKey yields a client whose
// searches fail fast, which callers treat as "no fallback available".
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search issues one query and returns the raw results.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("search API key not configured")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Results, nil
}

// BuildQueries produces the ordered query variants for one record. The
// first variants lean on the exact title; later ones add organizer and
// month context.
func BuildQueries(title, organizer, eventDate string) []string {
	queries := []string{
		fmt.Sprintf("%q event registration", title),
		fmt.Sprintf("%q conference official site", title),
	}

	org := strings.TrimSpace(organizer)
	switch org {
	case "", "Unknown", "Various", "N/A":
	default:
		queries = append(queries, fmt.Sprintf("%s %q", org, title))
	}

	if d, err := time.Parse("2006-01-02", eventDate); err == nil {
		queries = append(queries, fmt.Sprintf("%q %s %d", title, d.Month().String(), d.Year()))
	}
	return queries
}
