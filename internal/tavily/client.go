// Package tavily is a minimal client for the Tavily web search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client communicates with the Tavily HTTP API.
type Client struct {
	baseURL     string
	apiKey      string
	searchDepth string
	maxResults  int
	httpClient  *http.Client
}

func NewClient(baseURL, apiKey, searchDepth string, maxResults int) *Client {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if searchDepth == "" {
		searchDepth = "basic"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		searchDepth: searchDepth,
		maxResults:  maxResults,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type searchRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResponse struct {
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Search runs a web search and returns the results formatted as plain text
// for model consumption. A non-empty domain narrows the query's context.
func (c *Client) Search(ctx context.Context, query, domain string) (string, error) {
	if domain != "" {
		query = query + " in " + domain
	}

	body, err := json.Marshal(searchRequest{
		Query:             query,
		SearchDepth:       c.searchDepth,
		MaxResults:        c.maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	return formatResponse(&result), nil
}

// formatResponse renders the answer summary followed by numbered sources
// with 300-character content snippets.
func formatResponse(resp *searchResponse) string {
	var parts []string

	if resp.Answer != "" {
		parts = append(parts, "=== Summary ===", resp.Answer, "")
	}

	if len(resp.Results) > 0 {
		parts = append(parts, "=== Detailed Sources ===")
		results := resp.Results
		if len(results) > 5 {
			results = results[:5]
		}
		for i, r := range results {
			title := r.Title
			if title == "" {
				title = "No title"
			}
			url := r.URL
			if url == "" {
				url = "No URL"
			}
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, title))
			parts = append(parts, "   Source: "+url)
			if r.Content != "" {
				snippet := r.Content
				if len(snippet) > 300 {
					snippet = snippet[:300] + "..."
				}
				parts = append(parts, "   "+snippet)
			}
			parts = append(parts, "")
		}
	}

	if len(parts) == 0 {
		return "No relevant information found."
	}
	return strings.Join(parts, "\n")
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
