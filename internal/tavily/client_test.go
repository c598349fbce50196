package tavily

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch_AppendsDomainToQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Query != "sample size requirements in clinical trials" {
			t.Errorf("unexpected query %q", body.Query)
		}
		if !body.IncludeAnswer || body.IncludeRawContent {
			t.Errorf("unexpected flags: %+v", body)
		}
		fmt.Fprint(w, `{"answer":"Use power analysis.","results":[]}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "tv-key", "basic", 5)
	out, err := c.Search(context.Background(), "sample size requirements", "clinical trials")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Use power analysis.") {
		t.Errorf("expected answer in output, got %q", out)
	}
}

func TestFormatResponse(t *testing.T) {
	long := strings.Repeat("x", 400)
	resp := &searchResponse{
		Answer: "Short answer.",
		Results: []searchResult{
			{Title: "Guide", URL: "https://example.org/guide", Content: long},
			{Title: "", URL: "", Content: "short snippet"},
		},
	}

	out := formatResponse(resp)
	lines := strings.Split(out, "\n")
	if lines[0] != "=== Summary ===" || lines[1] != "Short answer." {
		t.Errorf("unexpected summary block: %q", lines[:2])
	}
	if !strings.Contains(out, "=== Detailed Sources ===") {
		t.Error("missing sources header")
	}
	if !strings.Contains(out, "1. Guide") {
		t.Error("missing numbered source title")
	}
	if !strings.Contains(out, "   Source: https://example.org/guide") {
		t.Error("missing source url line")
	}
	if !strings.Contains(out, "   "+long[:300]+"...") {
		t.Error("expected content truncated to 300 chars with ellipsis")
	}
	if strings.Contains(out, long) {
		t.Error("full content should not appear")
	}
	if !strings.Contains(out, "2. No title") || !strings.Contains(out, "   Source: No URL") {
		t.Error("expected placeholders for missing title and url")
	}
	if !strings.Contains(out, "   short snippet") {
		t.Error("short content should appear without ellipsis")
	}
}

func TestFormatResponse_CapsAtFiveSources(t *testing.T) {
	resp := &searchResponse{}
	for i := 0; i < 8; i++ {
		resp.Results = append(resp.Results, searchResult{Title: fmt.Sprintf("t%d", i), URL: "u", Content: "c"})
	}

	out := formatResponse(resp)
	if !strings.Contains(out, "5. t4") {
		t.Error("expected fifth source present")
	}
	if strings.Contains(out, "6. t5") {
		t.Error("expected sources capped at five")
	}
}

func TestFormatResponse_Empty(t *testing.T) {
	out := formatResponse(&searchResponse{})
	if out != "No relevant information found." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSearch_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "basic", 5)
	if _, err := c.Search(context.Background(), "q", ""); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
