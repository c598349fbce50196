package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripCodeBlock(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeBlock(tc.in); got != tc.want {
			t.Errorf("stripCodeBlock(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestUnmarshalContent(t *testing.T) {
	resp := &ChatResponse{Choices: []Choice{{Message: Message{Content: "```json\n{\"issues\":[]}\n```"}}}}
	var out struct {
		Issues []string `json:"issues"`
	}
	if err := UnmarshalContent(resp, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Issues == nil || len(out.Issues) != 0 {
		t.Errorf("expected empty issues, got %v", out.Issues)
	}
}

func TestUnmarshalContent_InvalidJSON(t *testing.T) {
	resp := &ChatResponse{Choices: []Choice{{Message: Message{Content: "not json"}}}}
	var out map[string]any
	if err := UnmarshalContent(resp, &out); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestUnmarshalContent_EmptyContent(t *testing.T) {
	resp := &ChatResponse{Choices: []Choice{{Message: Message{Content: ""}}}}
	var out map[string]any
	if err := UnmarshalContent(resp, &out); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestComplete_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-key", 0)
	resp, err := c.Complete(context.Background(), ChatRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "hello" {
		t.Errorf("expected content %q, got %q", "hello", resp.Text())
	}
}

func TestComplete_RetryableStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 0)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %T: %v", err, err)
	}
	if re.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", re.StatusCode)
	}
}

func TestComplete_NonRetryableStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 0)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	var re *RetryableError
	if errors.As(err, &re) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestEmbed_OrdersByIndex(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// Deliberately out of order.
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0.2]},{"index":0,"embedding":[0.1]}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", 0)
	vectors, err := c.Embed(context.Background(), "embed-model", []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.2 {
		t.Errorf("expected vectors ordered by input index, got %v", vectors)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	c := NewClient("http://unused", "k", 0)
	vectors, err := c.Embed(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil vectors for empty input, got %v", vectors)
	}
}
