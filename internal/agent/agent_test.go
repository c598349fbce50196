package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/section"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type completion struct {
	resp *llm.ChatResponse
	err  error
}

func textResponse(content string) completion {
	return completion{resp: &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: content}}},
	}}
}

func toolCallResponse(calls ...llm.ToolCall) completion {
	return completion{resp: &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", ToolCalls: calls}}},
	}}
}

func errResponse(err error) completion { return completion{err: err} }

// fakeGen pops scripted completions in order and records every request.
type fakeGen struct {
	mu       sync.Mutex
	scripted []completion
	requests []llm.ChatRequest
}

func (g *fakeGen) Complete(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.scripted) == 0 {
		return nil, errors.New("unexpected generation call")
	}
	next := g.scripted[0]
	g.scripted = g.scripted[1:]
	return next.resp, next.err
}

func (g *fakeGen) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakePipeline struct {
	docs    []vectorstore.Document
	err     error
	queries []string
}

func (p *fakePipeline) Retrieve(_ context.Context, query string) ([]vectorstore.Document, error) {
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	return p.docs, nil
}

type searchCall struct {
	query  string
	domain string
}

type fakeSearcher struct {
	result string
	err    error
	calls  []searchCall
}

func (s *fakeSearcher) Search(_ context.Context, query, domain string) (string, error) {
	s.calls = append(s.calls, searchCall{query: query, domain: domain})
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

func methodsSection() section.Section {
	return section.Section{
		Title:     "Methods",
		Content:   "We ran the experiment once and report the mean accuracy.",
		Level:     1,
		LineStart: 10,
		LineEnd:   24,
	}
}

const oneIssueJSON = `{"issues": [{"line_hint": "first sentence", "issue": "Single run reported without variance", "suggestion": "Repeat the experiment across multiple seeds and report confidence intervals", "severity": "warning"}]}`

const keepAllReflectionJSON = `{"validated_suggestions": [{"line_hint": "first sentence", "issue": "Single run reported without variance", "suggestion": "Repeat the experiment across multiple seeds and report confidence intervals", "severity": "warning"}], "reasoning": "confirmed against the content"}`

func TestRetrieveContext_FormatsBulletsAndTruncates(t *testing.T) {
	longText := ""
	for len(longText) < 250 {
		longText += "guideline text "
	}
	pipeline := &fakePipeline{docs: []vectorstore.Document{
		{Text: longText},
		{Text: "short guideline"},
	}}
	b := &base{name: "TestAgent", retriever: pipeline, log: discardLogger()}

	got := b.retrieveContext(context.Background(), "query content")

	require.Contains(t, got, "- "+longText[:200]+"...")
	require.Contains(t, got, "- short guideline")
	require.NotContains(t, got, longText[:201])
}

func TestRetrieveContext_TruncatesQueryTo500Chars(t *testing.T) {
	content := ""
	for len(content) < 800 {
		content += "abcdefghij"
	}
	pipeline := &fakePipeline{}
	b := &base{name: "TestAgent", retriever: pipeline, log: discardLogger()}

	b.retrieveContext(context.Background(), content)

	require.Len(t, pipeline.queries, 1)
	require.Equal(t, content[:500], pipeline.queries[0])
}

func TestRetrieveContext_NilRetrieverReturnsEmpty(t *testing.T) {
	b := &base{name: "TestAgent", log: discardLogger()}
	require.Empty(t, b.retrieveContext(context.Background(), "anything"))
}

func TestRetrieveContext_FailureDegradesToEmpty(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("store down")}
	b := &base{name: "TestAgent", retriever: pipeline, log: discardLogger()}
	require.Empty(t, b.retrieveContext(context.Background(), "query"))
}
