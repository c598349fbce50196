package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/section"
)

func searchToolCall(id, query string) llm.ToolCall {
	return llm.ToolCall{
		ID:   id,
		Type: "function",
		Function: llm.FunctionCall{
			Name:      "search_rigor_best_practices",
			Arguments: fmt.Sprintf(`{"query": %q}`, query),
		},
	}
}

func TestRigor_SkipsIrrelevantSections(t *testing.T) {
	gen := &fakeGen{}
	agent := NewRigor(gen, nil, &fakeSearcher{}, discardLogger(), RigorOptions{})

	got := agent.Analyze(context.Background(), section.Section{
		Title:   "Introduction",
		Content: "This paper studies retrieval.",
	})

	assert.Empty(t, got)
	assert.Zero(t, gen.callCount(), "skipped sections must not spend generation calls")
}

func TestRigor_RelevanceGateMatchesKeywords(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"Methods", true},
		{"4. Experimental Setup", true},
		{"Results and Discussion", true},
		{"Proof of Theorem 2", true},
		{"EVALUATION", true},
		{"Introduction", false},
		{"Related Work", false},
		{"Acknowledgments", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, relevantForRigor(tc.title), "title %q", tc.title)
	}
}

func TestRigor_ToolCallCapDropsExcess(t *testing.T) {
	var calls []llm.ToolCall
	for i := 0; i < 5; i++ {
		calls = append(calls, searchToolCall(fmt.Sprintf("call_%d", i), fmt.Sprintf("query %d", i)))
	}
	searcher := &fakeSearcher{result: "=== Summary ===\nuse multiple seeds"}
	gen := &fakeGen{scripted: []completion{
		toolCallResponse(calls...),
		textResponse(oneIssueJSON),
		textResponse(keepAllReflectionJSON),
	}}
	agent := NewRigor(gen, nil, searcher, discardLogger(), RigorOptions{MaxToolCalls: 2})

	got := agent.Analyze(context.Background(), methodsSection())

	require.Len(t, got, 1)
	require.Len(t, searcher.calls, 2, "exactly maxToolCalls searches must execute")
	assert.Equal(t, "query 0", searcher.calls[0].query)
	assert.Equal(t, "query 1", searcher.calls[1].query)

	require.Equal(t, 3, gen.callCount())
	round2 := gen.requests[1].Messages

	var assistantToolCalls []llm.ToolCall
	var toolResults []llm.Message
	for _, m := range round2 {
		if m.Role == "assistant" {
			assistantToolCalls = m.ToolCalls
		}
		if m.Role == "tool" {
			toolResults = append(toolResults, m)
		}
	}
	require.Len(t, assistantToolCalls, 2, "assistant turn must carry only executed calls")
	require.Len(t, toolResults, 2)
	assert.Equal(t, "call_0", toolResults[0].ToolCallID)
	assert.Equal(t, "call_1", toolResults[1].ToolCallID)
	assert.Contains(t, round2[len(round2)-1].Content, "Using the search results above")
}

func TestRigor_NoToolCallsUsesDirectResponse(t *testing.T) {
	searcher := &fakeSearcher{}
	gen := &fakeGen{scripted: []completion{
		textResponse(oneIssueJSON),
		textResponse(keepAllReflectionJSON),
	}}
	agent := NewRigor(gen, nil, searcher, discardLogger(), RigorOptions{})

	got := agent.Analyze(context.Background(), methodsSection())

	require.Len(t, got, 1)
	assert.Equal(t, "rigor", got[0].Type)
	assert.Equal(t, "Rigor Issue", got[0].Title)
	assert.Empty(t, searcher.calls)
	assert.Equal(t, 2, gen.callCount())

	analysis := gen.requests[0]
	require.Len(t, analysis.Tools, 1)
	assert.Equal(t, "search_rigor_best_practices", analysis.Tools[0].Function.Name)
	assert.Equal(t, "auto", analysis.ToolChoice)
	assert.Equal(t, llm.JSONObject, analysis.ResponseFormat)
	assert.Equal(t, "gpt-4o", analysis.Model)
}

func TestRigor_WithoutSearcherOmitsTools(t *testing.T) {
	gen := &fakeGen{scripted: []completion{
		textResponse(`{"issues": []}`),
	}}
	agent := NewRigor(gen, nil, nil, discardLogger(), RigorOptions{})

	agent.Analyze(context.Background(), methodsSection())

	require.Equal(t, 1, gen.callCount())
	assert.Empty(t, gen.requests[0].Tools)
	assert.Empty(t, gen.requests[0].ToolChoice)
}

func TestRigor_SearchFailureBecomesToolError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("tavily unavailable")}
	gen := &fakeGen{scripted: []completion{
		toolCallResponse(searchToolCall("call_0", "sample size standards")),
		textResponse(`{"issues": []}`),
	}}
	agent := NewRigor(gen, nil, searcher, discardLogger(), RigorOptions{})

	got := agent.Analyze(context.Background(), methodsSection())

	assert.Empty(t, got)
	require.Equal(t, 2, gen.callCount())

	var toolContent string
	for _, m := range gen.requests[1].Messages {
		if m.Role == "tool" {
			toolContent = m.Content
		}
	}
	assert.True(t, strings.HasPrefix(toolContent, "Error: search failed:"), "got %q", toolContent)
	assert.Contains(t, toolContent, "Unable to retrieve external best practices")
}

func TestRigor_MalformedToolArgumentsSkipSearch(t *testing.T) {
	searcher := &fakeSearcher{}
	gen := &fakeGen{scripted: []completion{
		toolCallResponse(llm.ToolCall{
			ID:   "call_0",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "search_rigor_best_practices",
				Arguments: `{"query": `,
			},
		}),
		textResponse(`{"issues": []}`),
	}}
	agent := NewRigor(gen, nil, searcher, discardLogger(), RigorOptions{})

	agent.Analyze(context.Background(), methodsSection())

	assert.Empty(t, searcher.calls)
	require.Equal(t, 2, gen.callCount())

	var toolContent string
	for _, m := range gen.requests[1].Messages {
		if m.Role == "tool" {
			toolContent = m.Content
		}
	}
	assert.True(t, strings.HasPrefix(toolContent, "Error: malformed tool arguments:"), "got %q", toolContent)
}

func TestRigor_SearcherReceivesDomain(t *testing.T) {
	searcher := &fakeSearcher{result: "sources"}
	gen := &fakeGen{scripted: []completion{
		toolCallResponse(llm.ToolCall{
			ID:   "call_0",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "search_rigor_best_practices",
				Arguments: `{"query": "power analysis", "domain": "clinical trials"}`,
			},
		}),
		textResponse(`{"issues": []}`),
	}}
	agent := NewRigor(gen, nil, searcher, discardLogger(), RigorOptions{})

	agent.Analyze(context.Background(), methodsSection())

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, "power analysis", searcher.calls[0].query)
	assert.Equal(t, "clinical trials", searcher.calls[0].domain)
}

func TestRigor_ExternalSourcesBecomeReferences(t *testing.T) {
	withSources := `{"issues": [{"issue": "No multiple testing correction", "suggestion": "Apply Bonferroni or FDR control", "severity": "error", "external_sources": ["https://example.org/mtc-guide"]}]}`
	reflected := `{"validated_suggestions": [{"issue": "No multiple testing correction", "suggestion": "Apply Bonferroni or FDR control", "severity": "error", "external_sources": ["https://example.org/mtc-guide"]}], "reasoning": "kept"}`
	gen := &fakeGen{scripted: []completion{
		textResponse(withSources),
		textResponse(reflected),
	}}
	agent := NewRigor(gen, nil, nil, discardLogger(), RigorOptions{})

	got := agent.Analyze(context.Background(), methodsSection())

	require.Len(t, got, 1)
	assert.Equal(t, []string{"https://example.org/mtc-guide"}, got[0].References)
	assert.Equal(t, "error", got[0].Severity)
}

func TestRigor_AnalysisFailureReturnsNothing(t *testing.T) {
	gen := &fakeGen{scripted: []completion{
		errResponse(errors.New("rate limited")),
	}}
	agent := NewRigor(gen, nil, nil, discardLogger(), RigorOptions{})

	got := agent.Analyze(context.Background(), methodsSection())

	assert.Empty(t, got)
	assert.Equal(t, 1, gen.callCount())
}
