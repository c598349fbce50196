package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/retrieval"
	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/section"
)

// Searcher provides external web search for the rigor agent's tool calls.
type Searcher interface {
	Search(ctx context.Context, query, domain string) (string, error)
}

// Sections whose titles carry none of these keywords are skipped without
// spending a generation call.
var rigorKeywords = []string{
	"method", "methodology", "experiment", "evaluation",
	"result", "analysis", "proof", "theorem", "lemma",
	"implementation", "setup", "design", "procedure",
}

var webSearchTool = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name: "search_rigor_best_practices",
		Description: "Search for authoritative best practices on mathematical and experimental rigor: " +
			"statistical method appropriateness, experimental design standards, sample size requirements, " +
			"multiple testing corrections, and domain-specific research guidelines.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query focused on rigor best practices.",
				},
				"domain": map[string]any{
					"type":        "string",
					"description": "Optional research domain to contextualize the search (e.g., \"clinical trials\", \"machine learning\").",
				},
			},
			"required": []string{"query"},
		},
	},
}

// Rigor analyzes experimental and mathematical soundness. When a Searcher is
// configured, its analysis round may request web searches; executed results
// feed a second round that produces the final structured output.
type Rigor struct {
	base
	searcher     Searcher
	maxToolCalls int
}

type RigorOptions struct {
	Model       string
	Temperature float64
	// MaxToolCalls caps search invocations per section. Excess requests are
	// dropped with a warning.
	MaxToolCalls int
}

func NewRigor(gen Generator, retriever retrieval.Pipeline, searcher Searcher, log *slog.Logger, opts RigorOptions) *Rigor {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 2
	}
	return &Rigor{
		base: base{
			name:        "RigorAgent",
			typ:         "rigor",
			model:       opts.Model,
			temperature: opts.Temperature,
			gen:         gen,
			retriever:   retriever,
			log:         log,
		},
		searcher:     searcher,
		maxToolCalls: opts.MaxToolCalls,
	}
}

func (a *Rigor) Type() string { return a.typ }

// relevantForRigor is a cheap title gate: only sections about methods,
// experiments, results, or mathematical content warrant rigor analysis.
func relevantForRigor(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range rigorKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Analyze runs the gated, optionally search-augmented analyze-then-reflect
// protocol on one section.
func (a *Rigor) Analyze(ctx context.Context, sec section.Section) []review.Suggestion {
	if !relevantForRigor(sec.Title) {
		a.log.Debug("skipping section not relevant for rigor", "section", sec.Title)
		return nil
	}

	log := a.log.With("agent", a.name, "section", sec.Title)
	log.Info("analyzing section")

	guidelines := a.retrieveContext(ctx, sec.Content)

	issues, err := a.analyzeWithTools(ctx, log, sec, guidelines)
	if err != nil {
		log.Warn("analysis failed", "error", err)
		return nil
	}
	if len(issues) == 0 {
		log.Info("no issues found")
		return nil
	}
	log.Info("found potential issues", "count", len(issues))

	validated, _ := a.reflect(ctx, rigorReflectionPrompt, sec, issues)
	suggestions := a.toSuggestions(validated, "Rigor Issue", sec)
	log.Info("validated suggestions", "count", len(suggestions))
	return suggestions
}

// analyzeWithTools runs the two-round analysis sub-protocol. Round one
// offers the search tool; if the model requests calls, up to maxToolCalls
// are executed and their outputs feed a round-two call that must return the
// final structured result. With no tool requests, round one's direct output
// is used and round two is skipped.
func (a *Rigor) analyzeWithTools(ctx context.Context, log *slog.Logger, sec section.Section, guidelines string) ([]Issue, error) {
	messages := []llm.Message{
		{Role: "system", Content: rigorAnalysisPrompt},
		{Role: "user", Content: buildAnalysisUserPrompt("rigor", sec.Title, guidelines, sec.Content)},
	}

	req := llm.ChatRequest{
		Model:          a.model,
		Temperature:    a.temperature,
		ResponseFormat: llm.JSONObject,
		Messages:       messages,
	}
	if a.searcher != nil {
		req.Tools = []llm.Tool{webSearchTool}
		req.ToolChoice = "auto"
	}

	resp, err := a.gen.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	toolCalls := resp.FirstToolCalls()
	if len(toolCalls) == 0 {
		var analysis analysisResponse
		if err := llm.UnmarshalContent(resp, &analysis); err != nil {
			return nil, err
		}
		return analysis.Issues, nil
	}

	if len(toolCalls) > a.maxToolCalls {
		log.Warn("tool call budget exceeded, dropping excess requests",
			"requested", len(toolCalls), "max", a.maxToolCalls)
		toolCalls = toolCalls[:a.maxToolCalls]
	}

	// The assistant turn carries only the executed calls so that every tool
	// call in the transcript has a matching result.
	assistant := resp.Choices[0].Message
	assistant.ToolCalls = toolCalls
	messages = append(messages, assistant)
	for _, call := range toolCalls {
		messages = append(messages, llm.Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    a.executeSearch(ctx, log, call),
		})
	}
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Using the search results above as additional context, identify all rigor issues and return them in the JSON format.",
	})

	resp, err = a.gen.Complete(ctx, llm.ChatRequest{
		Model:          a.model,
		Temperature:    a.temperature,
		ResponseFormat: llm.JSONObject,
		Messages:       messages,
	})
	if err != nil {
		return nil, err
	}

	var analysis analysisResponse
	if err := llm.UnmarshalContent(resp, &analysis); err != nil {
		return nil, err
	}
	return analysis.Issues, nil
}

// executeSearch runs one requested search. Failures come back as an
// error-annotated tool result so round two still proceeds.
func (a *Rigor) executeSearch(ctx context.Context, log *slog.Logger, call llm.ToolCall) string {
	var args struct {
		Query  string `json:"query"`
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		log.Warn("malformed tool arguments", "error", err)
		return fmt.Sprintf("Error: malformed tool arguments: %s. Unable to retrieve external best practices.", err)
	}

	log.Info("executing web search", "query", args.Query, "domain", args.Domain)
	result, err := a.searcher.Search(ctx, args.Query, args.Domain)
	if err != nil {
		log.Warn("web search failed", "error", err)
		return fmt.Sprintf("Error: search failed: %s. Unable to retrieve external best practices.", err)
	}
	return result
}
