// Package agent implements the analysis agents that review document
// sections. Each agent follows the same protocol: optional relevance gate,
// optional guideline retrieval, a structured analysis call, and a
// self-reflection pass that validates its own findings. Agents never return
// errors to the orchestrator; every internal failure degrades to an empty
// or unfiltered result with a logged warning.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/retrieval"
	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/section"
)

// Generator is the slice of the llm client the agents need.
type Generator interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Issue is one finding from an analysis round, before conversion to a
// review.Suggestion.
type Issue struct {
	LineHint        string   `json:"line_hint"`
	Issue           string   `json:"issue"`
	Suggestion      string   `json:"suggestion"`
	Severity        string   `json:"severity"`
	ExternalSources []string `json:"external_sources,omitempty"`
}

type analysisResponse struct {
	Issues []Issue `json:"issues"`
}

type reflectionResponse struct {
	ValidatedSuggestions []Issue `json:"validated_suggestions"`
	Reasoning            string  `json:"reasoning"`
}

// base carries what every agent variant shares.
type base struct {
	name        string
	typ         string
	model       string
	temperature float64
	gen         Generator
	retriever   retrieval.Pipeline
	log         *slog.Logger
}

// retrieveContext queries the retrieval pipeline with a prefix of the
// section content and formats hits as bulleted guideline context. Retrieval
// failures degrade to empty context, never abort analysis.
func (b *base) retrieveContext(ctx context.Context, content string) string {
	if b.retriever == nil {
		return ""
	}

	query := content
	if len(query) > 500 {
		query = query[:500]
	}

	docs, err := b.retriever.Retrieve(ctx, query)
	if err != nil {
		b.log.Warn("guideline retrieval failed", "agent", b.name, "error", err)
		return ""
	}
	if len(docs) == 0 {
		b.log.Info("no relevant guidelines found", "agent", b.name)
		return ""
	}

	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		text := d.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		lines = append(lines, "- "+text)
	}
	b.log.Info("retrieved guidelines", "agent", b.name, "count", len(docs))
	return strings.Join(lines, "\n")
}

// reflect runs the self-validation pass over first-round issues. On any
// failure it keeps all candidates rather than dropping the agent's findings.
func (b *base) reflect(ctx context.Context, systemPrompt string, sec section.Section, issues []Issue) ([]Issue, string) {
	content := sec.Content
	if len(content) > 1000 {
		content = content[:1000]
	}

	resp, err := b.gen.Complete(ctx, llm.ChatRequest{
		Model:          b.model,
		Temperature:    b.temperature,
		ResponseFormat: llm.JSONObject,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildReflectionUserPrompt(sec.Title, content, len(issues))},
		},
	})
	if err == nil {
		var reflection reflectionResponse
		if uerr := llm.UnmarshalContent(resp, &reflection); uerr == nil {
			b.log.Info("reflection complete", "agent", b.name, "reasoning", reflection.Reasoning)
			return reflection.ValidatedSuggestions, reflection.Reasoning
		} else {
			err = uerr
		}
	}

	b.log.Warn("reflection failed, using original suggestions", "agent", b.name, "error", err)
	return issues, "Reflection failed, using all original suggestions"
}

// toSuggestions converts surviving issues into standardized suggestions
// carrying the agent's type tag and the section's title and line bounds.
func (b *base) toSuggestions(issues []Issue, title string, sec section.Section) []review.Suggestion {
	issues = NormalizeIssues(issues)
	out := make([]review.Suggestion, 0, len(issues))
	for _, issue := range issues {
		refs := issue.ExternalSources
		if refs == nil {
			refs = []string{}
		}
		out = append(out, review.Suggestion{
			ID:           uuid.NewString(),
			Type:         b.typ,
			Severity:     issue.Severity,
			Title:        title,
			Description:  issue.Issue,
			Section:      sec.Title,
			LineStart:    sec.LineStart,
			LineEnd:      sec.LineEnd,
			SuggestedFix: issue.Suggestion,
			References:   refs,
		})
	}
	return out
}
