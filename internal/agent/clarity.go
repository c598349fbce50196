package agent

import (
	"context"
	"log/slog"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/retrieval"
	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/section"
)

// Clarity analyzes writing clarity and readability: unclear statements,
// convoluted sentences, undefined jargon, vague references.
type Clarity struct {
	base
}

type ClarityOptions struct {
	Model       string
	Temperature float64
}

func NewClarity(gen Generator, retriever retrieval.Pipeline, log *slog.Logger, opts ClarityOptions) *Clarity {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	return &Clarity{base: base{
		name:        "ClarityAgent",
		typ:         "clarity",
		model:       opts.Model,
		temperature: opts.Temperature,
		gen:         gen,
		retriever:   retriever,
		log:         log,
	}}
}

func (a *Clarity) Type() string { return a.typ }

// Analyze runs the analyze-then-reflect protocol on one section. Every
// section is eligible; there is no relevance gate for clarity.
func (a *Clarity) Analyze(ctx context.Context, sec section.Section) []review.Suggestion {
	log := a.log.With("agent", a.name, "section", sec.Title)
	log.Info("analyzing section")

	guidelines := a.retrieveContext(ctx, sec.Content)

	resp, err := a.gen.Complete(ctx, llm.ChatRequest{
		Model:          a.model,
		Temperature:    a.temperature,
		ResponseFormat: llm.JSONObject,
		Messages: []llm.Message{
			{Role: "system", Content: clarityAnalysisPrompt},
			{Role: "user", Content: buildAnalysisUserPrompt("clarity", sec.Title, guidelines, sec.Content)},
		},
	})
	if err != nil {
		log.Warn("analysis failed", "error", err)
		return nil
	}

	var analysis analysisResponse
	if err := llm.UnmarshalContent(resp, &analysis); err != nil {
		log.Warn("analysis response malformed", "error", err)
		return nil
	}
	if len(analysis.Issues) == 0 {
		log.Info("no issues found")
		return nil
	}
	log.Info("found potential issues", "count", len(analysis.Issues))

	validated, _ := a.reflect(ctx, clarityReflectionPrompt, sec, analysis.Issues)
	suggestions := a.toSuggestions(validated, "Clarity Issue", sec)
	log.Info("validated suggestions", "count", len(suggestions))
	return suggestions
}
