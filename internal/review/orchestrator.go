package review

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/section"
)

// Agent analyzes one section and returns candidate suggestions. Analyze must
// never fail the review: internal generation or retrieval errors degrade to
// an empty result inside the agent.
type Agent interface {
	Type() string
	Analyze(ctx context.Context, sec section.Section) []Suggestion
}

// Generator is the slice of the llm client the orchestrator needs.
type Generator interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Options tune one orchestrator instance.
type Options struct {
	// Model runs the final cross-validation call.
	Model       string
	Temperature float64
	// MaxSectionTokens caps section content before agents see it.
	MaxSectionTokens int
}

// Result is the outcome of one review.
type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	SessionID   string       `json:"session_id"`
	Metadata    Metadata     `json:"metadata"`
}

// Metadata summarizes how the result was produced.
type Metadata struct {
	SectionCount   int            `json:"section_count"`
	PerAgentCounts map[string]int `json:"per_agent_counts"`
	FinalCount     int            `json:"final_count"`
}

// Orchestrator drives the review workflow: parse sections, analyze each with
// every enabled agent concurrently, then cross-validate the pooled findings.
type Orchestrator struct {
	agents []Agent
	gen    Generator
	log    *slog.Logger
	opts   Options
}

func NewOrchestrator(agents []Agent, gen Generator, log *slog.Logger, opts Options) *Orchestrator {
	if opts.MaxSectionTokens <= 0 {
		opts.MaxSectionTokens = 2000
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	return &Orchestrator{
		agents: agents,
		gen:    gen,
		log:    log,
		opts:   opts,
	}
}

// AgentTypes returns the type tags of all configured agents, in order.
func (o *Orchestrator) AgentTypes() []string {
	types := make([]string, len(o.agents))
	for i, a := range o.agents {
		types[i] = a.Type()
	}
	return types
}

type workflowState int

const (
	stateParseSections workflowState = iota
	stateAnalyzeSection
	stateNextSection
	stateValidateSuggestions
	stateDone
)

// reviewState is the single mutable record for one Review call. It is never
// shared across concurrent reviews.
type reviewState struct {
	content      string
	sessionID    string
	sections     []section.Section
	currentIndex int
	agentTypes   []string
	perAgent     map[string][]Suggestion
	final        []Suggestion
	complete     bool
}

// Review runs the full workflow over content. Enabled analysis types filter
// the configured agents; an empty list enables all of them. A review always
// returns a result, possibly with zero suggestions, rather than an error.
func (o *Orchestrator) Review(ctx context.Context, content, sessionID string, analysisTypes []string) *Result {
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	log := o.log.With("session_id", sessionID)

	agents := o.enabledAgents(analysisTypes)
	st := &reviewState{
		content:    content,
		sessionID:  sessionID,
		agentTypes: make([]string, len(agents)),
		perAgent:   make(map[string][]Suggestion, len(agents)),
	}
	for i, a := range agents {
		st.agentTypes[i] = a.Type()
	}

	log.Info("starting review", "agents", st.agentTypes)

	current := stateParseSections
	for current != stateDone {
		switch current {
		case stateParseSections:
			st.sections = section.Parse(st.content)
			st.currentIndex = 0
			log.Info("parsed sections", "count", len(st.sections))
			current = stateAnalyzeSection

		case stateAnalyzeSection:
			o.analyzeSection(ctx, log, st, agents)
			current = stateNextSection

		case stateNextSection:
			st.currentIndex++
			if st.currentIndex < len(st.sections) {
				current = stateAnalyzeSection
			} else {
				current = stateValidateSuggestions
			}

		case stateValidateSuggestions:
			o.validateSuggestions(ctx, log, st)
			current = stateDone
		}
	}

	counts := make(map[string]int, len(st.agentTypes))
	for _, typ := range st.agentTypes {
		counts[typ] = len(st.perAgent[typ])
	}
	log.Info("review complete", "final_suggestions", len(st.final))

	return &Result{
		Suggestions: st.final,
		SessionID:   st.sessionID,
		Metadata: Metadata{
			SectionCount:   len(st.sections),
			PerAgentCounts: counts,
			FinalCount:     len(st.final),
		},
	}
}

func (o *Orchestrator) enabledAgents(analysisTypes []string) []Agent {
	if len(analysisTypes) == 0 {
		return o.agents
	}
	enabled := make(map[string]bool, len(analysisTypes))
	for _, t := range analysisTypes {
		enabled[t] = true
	}
	agents := make([]Agent, 0, len(o.agents))
	for _, a := range o.agents {
		if enabled[a.Type()] {
			agents = append(agents, a)
		}
	}
	return agents
}

// analyzeSection fans the current section out to every enabled agent and
// joins before returning. One agent's empty result never blocks another's.
func (o *Orchestrator) analyzeSection(ctx context.Context, log *slog.Logger, st *reviewState, agents []Agent) {
	if st.currentIndex >= len(st.sections) {
		log.Warn("no more sections to analyze")
		return
	}

	sec := section.Truncate(st.sections[st.currentIndex], o.opts.MaxSectionTokens)
	log.Info("analyzing section", "section", sec.Title, "index", st.currentIndex+1, "total", len(st.sections))

	results := make([][]Suggestion, len(agents))
	var wg sync.WaitGroup
	for i, a := range agents {
		wg.Add(1)
		go func(i int, a Agent) {
			defer wg.Done()
			results[i] = a.Analyze(ctx, sec)
		}(i, a)
	}
	wg.Wait()

	for i, a := range agents {
		st.perAgent[a.Type()] = append(st.perAgent[a.Type()], results[i]...)
	}
}

// union pools per-agent accumulators in agent order.
func (st *reviewState) union() []Suggestion {
	var all []Suggestion
	for _, typ := range st.agentTypes {
		all = append(all, st.perAgent[typ]...)
	}
	return all
}

// validateSuggestions runs the final cross-agent pass. Validation is
// best-effort: any failure degrades to the full unfiltered union.
func (o *Orchestrator) validateSuggestions(ctx context.Context, log *slog.Logger, st *reviewState) {
	union := st.union()
	st.complete = true

	if len(union) < 3 {
		log.Info("too few suggestions, skipping cross validation", "count", len(union))
		st.final = union
		return
	}

	decision, err := o.requestDecision(ctx, st)
	if err != nil {
		log.Warn("cross validation failed, keeping all suggestions", "error", err)
		st.final = union
		return
	}

	keep := make(map[string]bool, len(decision.FinalSuggestions))
	for _, id := range decision.FinalSuggestions {
		keep[id] = true
	}
	validated := make([]Suggestion, 0, len(union))
	for _, s := range union {
		if keep[s.ID] {
			validated = append(validated, s)
		}
	}

	if len(decision.PriorityOrder) > 0 {
		rank := make(map[string]int, len(decision.PriorityOrder))
		for i, id := range decision.PriorityOrder {
			rank[id] = i
		}
		// IDs absent from the priority order sort last, stable by union order.
		last := len(decision.PriorityOrder)
		sort.SliceStable(validated, func(a, b int) bool {
			ra, ok := rank[validated[a].ID]
			if !ok {
				ra = last
			}
			rb, ok := rank[validated[b].ID]
			if !ok {
				rb = last
			}
			return ra < rb
		})
	}

	log.Info("cross validation complete", "kept", len(validated), "total", len(union), "reasoning", decision.Reasoning)
	st.final = validated
}

type orchestratorDecision struct {
	FinalSuggestions []string `json:"final_suggestions"`
	Reasoning        string   `json:"reasoning"`
	PriorityOrder    []string `json:"priority_order"`
}

func (o *Orchestrator) requestDecision(ctx context.Context, st *reviewState) (*orchestratorDecision, error) {
	summaries := make(map[string]agentSummary, len(st.agentTypes))
	for _, typ := range st.agentTypes {
		sugs := st.perAgent[typ]
		summaries[typ] = agentSummary{
			count: len(sugs),
			json:  summarizeSuggestions(sugs),
		}
	}

	resp, err := o.gen.Complete(ctx, llm.ChatRequest{
		Model:          o.opts.Model,
		Temperature:    o.opts.Temperature,
		ResponseFormat: llm.JSONObject,
		Messages: []llm.Message{
			{Role: "system", Content: validationSystemPrompt},
			{Role: "user", Content: buildValidationPrompt(st.agentTypes, summaries)},
		},
	})
	if err != nil {
		return nil, err
	}

	var decision orchestratorDecision
	if err := llm.UnmarshalContent(resp, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// summarizeSuggestions renders compact candidate records for the validation
// prompt: id, section, severity, and a truncated description.
func summarizeSuggestions(sugs []Suggestion) string {
	type summary struct {
		ID          string `json:"id"`
		Section     string `json:"section"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
	}
	items := make([]summary, 0, len(sugs))
	for _, s := range sugs {
		desc := s.Description
		if len(desc) > 100 {
			desc = desc[:100]
		}
		items = append(items, summary{
			ID:          s.ID,
			Section:     s.Section,
			Severity:    s.Severity,
			Description: desc,
		})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
