package review

// Severity levels for suggestions.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Suggestion is a single actionable finding produced by an analysis agent,
// tagged with severity and location. Never mutated after creation; final
// validation only filters and reorders.
type Suggestion struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Section      string   `json:"section"`
	LineStart    int      `json:"line_start,omitempty"`
	LineEnd      int      `json:"line_end,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	References   []string `json:"references"`
}
