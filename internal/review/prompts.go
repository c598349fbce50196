package review

import (
	"fmt"
	"strings"
)

const validationSystemPrompt = `You are the orchestrator for a document review system.

Your agents have analyzed a document and provided suggestions.
Each agent has already self-reflected on their findings.

Your task:
1. **Cross-validate**: Check for contradictions between agents
2. **Prioritize**: Identify the most important suggestions
3. **Filter**: Remove redundant or low-value suggestions
4. **Decide**: Make final decisions on what to include

Return suggestions that are:
- Non-contradictory
- Actionable and specific
- High-impact for the document quality

Respond with a JSON object:
{"final_suggestions": ["id1", "id2", ...], "reasoning": "...", "priority_order": ["id1", ...]}`

// buildValidationPrompt renders the per-agent candidate summaries for the
// cross-validation call. agentTypes fixes the presentation order.
func buildValidationPrompt(agentTypes []string, summaries map[string]agentSummary) string {
	var sb strings.Builder
	sb.WriteString("Review these suggestions from the agents:\n")
	for _, typ := range agentTypes {
		s := summaries[typ]
		fmt.Fprintf(&sb, "\n**%s Suggestions (%d)**:\n%s\n", capitalize(typ), s.count, s.json)
	}
	sb.WriteString("\nProvide your decision with the list of suggestion IDs to keep, reasoning, and priority order.")
	return sb.String()
}

type agentSummary struct {
	count int
	json  string
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
