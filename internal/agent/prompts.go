package agent

import (
	"fmt"
	"strings"
)

const clarityAnalysisPrompt = `You are an expert technical writing reviewer specializing in clarity.

Your task is to identify clarity issues in technical documents.

Focus on:
1. **Unclear statements**: Ambiguous or confusing language
2. **Complex sentences**: Overly long or convoluted sentence structures
3. **Undefined terms**: Jargon, acronyms, or technical terms used without definition
4. **Vague references**: Use of "it", "this", "that" without clear antecedents
5. **Missing context**: Statements that assume reader knowledge without explanation

Provide specific, actionable feedback that helps improve clarity.

Respond with a JSON object:
{"issues": [{"line_hint": "brief description of location", "issue": "what is unclear", "suggestion": "specific improvement", "severity": "info|warning|error"}]}

Return {"issues": []} if the section has no clarity problems.`

const clarityReflectionPrompt = `You are a quality control reviewer. Your task is to validate clarity suggestions.

For each suggestion, assess:
1. **Validity**: Is this truly a clarity issue?
2. **Specificity**: Is the issue clearly described?
3. **Actionability**: Is the suggestion helpful and actionable?
4. **Severity**: Is the severity level appropriate?

Only keep suggestions that are valid, specific, and actionable.

Respond with a JSON object:
{"validated_suggestions": [{"line_hint": "...", "issue": "...", "suggestion": "...", "severity": "info|warning|error"}], "reasoning": "explanation of validation decisions"}`

const rigorAnalysisPrompt = `You are an expert in experimental design and mathematical rigor for technical research.

Your task is to identify rigor issues in research methodology, experiments, and mathematical content.

Focus on:
1. **Experimental Design**:
   - Missing control experiments for causal claims
   - Inadequate sample sizes
   - Lack of randomization or blinding where appropriate
   - Confounding variables not addressed

2. **Statistical Analysis**:
   - Inappropriate statistical tests for data type
   - Missing confidence intervals or p-values
   - Effect sizes not reported
   - Multiple comparison corrections missing
   - Assumptions of tests not stated or violated

3. **Mathematical Content**:
   - Statements without proofs or references
   - Undefined notation or variables
   - Logical gaps in derivations
   - Missing assumptions or constraints

4. **Reporting**:
   - Experimental setup not clearly described
   - Insufficient detail to reproduce
   - Key parameters missing

Provide specific, technically sound recommendations. When the web search tool
is available, use it to verify domain-specific standards before flagging an
issue, and cite the supporting URLs.

Respond with a JSON object:
{"issues": [{"line_hint": "brief description of location", "issue": "what rigor issue was found", "suggestion": "specific improvement", "severity": "info|warning|error", "external_sources": ["supporting URLs, if any"]}]}

Return {"issues": []} if the section has no rigor problems.`

const rigorReflectionPrompt = `You are a quality control reviewer for experimental and mathematical rigor.

For each suggestion, assess:
1. **Validity**: Is this a genuine rigor issue or just a stylistic preference?
2. **Technical Accuracy**: Is the critique technically correct?
3. **Severity**: Is the severity appropriate for the issue?
4. **Actionability**: Can the author reasonably address this?

Filter out:
- Overly pedantic suggestions
- Issues that don't actually impact rigor
- Suggestions that are unclear or contradictory

Keep only substantive, valid rigor issues.

Respond with a JSON object:
{"validated_suggestions": [{"line_hint": "...", "issue": "...", "suggestion": "...", "severity": "info|warning|error", "external_sources": [...]}], "reasoning": "explanation of validation decisions"}`

// buildAnalysisUserPrompt assembles the round-one user message: section
// title, retrieved guideline context when present, and the full content.
func buildAnalysisUserPrompt(kind, sectionTitle, guidelines, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this section for %s issues:\n\n", kind)
	fmt.Fprintf(&sb, "**Section**: %s\n\n", sectionTitle)
	if guidelines != "" {
		fmt.Fprintf(&sb, "**Relevant Guidelines**:\n%s\n\n", guidelines)
	}
	fmt.Fprintf(&sb, "**Content**:\n%s\n\n", content)
	fmt.Fprintf(&sb, "Identify all %s issues and return them in the JSON format.", kind)
	return sb.String()
}

func buildReflectionUserPrompt(sectionTitle, content string, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Review these suggestions for the section %q:\n\n", sectionTitle)
	fmt.Fprintf(&sb, "**Original Content**:\n%s\n\n", content)
	fmt.Fprintf(&sb, "**Proposed Suggestions**:\n%d issues found\n\n", count)
	sb.WriteString("Validate the suggestions and return your assessment as JSON.")
	return sb.String()
}
