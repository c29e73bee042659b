package evaluate

import (
	"strings"

	"github.com/signalnine/letterbench/internal/scoring"
)

const formatInstructions = `VERY IMPORTANT: You MUST rate each dimension on a scale of 1-5 and follow the EXACT output format specified earlier.
You MUST rate each dimension separately and provide a weighted overall score.

Your response MUST begin with "### Patient Evaluation" and include NUMERICAL RATINGS for each dimension.
For example, your ratings must look like this:
**Completeness:** 4 / 5
**Accuracy:** 3.5 / 5
**No Hallucinations:** 4 / 5
**Clinical Safety:** 5 / 5
**Coherence:** 3 / 5
**Weighted Overall Score:** 3.9 / 5

DO NOT substitute numerical ratings with qualitative terms like "excellent" or "good".
Always use the format "X / 5" where X is a number between 1 and 5.
`

// BuildPrompt fills the judge template with one case. The generated letter
// has any reasoning trace removed first.
func BuildPrompt(template, notes, reference, generated string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(template)
	b.WriteString("\n\n## Original Clinical Notes\n```\n")
	b.WriteString(notes)
	b.WriteString("\n```\n\n## Ground Truth Letter (Written by Human Physiotherapist)\n```\n")
	b.WriteString(reference)
	b.WriteString("\n```\n\n## Generated Letter\n```\n")
	b.WriteString(scoring.StripThinking(generated))
	b.WriteString("\n```\n\n")
	b.WriteString(formatInstructions)
	return b.String()
}

// caseText is one stored evaluation as it appears in the analysis prompt.
type caseText struct {
	id   string
	text string
}

// buildAnalysisPrompt joins the raw evaluations, reasoning included, under
// the summary template.
func buildAnalysisPrompt(template string, evals []caseText) string {
	parts := make([]string, 0, len(evals))
	for _, e := range evals {
		parts = append(parts, "--- CASE "+e.id+" ---\n"+e.text)
	}
	return template + "\n\n### EVALUATIONS:\n\n" + strings.Join(parts, "\n")
}
