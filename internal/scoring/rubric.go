package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/result"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// StripThinking drops a model's reasoning trace. When both think tags are
// present only the text after the first closing tag is kept.
func StripThinking(text string) string {
	if !strings.Contains(text, thinkOpen) || !strings.Contains(text, thinkClose) {
		return text
	}
	_, after, _ := strings.Cut(text, thinkClose)
	if i := strings.Index(after, thinkClose); i >= 0 {
		after = after[:i]
	}
	return strings.TrimSpace(after)
}

type dimension struct {
	name  string
	re    *regexp.Regexp
	field func(*result.Metrics) *float64
}

func scorePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`\*\*` + regexp.QuoteMeta(label) + `:\*\*\s*(\d+(?:\.\d+)?)\s*/\s*5`)
}

var dimensions = []dimension{
	{"completeness", scorePattern("Completeness"), func(m *result.Metrics) *float64 { return &m.Completeness }},
	{"accuracy", scorePattern("Accuracy"), func(m *result.Metrics) *float64 { return &m.Accuracy }},
	{"no_hallucinations", scorePattern("No Hallucinations"), func(m *result.Metrics) *float64 { return &m.NoHallucinations }},
	{"clinical_safety", scorePattern("Clinical Safety"), func(m *result.Metrics) *float64 { return &m.ClinicalSafety }},
	{"coherence", scorePattern("Coherence"), func(m *result.Metrics) *float64 { return &m.Coherence }},
	{"weighted_score", scorePattern("Weighted Overall Score"), func(m *result.Metrics) *float64 { return &m.WeightedScore }},
}

// ExtractMetrics reads "**<Dimension>:** <n> / 5" lines from a judge
// response. Dimensions that are not found stay zero. When the response has
// no overall score it is computed from the dimensions with w.
func ExtractMetrics(text string, w config.Weights) (result.Metrics, []string) {
	text = StripThinking(text)
	var (
		m       result.Metrics
		missing []string
	)
	for _, d := range dimensions {
		match := d.re.FindStringSubmatch(text)
		if match == nil {
			missing = append(missing, d.name)
			continue
		}
		v, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			missing = append(missing, d.name)
			continue
		}
		*d.field(&m) = v
	}
	if m.WeightedScore == 0 && anyDimension(m) {
		m.WeightedScore = WeightedScore(m, w)
	}
	return m, missing
}

func anyDimension(m result.Metrics) bool {
	return m.Completeness > 0 || m.Accuracy > 0 || m.NoHallucinations > 0 ||
		m.ClinicalSafety > 0 || m.Coherence > 0
}

// WeightedScore is the weighted sum of the five rubric dimensions. Weights
// are not normalised.
func WeightedScore(m result.Metrics, w config.Weights) float64 {
	return m.Completeness*w.Completeness +
		m.Accuracy*w.Accuracy +
		m.NoHallucinations*w.NoHallucinations +
		m.ClinicalSafety*w.ClinicalSafety +
		m.Coherence*w.Coherence
}

// Average is the per-metric arithmetic mean; it is all zeros for no input.
func Average(ms []result.Metrics) result.Metrics {
	var avg result.Metrics
	if len(ms) == 0 {
		return avg
	}
	for _, m := range ms {
		avg.Completeness += m.Completeness
		avg.Accuracy += m.Accuracy
		avg.NoHallucinations += m.NoHallucinations
		avg.ClinicalSafety += m.ClinicalSafety
		avg.Coherence += m.Coherence
		avg.WeightedScore += m.WeightedScore
	}
	n := float64(len(ms))
	avg.Completeness /= n
	avg.Accuracy /= n
	avg.NoHallucinations /= n
	avg.ClinicalSafety /= n
	avg.Coherence /= n
	avg.WeightedScore /= n
	return avg
}
