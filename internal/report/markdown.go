package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/signalnine/letterbench/internal/result"
)

// maxErrorWidth caps the Error column so a failed case stays on one row.
const maxErrorWidth = 60

// newTable builds a pipe table. align overrides the left alignment per
// column; empty entries keep it.
func newTable(w io.Writer, headers []string, align []tw.Align) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft, PerColumn: align},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft, PerColumn: align},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// RenderTable writes rows under headers as a Markdown-style table.
func RenderTable(w io.Writer, headers []string, rows [][]string) error {
	return renderTable(w, headers, rows, nil)
}

func renderTable(w io.Writer, headers []string, rows [][]string, align []tw.Align) error {
	table := newTable(w, headers, align)
	for i, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("appending table row %d: %w", i, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	return nil
}

// metricAligns right-aligns every score column after the leading label.
func metricAligns(n int) []tw.Align {
	align := make([]tw.Align, n)
	for i := 1; i < n; i++ {
		align[i] = tw.AlignRight
	}
	return align
}

var (
	caseHeaders = []string{"Case", "Status", "Runtime (s)", "Error"}
	caseAligns  = []tw.Align{tw.Empty, tw.Empty, tw.AlignRight, tw.Empty}
)

var metricLabels = []string{
	"Completeness",
	"Accuracy",
	"No Hallucinations",
	"Clinical Safety",
	"Coherence",
	"Weighted Overall Score",
}

func metricValues(m result.Metrics) []float64 {
	return []float64{m.Completeness, m.Accuracy, m.NoHallucinations, m.ClinicalSafety, m.Coherence, m.WeightedScore}
}

func score(v float64) string { return fmt.Sprintf("%.2f", v) }

func metricRow(id string, m result.Metrics) []string {
	row := []string{id}
	for _, v := range metricValues(m) {
		row = append(row, score(v))
	}
	return row
}

func caseMetricHeaders() []string {
	return append([]string{"Case"}, metricLabels...)
}

func date(ts string) string {
	d, _, _ := strings.Cut(ts, "T")
	return d
}

// EvalMarkdown renders the evaluation report. Scores keep full precision in
// the summary and are rounded to two decimals here.
func EvalMarkdown(s *result.EvalSummary) (string, error) {
	var b strings.Builder
	b.WriteString("# Physiotherapy Letter Evaluation\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Evaluation ID:** %s\n", s.EvalID)
	fmt.Fprintf(&b, "- **Run ID:** %s\n", s.RunID)
	fmt.Fprintf(&b, "- **Model:** %s\n", s.Model)
	fmt.Fprintf(&b, "- **Date:** %s\n", date(s.Timestamp))
	fmt.Fprintf(&b, "- **Cases Evaluated:** %d\n\n", len(s.CasesEvaluated))

	b.WriteString("## Average Metrics\n\n")
	var rows [][]string
	for i, v := range metricValues(s.AverageMetrics) {
		rows = append(rows, []string{metricLabels[i], score(v) + "/5"})
	}
	if err := renderTable(&b, []string{"Metric", "Score"}, rows, metricAligns(2)); err != nil {
		return "", err
	}

	b.WriteString("\n## Improvement Recommendations\n\n")
	if s.ImprovementAnalysis != "" {
		b.WriteString(s.ImprovementAnalysis)
	} else {
		b.WriteString("No improvement analysis available.")
	}
	b.WriteString("\n\n## Case Metrics\n\n")
	rows = rows[:0]
	for _, id := range s.CasesEvaluated {
		rows = append(rows, metricRow(id, s.CaseMetrics[id]))
	}
	headers := caseMetricHeaders()
	if err := renderTable(&b, headers, rows, metricAligns(len(headers))); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RunMarkdown renders the generation run report.
func RunMarkdown(s *result.RunSummary) (string, error) {
	var b strings.Builder
	status := "SUCCESS"
	if !s.RunSuccess {
		status = "FAILED"
	}
	b.WriteString("# Letter Generation Run\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Run ID:** %s\n", s.RunID)
	fmt.Fprintf(&b, "- **Model:** %s\n", s.Model)
	fmt.Fprintf(&b, "- **Date:** %s\n", date(s.Timestamp))
	fmt.Fprintf(&b, "- **Git Commit:** %s\n", s.GitCommit)
	fmt.Fprintf(&b, "- **Status:** %s\n", status)
	fmt.Fprintf(&b, "- **Cases:** %d succeeded, %d failed\n", s.SuccessfulCases, s.FailedCases)
	fmt.Fprintf(&b, "- **Tokens:** %d prompt, %d output\n\n", s.TokenUsage.PromptTokens, s.TokenUsage.OutputTokens)

	b.WriteString("## Runtime\n\n")
	runtime := [][]string{{
		score(s.RuntimeStats.AvgRuntime),
		score(s.RuntimeStats.MinRuntime),
		score(s.RuntimeStats.MaxRuntime),
	}}
	align := []tw.Align{tw.AlignRight, tw.AlignRight, tw.AlignRight}
	if err := renderTable(&b, []string{"Average (s)", "Min (s)", "Max (s)"}, runtime, align); err != nil {
		return "", err
	}

	b.WriteString("\n## Cases\n\n")
	if err := renderTable(&b, caseHeaders, caseRows(s.Cases), caseAligns); err != nil {
		return "", err
	}
	return b.String(), nil
}

func caseRows(cases []result.CaseOutcome) [][]string {
	rows := make([][]string, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, []string{c.TestID, c.Status, score(c.Runtime), summarizeError(c.Error)})
	}
	return rows
}

// summarizeError keeps the first line of msg, cut to maxErrorWidth runes.
// Pipes are escaped so they do not split the cell.
func summarizeError(msg string) string {
	line, _, more := strings.Cut(strings.TrimSpace(msg), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxErrorWidth {
		line = string(r[:maxErrorWidth-1])
		more = true
	}
	if more {
		line += "…"
	}
	return strings.ReplaceAll(line, "|", `\|`)
}
