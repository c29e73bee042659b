package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/signalnine/letterbench/internal/result"
	"github.com/signalnine/letterbench/internal/scoring"
)

// AnalysisError is recorded when no improvement analysis could be generated.
const AnalysisError = "Error generating improvement analysis."

// Timestamp formats t the way summaries record it.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000")
}

// BuildRunSummary aggregates results in the order they were produced.
func BuildRunSummary(runID, model, commit string, results []result.GenerationResult, now time.Time) *result.RunSummary {
	s := &result.RunSummary{
		RunID:      runID,
		Timestamp:  Timestamp(now),
		Model:      model,
		GitCommit:  commit,
		TotalCases: len(results),
		Cases:      make([]result.CaseOutcome, 0, len(results)),
	}
	var total float64
	for i, r := range results {
		if r.Status == result.StatusSuccess {
			s.SuccessfulCases++
		}
		total += r.Runtime
		if i == 0 || r.Runtime > s.RuntimeStats.MaxRuntime {
			s.RuntimeStats.MaxRuntime = r.Runtime
		}
		if i == 0 || r.Runtime < s.RuntimeStats.MinRuntime {
			s.RuntimeStats.MinRuntime = r.Runtime
		}
		s.TokenUsage.PromptTokens += r.PromptTokens
		s.TokenUsage.OutputTokens += r.OutputTokens

		outcome := result.CaseOutcome{TestID: r.TestID, Status: r.Status, Runtime: r.Runtime}
		if r.Error != nil {
			outcome.Error = *r.Error
		}
		s.Cases = append(s.Cases, outcome)
	}
	if len(results) > 0 {
		s.RuntimeStats.AvgRuntime = total / float64(len(results))
	}
	s.FailedCases = s.TotalCases - s.SuccessfulCases
	s.RunSuccess = s.FailedCases == 0
	return s
}

// WriteRunSummary saves summary.json and run_report.md into dir.
func WriteRunSummary(ctx context.Context, dir string, s *result.RunSummary) error {
	log := clog.FromContext(ctx)
	if err := result.WriteJSON(filepath.Join(dir, result.SummaryFile), s); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	md, err := RunMarkdown(s)
	if err != nil {
		return fmt.Errorf("rendering run report: %w", err)
	}
	if err := result.WriteText(filepath.Join(dir, result.RunReportFile), md); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}

	status := "SUCCESS"
	if !s.RunSuccess {
		status = "FAILED"
	}
	log.Infof("Run completed at %s", Timestamp(time.Now()))
	log.Infof("Results in %s/", dir)
	log.Infof("Status: %s", status)
	log.Infof("Cases: %d succeeded, %d failed", s.SuccessfulCases, s.FailedCases)
	log.Infof("Runtime: avg=%.2fs, min=%.2fs, max=%.2fs",
		s.RuntimeStats.AvgRuntime, s.RuntimeStats.MinRuntime, s.RuntimeStats.MaxRuntime)
	return nil
}

// BuildEvalSummary averages metrics over caseIDs, which must all be present
// in metrics.
func BuildEvalSummary(evalID, runID, model string, caseIDs []string, metrics map[string]result.Metrics, analysis string, now time.Time) *result.EvalSummary {
	ms := make([]result.Metrics, 0, len(caseIDs))
	for _, id := range caseIDs {
		ms = append(ms, metrics[id])
	}
	if caseIDs == nil {
		caseIDs = []string{}
	}
	if metrics == nil {
		metrics = map[string]result.Metrics{}
	}
	return &result.EvalSummary{
		EvalID:              evalID,
		RunID:               runID,
		Timestamp:           Timestamp(now),
		Model:               model,
		CasesEvaluated:      caseIDs,
		AverageMetrics:      scoring.Average(ms),
		CaseMetrics:         metrics,
		ImprovementAnalysis: analysis,
	}
}

// WriteEvalSummary saves eval_summary.json and evaluation_report.md into dir
// and prints the improvement analysis to out.
func WriteEvalSummary(ctx context.Context, dir string, s *result.EvalSummary, out io.Writer) error {
	log := clog.FromContext(ctx)
	if err := result.WriteJSON(filepath.Join(dir, result.EvalSummaryFile), s); err != nil {
		return fmt.Errorf("writing eval summary: %w", err)
	}
	md, err := EvalMarkdown(s)
	if err != nil {
		return fmt.Errorf("rendering evaluation report: %w", err)
	}
	if err := result.WriteText(filepath.Join(dir, result.EvalReportFile), md); err != nil {
		return fmt.Errorf("writing evaluation report: %w", err)
	}
	log.Infof("Evaluation completed at %s", Timestamp(time.Now()))
	log.Infof("Results in %s/", dir)
	log.Infof("Average weighted score: %.2f/5", s.AverageMetrics.WeightedScore)

	rule := strings.Repeat("=", 50)
	fmt.Fprintf(out, "\n%s\nIMPROVEMENT RECOMMENDATIONS:\n%s\n", rule, rule)
	if s.ImprovementAnalysis != "" {
		fmt.Fprintln(out, s.ImprovementAnalysis)
	} else {
		fmt.Fprintln(out, "No improvement analysis was generated.")
	}
	fmt.Fprintln(out, rule)
	return nil
}
