package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/letterbench/internal/report"
	"github.com/signalnine/letterbench/internal/result"
)

var fixedTime = time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)

func absf(f float64) float64 {
	return math.Abs(f)
}

func strptr(s string) *string { return &s }

func sampleResults() []result.GenerationResult {
	return []result.GenerationResult{
		{TestID: "patient_a", Status: result.StatusSuccess, Runtime: 2.0, PromptTokens: 100, OutputTokens: 40},
		{TestID: "patient_b", Status: result.StatusError, Runtime: 0.5, Error: strptr("API error: 500 - boom")},
		{TestID: "patient_c", Status: result.StatusSuccess, Runtime: 3.5, PromptTokens: 120, OutputTokens: 60},
	}
}

func TestBuildRunSummary(t *testing.T) {
	s := report.BuildRunSummary("run_1", "llama3", "abc123", sampleResults(), fixedTime)
	if s.TotalCases != 3 || s.SuccessfulCases != 2 || s.FailedCases != 1 {
		t.Errorf("counts: got %d/%d/%d", s.TotalCases, s.SuccessfulCases, s.FailedCases)
	}
	if s.RunSuccess {
		t.Error("expected run_success false with a failed case")
	}
	if absf(s.RuntimeStats.AvgRuntime-2.0) > 1e-9 {
		t.Errorf("avg runtime: got %v, want 2.0", s.RuntimeStats.AvgRuntime)
	}
	if s.RuntimeStats.MinRuntime != 0.5 || s.RuntimeStats.MaxRuntime != 3.5 {
		t.Errorf("min/max: got %v/%v", s.RuntimeStats.MinRuntime, s.RuntimeStats.MaxRuntime)
	}
	if s.TokenUsage.PromptTokens != 220 || s.TokenUsage.OutputTokens != 100 {
		t.Errorf("tokens: got %+v", s.TokenUsage)
	}
	if s.Timestamp != "2025-03-09T14:05:07.000000" {
		t.Errorf("timestamp: got %q", s.Timestamp)
	}
	if len(s.Cases) != 3 || s.Cases[1].Error != "API error: 500 - boom" {
		t.Errorf("cases: got %+v", s.Cases)
	}
}

func TestBuildRunSummaryAllSucceeded(t *testing.T) {
	results := sampleResults()
	results[1].Status = result.StatusSuccess
	results[1].Error = nil
	s := report.BuildRunSummary("run_1", "llama3", "abc", results, fixedTime)
	if !s.RunSuccess || s.FailedCases != 0 {
		t.Errorf("expected success, got %+v", s)
	}
}

func TestBuildRunSummaryEmpty(t *testing.T) {
	s := report.BuildRunSummary("run_1", "llama3", "unknown", nil, fixedTime)
	if s.RuntimeStats != (result.RuntimeStats{}) {
		t.Errorf("expected zero runtime stats, got %+v", s.RuntimeStats)
	}
	if !s.RunSuccess {
		t.Error("expected run_success with no failures")
	}
}

func TestWriteRunSummary(t *testing.T) {
	dir := t.TempDir()
	s := report.BuildRunSummary("run_1", "llama3", "abc123", sampleResults(), fixedTime)
	if err := report.WriteRunSummary(context.Background(), dir, s); err != nil {
		t.Fatalf("WriteRunSummary: %v", err)
	}

	var got map[string]any
	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"run_id", "timestamp", "model", "git_commit", "total_cases", "run_success", "successful_cases", "failed_cases", "runtime_stats"} {
		if _, ok := got[key]; !ok {
			t.Errorf("summary.json missing %q", key)
		}
	}

	md, err := os.ReadFile(filepath.Join(dir, "run_report.md"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"run_1", "FAILED", "patient_b", "3.50"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("run report missing %q", want)
		}
	}
}

func sampleEval() *result.EvalSummary {
	metrics := map[string]result.Metrics{
		"patient_a": {Completeness: 4, Accuracy: 3.5, NoHallucinations: 4, ClinicalSafety: 5, Coherence: 3, WeightedScore: 4.0},
		"patient_b": {Completeness: 2, Accuracy: 2.5, NoHallucinations: 3, ClinicalSafety: 4, Coherence: 4, WeightedScore: 2.875},
	}
	return report.BuildEvalSummary("eval_1", "run_1", "llama3", []string{"patient_a", "patient_b"}, metrics, "Be more concise.", fixedTime)
}

func TestBuildEvalSummary(t *testing.T) {
	s := sampleEval()
	if s.AverageMetrics.Completeness != 3 || s.AverageMetrics.Accuracy != 3 {
		t.Errorf("averages: got %+v", s.AverageMetrics)
	}
	if absf(s.AverageMetrics.WeightedScore-3.4375) > 1e-9 {
		t.Errorf("weighted average: got %v", s.AverageMetrics.WeightedScore)
	}
}

func TestBuildEvalSummaryNoCases(t *testing.T) {
	s := report.BuildEvalSummary("eval_1", "run_1", "llama3", nil, nil, report.AnalysisError, fixedTime)
	if s.AverageMetrics != (result.Metrics{}) {
		t.Errorf("expected zero averages, got %+v", s.AverageMetrics)
	}
	if s.CasesEvaluated == nil || s.CaseMetrics == nil {
		t.Error("expected empty, non-nil collections")
	}
}

func TestWriteEvalSummary(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := report.WriteEvalSummary(context.Background(), dir, sampleEval(), &out); err != nil {
		t.Fatalf("WriteEvalSummary: %v", err)
	}
	if !strings.Contains(out.String(), "IMPROVEMENT RECOMMENDATIONS:") || !strings.Contains(out.String(), "Be more concise.") {
		t.Errorf("unexpected console output: %q", out.String())
	}

	md, err := os.ReadFile(filepath.Join(dir, "evaluation_report.md"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"eval_1", "run_1", "2025-03-09", "3.44/5", "2.88", "Be more concise."} {
		if !strings.Contains(string(md), want) {
			t.Errorf("evaluation report missing %q", want)
		}
	}

	var s result.EvalSummary
	if err := result.ReadJSON(filepath.Join(dir, "eval_summary.json"), &s); err != nil {
		t.Fatal(err)
	}
	if s.CaseMetrics["patient_b"].WeightedScore != 2.875 {
		t.Errorf("stored score should keep full precision, got %v", s.CaseMetrics["patient_b"].WeightedScore)
	}
}

func TestWriteEvalSummaryEmptyAnalysis(t *testing.T) {
	s := sampleEval()
	s.ImprovementAnalysis = ""
	var out bytes.Buffer
	if err := report.WriteEvalSummary(context.Background(), t.TempDir(), s, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No improvement analysis was generated.") {
		t.Errorf("unexpected console output: %q", out.String())
	}
}

func TestGenerateRunFormats(t *testing.T) {
	dir := t.TempDir()
	s := report.BuildRunSummary("run_1", "llama3", "abc123", sampleResults(), fixedTime)
	if err := result.WriteJSON(filepath.Join(dir, "summary.json"), s); err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{"table", "markdown", "json"} {
		var buf bytes.Buffer
		if err := report.Generate(dir, format, &buf); err != nil {
			t.Fatalf("Generate(%s): %v", format, err)
		}
		if !strings.Contains(buf.String(), "patient_c") {
			t.Errorf("%s output missing patient_c:\n%s", format, buf.String())
		}
	}
}

func TestGenerateEvalTable(t *testing.T) {
	dir := t.TempDir()
	if err := result.WriteJSON(filepath.Join(dir, "eval_summary.json"), sampleEval()); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := report.Generate(dir, "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"patient_a", "patient_b", "AVERAGE", "3.44"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestGenerateNoSummary(t *testing.T) {
	if err := report.Generate(t.TempDir(), "table", &bytes.Buffer{}); err == nil {
		t.Error("expected error for directory without a summary")
	}
}
