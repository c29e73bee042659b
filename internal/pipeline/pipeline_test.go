package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/inference"
	"github.com/signalnine/letterbench/internal/pipeline"
	"github.com/signalnine/letterbench/internal/result"
)

type fakeGenerator struct {
	prompts []string
	fail    map[string]error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (*inference.Response, error) {
	f.prompts = append(f.prompts, prompt)
	for marker, err := range f.fail {
		if strings.Contains(prompt, marker) {
			return nil, err
		}
	}
	return &inference.Response{Text: "Dear GP, " + prompt, PromptTokens: 10, OutputTokens: 5}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupRun(t *testing.T, data string) *config.RunConfig {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.json"), data)
	writeFile(t, filepath.Join(dir, "prompt.txt"), "Write a letter.\nNOTES: {{notes}}\nAgain: {{notes}}")
	return &config.RunConfig{
		Model:      "llama3",
		DataFile:   filepath.Join(dir, "data.json"),
		PromptFile: filepath.Join(dir, "prompt.txt"),
		RunID:      "run_test",
		Endpoint:   config.DefaultEndpoint,
		Timeout:    config.DefaultTimeout,
		ResultsDir: filepath.Join(dir, "results"),
	}
}

const twoCases = `[
  {"id": "patient_a", "notes": "sore knee", "reference": "Dear Dr"},
  {"id": "patient_b", "notes": "stiff neck"}
]`

func runPipeline(t *testing.T, cfg *config.RunConfig, gen pipeline.Generator, opts pipeline.Options) *pipeline.Pipeline {
	t.Helper()
	if opts.GitDir == "" {
		opts.GitDir = t.TempDir()
	}
	p := pipeline.New(cfg, gen, opts)
	ctx := context.Background()
	if err := p.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := p.Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return p
}

func TestPipelineGeneratesLetters(t *testing.T) {
	cfg := setupRun(t, twoCases)
	gen := &fakeGenerator{}
	p := runPipeline(t, cfg, gen, pipeline.Options{})

	if len(gen.prompts) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(gen.prompts))
	}
	if gen.prompts[0] != "Write a letter.\nNOTES: sore knee\nAgain: sore knee" {
		t.Errorf("every placeholder should be replaced, got %q", gen.prompts[0])
	}

	dir := filepath.Join(cfg.ResultsDir, "run_test")
	for _, name := range []string{"config.json", "data_info.json", "prompt.txt", "patient_a.json", "patient_a_output.txt", "patient_b.json", "patient_b_output.txt", "summary.json", "run_report.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	var r result.GenerationResult
	if err := result.ReadJSON(filepath.Join(dir, "patient_a.json"), &r); err != nil {
		t.Fatal(err)
	}
	if r.RunID != "run_test" || r.TestID != "patient_a" || r.Status != result.StatusSuccess || r.Error != nil {
		t.Errorf("unexpected result: %+v", r)
	}
	if r.EndTime < r.StartTime || r.Runtime < 0 {
		t.Errorf("bad timing: %+v", r)
	}

	output, err := os.ReadFile(filepath.Join(dir, "patient_b_output.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(output), "stiff neck") {
		t.Errorf("unexpected output: %q", output)
	}

	if p.Summary == nil || !p.Summary.RunSuccess || p.Summary.TotalCases != 2 {
		t.Errorf("unexpected summary: %+v", p.Summary)
	}
	if p.Summary.GitCommit != "unknown" {
		t.Errorf("git commit outside a repo: got %q", p.Summary.GitCommit)
	}
	if p.Summary.TokenUsage.PromptTokens != 20 {
		t.Errorf("token usage: got %+v", p.Summary.TokenUsage)
	}

	var info result.DataInfo
	if err := result.ReadJSON(filepath.Join(dir, "data_info.json"), &info); err != nil {
		t.Fatal(err)
	}
	if info.NumCases != 2 || len(info.CaseIDs) != 2 {
		t.Errorf("unexpected data info: %+v", info)
	}
}

func TestPipelineSkipsIncompleteCases(t *testing.T) {
	cfg := setupRun(t, `[
  {"notes": "no id here"},
  {"id": "patient_a", "notes": ""},
  {"id": "patient_b", "notes": "back pain"}
]`)
	gen := &fakeGenerator{}
	p := runPipeline(t, cfg, gen, pipeline.Options{})

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 request, got %d", len(gen.prompts))
	}
	if got := p.Results(); len(got) != 1 || got[0].TestID != "patient_b" {
		t.Errorf("unexpected results: %+v", got)
	}
	if _, err := os.Stat(filepath.Join(p.Dir(), "patient_a.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("skipped case should have no artifacts")
	}
}

func TestPipelineRecordsErrors(t *testing.T) {
	cfg := setupRun(t, twoCases)
	gen := &fakeGenerator{fail: map[string]error{
		"stiff neck": &inference.APIError{StatusCode: 500, Body: "model crashed"},
	}}
	p := runPipeline(t, cfg, gen, pipeline.Options{})

	results := p.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	failed := results[1]
	if failed.Status != result.StatusError || failed.Output != "" {
		t.Errorf("unexpected failed result: %+v", failed)
	}
	if failed.Error == nil || *failed.Error != "API error: 500 - model crashed" {
		t.Errorf("unexpected error: %v", failed.Error)
	}
	if p.Summary.RunSuccess || p.Summary.FailedCases != 1 {
		t.Errorf("unexpected summary: %+v", p.Summary)
	}

	output, err := os.ReadFile(filepath.Join(p.Dir(), "patient_b_output.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(output) != 0 {
		t.Errorf("expected empty output file, got %q", output)
	}
}

func TestPipelineSkipData(t *testing.T) {
	cfg := setupRun(t, twoCases)
	gen := &fakeGenerator{}
	p := runPipeline(t, cfg, gen, pipeline.Options{SkipData: true})

	if len(gen.prompts) != 0 {
		t.Errorf("expected no requests, got %d", len(gen.prompts))
	}
	if p.Summary != nil {
		t.Error("expected no summary without results")
	}
	if _, err := os.Stat(filepath.Join(p.Dir(), "summary.json")); !errors.Is(err, os.ErrNotExist) {
		t.Error("summary.json should not be written")
	}
	if _, err := os.Stat(filepath.Join(p.Dir(), "config.json")); err != nil {
		t.Errorf("config.json should still be written: %v", err)
	}
}

func TestPipelineSkipGeneration(t *testing.T) {
	cfg := setupRun(t, twoCases)
	gen := &fakeGenerator{}
	p := runPipeline(t, cfg, gen, pipeline.Options{SkipGeneration: true})

	if len(gen.prompts) != 0 {
		t.Errorf("expected no requests, got %d", len(gen.prompts))
	}
	if _, err := os.Stat(filepath.Join(p.Dir(), "data_info.json")); err != nil {
		t.Errorf("data_info.json should be written: %v", err)
	}
}

func TestPipelineMissingDataFile(t *testing.T) {
	cfg := setupRun(t, twoCases)
	cfg.DataFile = filepath.Join(t.TempDir(), "missing.json")
	p := pipeline.New(cfg, &fakeGenerator{}, pipeline.Options{GitDir: t.TempDir()})
	ctx := context.Background()
	if err := p.Setup(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Execute(ctx); err == nil {
		t.Error("expected error for missing data file")
	}
}
