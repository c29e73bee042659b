package result_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/letterbench/internal/result"
)

func TestWriteAndReadGenerationResult(t *testing.T) {
	dir := t.TempDir()
	msg := "API error: 500 - boom"
	res := &result.GenerationResult{
		RunID:     "run_1",
		TestID:    "patient_a",
		Status:    result.StatusError,
		Error:     &msg,
		StartTime: 100,
		EndTime:   102.5,
		Runtime:   2.5,
	}
	path := result.ResultPath(dir, res.TestID)
	if err := result.WriteJSON(path, res); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got result.GenerationResult
	if err := result.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.TestID != res.TestID {
		t.Errorf("test_id: got %q, want %q", got.TestID, res.TestID)
	}
	if got.Error == nil || *got.Error != msg {
		t.Errorf("error: got %v, want %q", got.Error, msg)
	}
	if got.Runtime != 2.5 {
		t.Errorf("runtime: got %f, want 2.5", got.Runtime)
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base, "run_20250101_120000")
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if filepath.Base(runDir) != "run_20250101_120000" {
		t.Errorf("run dir name: got %q", filepath.Base(runDir))
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	target, err := os.Readlink(filepath.Join(base, "latest"))
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestLoadTestCasesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	os.WriteFile(path, []byte(`[
  {"id": "patient_a", "notes": "knee pain", "reference": "Dear GP"},
  {"notes": "no id here"}
]`), 0o644)
	cases, err := result.LoadTestCases(path)
	if err != nil {
		t.Fatalf("LoadTestCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Reference != "Dear GP" {
		t.Errorf("reference: got %q", cases[0].Reference)
	}
	info := result.NewDataInfo(path, cases)
	if info.NumCases != 2 || len(info.CaseIDs) != 1 || info.CaseIDs[0] != "patient_a" {
		t.Errorf("unexpected data info: %+v", info)
	}
}

func TestLoadTestCasesSingleObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	os.WriteFile(path, []byte(`  {"id": "solo", "notes": "n"}`), 0o644)
	cases, err := result.LoadTestCases(path)
	if err != nil {
		t.Fatalf("LoadTestCases: %v", err)
	}
	if len(cases) != 1 || cases[0].ID != "solo" {
		t.Errorf("got %+v", cases)
	}
}

func TestLoadTestCasesInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	os.WriteFile(path, []byte(`not json`), 0o644)
	if _, err := result.LoadTestCases(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadGeneratedLetters(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(result.OutputPath(dir, "patient_a"), []byte("letter a"), 0o644)
	os.WriteFile(result.OutputPath(dir, "patient_b"), []byte("letter b"), 0o644)
	os.WriteFile(result.ResultPath(dir, "patient_a"), []byte("{}"), 0o644)

	letters, err := result.LoadGeneratedLetters(dir)
	if err != nil {
		t.Fatalf("LoadGeneratedLetters: %v", err)
	}
	if len(letters) != 2 {
		t.Fatalf("expected 2 letters, got %d", len(letters))
	}
	if letters["patient_b"] != "letter b" {
		t.Errorf("patient_b: got %q", letters["patient_b"])
	}
}

func TestLoadGeneratedLettersEmpty(t *testing.T) {
	_, err := result.LoadGeneratedLetters(t.TempDir())
	if !errors.Is(err, result.ErrNoLetters) {
		t.Errorf("expected ErrNoLetters, got %v", err)
	}
}

func TestLoadGeneratedLettersMissingDir(t *testing.T) {
	_, err := result.LoadGeneratedLetters(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("expected error for missing run directory")
	}
}

func TestListEvaluations(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(result.EvaluationTextPath(dir, "patient_b"), []byte("b"), 0o644)
	os.WriteFile(result.EvaluationTextPath(dir, "patient_a"), []byte("a"), 0o644)
	os.WriteFile(result.EvalResultPath(dir, "patient_a"), []byte("{}"), 0o644)
	ids, err := result.ListEvaluations(dir)
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(ids) != 2 || ids[0] != "patient_a" || ids[1] != "patient_b" {
		t.Errorf("got %v", ids)
	}
}
