package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	ConfigFile       = "config.json"
	EvalConfigFile   = "eval_config.json"
	DataInfoFile     = "data_info.json"
	PromptFile       = "prompt.txt"
	EvalPromptFile   = "eval_prompt.txt"
	SummaryFile      = "summary.json"
	EvalSummaryFile  = "eval_summary.json"
	RunReportFile    = "run_report.md"
	EvalReportFile   = "evaluation_report.md"
	outputSuffix     = "_output.txt"
	evalResultSuffix = "_eval.json"
	evaluationSuffix = "_evaluation.txt"
)

// ErrNoLetters is returned when a run directory holds no generated letters.
var ErrNoLetters = errors.New("no output files found")

// CreateRunDir creates baseDir/id and points baseDir/latest at it.
func CreateRunDir(baseDir, id string) (string, error) {
	runDir, err := filepath.Abs(filepath.Join(baseDir, id))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func ResultPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

func OutputPath(dir, id string) string {
	return filepath.Join(dir, id+outputSuffix)
}

func EvalResultPath(dir, id string) string {
	return filepath.Join(dir, id+evalResultSuffix)
}

func EvaluationTextPath(dir, id string) string {
	return filepath.Join(dir, id+evaluationSuffix)
}

// WriteJSON writes v as two-space indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func WriteText(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}

// LoadTestCases reads a test-data file. A single JSON object is accepted as
// a one-case list.
func LoadTestCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test data: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single TestCase
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("parsing test data %s: %w", path, err)
		}
		return []TestCase{single}, nil
	}
	var cases []TestCase
	if err := json.Unmarshal(trimmed, &cases); err != nil {
		return nil, fmt.Errorf("parsing test data %s: %w", path, err)
	}
	return cases, nil
}

// NewDataInfo describes a loaded test-data file, listing the IDs that are set.
func NewDataInfo(dataFile string, cases []TestCase) DataInfo {
	info := DataInfo{DataFile: dataFile, NumCases: len(cases), CaseIDs: []string{}}
	for _, c := range cases {
		if c.ID != "" {
			info.CaseIDs = append(info.CaseIDs, c.ID)
		}
	}
	return info
}

// LoadGeneratedLetters reads every <id>_output.txt in runDir keyed by id.
func LoadGeneratedLetters(runDir string) (map[string]string, error) {
	if _, err := os.Stat(runDir); err != nil {
		return nil, fmt.Errorf("run directory not found: %s", runDir)
	}
	matches, err := filepath.Glob(filepath.Join(runDir, "*"+outputSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing outputs: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLetters, runDir)
	}
	letters := make(map[string]string, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(filepath.Base(path), outputSuffix)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		letters[id] = string(data)
	}
	return letters, nil
}

// ListEvaluations returns the case IDs with a stored evaluation text in
// evalDir, sorted.
func ListEvaluations(evalDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(evalDir, "*"+evaluationSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, path := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(path), evaluationSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}
