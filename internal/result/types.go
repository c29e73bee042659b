package result

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type TestCase struct {
	ID        string `json:"id"`
	Notes     string `json:"notes,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type DataInfo struct {
	DataFile string   `json:"data_file"`
	NumCases int      `json:"num_cases"`
	CaseIDs  []string `json:"case_ids"`
}

// GenerationResult is one letter generated for one test case.
type GenerationResult struct {
	RunID        string  `json:"run_id"`
	TestID       string  `json:"test_id"`
	Output       string  `json:"output"`
	Status       string  `json:"status"`
	Error        *string `json:"error"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Runtime      float64 `json:"runtime"`
	PromptTokens int     `json:"prompt_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
}

// Metrics holds the rubric scores for one evaluated letter. Each value is in
// [0,5]; zero means the score was not found in the judge's response.
type Metrics struct {
	Completeness     float64 `json:"completeness"`
	Accuracy         float64 `json:"accuracy"`
	NoHallucinations float64 `json:"no_hallucinations"`
	ClinicalSafety   float64 `json:"clinical_safety"`
	Coherence        float64 `json:"coherence"`
	WeightedScore    float64 `json:"weighted_score"`
}

type EvaluationResult struct {
	CaseID     string  `json:"case_id"`
	Status     string  `json:"status"`
	Evaluation string  `json:"evaluation"`
	Metrics    Metrics `json:"metrics"`
	Error      *string `json:"error"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Runtime    float64 `json:"runtime"`
}

type RuntimeStats struct {
	AvgRuntime float64 `json:"avg_runtime"`
	MaxRuntime float64 `json:"max_runtime"`
	MinRuntime float64 `json:"min_runtime"`
}

type TokenUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type CaseOutcome struct {
	TestID  string  `json:"test_id"`
	Status  string  `json:"status"`
	Runtime float64 `json:"runtime"`
	Error   string  `json:"error,omitempty"`
}

// RunSummary aggregates the generation results of a single run.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Timestamp       string        `json:"timestamp"`
	Model           string        `json:"model"`
	GitCommit       string        `json:"git_commit"`
	TotalCases      int           `json:"total_cases"`
	RunSuccess      bool          `json:"run_success"`
	SuccessfulCases int           `json:"successful_cases"`
	FailedCases     int           `json:"failed_cases"`
	RuntimeStats    RuntimeStats  `json:"runtime_stats"`
	TokenUsage      TokenUsage    `json:"token_usage"`
	Cases           []CaseOutcome `json:"cases"`
}

// EvalSummary aggregates the evaluation results of a single evaluation.
// CasesEvaluated carries the case order; CaseMetrics is keyed by case ID.
type EvalSummary struct {
	EvalID              string             `json:"eval_id"`
	RunID               string             `json:"run_id"`
	Timestamp           string             `json:"timestamp"`
	Model               string             `json:"model"`
	CasesEvaluated      []string           `json:"cases_evaluated"`
	AverageMetrics      Metrics            `json:"average_metrics"`
	CaseMetrics         map[string]Metrics `json:"case_metrics"`
	ImprovementAnalysis string             `json:"improvement_analysis"`
}
