// Package evaluate scores the letters of a previous run with a judge model
// and summarises the scores.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/inference"
	"github.com/signalnine/letterbench/internal/report"
	"github.com/signalnine/letterbench/internal/result"
	"github.com/signalnine/letterbench/internal/scoring"
)

// Generator produces text for a prompt. *inference.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*inference.Response, error)
}

type Evaluator struct {
	cfg *config.EvalConfig
	gen Generator
	out io.Writer

	dir     string
	cases   []result.TestCase
	prompt  string
	letters map[string]string
	order   []string
	results map[string]*result.EvaluationResult
	Summary *result.EvalSummary
}

// New returns an evaluator that prints the improvement analysis to out.
func New(cfg *config.EvalConfig, gen Generator, out io.Writer) *Evaluator {
	return &Evaluator{
		cfg:     cfg,
		gen:     gen,
		out:     out,
		results: map[string]*result.EvaluationResult{},
	}
}

func (e *Evaluator) Dir() string { return e.dir }

// Results returns the evaluated cases in test-data order.
func (e *Evaluator) Results() []*result.EvaluationResult {
	rs := make([]*result.EvaluationResult, 0, len(e.order))
	for _, id := range e.order {
		rs = append(rs, e.results[id])
	}
	return rs
}

// Setup creates the evaluation directory and saves the resolved configuration.
func (e *Evaluator) Setup(ctx context.Context) error {
	dir, err := result.CreateRunDir(e.cfg.EvalResultsDir, e.cfg.EvalID)
	if err != nil {
		return err
	}
	e.dir = dir
	if err := result.WriteJSON(filepath.Join(dir, result.EvalConfigFile), e.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	log := clog.FromContext(ctx)
	log.Infof("Starting evaluation %s at %s", e.cfg.EvalID, report.Timestamp(time.Now()))
	log.Infof("Using model: %s", e.cfg.Model)
	log.Infof("Evaluating run: %s", e.cfg.RunID)
	return nil
}

func (e *Evaluator) Execute(ctx context.Context) error {
	if err := e.loadData(ctx); err != nil {
		return err
	}
	if err := e.loadPrompt(); err != nil {
		return err
	}
	if err := e.loadLetters(ctx); err != nil {
		return err
	}
	e.evaluate(ctx)
	return e.summarize(ctx)
}

func (e *Evaluator) loadData(ctx context.Context) error {
	cases, err := result.LoadTestCases(e.cfg.DataFile)
	if err != nil {
		return err
	}
	e.cases = cases
	info := result.NewDataInfo(e.cfg.DataFile, cases)
	if err := result.WriteJSON(filepath.Join(e.dir, result.DataInfoFile), info); err != nil {
		return fmt.Errorf("saving data info: %w", err)
	}
	clog.FromContext(ctx).Infof("Loaded %d test cases", len(cases))
	return nil
}

func (e *Evaluator) loadPrompt() error {
	data, err := os.ReadFile(e.cfg.PromptFile)
	if err != nil {
		return fmt.Errorf("reading evaluation prompt: %w", err)
	}
	e.prompt = string(data)
	return result.WriteText(filepath.Join(e.dir, result.EvalPromptFile), e.prompt)
}

func (e *Evaluator) loadLetters(ctx context.Context) error {
	runDir := filepath.Join(e.cfg.ResultsDir, e.cfg.RunID)
	letters, err := result.LoadGeneratedLetters(runDir)
	if err != nil {
		return err
	}
	e.letters = letters
	clog.FromContext(ctx).Infof("Loaded %d generated letters from %s", len(letters), runDir)
	return nil
}

func (e *Evaluator) evaluate(ctx context.Context) {
	log := clog.FromContext(ctx)
	if len(e.cases) == 0 || e.prompt == "" || len(e.letters) == 0 {
		log.Errorf("Missing data, prompt, or generated letters")
		return
	}
	for _, tc := range e.cases {
		if tc.ID == "" {
			log.Warnf("Skipping case: no ID")
			continue
		}
		if tc.Notes == "" || tc.Reference == "" {
			log.Warnf("Skipping case %s: missing required fields", tc.ID)
			continue
		}
		letter, ok := e.letters[tc.ID]
		if !ok {
			log.Warnf("Skipping case %s: no generated letter found", tc.ID)
			continue
		}
		if _, seen := e.results[tc.ID]; seen {
			log.Warnf("Case %s appears more than once; keeping the latest evaluation", tc.ID)
		} else {
			e.order = append(e.order, tc.ID)
		}
		log.Infof("Evaluating case: %s", tc.ID)

		r := e.evaluateOne(ctx, tc, letter)
		e.results[tc.ID] = r
		if err := result.WriteJSON(result.EvalResultPath(e.dir, tc.ID), r); err != nil {
			log.Errorf("Saving evaluation for %s: %v", tc.ID, err)
		}
		if err := result.WriteText(result.EvaluationTextPath(e.dir, tc.ID), r.Evaluation); err != nil {
			log.Errorf("Saving evaluation text for %s: %v", tc.ID, err)
		}
	}
	log.Infof("Completed evaluation for %d cases", len(e.results))
}

func (e *Evaluator) evaluateOne(ctx context.Context, tc result.TestCase, letter string) *result.EvaluationResult {
	log := clog.FromContext(ctx)
	start := time.Now()
	r := &result.EvaluationResult{CaseID: tc.ID, Status: result.StatusSuccess}

	resp, err := e.gen.Generate(ctx, BuildPrompt(e.prompt, tc.Notes, tc.Reference, letter))
	if err != nil {
		msg := err.Error()
		r.Status = result.StatusError
		r.Error = &msg
		log.Errorf("Evaluation error for %s: %v", tc.ID, err)
	} else {
		r.Evaluation = resp.Text
		var missing []string
		r.Metrics, missing = scoring.ExtractMetrics(resp.Text, e.cfg.Weights)
		if len(missing) > 0 {
			log.Warnf("Case %s: no score found for %v", tc.ID, missing)
		}
	}
	end := time.Now()
	r.StartTime = float64(start.UnixNano()) / 1e9
	r.EndTime = float64(end.UnixNano()) / 1e9
	r.Runtime = end.Sub(start).Seconds()
	return r
}

// improvementAnalysis asks the model for recommendations across all stored
// evaluations. Any failure yields report.AnalysisError.
func (e *Evaluator) improvementAnalysis(ctx context.Context) string {
	log := clog.FromContext(ctx)
	if e.cfg.SummaryPromptFile == "" {
		log.Warnf("No summary_prompt_file configured")
		return report.AnalysisError
	}
	log.Infof("Loading summary prompt from: %s", e.cfg.SummaryPromptFile)
	tmpl, err := os.ReadFile(e.cfg.SummaryPromptFile)
	if err != nil {
		log.Errorf("Error in improvement analysis: %v", err)
		return report.AnalysisError
	}

	var evals []caseText
	for _, id := range e.order {
		data, err := os.ReadFile(result.EvaluationTextPath(e.dir, id))
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			log.Errorf("Error in improvement analysis: %v", err)
			return report.AnalysisError
		}
		evals = append(evals, caseText{id: id, text: string(data)})
	}

	log.Infof("Generating improvement analysis from evaluation results...")
	resp, err := e.gen.Generate(ctx, buildAnalysisPrompt(string(tmpl), evals))
	if err != nil {
		log.Errorf("Error in improvement analysis: %v", err)
		return report.AnalysisError
	}
	log.Infof("Received improvement analysis (%d chars)", len(resp.Text))
	if resp.Text == "" {
		log.Errorf("Empty improvement analysis response from API")
	}
	return resp.Text
}

func (e *Evaluator) summarize(ctx context.Context) error {
	if len(e.results) == 0 {
		clog.FromContext(ctx).Errorf("No results for summary")
		return nil
	}
	metrics := make(map[string]result.Metrics, len(e.results))
	for id, r := range e.results {
		metrics[id] = r.Metrics
	}
	analysis := e.improvementAnalysis(ctx)
	e.Summary = report.BuildEvalSummary(e.cfg.EvalID, e.cfg.RunID, e.cfg.Model, e.order, metrics, analysis, time.Now())
	return report.WriteEvalSummary(ctx, e.dir, e.Summary, e.out)
}
