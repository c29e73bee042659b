// Package pipeline generates one letter per test case against an inference
// endpoint and records the results of the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/gitops"
	"github.com/signalnine/letterbench/internal/inference"
	"github.com/signalnine/letterbench/internal/report"
	"github.com/signalnine/letterbench/internal/result"
)

// NotesPlaceholder is replaced with a case's clinical notes in the prompt.
const NotesPlaceholder = "{{notes}}"

// Generator produces text for a prompt. *inference.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*inference.Response, error)
}

type Options struct {
	SkipData       bool
	SkipGeneration bool
	// GitDir is where the source revision is looked up. Defaults to ".".
	GitDir string
}

type Pipeline struct {
	cfg  *config.RunConfig
	gen  Generator
	opts Options

	dir     string
	cases   []result.TestCase
	prompt  string
	results []result.GenerationResult
	Summary *result.RunSummary
}

func New(cfg *config.RunConfig, gen Generator, opts Options) *Pipeline {
	if opts.GitDir == "" {
		opts.GitDir = "."
	}
	return &Pipeline{cfg: cfg, gen: gen, opts: opts}
}

// Dir is the run directory; it is set by Setup.
func (p *Pipeline) Dir() string { return p.dir }

func (p *Pipeline) Results() []result.GenerationResult { return p.results }

// Setup creates the run directory and saves the resolved configuration.
func (p *Pipeline) Setup(ctx context.Context) error {
	dir, err := result.CreateRunDir(p.cfg.ResultsDir, p.cfg.RunID)
	if err != nil {
		return err
	}
	p.dir = dir
	if err := result.WriteJSON(filepath.Join(dir, result.ConfigFile), p.cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	log := clog.FromContext(ctx)
	log.Infof("Starting run %s at %s", p.cfg.RunID, report.Timestamp(time.Now()))
	log.Infof("Using model: %s", p.cfg.Model)
	return nil
}

// Execute loads the data, generates letters and writes the run summary,
// honoring the skip options.
func (p *Pipeline) Execute(ctx context.Context) error {
	if !p.opts.SkipData {
		if err := p.loadData(ctx); err != nil {
			return err
		}
		if err := p.loadPrompt(); err != nil {
			return err
		}
	}
	if !p.opts.SkipGeneration {
		p.generate(ctx)
	}
	return p.summarize(ctx)
}

func (p *Pipeline) loadData(ctx context.Context) error {
	cases, err := result.LoadTestCases(p.cfg.DataFile)
	if err != nil {
		return err
	}
	p.cases = cases
	info := result.NewDataInfo(p.cfg.DataFile, cases)
	if err := result.WriteJSON(filepath.Join(p.dir, result.DataInfoFile), info); err != nil {
		return fmt.Errorf("saving data info: %w", err)
	}
	clog.FromContext(ctx).Infof("Loaded %d test cases", len(cases))
	return nil
}

func (p *Pipeline) loadPrompt() error {
	data, err := os.ReadFile(p.cfg.PromptFile)
	if err != nil {
		return fmt.Errorf("reading prompt: %w", err)
	}
	p.prompt = string(data)
	return result.WriteText(filepath.Join(p.dir, result.PromptFile), p.prompt)
}

func (p *Pipeline) generate(ctx context.Context) {
	log := clog.FromContext(ctx)
	if len(p.cases) == 0 || p.prompt == "" {
		log.Errorf("Missing test data or prompt")
		return
	}
	for i, tc := range p.cases {
		if tc.ID == "" {
			log.Warnf("Skipping case at index %d: no ID", i)
			continue
		}
		if tc.Notes == "" {
			log.Warnf("Skipping case %s: no notes", tc.ID)
			continue
		}
		log.Infof("Processing case %d/%d: %s", i+1, len(p.cases), tc.ID)

		r := p.generateOne(ctx, tc)
		p.results = append(p.results, r)
		if err := result.WriteJSON(result.ResultPath(p.dir, tc.ID), r); err != nil {
			log.Errorf("Saving result for %s: %v", tc.ID, err)
		}
		if err := result.WriteText(result.OutputPath(p.dir, tc.ID), r.Output); err != nil {
			log.Errorf("Saving output for %s: %v", tc.ID, err)
		}
	}
	log.Infof("Completed generation for %d cases", len(p.results))
}

func (p *Pipeline) generateOne(ctx context.Context, tc result.TestCase) result.GenerationResult {
	start := time.Now()
	r := result.GenerationResult{
		RunID:  p.cfg.RunID,
		TestID: tc.ID,
		Status: result.StatusSuccess,
	}
	prompt := strings.ReplaceAll(p.prompt, NotesPlaceholder, tc.Notes)
	resp, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		msg := err.Error()
		r.Status = result.StatusError
		r.Error = &msg
		clog.FromContext(ctx).Errorf("Generation error for %s: %v", tc.ID, err)
	} else {
		r.Output = resp.Text
		r.PromptTokens = resp.PromptTokens
		r.OutputTokens = resp.OutputTokens
	}
	end := time.Now()
	r.StartTime = epoch(start)
	r.EndTime = epoch(end)
	r.Runtime = end.Sub(start).Seconds()
	return r
}

func (p *Pipeline) summarize(ctx context.Context) error {
	if len(p.results) == 0 {
		clog.FromContext(ctx).Errorf("No results for summary")
		return nil
	}
	p.Summary = report.BuildRunSummary(p.cfg.RunID, p.cfg.Model, gitops.HeadCommit(p.opts.GitDir), p.results, time.Now())
	return report.WriteRunSummary(ctx, p.dir, p.Summary)
}

// epoch is t as fractional Unix seconds.
func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
