package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/report"
	"github.com/signalnine/letterbench/internal/result"
	"github.com/signalnine/letterbench/internal/scoring"
)

// Rescore re-parses the evaluation texts stored in dir with the weights of
// the saved configuration and rewrites the per-case metrics and the summary.
// The model is not called; a previous improvement analysis is kept.
func Rescore(ctx context.Context, dir string, out io.Writer) (*result.EvalSummary, error) {
	log := clog.FromContext(ctx)

	var cfg config.EvalConfig
	if err := result.ReadJSON(filepath.Join(dir, result.EvalConfigFile), &cfg); err != nil {
		return nil, fmt.Errorf("reading evaluation config: %w", err)
	}
	weights := cfg.Weights
	if weights.IsZero() {
		weights = config.DefaultWeights
	}

	var prev result.EvalSummary
	if err := result.ReadJSON(filepath.Join(dir, result.EvalSummaryFile), &prev); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	stored, err := result.ListEvaluations(dir)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("no evaluations found in %s", dir)
	}
	ids := rescoreOrder(prev.CasesEvaluated, stored)

	metrics := make(map[string]result.Metrics, len(ids))
	for _, id := range ids {
		text, err := os.ReadFile(result.EvaluationTextPath(dir, id))
		if err != nil {
			return nil, err
		}
		m, missing := scoring.ExtractMetrics(string(text), weights)
		if len(missing) > 0 {
			log.Warnf("Case %s: no score found for %v", id, missing)
		}
		metrics[id] = m

		r := result.EvaluationResult{CaseID: id, Status: result.StatusSuccess, Evaluation: string(text)}
		if err := result.ReadJSON(result.EvalResultPath(dir, id), &r); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		r.Metrics = m
		if err := result.WriteJSON(result.EvalResultPath(dir, id), r); err != nil {
			return nil, err
		}
	}
	log.Infof("Rescored %d cases in %s", len(ids), dir)

	s := report.BuildEvalSummary(cfg.EvalID, cfg.RunID, cfg.Model, ids, metrics, prev.ImprovementAnalysis, time.Now())
	if err := report.WriteEvalSummary(ctx, dir, s, out); err != nil {
		return nil, err
	}
	return s, nil
}

// rescoreOrder keeps the previously recorded case order and appends any
// stored evaluations it did not list.
func rescoreOrder(previous, stored []string) []string {
	ids := make([]string, 0, len(stored))
	for _, id := range previous {
		if slices.Contains(stored, id) && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for _, id := range stored {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
