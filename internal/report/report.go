package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/signalnine/letterbench/internal/result"
)

// Generate renders the summary stored in dir, which may be a run or an
// evaluation directory, as "table", "markdown" or "json".
func Generate(dir, format string, w io.Writer) error {
	if s, err := readSummary[result.EvalSummary](filepath.Join(dir, result.EvalSummaryFile)); err == nil {
		return writeEval(s, format, w)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s, err := readSummary[result.RunSummary](filepath.Join(dir, result.SummaryFile))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no summary found in %s", dir)
	}
	if err != nil {
		return err
	}
	return writeRun(s, format, w)
}

func readSummary[T any](path string) (*T, error) {
	var s T
	if err := result.ReadJSON(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeEval(s *result.EvalSummary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		md, err := EvalMarkdown(s)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case "json":
		return writeJSON(s, w)
	default:
		fmt.Fprintf(w, "Evaluation %s of run %s (%s)\n\n", s.EvalID, s.RunID, s.Model)
		rows := make([][]string, 0, len(s.CasesEvaluated)+1)
		for _, id := range s.CasesEvaluated {
			rows = append(rows, metricRow(id, s.CaseMetrics[id]))
		}
		rows = append(rows, metricRow("AVERAGE", s.AverageMetrics))
		headers := caseMetricHeaders()
		return renderTable(w, headers, rows, metricAligns(len(headers)))
	}
}

func writeRun(s *result.RunSummary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		md, err := RunMarkdown(s)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case "json":
		return writeJSON(s, w)
	default:
		fmt.Fprintf(w, "Run %s (%s): %d succeeded, %d failed\n\n", s.RunID, s.Model, s.SuccessfulCases, s.FailedCases)
		return renderTable(w, caseHeaders, caseRows(s.Cases), caseAligns)
	}
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
