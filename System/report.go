package Parameters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	solver "sic-ghost/Solver"
	"sic-ghost/measure"
)

// Report is the JSON record of one solver run.
type Report struct {
	RunID      string           `json:"run_id"`
	Field      string           `json:"field"`
	Started    time.Time        `json:"started"`
	Elapsed    string           `json:"elapsed"`
	Iterations int              `json:"iterations"`
	Prec       uint             `json:"prec"`       // target precision of the converged iteration
	Precision  string           `json:"precision"`  // same, human readable
	Trace      []solver.Event   `json:"trace"`
	Retries    map[string]int64 `json:"retries"`
	Shift      []int            `json:"shift"`
	Score      float64          `json:"score"`
	Phases     [][2]string      `json:"phases"`
	Fiducial   [][2]string      `json:"fiducial"` // real, imaginary parts as decimal strings
}

// NewReport summarises res. digits is the number of significant digits
// written for every entry.
func NewReport(runID, field string, started time.Time, res *solver.Result, retries map[string]int64, digits int) Report {
	r := Report{
		RunID:      runID,
		Field:      field,
		Started:    started.UTC(),
		Elapsed:    time.Since(started).String(),
		Iterations: res.Iterations,
		Prec:       res.Prec,
		Precision:  measure.Human(res.Prec),
		Trace:      res.Trace,
		Retries:    retries,
		Shift:      res.Shift,
		Score:      res.Score,
	}
	for _, z := range res.X.Data {
		r.Phases = append(r.Phases, [2]string{z.Real.Text('g', digits), z.Imag.Text('g', digits)})
	}
	for _, z := range res.Psi {
		r.Fiducial = append(r.Fiducial, [2]string{z.Real.Text('g', digits), z.Imag.Text('g', digits)})
	}
	return r
}

// WriteReport writes r to dir/report-<run id>.json and returns the path.
func WriteReport(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report folder: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(dir, "report-"+r.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
