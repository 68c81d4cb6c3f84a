package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	solver "sic-ghost/Solver"
	Parameters "sic-ghost/System"
	"sic-ghost/measure"
	"sic-ghost/quadratic"
)

var (
	reportDir    string
	plotPath     string
	reportDigits int
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run the precision loop and shift search for the configured field",
	Long: `Builds the configured reference field, runs the precision-doubling
solver, searches the Galois shift and writes a JSON report.

Environment overrides: SIC_START_PREC, SIC_MAX_PREC (also read from .env).
Set MEASURE_STAGES=1 to log retry counts per stage.`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&reportDir, "out", "Parameters/runs", "Report directory")
	solveCmd.Flags().StringVar(&plotPath, "plot", "", "Write the accepted phases to this image (.png, .svg, .pdf)")
	solveCmd.Flags().IntVar(&reportDigits, "digits", 40, "Significant digits per reported entry")
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := loadParams()
	if err != nil {
		return err
	}
	field, err := quadratic.New(p.Field)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	log := logger.With(zap.String("run", runID))
	counter := measure.NewCounter()

	opts := p.For(field.Label()).Options()
	opts.Logger = log
	opts.Counter = counter
	s, err := solver.New(field, opts)
	if err != nil {
		return err
	}

	started := time.Now()
	var res *solver.Result
	measure.Section(log, "solve", func() {
		res, err = s.Solve()
	})
	counter.Dump(log)
	if err != nil {
		log.Error("solve failed", zap.Error(err), zap.Any("trace", s.Trace()))
		return err
	}

	report := Parameters.NewReport(runID, field.Label(), started, res, counter.Snapshot(), reportDigits)
	path, err := Parameters.WriteReport(reportDir, report)
	if err != nil {
		return err
	}
	if plotPath != "" {
		if err := plotPhases(res.X, plotPath); err != nil {
			return fmt.Errorf("plot phases: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✔ %s converged at %s after %d iteration(s), shift %v\n",
		field.Label(), measure.Human(res.Prec), res.Iterations, res.Shift)
	for i, z := range report.Fiducial {
		fmt.Fprintf(out, "  psi[%d] = %s + %si\n", i, z[0], z[1])
	}
	fmt.Fprintf(out, "✔ Report written to %s\n", path)
	return nil
}
