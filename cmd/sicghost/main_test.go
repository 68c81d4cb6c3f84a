package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sic-ghost/numeric"
)

func TestPlotPhases(t *testing.T) {
	x := numeric.NewArray[*numeric.BigComplex]([]int{2})
	x.Data[0] = numeric.NewBigComplex(0.6, 0.8, 128)
	x.Data[1] = numeric.NewBigComplex(0.6, -0.8, 128)
	path := filepath.Join(t.TempDir(), "phases.png")
	require.NoError(t, plotPhases(x, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestSolveCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"solve", "--out", dir, "--plot", filepath.Join(dir, "phases.svg")})
	require.NoError(t, rootCmd.Execute())

	require.Contains(t, out.String(), "converged at 128 bits")
	reports, err := filepath.Glob(filepath.Join(dir, "report-*.json"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	_, err = os.Stat(filepath.Join(dir, "phases.svg"))
	require.NoError(t, err)
}
