package solver

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	shiftsearch "sic-ghost/Shift_Search"
	"sic-ghost/automorphism"
	"sic-ghost/numeric"
	"sic-ghost/quadratic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quadraticSolver(t *testing.T, opts Options) *Solver {
	t.Helper()
	f, err := quadratic.New(quadratic.DefaultConfig())
	require.NoError(t, err)
	s, err := New(f, opts)
	require.NoError(t, err)
	return s
}

func TestSolveConvergesInOneIteration(t *testing.T) {
	s := quadraticSolver(t, Options{Parallel: true})
	res, err := s.Solve()
	require.NoError(t, err)
	require.Equal(t, 1, res.Iterations)
	require.Equal(t, uint(MinPrec), res.Prec)
	require.Less(t, res.Score, 1e-6)
	require.Len(t, res.Psi, 2)

	norm := new(big.Float)
	for _, z := range res.Psi {
		norm.Add(norm, z.AbsSquared())
	}
	f, _ := norm.Float64()
	require.InDelta(t, 1, f, 1e-30)
}

func TestPhasesOnUnitCircle(t *testing.T) {
	s := quadraticSolver(t, Options{})
	ph, err := s.Phases()
	require.NoError(t, err)
	require.Equal(t, []int{2}, ph.X.Shape)
	for i, z := range ph.X.Data {
		abs, _ := z.Abs().Float64()
		require.InDelta(t, 1, abs, 1e-6, "phase %d", i)
		require.Equal(t, uint(DefaultStablePrec), z.Prec())
	}
	// the two phases are complex conjugates
	a, b := ph.X.Data[0].ToComplex(), ph.X.Data[1].ToComplex()
	require.InDelta(t, real(a), real(b), 1e-15)
	require.InDelta(t, -imag(a), imag(b), 1e-15)
}

func requireMonotone(t *testing.T, trace []Event) {
	t.Helper()
	require.NotEmpty(t, trace)
	last := uint(0)
	for i, ev := range trace {
		switch ev.Reason {
		case ReasonSeed:
			require.Greater(t, ev.Prec, last, "event %d", i)
			last = ev.Prec
		case ReasonBuffer:
			require.Equal(t, uint(DefaultBufferPrec), ev.Prec)
		case ReasonNormalize, ReasonRestore:
			require.Equal(t, uint(DefaultStablePrec), ev.Prec)
		}
	}
	require.Equal(t, ReasonRestore, trace[len(trace)-1].Reason)
}

func TestTraceOnConvergence(t *testing.T) {
	s := quadraticSolver(t, Options{})
	ph, err := s.Phases()
	require.NoError(t, err)
	requireMonotone(t, ph.Trace)
	require.Equal(t, []Event{
		{ReasonSeed, 128},
		{ReasonBuffer, 320},
		{ReasonNormalize, 256},
		{ReasonRestore, 256},
	}, ph.Trace)
}

// flatField has constant overlaps unless overlap is set, so by default no
// exponent is ever generic. orders defaults to a single factor of order 2.
type flatField struct {
	refineErr error
	nan       bool
	orders    []int
	overlap   func(rep int) *big.Float
}

func (flatField) Label() string  { return "flat" }
func (flatField) Dimension() int { return 3 }
func (flatField) Seed() ([]*numeric.BigComplex, error) {
	return []*numeric.BigComplex{numeric.NewBigComplex(1, 0, 53), numeric.NewBigComplex(1, 0, 53)}, nil
}
func (f flatField) Orbit() ([]int, []int) {
	if f.orders == nil {
		return []int{2}, []int{0, 1}
	}
	n := 1
	for _, m := range f.orders {
		n *= m
	}
	reps := make([]int, n)
	for i := range reps {
		reps[i] = i
	}
	return f.orders, reps
}
func (flatField) Basis(prec uint) automorphism.BasisPair {
	ctx := numeric.NewContext(prec)
	return automorphism.BasisPair{Primal: []*big.Float{ctx.Int(1)}, Dual: []*big.Float{ctx.Int(1)}}
}
func (f flatField) Overlap(ctx numeric.Context, rep int, _, _ []*numeric.BigComplex) *numeric.BigComplex {
	if f.nan {
		panic(big.ErrNaN{})
	}
	if f.overlap != nil {
		return numeric.FromReal(ctx.Set(f.overlap(rep)))
	}
	return ctx.Complex(1, 0)
}
func (f flatField) Refine(_ numeric.Context, psi []*numeric.BigComplex, bits uint) ([]*numeric.BigComplex, error) {
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	out := make([]*numeric.BigComplex, len(psi))
	for i, z := range psi {
		out[i] = z.Round(bits)
	}
	return out, nil
}
func (flatField) Complete(numeric.Context, *numeric.Array[*numeric.BigComplex]) ([]*numeric.BigComplex, error) {
	return nil, errors.New("unused")
}
func (flatField) Score(numeric.Context, []*numeric.BigComplex) float64 { return 1 }
func (flatField) Polish(_ numeric.Context, psi []*numeric.BigComplex, _ int, _ shiftsearch.ScoreFunc) ([]*numeric.BigComplex, error) {
	return psi, nil
}

func TestPhasesExhausted(t *testing.T) {
	s, err := New(flatField{}, Options{MaxPrec: 512})
	require.NoError(t, err)
	_, err = s.Phases()
	require.ErrorIs(t, err, ErrPrecisionExhausted)
	require.ErrorContains(t, err, "precision exceeded")

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, ExtractingInvariants, se.State)
	require.Equal(t, uint(512), se.Prec)

	trace := s.Trace()
	requireMonotone(t, trace)
	require.Equal(t, []Event{
		{ReasonSeed, 128},
		{ReasonSeed, 256},
		{ReasonSeed, 512},
		{ReasonRestore, 256},
	}, trace)
	require.Equal(t, int64(3), s.Options().Counter.Snapshot()["ExtractingInvariants"])
}

func TestNaNPanicIsRecoverable(t *testing.T) {
	s, err := New(flatField{nan: true}, Options{MaxPrec: 128})
	require.NoError(t, err)
	_, err = s.Phases()
	require.ErrorIs(t, err, ErrPrecisionExhausted)
	require.ErrorIs(t, err, ErrNonFiniteInvariant)
}

// signedInfinities lays +Inf and -Inf out as a checkerboard on a [2,2]
// orbit, so every row and every column sum meets Inf - Inf.
func signedInfinities(rep int) *big.Float {
	return new(big.Float).SetInf((rep/2+rep%2)%2 == 1)
}

func TestInfiniteOverlapsRecoverable(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		f := flatField{orders: []int{2, 2}, overlap: signedInfinities}
		s, err := New(f, Options{MaxPrec: 256, Parallel: parallel})
		require.NoError(t, err)
		_, err = s.Phases()
		require.ErrorIs(t, err, ErrPrecisionExhausted, "parallel=%v", parallel)
		require.ErrorIs(t, err, ErrNonFiniteInvariant, "parallel=%v", parallel)
		require.Equal(t, int64(2), s.Options().Counter.Snapshot()["ExtractingInvariants"], "parallel=%v", parallel)
	}
}

func TestFatalFieldErrorStopsLoop(t *testing.T) {
	boom := errors.New("field descriptor unreadable")
	s, err := New(flatField{refineErr: boom}, Options{})
	require.NoError(t, err)
	_, err = s.Phases()
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrPrecisionExhausted)
	require.Equal(t, ReasonRestore, s.Trace()[len(s.Trace())-1].Reason)
	require.Len(t, s.Trace(), 2)
}

func TestMaxPrecTooLow(t *testing.T) {
	_, err := New(flatField{}, Options{MaxPrec: 64})
	require.ErrorIs(t, err, ErrMaxPrecTooLow)

	_, err = New(flatField{}, Options{StartPrec: 512, MaxPrec: 256})
	require.ErrorIs(t, err, ErrMaxPrecTooLow)
}

func TestStageErrorRecoverable(t *testing.T) {
	cases := map[error]bool{
		fmt.Errorf("pivot: %w", numeric.ErrSingular):          true,
		fmt.Errorf("x: %w", automorphism.ErrNoRelation):       true,
		ErrAmbiguousIntersection:                              true,
		ErrPhaseValidation:                                    true,
		errors.New("disk full"):                               false,
		fmt.Errorf("%w", shiftsearch.ErrShiftSearchExhausted): false,
	}
	for err, want := range cases {
		se := &StageError{State: Dualizing, Prec: 256, Err: err}
		require.Equal(t, want, se.Recoverable(), err.Error())
		require.ErrorIs(t, se, err)
	}
	require.Equal(t, "Intersecting", Intersecting.String())
	require.Equal(t, "State(42)", State(42).String())
}

func TestPartnerNormalisation(t *testing.T) {
	ctx := numeric.NewContext(128)
	psi := []*numeric.BigComplex{ctx.Complex(1, 1), ctx.Complex(0.5, -2), ctx.Complex(3, 0.25)}
	phi, err := partner(ctx, psi, 3)
	require.NoError(t, err)
	g := ctx.Complex(0, 0)
	for k := range psi {
		g = g.Add(phi[k].Conj().Mul(psi[k]))
	}
	got := g.ToComplex()
	require.InDelta(t, 4, real(got), 1e-30)
	require.InDelta(t, 0, imag(got), 1e-30)

	_, err = partner(ctx, []*numeric.BigComplex{ctx.Complex(0, 0)}, 3)
	require.ErrorIs(t, err, ErrNonFiniteInvariant)
}

// runStages runs one iteration from overlaps to the phase array, skipping
// the unit-circle validation.
func runStages(t *testing.T, s *Solver, prec uint) *numeric.Array[*numeric.BigComplex] {
	t.Helper()
	s.sess = newSession(s.log)
	ctx := s.sess.set(ReasonSeed, prec)
	inv, err := s.extractor.Extract(ctx, s.overlaps(ctx, nil, nil))
	require.NoError(t, err)
	bctx := s.sess.set(ReasonBuffer, s.opts.BufferPrec)
	dl, err := s.dualize(bctx, inv, min(prec, s.opts.BufferPrec))
	require.NoError(t, err)
	rows, err := s.rootSets(bctx, dl)
	require.NoError(t, err)
	x, err := s.phaseArray(rows)
	require.NoError(t, err)
	return x
}

// shiftedBy returns the cyclic shift s with x[t] = want[t+s], or nil.
func shiftedBy(x *numeric.Array[*numeric.BigComplex], want []float64) []int {
	shape := x.Shape
	n := len(want)
	for flat := 0; flat < n; flat++ {
		s := numeric.Unravel(flat, shape)
		ok := true
		for i, z := range x.Data {
			t := numeric.Unravel(i, shape)
			for j := range t {
				t[j] = (t[j] + s[j]) % shape[j]
			}
			got := z.ToComplex()
			w := want[numeric.Ravel(t, shape)]
			if math.Abs(real(got)-w) > 1e-20 || math.Abs(imag(got)) > 1e-20 {
				ok = false
				break
			}
		}
		if ok {
			return s
		}
	}
	return nil
}

func TestStagesAcrossTwoFactors(t *testing.T) {
	k := []int64{1, 2, 3, 4, 5, 7}
	f := flatField{orders: []int{2, 3}, overlap: func(rep int) *big.Float { return big.NewFloat(float64(k[rep])) }}
	want := make([]float64, len(k))
	for i, v := range k {
		want[i] = float64(v) / 2 // sqrt(d+1) with d = 3
	}

	for _, parallel := range []bool{false, true} {
		s, err := New(f, Options{Parallel: parallel})
		require.NoError(t, err)
		x := runStages(t, s, 256)
		require.Equal(t, []int{2, 3}, x.Shape)
		for i, z := range x.Data {
			require.NotNil(t, z, "index %d", i)
		}
		require.NotNil(t, shiftedBy(x, want), "parallel=%v: %v is no cyclic shift of K/2", parallel, x.Data)
	}
}

func TestPhaseArrayAmbiguous(t *testing.T) {
	s, err := New(flatField{orders: []int{2, 3}}, Options{})
	require.NoError(t, err)
	ctx := numeric.NewContext(256)
	vals := func(vs ...float64) []*numeric.BigComplex {
		out := make([]*numeric.BigComplex, len(vs))
		for i, v := range vs {
			out[i] = ctx.Complex(v, 0)
		}
		return out
	}
	rows := [][][]*numeric.BigComplex{
		{vals(1, 2, 3), vals(1, 2, 3)},
		{vals(1, 2), vals(1, 2), vals(1, 2)},
	}
	_, err = s.phaseArray(rows)
	require.ErrorIs(t, err, ErrAmbiguousIntersection)
}

func TestBadOrbit(t *testing.T) {
	_, err := NewOrbit([]int{2, 3}, []int{0, 1, 2})
	require.Error(t, err)
	o, err := NewOrbit([]int{2, 3}, []int{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, 6, o.Size())
}
