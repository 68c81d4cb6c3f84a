package Ghost_Invariants

import (
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sic-ghost/numeric"
)

// ErrDegenerateInvariant is returned when no exponent makes the reduced
// overlaps generic at the current precision, or when a companion solve
// meets a zero pivot.
var ErrDegenerateInvariant = errors.New("ghost invariants: degenerate invariant")

// Invariants is the triple (a, b, s) for every orbit factor j.
//
//   - A[j] is Orders[j] x (n/Orders[j]); column l-1 holds the coordinates of
//     sum_{notj} K^l in the Vandermonde basis of the generic vector.
//   - B[j] maps each entry of the generic vector to the next one under a
//     cyclic relabelling: sum_k B[j][k] c[i]^k = c[i+1].
//   - S[j][k-1] = sum_t c[t]^k for k = 1..Orders[j].
type Invariants struct {
	A         []*numeric.Matrix[*big.Float]
	B         [][]*big.Float
	S         [][]*big.Float
	Exponents []int
}

// Extractor computes Invariants from a ghost overlap array.
type Extractor struct {
	// Parallel fans the independent orbit factors out over an errgroup.
	Parallel bool
	Logger   *zap.Logger
}

// Extract runs a sequential Extractor.
func Extract(ctx numeric.Context, k *numeric.Array[*big.Float]) (*Invariants, error) {
	return Extractor{}.Extract(ctx, k)
}

// Extract computes the invariants of k, one orbit factor per axis. The
// context is only read.
func (e Extractor) Extract(ctx numeric.Context, k *numeric.Array[*big.Float]) (*Invariants, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := len(k.Shape)
	inv := &Invariants{
		A:         make([]*numeric.Matrix[*big.Float], r),
		B:         make([][]*big.Float, r),
		S:         make([][]*big.Float, r),
		Exponents: make([]int, r),
	}

	factor := func(j int) (err error) {
		defer numeric.RecoverNaN(&err)
		a, b, s, l, err := extractFactor(ctx, k, j)
		if err != nil {
			return fmt.Errorf("factor %d: %w", j, err)
		}
		inv.A[j], inv.B[j], inv.S[j], inv.Exponents[j] = a, b, s, l
		logger.Debug("orbit factor extracted", zap.Int("factor", j), zap.Int("exponent", l), zap.Uint("prec", ctx.Prec))
		return nil
	}

	if !e.Parallel || r == 1 {
		for j := 0; j < r; j++ {
			if err := factor(j); err != nil {
				return nil, err
			}
		}
		return inv, nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j := 0; j < r; j++ {
		j := j // per-iteration copy; required with go 1.21 loop semantics
		g.Go(func() error { return factor(j) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inv, nil
}

func extractFactor(ctx numeric.Context, k *numeric.Array[*big.Float], j int) (*numeric.Matrix[*big.Float], []*big.Float, []*big.Float, int, error) {
	m := k.Shape[j]
	cols := k.Len() / m

	c, l, err := GenericExponent(ctx, k, j)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	v := numeric.Vandermonde(ctx, c)

	shifted := make([]*big.Float, m)
	for i := 0; i < m; i++ {
		shifted[i] = c[(i+1)%m]
	}
	b, err := numeric.Solve(ctx, v, shifted)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("%w: companion relation: %w", ErrDegenerateInvariant, err)
	}

	s := numeric.PowerSums(ctx, c, m)

	a := numeric.NewMatrix[*big.Float](m, cols)
	for p := 1; p <= cols; p++ {
		col, err := numeric.Solve(ctx, v, Reduce(ctx, k, j, p))
		if err != nil {
			return nil, nil, nil, 0, fmt.Errorf("%w: slice %d: %w", ErrDegenerateInvariant, p, err)
		}
		for i := 0; i < m; i++ {
			a.Set(i, p-1, col[i])
		}
	}
	return a, b, s, l, nil
}

// Reduce returns sum over every axis but j of K^l, a vector of length Shape[j].
func Reduce(ctx numeric.Context, k *numeric.Array[*big.Float], j, l int) []*big.Float {
	m := k.Shape[j]
	stride := numeric.Stride(k.Shape, j)
	out := make([]*big.Float, m)
	for i := range out {
		out[i] = ctx.Int(0)
	}
	for flat, v := range k.Data {
		i := (flat / stride) % m
		out[i].Add(out[i], ctx.PowInt(v, l))
	}
	return out
}

// GenericExponent searches l = 1..n/Shape[j] for the first reduction whose
// entries and sorted gaps all exceed 2^(10-prec).
func GenericExponent(ctx numeric.Context, k *numeric.Array[*big.Float], j int) ([]*big.Float, int, error) {
	bound := k.Len() / k.Shape[j]
	for l := 1; l <= bound; l++ {
		c := Reduce(ctx, k, j, l)
		if IsGeneric(ctx, c) {
			return c, l, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: no generic exponent up to %d at %d bits", ErrDegenerateInvariant, bound, ctx.Prec)
}

// IsGeneric reports whether every entry of c and every gap between sorted
// entries exceeds 2^(10-prec) in absolute value.
func IsGeneric(ctx numeric.Context, c []*big.Float) bool {
	thr := 10 - int(ctx.Prec)
	sorted := make([]*big.Float, len(c))
	copy(sorted, c)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Cmp(sorted[b]) < 0 })
	gap := new(big.Float).SetPrec(ctx.Prec)
	for i, v := range sorted {
		if numeric.Below(v, thr) {
			return false
		}
		if i > 0 && numeric.Below(gap.Sub(v, sorted[i-1]), thr) {
			return false
		}
	}
	return true
}
