package solver

import (
	"fmt"
	"math/big"
	"runtime"

	"golang.org/x/sync/errgroup"

	ghost "sic-ghost/Ghost_Invariants"
	"sic-ghost/automorphism"
	"sic-ghost/intersect"
	"sic-ghost/numeric"
)

// partner returns phi with phi_k = alpha * conj(psi_{-k mod m}), alpha chosen
// so that phi'psi = d+1.
func partner(ctx numeric.Context, psi []*numeric.BigComplex, d int) ([]*numeric.BigComplex, error) {
	m := len(psi)
	phi := make([]*numeric.BigComplex, m)
	for k := range psi {
		phi[k] = psi[(m-k)%m].Conj()
	}
	g := ctx.Complex(0, 0)
	for k := range psi {
		g = g.Add(phi[k].Conj().Mul(psi[k]))
	}
	if g.AbsSquared().Sign() == 0 {
		return nil, fmt.Errorf("%w: partner pairing vanishes", ErrNonFiniteInvariant)
	}
	alpha := numeric.FromReal(ctx.Int(int64(d + 1))).Quo(g).Conj()
	for k := range phi {
		phi[k] = phi[k].Mul(alpha).Round(ctx.Prec)
	}
	return phi, nil
}

// overlaps builds K[t] = Re Overlap(Reps[t], psi, phi) in the orbit shape.
func (s *Solver) overlaps(ctx numeric.Context, psi, phi []*numeric.BigComplex) *numeric.Array[*big.Float] {
	k := numeric.NewArray[*big.Float](s.orbit.Orders)
	for t, rep := range s.orbit.Reps {
		k.Data[t] = ctx.Set(s.field.Overlap(ctx, rep, psi, phi).Real)
	}
	return k
}

// dualInvariants are the invariants mapped through the automorphism, with the
// power sums already turned into monic polynomials.
type dualInvariants struct {
	a    []*numeric.Matrix[*big.Float]
	b    [][]*big.Float
	poly [][]*numeric.BigComplex
}

func (s *Solver) dualize(ctx numeric.Context, inv *ghost.Invariants, accuracy uint) (*dualInvariants, error) {
	d := automorphism.Dualizer{Pair: s.pair, Finder: s.opts.Relations, Accuracy: accuracy}
	r := len(inv.A)
	out := &dualInvariants{
		a:    make([]*numeric.Matrix[*big.Float], r),
		b:    make([][]*big.Float, r),
		poly: make([][]*numeric.BigComplex, r),
	}
	for j := 0; j < r; j++ {
		a, err := d.Matrix(ctx, inv.A[j])
		if err != nil {
			return nil, fmt.Errorf("factor %d a: %w", j, err)
		}
		b, err := d.Vector(ctx, inv.B[j])
		if err != nil {
			return nil, fmt.Errorf("factor %d b: %w", j, err)
		}
		ps, err := d.Vector(ctx, inv.S[j])
		if err != nil {
			return nil, fmt.Errorf("factor %d s: %w", j, err)
		}
		if !finite(a.Data) || !finite(b) || !finite(ps) {
			return nil, fmt.Errorf("%w: factor %d", ErrNonFiniteInvariant, j)
		}
		out.a[j], out.b[j] = a, b
		out.poly[j] = numeric.PolyFromPowerSums(ctx, numeric.RealToComplex(ps))
	}
	return out, nil
}

func finite(xs []*big.Float) bool {
	for _, x := range xs {
		if x == nil || x.IsInf() {
			return false
		}
	}
	return true
}

// rootSets returns, per factor j and row t, the n/Orders[j] candidate
// phases sharing index t on axis j.
func (s *Solver) rootSets(ctx numeric.Context, dl *dualInvariants) ([][][]*numeric.BigComplex, error) {
	r := len(s.orbit.Orders)
	rows := make([][][]*numeric.BigComplex, r)
	if !s.opts.Parallel || r == 1 {
		for j := 0; j < r; j++ {
			set, err := s.conjugates(ctx, dl, j)
			if err != nil {
				return nil, err
			}
			rows[j] = set
		}
		return rows, nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j := 0; j < r; j++ {
		j := j // per-iteration copy; required with go 1.21 loop semantics
		g.Go(func() (err error) {
			defer numeric.RecoverNaN(&err)
			rows[j], err = s.conjugates(ctx, dl, j)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Solver) conjugates(ctx numeric.Context, dl *dualInvariants, j int) ([][]*numeric.BigComplex, error) {
	m := s.orbit.Orders[j]
	first, err := s.opts.Roots.Roots(ctx, dl.poly[j])
	if err != nil {
		return nil, fmt.Errorf("factor %d: %w", j, err)
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("%w: factor %d polynomial is constant", ghost.ErrDegenerateInvariant, j)
	}

	// the companion relation walks one root through the whole orbit factor
	theta := make([]*numeric.BigComplex, m)
	theta[0] = first[0].Round(ctx.Prec)
	b := numeric.RealToComplex(dl.b[j])
	for k := 0; k+1 < m; k++ {
		theta[k+1] = numeric.Horner(b, theta[k]).Round(ctx.Prec)
	}

	l := numeric.MulComplexReal(ctx, numeric.ComplexVandermonde(ctx, theta), dl.a[j])
	scale := ctx.Sqrt(ctx.Int(int64(s.field.Dimension() + 1)))
	rows := make([][]*numeric.BigComplex, m)
	for t := 0; t < m; t++ {
		roots, err := s.opts.Roots.Roots(ctx, numeric.PolyFromPowerSums(ctx, l.Row(t)))
		if err != nil {
			return nil, fmt.Errorf("factor %d row %d: %w", j, t, err)
		}
		if len(roots) != l.Cols {
			return nil, fmt.Errorf("%w: factor %d row %d has %d roots, want %d", ghost.ErrDegenerateInvariant, j, t, len(roots), l.Cols)
		}
		for i, z := range roots {
			if z.IsInf() {
				return nil, fmt.Errorf("%w: factor %d row %d", ErrNonFiniteInvariant, j, t)
			}
			roots[i] = z.DivBy(scale).Round(ctx.Prec)
		}
		rows[t] = roots
	}
	return rows, nil
}

// phaseArray picks, for every multi-index t, the single value shared by row
// t[j] of every factor j.
func (s *Solver) phaseArray(rows [][][]*numeric.BigComplex) (*numeric.Array[*numeric.BigComplex], error) {
	orders := s.orbit.Orders
	x := numeric.NewArray[*numeric.BigComplex](orders)
	sets := make([][]*numeric.BigComplex, len(orders))
	for flat := range x.Data {
		t := numeric.Unravel(flat, orders)
		for j := range orders {
			sets[j] = rows[j][t[j]]
		}
		z, err := intersect.Unique(intersect.IntersectAll(sets, s.opts.IntersectPrec, s.opts.IntersectBase))
		if err != nil {
			return nil, fmt.Errorf("index %v: %w", t, err)
		}
		x.Data[flat] = z
	}
	return x, nil
}

// validate rounds x to the context precision in place and checks that every
// entry lies within PhaseTol of the unit circle.
func (s *Solver) validate(ctx numeric.Context, x *numeric.Array[*numeric.BigComplex]) error {
	one := ctx.Int(1)
	dev := new(big.Float).SetPrec(ctx.Prec)
	for flat, z := range x.Data {
		z = z.Round(ctx.Prec)
		x.Data[flat] = z
		dev.Sub(z.Abs(), one)
		f, _ := dev.Float64()
		if f < 0 {
			f = -f
		}
		if !(f <= s.opts.PhaseTol) {
			return fmt.Errorf("%w: index %v off by %g", ErrPhaseValidation, numeric.Unravel(flat, x.Shape), f)
		}
	}
	return nil
}
