package numeric

import (
	"math"
	"math/big"
	"math/cmplx"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func floats(ctx Context, xs ...float64) []*big.Float {
	out := make([]*big.Float, len(xs))
	for i, x := range xs {
		out[i] = ctx.Float(x)
	}
	return out
}

func TestRavelUnravelRoundTrip(t *testing.T) {
	shape := []int{2, 3, 4}
	seen := make([][]int, 0, Prod(shape))
	for flat := 0; flat < Prod(shape); flat++ {
		idx := Unravel(flat, shape)
		require.Equal(t, flat, Ravel(idx, shape))
		seen = append(seen, idx)
	}
	// first axis is the most significant digit
	want := [][]int{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}, {0, 0, 3}, {0, 1, 0}}
	if diff := cmp.Diff(want, seen[:5]); diff != "" {
		t.Fatalf("Unravel order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 4, Stride(shape, 1))
	require.Equal(t, 12, Stride(shape, 0))
}

func TestSolveVandermonde(t *testing.T) {
	ctx := NewContext(256)
	c := floats(ctx, 1.5, -2, 3.25)
	rhs := floats(ctx, 7, -1, 0.5)
	v := Vandermonde(ctx, c)
	x, err := Solve(ctx, v, rhs)
	require.NoError(t, err)

	back := MulVec(ctx, v, x)
	for i := range rhs {
		d := new(big.Float).Sub(back[i], rhs[i])
		require.True(t, Below(d, -240), "row %d residual %s", i, d.Text('g', 5))
	}
}

func TestSolveSingular(t *testing.T) {
	ctx := NewContext(128)
	v := Vandermonde(ctx, floats(ctx, 2, 2))
	_, err := Solve(ctx, v, floats(ctx, 1, 1))
	require.ErrorIs(t, err, ErrSingular)
}

func TestNewtonIdentities(t *testing.T) {
	ctx := NewContext(128)
	// roots 1, 2, 3: e1 = 6, e2 = 11, e3 = 6
	p := PowerSums(ctx, floats(ctx, 1, 2, 3), 3)
	e := ElementaryFromPowerSums(ctx, RealToComplex(p))
	want := []float64{6, 11, 6}
	for k, w := range want {
		got := e[k].ToComplex()
		require.InDelta(t, w, real(got), 1e-12)
		require.InDelta(t, 0, imag(got), 1e-12)
	}
	coeffs := MonicFromElementary(ctx, e)
	// x^3 - 6x^2 + 11x - 6
	wantCoeffs := []float64{-6, 11, -6, 1}
	for k, w := range wantCoeffs {
		require.InDelta(t, w, real(coeffs[k].ToComplex()), 1e-12)
	}
}

func TestDurandKernerRecoversPowerSums(t *testing.T) {
	ctx := NewContext(320)
	roots := []*BigComplex{
		ctx.Complex(1.25, 0.5),
		ctx.Complex(1.25, -0.5),
		ctx.Complex(-2, 0),
		ctx.Complex(0.3, 1.7),
	}
	p := ComplexPowerSums(ctx, roots, len(roots))
	found, err := DurandKerner{}.Roots(ctx, PolyFromPowerSums(ctx, p))
	require.NoError(t, err)
	require.Len(t, found, len(roots))

	back := ComplexPowerSums(ctx, found, len(roots))
	for k := range p {
		d := back[k].Sub(p[k]).AbsSquared()
		require.True(t, Below(d, -2*270), "power sum %d drifted by 2^%.1f", k+1, Log2Abs(d)/2)
	}

	got := make([]complex128, len(found))
	for i, z := range found {
		got[i] = z.ToComplex()
	}
	sort.Slice(got, func(i, j int) bool { return imag(got[i]) < imag(got[j]) })
	want := []complex128{complex(1.25, -0.5), -2, complex(1.25, 0.5), complex(0.3, 1.7)}
	for i := range want {
		require.Less(t, cmplx.Abs(got[i]-want[i]), 1e-14)
	}
}

func TestDurandKernerLinear(t *testing.T) {
	ctx := NewContext(128)
	r, err := DurandKerner{}.Roots(ctx, []*BigComplex{ctx.Complex(-3, 1), ctx.Complex(1, 0)})
	require.NoError(t, err)
	require.Len(t, r, 1)
	require.Equal(t, complex(3, -1), r[0].ToComplex())
}

func TestPSLQFindsGoldenRatioRelation(t *testing.T) {
	ctx := NewContext(320)
	five := ctx.Int(5)
	phi := ctx.Sqrt(five)
	phi.Add(phi, ctx.Int(1))
	phi.Quo(phi, ctx.Int(2))

	// x = 3 - 7*phi, so (3, -7, -1) . (1, phi, x) = 0
	x := new(big.Float).SetPrec(320).Mul(ctx.Int(7), phi)
	x.Sub(ctx.Int(3), x)

	rel, err := PSLQ{}.FindRelation(ctx, []*big.Float{ctx.Int(1), phi, x}, 300)
	require.NoError(t, err)
	require.Len(t, rel, 3)

	// normalise the sign on the last entry
	if rel[2].Sign() > 0 {
		for _, r := range rel {
			r.Neg(r)
		}
	}
	got := []int64{rel[0].Int64(), rel[1].Int64(), rel[2].Int64()}
	if diff := cmp.Diff([]int64{3, -7, -1}, got); diff != "" {
		t.Fatalf("relation mismatch (-want +got):\n%s", diff)
	}
}

func TestPSLQVanishingEntry(t *testing.T) {
	ctx := NewContext(128)
	rel, err := PSLQ{}.FindRelation(ctx, []*big.Float{ctx.Int(1), ctx.Float(math.Sqrt2), ctx.Int(0)}, 128)
	require.NoError(t, err)
	require.Equal(t, int64(0), rel[0].Int64())
	require.Equal(t, int64(0), rel[1].Int64())
	require.Equal(t, int64(1), rel[2].Int64())
}

func TestPSLQIterationBudget(t *testing.T) {
	ctx := NewContext(320)
	// 1, sqrt2, sqrt3 have no integer relation; one iteration cannot certify one either
	vals := []*big.Float{ctx.Int(1), ctx.Sqrt(ctx.Int(2)), ctx.Sqrt(ctx.Int(3))}
	_, err := PSLQ{MaxIter: 1}.FindRelation(ctx, vals, 300)
	require.ErrorIs(t, err, ErrNoRelation)
}

func TestNint(t *testing.T) {
	cases := map[float64]int64{2.4: 2, 2.5: 3, -2.4: -2, -2.5: -3, 0: 0}
	for in, want := range cases {
		require.Equal(t, want, Nint(big.NewFloat(in)).Int64(), "Nint(%v)", in)
	}
}

func TestRecoverNaN(t *testing.T) {
	sum := func(a, b *big.Float) (out *big.Float, err error) {
		defer RecoverNaN(&err)
		return new(big.Float).Add(a, b), nil
	}
	_, err := sum(new(big.Float).SetInf(false), new(big.Float).SetInf(true))
	require.ErrorIs(t, err, ErrNonFinite)

	got, err := sum(big.NewFloat(1), big.NewFloat(2))
	require.NoError(t, err)
	require.Zero(t, got.Cmp(big.NewFloat(3)))

	require.PanicsWithValue(t, "other", func() {
		var err error
		defer RecoverNaN(&err)
		panic("other")
	})
}
