package automorphism

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"sic-ghost/numeric"
)

// goldenPair returns the basis {1, phi} of Z[phi] and its image under sqrt5 -> -sqrt5.
func goldenPair(ctx numeric.Context) BasisPair {
	s5 := ctx.Sqrt(ctx.Int(5))
	phi := new(big.Float).SetPrec(ctx.Prec).Add(ctx.Int(1), s5)
	phi.Quo(phi, ctx.Int(2))
	bar := new(big.Float).SetPrec(ctx.Prec).Sub(ctx.Int(1), s5)
	bar.Quo(bar, ctx.Int(2))
	pair, err := NewBasisPair([]*big.Float{ctx.Int(1), phi}, []*big.Float{ctx.Int(1), bar})
	if err != nil {
		panic(err)
	}
	return pair
}

// combo returns (a + b*basis[1]) / c at the context precision.
func combo(ctx numeric.Context, basis []*big.Float, a, b, c int64) *big.Float {
	v := new(big.Float).SetPrec(ctx.Prec).Mul(ctx.Int(b), basis[1])
	v.Add(v, ctx.Int(a))
	return v.Quo(v, ctx.Int(c))
}

func TestApplyReproducesConjugate(t *testing.T) {
	const accuracy = 128
	ctx := numeric.NewContext(320)
	pair := goldenPair(ctx)

	cases := [][3]int64{{0, 4, 1}, {8, 16, 1}, {-1, 0, 1}, {3, -7, 1}, {5, 2, 3}, {-11, 6, 7}}
	for _, c := range cases {
		// the value only carries accuracy bits, as after extraction at 128 bits
		x := new(big.Float).SetPrec(accuracy).Set(combo(ctx, pair.Primal, c[0], c[1], c[2]))
		got, err := Apply(ctx, numeric.PSLQ{}, pair, x, accuracy)
		require.NoError(t, err, "case %v", c)

		want := combo(ctx, pair.Dual, c[0], c[1], c[2])
		diff := new(big.Float).Sub(got, want)
		require.True(t, numeric.Below(diff, -(accuracy-10)), "case %v: off by 2^%.1f", c, numeric.Log2Abs(diff))
	}
}

func TestApplyZero(t *testing.T) {
	ctx := numeric.NewContext(320)
	got, err := Apply(ctx, numeric.PSLQ{}, goldenPair(ctx), ctx.Pow2(-200), 128)
	require.NoError(t, err)
	require.Equal(t, 0, got.Sign())
}

type fixedRelation []int64

func (f fixedRelation) FindRelation(numeric.Context, []*big.Float, uint) ([]*big.Int, error) {
	out := make([]*big.Int, len(f))
	for i, v := range f {
		out[i] = big.NewInt(v)
	}
	return out, nil
}

func TestApplyDegenerateRelation(t *testing.T) {
	ctx := numeric.NewContext(320)
	pair := goldenPair(ctx)
	x := combo(ctx, pair.Primal, 2, 1, 1)

	// relation that ignores x
	_, err := Apply(ctx, fixedRelation{1, 0, 0}, pair, x, 128)
	require.ErrorIs(t, err, ErrNoRelation)

	// relation that does not annihilate the values
	_, err = Apply(ctx, fixedRelation{1, 1, -1}, pair, x, 128)
	require.ErrorIs(t, err, ErrNoRelation)
}

func TestDualizerMatrix(t *testing.T) {
	ctx := numeric.NewContext(320)
	pair := goldenPair(ctx)
	d := Dualizer{Pair: pair, Finder: numeric.PSLQ{}, Accuracy: 256}

	m := numeric.NewMatrix[*big.Float](1, 2)
	m.Set(0, 0, combo(ctx, pair.Primal, 0, 1, 1))
	m.Set(0, 1, ctx.Int(3))
	out, err := d.Matrix(ctx, m)
	require.NoError(t, err)

	f00, _ := out.At(0, 0).Float64()
	f01, _ := out.At(0, 1).Float64()
	require.InDelta(t, -0.6180339887498949, f00, 1e-15)
	require.InDelta(t, 3, f01, 1e-15)
}

func TestNewBasisPairLengthMismatch(t *testing.T) {
	_, err := NewBasisPair([]*big.Float{big.NewFloat(1)}, nil)
	require.Error(t, err)
}
