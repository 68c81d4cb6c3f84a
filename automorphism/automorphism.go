package automorphism

import (
	"errors"
	"fmt"
	"math/big"

	"sic-ghost/numeric"
)

// ErrNoRelation is returned when x could not be expressed as a rational
// combination of the primal basis at the given accuracy.
var ErrNoRelation = errors.New("automorphism: value is not in the span of the primal basis")

// BasisPair holds a basis of the field (Primal) and its image under a fixed
// Galois automorphism (Dual), entry by entry.
type BasisPair struct {
	Primal []*big.Float
	Dual   []*big.Float
}

// NewBasisPair checks that both sides have the same non-zero length.
func NewBasisPair(primal, dual []*big.Float) (BasisPair, error) {
	if len(primal) == 0 || len(primal) != len(dual) {
		return BasisPair{}, fmt.Errorf("automorphism: basis lengths %d and %d", len(primal), len(dual))
	}
	return BasisPair{Primal: primal, Dual: dual}, nil
}

// residualGuard is the number of accuracy bits given up in the residual check.
const residualGuard = 24

// Apply maps x to its image under the automorphism. It detects an integer
// relation t with t[0..k-1].primal + t[k] x = 0 and returns
// -(t[0..k-1].dual) / t[k].
//
// x is trusted to accuracy bits. The relation is re-checked against the
// residual before use; a failed check or t[k] = 0 yields ErrNoRelation.
func Apply(ctx numeric.Context, finder numeric.RelationFinder, pair BasisPair, x *big.Float, accuracy uint) (*big.Float, error) {
	if numeric.Below(x, -int(accuracy)+residualGuard) {
		return ctx.Int(0), nil
	}
	k := len(pair.Primal)
	vals := make([]*big.Float, k+1)
	for i, p := range pair.Primal {
		vals[i] = ctx.Set(p)
	}
	vals[k] = ctx.Set(x)

	t, err := finder.FindRelation(ctx, vals, accuracy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRelation, err)
	}
	if len(t) != k+1 {
		return nil, fmt.Errorf("%w: relation of length %d for %d values", ErrNoRelation, len(t), k+1)
	}
	if t[k].Sign() == 0 {
		return nil, fmt.Errorf("%w: relation does not involve the value", ErrNoRelation)
	}
	if err := checkResidual(ctx, vals, t, accuracy); err != nil {
		return nil, err
	}

	acc := ctx.Int(0)
	tmp := new(big.Float).SetPrec(ctx.Prec)
	for i := 0; i < k; i++ {
		tmp.SetInt(t[i])
		acc.Add(acc, tmp.Mul(tmp, pair.Dual[i]))
	}
	last := new(big.Float).SetPrec(ctx.Prec).SetInt(t[k])
	acc.Quo(acc, last)
	return acc.Neg(acc), nil
}

// checkResidual verifies |sum t.v| <= 2^-(accuracy-guard) * (1 + max|t|).
func checkResidual(ctx numeric.Context, vals []*big.Float, t []*big.Int, accuracy uint) error {
	sum := ctx.Int(0)
	tmp := new(big.Float).SetPrec(ctx.Prec)
	maxBits := 0
	for i, v := range vals {
		tmp.SetInt(t[i])
		sum.Add(sum, tmp.Mul(tmp, v))
		if b := t[i].BitLen(); b > maxBits {
			maxBits = b
		}
	}
	if !numeric.Below(sum, -int(accuracy)+residualGuard+maxBits+1) {
		return fmt.Errorf("%w: residual 2^%.1f at accuracy %d", ErrNoRelation, numeric.Log2Abs(sum), accuracy)
	}
	return nil
}

// Dualizer applies one automorphism with a fixed basis pair and accuracy.
type Dualizer struct {
	Pair     BasisPair
	Finder   numeric.RelationFinder
	Accuracy uint
}

// Value dualizes a single value.
func (d Dualizer) Value(ctx numeric.Context, x *big.Float) (*big.Float, error) {
	return Apply(ctx, d.Finder, d.Pair, x, d.Accuracy)
}

// Vector dualizes every entry of xs.
func (d Dualizer) Vector(ctx numeric.Context, xs []*big.Float) ([]*big.Float, error) {
	out := make([]*big.Float, len(xs))
	for i, x := range xs {
		v, err := d.Value(ctx, x)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Matrix dualizes every entry of m.
func (d Dualizer) Matrix(ctx numeric.Context, m *numeric.Matrix[*big.Float]) (*numeric.Matrix[*big.Float], error) {
	data, err := d.Vector(ctx, m.Data)
	if err != nil {
		return nil, err
	}
	return &numeric.Matrix[*big.Float]{Rows: m.Rows, Cols: m.Cols, Data: data}, nil
}
