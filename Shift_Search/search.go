package shiftsearch

import (
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"sic-ghost/numeric"
)

// ErrShiftSearchExhausted is returned when no cyclic shift of the phase
// array completes to a vector that scores below the tolerance.
var ErrShiftSearchExhausted = errors.New("shift search: no shift produced an acceptable fiducial")

// ScoreFunc measures how far psi is from satisfying the overlap conditions.
type ScoreFunc func(ctx numeric.Context, psi []*numeric.BigComplex) float64

// Completer turns a phase array into a candidate fiducial and judges it.
type Completer interface {
	// Complete reconstructs a candidate vector from a phase array.
	Complete(ctx numeric.Context, x *numeric.Array[*numeric.BigComplex]) ([]*numeric.BigComplex, error)
	Score(ctx numeric.Context, psi []*numeric.BigComplex) float64
	// Polish returns psi refined until score is met to digits significant
	// digits, raising the working precision as needed.
	Polish(ctx numeric.Context, psi []*numeric.BigComplex, digits int, score ScoreFunc) ([]*numeric.BigComplex, error)
}

const (
	DefaultTol    = 1e-6
	DefaultDigits = 30
)

type Options struct {
	Tol    float64
	Digits int
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	if o.Digits <= 0 {
		o.Digits = DefaultDigits
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Result is the accepted shift and the polished, unit-norm fiducial.
type Result struct {
	Psi   []*numeric.BigComplex
	Shift []int
	Index int
	Score float64
	Tried int
}

// Shift returns y with y[t] = x[(t+s) mod shape], component by component.
func Shift(x *numeric.Array[*numeric.BigComplex], s []int) *numeric.Array[*numeric.BigComplex] {
	y := numeric.NewArray[*numeric.BigComplex](x.Shape)
	src := make([]int, len(s))
	for flat := range y.Data {
		t := numeric.Unravel(flat, x.Shape)
		for j, tj := range t {
			src[j] = (tj + s[j]) % x.Shape[j]
		}
		y.Data[flat] = x.At(src)
	}
	return y
}

// Search tries the n cyclic shifts of x in mixed-radix order over x.Shape,
// first axis slowest, and accepts the first whose completion scores below
// Tol. The accepted vector is polished and renormalized.
func Search(ctx numeric.Context, x *numeric.Array[*numeric.BigComplex], c Completer, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := numeric.Prod(x.Shape)
	for k := 0; k < n; k++ {
		s := numeric.Unravel(k, x.Shape)
		psi, err := c.Complete(ctx, Shift(x, s))
		if err != nil {
			opts.Logger.Debug("completion failed", zap.Ints("shift", s), zap.Error(err))
			continue
		}
		score := c.Score(ctx, psi)
		opts.Logger.Debug("shift scored", zap.Ints("shift", s), zap.Float64("score", score))
		if !(score < opts.Tol) {
			continue
		}

		polished, err := c.Polish(ctx, psi, opts.Digits, c.Score)
		if err != nil {
			return nil, fmt.Errorf("shift search: polish shift %v: %w", s, err)
		}
		return &Result{
			Psi:   Normalize(polished),
			Shift: s,
			Index: k,
			Score: score,
			Tried: k + 1,
		}, nil
	}
	return nil, fmt.Errorf("%w (%d shifts, tol %g)", ErrShiftSearchExhausted, n, opts.Tol)
}

// Normalize returns psi / ||psi||.
func Normalize(psi []*numeric.BigComplex) []*numeric.BigComplex {
	if len(psi) == 0 {
		return psi
	}
	prec := psi[0].Prec()
	norm := new(big.Float).SetPrec(prec)
	for _, z := range psi {
		norm.Add(norm, z.AbsSquared())
	}
	if norm.Sign() == 0 {
		return psi
	}
	norm.Sqrt(norm)
	out := make([]*numeric.BigComplex, len(psi))
	for i, z := range psi {
		out[i] = z.DivBy(norm)
	}
	return out
}
