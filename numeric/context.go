package numeric

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrSingular is returned when elimination meets a zero pivot.
	ErrSingular = errors.New("numeric: singular matrix")

	// ErrNoConvergence is returned when an iteration exhausts its budget.
	ErrNoConvergence = errors.New("numeric: iteration did not converge")

	// ErrNoRelation is returned when no small integer relation exists at the given accuracy.
	ErrNoRelation = errors.New("numeric: no integer relation found")

	// ErrNonFinite replaces a big.ErrNaN panic caught by RecoverNaN.
	ErrNonFinite = errors.New("numeric: non-finite value")
)

// RecoverNaN must be deferred directly. It turns a big.ErrNaN panic into an
// ErrNonFinite error stored in *err; any other panic is re-raised.
func RecoverNaN(err *error) {
	r := recover()
	if r == nil {
		return
	}
	nan, ok := r.(big.ErrNaN)
	if !ok {
		panic(r)
	}
	*err = fmt.Errorf("%w: %s", ErrNonFinite, nan.Error())
}

// Context is the working precision of one computation session. It is passed
// by value; nothing in this module keeps a process-wide precision.
type Context struct {
	Prec uint
}

// NewContext returns a context working at prec bits.
func NewContext(prec uint) Context {
	if prec == 0 {
		prec = 53
	}
	return Context{Prec: prec}
}

// WithPrec returns a copy of c working at prec bits.
func (c Context) WithPrec(prec uint) Context {
	return NewContext(prec)
}

// Float returns x at the context precision.
func (c Context) Float(x float64) *big.Float {
	return new(big.Float).SetPrec(c.Prec).SetFloat64(x)
}

// Int returns n at the context precision.
func (c Context) Int(n int64) *big.Float {
	return new(big.Float).SetPrec(c.Prec).SetInt64(n)
}

// Set returns a copy of x rounded to the context precision.
func (c Context) Set(x *big.Float) *big.Float {
	return new(big.Float).SetPrec(c.Prec).Set(x)
}

// Complex returns re + i*im at the context precision.
func (c Context) Complex(re, im float64) *BigComplex {
	return NewBigComplex(re, im, c.Prec)
}

// Pow2 returns 2^e at the context precision.
func (c Context) Pow2(e int) *big.Float {
	return new(big.Float).SetPrec(c.Prec).SetMantExp(big.NewFloat(1), e)
}

// Sqrt returns the square root of x (x >= 0) at the context precision.
func (c Context) Sqrt(x *big.Float) *big.Float {
	return new(big.Float).SetPrec(c.Prec).Sqrt(x)
}

// PowInt returns x^k for k >= 0 at the context precision.
func (c Context) PowInt(x *big.Float, k int) *big.Float {
	res := c.Int(1)
	base := c.Set(x)
	for k > 0 {
		if k&1 == 1 {
			res.Mul(res, base)
		}
		base.Mul(base, base)
		k >>= 1
	}
	return res
}

// Nint rounds x to the nearest integer, ties away from zero.
func Nint(x *big.Float) *big.Int {
	half := big.NewFloat(0.5)
	if x.Sign() < 0 {
		half.Neg(half)
	}
	y := new(big.Float).SetPrec(x.Prec() + 64).Add(x, half)
	n, _ := y.Int(nil)
	return n
}

// Log2Abs approximates log2|x|; it returns -Inf for zero.
func Log2Abs(x *big.Float) float64 {
	if x.Sign() == 0 {
		return math.Inf(-1)
	}
	if x.IsInf() {
		return math.Inf(1)
	}
	mant := new(big.Float)
	exp := x.MantExp(mant)
	f, _ := mant.Float64()
	return float64(exp) + math.Log2(math.Abs(f))
}

// Below reports whether |x| < 2^e.
func Below(x *big.Float, e int) bool {
	return Log2Abs(x) < float64(e)
}
