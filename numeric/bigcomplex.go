package numeric

import (
	"math"
	"math/big"
)

// BigComplex represents a complex number with arbitrary-precision parts.
type BigComplex struct {
	Real *big.Float
	Imag *big.Float
}

// pair wraps the two parts without copying them.
func pair(re, im *big.Float) *BigComplex {
	return &BigComplex{Real: re, Imag: im}
}

// each applies f to both parts, each into a fresh destination.
func (z *BigComplex) each(f func(dst, x *big.Float) *big.Float) *BigComplex {
	return pair(f(new(big.Float), z.Real), f(new(big.Float), z.Imag))
}

// NewBigComplex returns re + i*im at prec bits.
func NewBigComplex(re, im float64, prec uint) *BigComplex {
	return pair(new(big.Float).SetPrec(prec).SetFloat64(re), new(big.Float).SetPrec(prec).SetFloat64(im))
}

// NewBigComplexFromFloat copies re and im, keeping their precisions.
func NewBigComplexFromFloat(re, im *big.Float) *BigComplex {
	return pair(new(big.Float).Copy(re), new(big.Float).Copy(im))
}

// FromReal lifts x to x + 0i, keeping the precision of x.
func FromReal(x *big.Float) *BigComplex {
	return pair(new(big.Float).Copy(x), new(big.Float).SetPrec(x.Prec()))
}

func NewBigComplexZero(prec uint) *BigComplex {
	return NewBigComplex(0, 0, prec)
}

func (z *BigComplex) Add(w *BigComplex) *BigComplex {
	return pair(new(big.Float).Add(z.Real, w.Real), new(big.Float).Add(z.Imag, w.Imag))
}

func (z *BigComplex) Sub(w *BigComplex) *BigComplex {
	return pair(new(big.Float).Sub(z.Real, w.Real), new(big.Float).Sub(z.Imag, w.Imag))
}

// Mul returns z*w with the schoolbook four-product formula.
func (z *BigComplex) Mul(w *BigComplex) *BigComplex {
	re := new(big.Float).Mul(z.Real, w.Real)
	re.Sub(re, new(big.Float).Mul(z.Imag, w.Imag))
	im := new(big.Float).Mul(z.Real, w.Imag)
	im.Add(im, new(big.Float).Mul(z.Imag, w.Real))
	return pair(re, im)
}

// Scale returns s*z for a real s.
func (z *BigComplex) Scale(s *big.Float) *BigComplex {
	return z.each(func(dst, x *big.Float) *big.Float { return dst.Mul(x, s) })
}

// DivBy returns z/s for a real s.
func (z *BigComplex) DivBy(s *big.Float) *BigComplex {
	return z.each(func(dst, x *big.Float) *big.Float { return dst.Quo(x, s) })
}

func (z *BigComplex) Neg() *BigComplex {
	return z.each((*big.Float).Neg)
}

// Copy returns a deep copy.
func (z *BigComplex) Copy() *BigComplex {
	return z.each((*big.Float).Copy)
}

func (z *BigComplex) Conj() *BigComplex {
	return pair(new(big.Float).Copy(z.Real), new(big.Float).Neg(z.Imag))
}

// AbsSquared returns re^2 + im^2.
func (z *BigComplex) AbsSquared() *big.Float {
	sq := new(big.Float).Mul(z.Real, z.Real)
	return sq.Add(sq, new(big.Float).Mul(z.Imag, z.Imag))
}

// Abs returns |z| at the precision of z.
func (z *BigComplex) Abs() *big.Float {
	return new(big.Float).SetPrec(z.Prec()).Sqrt(z.AbsSquared())
}

// Inv returns conj(z)/|z|^2. A zero z panics with big.ErrNaN.
func (z *BigComplex) Inv() *BigComplex {
	return z.Conj().DivBy(z.AbsSquared())
}

// Quo returns z / w.
func (z *BigComplex) Quo(w *BigComplex) *BigComplex {
	return z.Mul(w.Inv())
}

// Round returns a copy of z rounded to prec bits.
func (z *BigComplex) Round(prec uint) *BigComplex {
	return &BigComplex{
		Real: new(big.Float).SetPrec(prec).Set(z.Real),
		Imag: new(big.Float).SetPrec(prec).Set(z.Imag),
	}
}

// Prec reports the larger precision of the two parts.
func (z *BigComplex) Prec() uint {
	p := z.Real.Prec()
	if q := z.Imag.Prec(); q > p {
		p = q
	}
	return p
}

// IsInf reports whether either part is infinite.
func (z *BigComplex) IsInf() bool {
	return z.Real.IsInf() || z.Imag.IsInf()
}

// ToComplex converts BigComplex to built-in complex128 (losing precision).
func (z *BigComplex) ToComplex() complex128 {
	r, _ := z.Real.Float64()
	i, _ := z.Imag.Float64()
	return complex(r, i)
}

// Pow returns z^k for k >= 0 by square-and-multiply.
func (z *BigComplex) Pow(k int) *BigComplex {
	if k < 0 {
		panic("BigComplex.Pow: negative exponent")
	}
	res := NewBigComplex(1, 0, z.Prec())
	base := z.Copy()
	for k > 0 {
		if k&1 == 1 {
			res = res.Mul(base)
		}
		base = base.Mul(base)
		k >>= 1
	}
	return res
}

// Horner evaluates sum_k coeffs[k] * z^k.
func Horner(coeffs []*BigComplex, z *BigComplex) *BigComplex {
	if len(coeffs) == 0 {
		return NewBigComplexZero(z.Prec())
	}
	acc := coeffs[len(coeffs)-1].Copy()
	for k := len(coeffs) - 2; k >= 0; k-- {
		acc = acc.Mul(z).Add(coeffs[k])
	}
	return acc
}

// isBad reports whether z cannot be used in further arithmetic.
func isBad(z complex128) bool {
	return math.IsNaN(real(z)) || math.IsNaN(imag(z)) ||
		math.IsInf(real(z), 0) || math.IsInf(imag(z), 0)
}
