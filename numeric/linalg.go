package numeric

import (
	"fmt"
	"math/big"
)

// Vandermonde returns V with V[i][k] = c[i]^k, k = 0..len(c)-1.
func Vandermonde(ctx Context, c []*big.Float) *Matrix[*big.Float] {
	n := len(c)
	v := NewMatrix[*big.Float](n, n)
	for i := 0; i < n; i++ {
		p := ctx.Int(1)
		for k := 0; k < n; k++ {
			v.Set(i, k, ctx.Set(p))
			p.Mul(p, c[i])
		}
	}
	return v
}

// ComplexVandermonde returns V with V[i][k] = z[i]^k.
func ComplexVandermonde(ctx Context, z []*BigComplex) *Matrix[*BigComplex] {
	n := len(z)
	v := NewMatrix[*BigComplex](n, n)
	for i := 0; i < n; i++ {
		p := ctx.Complex(1, 0)
		for k := 0; k < n; k++ {
			v.Set(i, k, p.Round(ctx.Prec))
			p = p.Mul(z[i])
		}
	}
	return v
}

// Solve solves m x = rhs by Gaussian elimination with partial pivoting at the
// context precision. m and rhs are left untouched.
func Solve(ctx Context, m *Matrix[*big.Float], rhs []*big.Float) ([]*big.Float, error) {
	n := m.Rows
	if m.Cols != n || len(rhs) != n {
		return nil, fmt.Errorf("Solve: shape %dx%d with rhs %d", m.Rows, m.Cols, len(rhs))
	}
	// augmented working copy
	a := make([][]*big.Float, n)
	for i := 0; i < n; i++ {
		a[i] = make([]*big.Float, n+1)
		for j := 0; j < n; j++ {
			a[i][j] = ctx.Set(m.At(i, j))
		}
		a[i][n] = ctx.Set(rhs[i])
	}

	tmp := new(big.Float).SetPrec(ctx.Prec)
	for col := 0; col < n; col++ {
		piv := col
		best := new(big.Float).Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if v := new(big.Float).Abs(a[r][col]); v.Cmp(best) > 0 {
				best, piv = v, r
			}
		}
		if best.Sign() == 0 {
			return nil, fmt.Errorf("Solve: column %d: %w", col, ErrSingular)
		}
		a[col], a[piv] = a[piv], a[col]
		for r := col + 1; r < n; r++ {
			if a[r][col].Sign() == 0 {
				continue
			}
			f := new(big.Float).SetPrec(ctx.Prec).Quo(a[r][col], a[col][col])
			for k := col; k <= n; k++ {
				tmp.Mul(f, a[col][k])
				a[r][k].Sub(a[r][k], tmp)
			}
		}
	}

	x := make([]*big.Float, n)
	for i := n - 1; i >= 0; i-- {
		acc := ctx.Set(a[i][n])
		for k := i + 1; k < n; k++ {
			tmp.Mul(a[i][k], x[k])
			acc.Sub(acc, tmp)
		}
		x[i] = acc.Quo(acc, a[i][i])
	}
	return x, nil
}

// MulComplexReal returns v * a for a complex v and a real a.
func MulComplexReal(ctx Context, v *Matrix[*BigComplex], a *Matrix[*big.Float]) *Matrix[*BigComplex] {
	if v.Cols != a.Rows {
		panic("MulComplexReal: dimension mismatch")
	}
	out := NewMatrix[*BigComplex](v.Rows, a.Cols)
	for i := 0; i < v.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			acc := ctx.Complex(0, 0)
			for k := 0; k < v.Cols; k++ {
				acc = acc.Add(v.At(i, k).Scale(a.At(k, j)))
			}
			out.Set(i, j, acc)
		}
	}
	return out
}

// MulVec returns m * x.
func MulVec(ctx Context, m *Matrix[*big.Float], x []*big.Float) []*big.Float {
	if m.Cols != len(x) {
		panic("MulVec: dimension mismatch")
	}
	out := make([]*big.Float, m.Rows)
	tmp := new(big.Float).SetPrec(ctx.Prec)
	for i := 0; i < m.Rows; i++ {
		acc := ctx.Int(0)
		for k := 0; k < m.Cols; k++ {
			acc.Add(acc, tmp.Mul(m.At(i, k), x[k]))
		}
		out[i] = acc
	}
	return out
}
