package numeric

import "math/big"

// PowerSums returns p_k = sum_t c[t]^k for k = 1..m.
func PowerSums(ctx Context, c []*big.Float, m int) []*big.Float {
	out := make([]*big.Float, m)
	pw := make([]*big.Float, len(c))
	for t := range c {
		pw[t] = ctx.Int(1)
	}
	for k := 0; k < m; k++ {
		acc := ctx.Int(0)
		for t := range c {
			pw[t].Mul(pw[t], c[t])
			acc.Add(acc, pw[t])
		}
		out[k] = acc
	}
	return out
}

// ComplexPowerSums returns p_k = sum_t z[t]^k for k = 1..m.
func ComplexPowerSums(ctx Context, z []*BigComplex, m int) []*BigComplex {
	out := make([]*BigComplex, m)
	pw := make([]*BigComplex, len(z))
	for t := range z {
		pw[t] = ctx.Complex(1, 0)
	}
	for k := 0; k < m; k++ {
		acc := ctx.Complex(0, 0)
		for t := range z {
			pw[t] = pw[t].Mul(z[t])
			acc = acc.Add(pw[t])
		}
		out[k] = acc
	}
	return out
}

// ElementaryFromPowerSums converts power sums p_1..p_m into the elementary
// symmetric polynomials e_1..e_m with Newton's identities
//
//	k e_k = sum_{i=1..k} (-1)^(i-1) e_{k-i} p_i.
func ElementaryFromPowerSums(ctx Context, p []*BigComplex) []*BigComplex {
	m := len(p)
	e := make([]*BigComplex, m+1)
	e[0] = ctx.Complex(1, 0)
	for k := 1; k <= m; k++ {
		acc := ctx.Complex(0, 0)
		for i := 1; i <= k; i++ {
			term := e[k-i].Mul(p[i-1])
			if i%2 == 1 {
				acc = acc.Add(term)
			} else {
				acc = acc.Sub(term)
			}
		}
		e[k] = acc.DivBy(ctx.Int(int64(k)))
	}
	return e[1:]
}

// MonicFromElementary returns the coefficients, lowest degree first, of
// prod_t (x - r_t) given its elementary symmetric polynomials e_1..e_m.
func MonicFromElementary(ctx Context, e []*BigComplex) []*BigComplex {
	m := len(e)
	coeffs := make([]*BigComplex, m+1)
	coeffs[m] = ctx.Complex(1, 0)
	for k := 1; k <= m; k++ {
		if k%2 == 1 {
			coeffs[m-k] = e[k-1].Neg()
		} else {
			coeffs[m-k] = e[k-1].Copy()
		}
	}
	return coeffs
}

// PolyFromPowerSums builds the monic polynomial whose roots have the given
// power sums.
func PolyFromPowerSums(ctx Context, p []*BigComplex) []*BigComplex {
	return MonicFromElementary(ctx, ElementaryFromPowerSums(ctx, p))
}

// RealToComplex lifts a real vector.
func RealToComplex(x []*big.Float) []*BigComplex {
	out := make([]*BigComplex, len(x))
	for i, v := range x {
		out[i] = FromReal(v)
	}
	return out
}
