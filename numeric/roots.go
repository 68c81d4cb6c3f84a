package numeric

import (
	"fmt"
	"math"
	"math/cmplx"
)

// RootFinder returns all roots of a polynomial given its coefficients,
// lowest degree first. The leading coefficient must be non-zero.
type RootFinder interface {
	Roots(ctx Context, coeffs []*BigComplex) ([]*BigComplex, error)
}

// DurandKerner finds all roots simultaneously with the Weierstrass
// iteration, updating each approximation in place as soon as it moves.
type DurandKerner struct {
	MaxIter int
}

const defaultRootIter = 2000

// Roots implements RootFinder.
func (dk DurandKerner) Roots(ctx Context, coeffs []*BigComplex) ([]*BigComplex, error) {
	deg := len(coeffs) - 1
	for deg > 0 && coeffs[deg].AbsSquared().Sign() == 0 {
		deg--
	}
	if deg <= 0 {
		return nil, nil
	}
	lead := coeffs[deg]
	monic := make([]*BigComplex, deg+1)
	for k := 0; k <= deg; k++ {
		monic[k] = coeffs[k].Quo(lead).Round(ctx.Prec)
	}
	if deg == 1 {
		return []*BigComplex{monic[0].Neg()}, nil
	}

	z := startingPoints(monic, ctx.Prec)
	maxIter := dk.MaxIter
	if maxIter <= 0 {
		maxIter = defaultRootIter
	}
	// Convergence is judged on log2 of the relative step. Steps are accepted
	// once they fall below the working precision (less a guard band) or once
	// they stall at the rounding floor after passing half precision.
	target := -float64(int(ctx.Prec) - 24)
	half := -float64(ctx.Prec) / 2
	prevWorst := math.Inf(1)

	for it := 0; it < maxIter; it++ {
		worst := math.Inf(-1)
		for i := 0; i < deg; i++ {
			den := ctx.Complex(1, 0)
			for j := 0; j < deg; j++ {
				if j != i {
					den = den.Mul(z[i].Sub(z[j]))
				}
			}
			if den.AbsSquared().Sign() == 0 {
				return nil, fmt.Errorf("DurandKerner: coincident approximations at %d: %w", i, ErrNoConvergence)
			}
			delta := Horner(monic, z[i]).Quo(den)
			z[i] = z[i].Sub(delta).Round(ctx.Prec)

			step := Log2Abs(delta.AbsSquared()) / 2
			if mag := Log2Abs(z[i].AbsSquared()) / 2; mag > 0 {
				step -= mag
			}
			if step > worst {
				worst = step
			}
		}
		if worst <= target || (worst <= half && worst >= prevWorst-1) {
			return z, nil
		}
		prevWorst = worst
	}
	return nil, fmt.Errorf("DurandKerner: degree %d after %d iterations: %w", deg, maxIter, ErrNoConvergence)
}

// startingPoints spreads deg points on a circle whose radius bounds the
// roots, with an irrational offset so no point starts on a symmetry axis.
// Trig is evaluated in float64 and lifted, as the starting points only need
// to be distinct.
func startingPoints(monic []*BigComplex, prec uint) []*BigComplex {
	deg := len(monic) - 1
	radius := 0.0
	for k := 0; k < deg; k++ {
		c := cmplx.Abs(monic[k].ToComplex())
		if c == 0 {
			continue
		}
		if r := math.Pow(c, 1/float64(deg-k)); r > radius {
			radius = r
		}
	}
	if radius == 0 || math.IsInf(radius, 0) || math.IsNaN(radius) {
		radius = 1
	}
	z := make([]*BigComplex, deg)
	for i := 0; i < deg; i++ {
		w := cmplx.Rect(radius, 2*math.Pi*float64(i)/float64(deg)+0.4)
		if isBad(w) {
			w = complex(0.4, 0.9)
		}
		z[i] = NewBigComplex(real(w), imag(w), prec)
	}
	return z
}
