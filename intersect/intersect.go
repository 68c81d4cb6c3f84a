// Package intersect matches complex values computed along independent paths
// by rounding them onto a common lattice.
package intersect

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"sic-ghost/numeric"
)

// ErrAmbiguous is returned by Unique when an intersection is not a singleton.
var ErrAmbiguous = errors.New("intersect: ambiguous intersection")

const (
	DefaultPrec = 256
	DefaultBase = 2
)

type point struct {
	re, im *big.Int
}

func (p point) key() string {
	return p.re.String() + "," + p.im.String()
}

func (p point) less(q point) bool {
	if c := p.re.Cmp(q.re); c != 0 {
		return c < 0
	}
	return p.im.Cmp(q.im) < 0
}

// lattice scales z by scale and rounds each coordinate to the nearest integer.
func lattice(z *numeric.BigComplex, scale *big.Float) point {
	w := z.Prec() + scale.MinPrec() + 64
	re := new(big.Float).SetPrec(w).Mul(z.Real, scale)
	im := new(big.Float).SetPrec(w).Mul(z.Imag, scale)
	return point{re: numeric.Nint(re), im: numeric.Nint(im)}
}

func scaleFor(prec uint, base int) *big.Float {
	if base < 2 {
		panic(fmt.Sprintf("intersect: base %d", base))
	}
	n := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(prec)), nil)
	return new(big.Float).SetPrec(uint(n.BitLen()) + 1).SetInt(n)
}

func outPrec(sets ...[]*numeric.BigComplex) uint {
	p := uint(53)
	for _, s := range sets {
		for _, z := range s {
			if q := z.Prec(); q > p {
				p = q
			}
		}
	}
	return p
}

func lattices(set []*numeric.BigComplex, scale *big.Float) map[string]point {
	out := make(map[string]point, len(set))
	for _, z := range set {
		p := lattice(z, scale)
		out[p.key()] = p
	}
	return out
}

// rescale maps lattice points back to complex values, sorted by lattice order.
func rescale(pts []point, scale *big.Float, prec uint) []*numeric.BigComplex {
	sort.Slice(pts, func(i, j int) bool { return pts[i].less(pts[j]) })
	out := make([]*numeric.BigComplex, len(pts))
	for i, p := range pts {
		w := prec
		if b := uint(max(p.re.BitLen(), p.im.BitLen())) + 64; b > w {
			w = b
		}
		re := new(big.Float).SetPrec(w).SetInt(p.re)
		im := new(big.Float).SetPrec(w).SetInt(p.im)
		out[i] = &numeric.BigComplex{Real: re.Quo(re, scale), Imag: im.Quo(im, scale)}
	}
	return out
}

// Intersect returns the values of a and b that coincide after scaling by
// base^prec and rounding each coordinate to the nearest integer. The result
// holds the rescaled lattice points, deduplicated and in lattice order, so
// Intersect(a, b) equals Intersect(b, a).
func Intersect(a, b []*numeric.BigComplex, prec uint, base int) []*numeric.BigComplex {
	scale := scaleFor(prec, base)
	la, lb := lattices(a, scale), lattices(b, scale)
	var common []point
	for k, p := range la {
		if _, ok := lb[k]; ok {
			common = append(common, p)
		}
	}
	return rescale(common, scale, outPrec(a, b))
}

// IntersectAll reduces Intersect over every set. A single set is
// deduplicated; no sets give nil.
func IntersectAll(sets [][]*numeric.BigComplex, prec uint, base int) []*numeric.BigComplex {
	if len(sets) == 0 {
		return nil
	}
	acc := Intersect(sets[0], sets[0], prec, base)
	for _, s := range sets[1:] {
		if len(acc) == 0 {
			return acc
		}
		acc = Intersect(acc, s, prec, base)
	}
	return acc
}

// Unique returns the only element of set, or ErrAmbiguous.
func Unique(set []*numeric.BigComplex) (*numeric.BigComplex, error) {
	if len(set) != 1 {
		return nil, fmt.Errorf("%w: %d common values", ErrAmbiguous, len(set))
	}
	return set[0], nil
}
