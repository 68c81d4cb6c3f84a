// Package quadratic is a reference field for the solver: a rank-one ghost over
// a real quadratic field Q(sqrt D) whose Galois automorphism sends sqrt D to
// -sqrt D.
//
// The ghost overlaps are the two real roots of x^2 - s x + N, with N = d+1 and
// s = U + V*omega. Their Galois conjugates are the roots of x^2 - sigma(s) x + N,
// which lie on the circle of radius sqrt N when sigma(s)^2 < 4N, so the phases
// recovered by the solver have unit modulus.
package quadratic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/tuneinsight/lattigo/v4/utils"

	shiftsearch "sic-ghost/Shift_Search"
	"sic-ghost/automorphism"
	"sic-ghost/numeric"
)

// ErrParameters is returned by New for fields that do not produce a ghost.
var ErrParameters = errors.New("quadratic: invalid field parameters")

// seedJitter is the relative size of the perturbation applied to the seed.
const seedJitter = 0x1p-40

const maxNewton = 64

// Config describes one field instance.
type Config struct {
	Dim int   `toml:"dim" yaml:"dim" json:"dim"`
	D   int64 `toml:"discriminant" yaml:"discriminant" json:"discriminant"`
	U   int64 `toml:"u" yaml:"u" json:"u"`
	V   int64 `toml:"v" yaml:"v" json:"v"`
	// Key seeds the PRNG behind the seed jitter; empty means the label.
	Key string `toml:"key" yaml:"key" json:"key,omitempty"`
	// PolishTol bounds the score a polished vector may end with when it
	// started below it.
	PolishTol float64 `toml:"polish_tol" yaml:"polish_tol" json:"polish_tol,omitempty"`
}

// DefaultConfig is d = 3 over Q(sqrt 5) with s = 4*phi.
func DefaultConfig() Config {
	return Config{Dim: 3, D: 5, U: 0, V: 4, PolishTol: 1e-12}
}

// Field implements the solver's field collaborator for Q(sqrt D).
type Field struct {
	cfg Config
	n   int64
}

var _ shiftsearch.Completer = (*Field)(nil)

// New validates cfg and returns the field.
func New(cfg Config) (*Field, error) {
	if cfg.Dim < 2 {
		return nil, fmt.Errorf("%w: dimension %d", ErrParameters, cfg.Dim)
	}
	if cfg.D < 2 {
		return nil, fmt.Errorf("%w: discriminant %d", ErrParameters, cfg.D)
	}
	if r := int64(math.Sqrt(float64(cfg.D))); r*r == cfg.D || (r+1)*(r+1) == cfg.D {
		return nil, fmt.Errorf("%w: %d is a square", ErrParameters, cfg.D)
	}
	if cfg.PolishTol <= 0 {
		cfg.PolishTol = 1e-12
	}
	f := &Field{cfg: cfg, n: int64(cfg.Dim + 1)}

	s, sbar := f.trace64()
	if s*s-4*float64(f.n) <= 0 {
		return nil, fmt.Errorf("%w: ghost polynomial has no real roots (s = %g)", ErrParameters, s)
	}
	if sbar*sbar-4*float64(f.n) >= 0 {
		return nil, fmt.Errorf("%w: conjugate roots are real (sigma(s) = %g)", ErrParameters, sbar)
	}
	return f, nil
}

func (f *Field) Label() string {
	return fmt.Sprintf("d%d/Q(sqrt%d)/%d+%dw", f.cfg.Dim, f.cfg.D, f.cfg.U, f.cfg.V)
}

func (f *Field) Dimension() int { return f.cfg.Dim }

// Config returns the parameters the field was built from.
func (f *Field) Config() Config { return f.cfg }

// Orders and representatives of the single orbit factor.
func (f *Field) Orbit() ([]int, []int) {
	return []int{2}, []int{0, 1}
}

func (f *Field) omega(prec uint) (*big.Float, *big.Float) {
	ctx := numeric.NewContext(prec)
	r := ctx.Sqrt(ctx.Int(f.cfg.D))
	w, wbar := ctx.Set(r), ctx.Set(r)
	wbar.Neg(wbar)
	if f.cfg.D%4 == 1 {
		w.Add(w, ctx.Int(1))
		w.Quo(w, ctx.Int(2))
		wbar.Add(wbar, ctx.Int(1))
		wbar.Quo(wbar, ctx.Int(2))
	}
	return w, wbar
}

// trace returns s and sigma(s) at prec bits.
func (f *Field) trace(prec uint) (*big.Float, *big.Float) {
	ctx := numeric.NewContext(prec)
	w, wbar := f.omega(prec)
	s := ctx.Int(f.cfg.V)
	s.Mul(s, w).Add(s, ctx.Int(f.cfg.U))
	sbar := ctx.Int(f.cfg.V)
	sbar.Mul(sbar, wbar).Add(sbar, ctx.Int(f.cfg.U))
	return s, sbar
}

func (f *Field) trace64() (float64, float64) {
	s, sbar := f.trace(64)
	a, _ := s.Float64()
	b, _ := sbar.Float64()
	return a, b
}

// Basis returns the integral basis {1, omega} and its conjugate.
func (f *Field) Basis(prec uint) automorphism.BasisPair {
	ctx := numeric.NewContext(prec)
	w, wbar := f.omega(prec)
	pair, _ := automorphism.NewBasisPair([]*big.Float{ctx.Int(1), w}, []*big.Float{ctx.Int(1), wbar})
	return pair
}

// Seed returns a 53-bit ghost: the two real roots, slightly perturbed, then
// ones up to the dimension.
func (f *Field) Seed() ([]*numeric.BigComplex, error) {
	key := f.cfg.Key
	if key == "" {
		key = f.Label()
	}
	prng, err := utils.NewKeyedPRNG([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("quadratic: seed prng: %w", err)
	}
	s, _ := f.trace64()
	c1 := (s + math.Copysign(math.Sqrt(s*s-4*float64(f.n)), s)) / 2
	c2 := float64(f.n) / c1

	psi := make([]*numeric.BigComplex, f.cfg.Dim)
	buf := make([]byte, 8)
	for i, c := range []float64{c1, c2} {
		if _, err := prng.Read(buf); err != nil {
			return nil, fmt.Errorf("quadratic: seed prng: %w", err)
		}
		u := float64(binary.LittleEndian.Uint64(buf)>>11) / (1 << 53)
		psi[i] = numeric.NewBigComplex(c*(1+(u-0.5)*seedJitter), 0, 53)
	}
	for i := 2; i < len(psi); i++ {
		psi[i] = numeric.NewBigComplex(1, 0, 53)
	}
	return psi, nil
}

// Refine polishes the two ghost entries with Newton's method on
// x^2 - s x + N and returns a copy of psi at bits precision.
func (f *Field) Refine(_ numeric.Context, psi []*numeric.BigComplex, bits uint) ([]*numeric.BigComplex, error) {
	if len(psi) != f.cfg.Dim {
		return nil, fmt.Errorf("quadratic: refine: vector of length %d, want %d", len(psi), f.cfg.Dim)
	}
	w := bits + 64
	ctx := numeric.NewContext(w)
	s, _ := f.trace(w)
	nn := ctx.Int(f.n)

	out := make([]*numeric.BigComplex, len(psi))
	for i := 2; i < len(psi); i++ {
		out[i] = psi[i].Round(bits)
	}
	for i := 0; i < 2; i++ {
		x := ctx.Set(psi[i].Real)
		fx := new(big.Float).SetPrec(w)
		dfx := new(big.Float).SetPrec(w)
		step := new(big.Float).SetPrec(w)
		converged := false
		for it := 0; it < maxNewton; it++ {
			// f(x) = (x - s) x + N, f'(x) = 2x - s
			fx.Sub(x, s).Mul(fx, x).Add(fx, nn)
			dfx.Add(x, x).Sub(dfx, s)
			if dfx.Sign() == 0 {
				break
			}
			step.Quo(fx, dfx)
			x.Sub(x, step)
			if step.Sign() == 0 || numeric.Log2Abs(step)-numeric.Log2Abs(x) < -float64(bits+8) {
				converged = true
				break
			}
		}
		if !converged {
			return nil, fmt.Errorf("quadratic: refine entry %d to %d bits: %w", i, bits, numeric.ErrNoConvergence)
		}
		out[i] = numeric.FromReal(x).Round(bits)
	}
	return out, nil
}

// Overlap pairs psi[shift] with the normalised partner phi.
func (f *Field) Overlap(ctx numeric.Context, shift int, psi, phi []*numeric.BigComplex) *numeric.BigComplex {
	g := ctx.Complex(0, 0)
	for k := range psi {
		g = g.Add(phi[k].Conj().Mul(psi[k]))
	}
	return psi[shift].Mul(g).DivBy(ctx.Int(f.n)).Round(ctx.Prec)
}

// Complete maps a phase array to the unit vector x / sqrt n.
func (f *Field) Complete(ctx numeric.Context, x *numeric.Array[*numeric.BigComplex]) ([]*numeric.BigComplex, error) {
	if x.Len() != 2 {
		return nil, fmt.Errorf("quadratic: phase array of %d entries, want 2", x.Len())
	}
	root := ctx.Sqrt(ctx.Int(int64(x.Len())))
	out := make([]*numeric.BigComplex, x.Len())
	for i, z := range x.Data {
		out[i] = z.DivBy(root).Round(ctx.Prec)
	}
	return out, nil
}

// phases returns the unit-modulus conjugate roots, positive imaginary part first.
func (f *Field) phases(prec uint) (*numeric.BigComplex, *numeric.BigComplex) {
	ctx := numeric.NewContext(prec)
	_, sbar := f.trace(prec)
	im := ctx.Int(4 * f.n)
	im.Sub(im, new(big.Float).SetPrec(prec).Mul(sbar, sbar))
	im.Sqrt(im)
	den := ctx.Sqrt(ctx.Int(f.n))
	den.Add(den, den)
	re := ctx.Set(sbar)
	re.Quo(re, den)
	im.Quo(im, den)
	neg := ctx.Set(im)
	return numeric.NewBigComplexFromFloat(re, im), numeric.NewBigComplexFromFloat(re, neg.Neg(neg))
}

// Score is |sqrt(n) psi_0 - zeta+| + |sqrt(n) psi_1 - zeta-|.
func (f *Field) Score(ctx numeric.Context, psi []*numeric.BigComplex) float64 {
	if len(psi) != 2 {
		return math.Inf(1)
	}
	zp, zm := f.phases(ctx.Prec)
	root := ctx.Sqrt(ctx.Int(2))
	a := psi[0].Scale(root).Sub(zp).Abs()
	b := psi[1].Scale(root).Sub(zm).Abs()
	fa, _ := a.Float64()
	fb, _ := b.Float64()
	return fa + fb
}

// Polish runs Newton's method on z^2 - sigma(s) z + N for z = sqrt(nN) psi
// at digits decimal digits plus guard bits.
func (f *Field) Polish(ctx numeric.Context, psi []*numeric.BigComplex, digits int, score shiftsearch.ScoreFunc) ([]*numeric.BigComplex, error) {
	bits := uint(math.Ceil(float64(digits)*math.Log2(10))) + 16
	if bits < ctx.Prec {
		bits = ctx.Prec
	}
	hi := numeric.NewContext(bits)
	before := score(ctx, psi)

	w := bits + 32
	work := numeric.NewContext(w)
	_, sbar := f.trace(w)
	scale := work.Sqrt(work.Int(int64(len(psi)) * f.n))
	nn := numeric.FromReal(work.Int(f.n))
	two := work.Int(2)

	out := make([]*numeric.BigComplex, len(psi))
	for i, p := range psi {
		z := p.Round(w).Scale(scale)
		converged := false
		for it := 0; it < maxNewton; it++ {
			fz := z.Mul(z).Sub(z.Scale(sbar)).Add(nn)
			dfz := z.Scale(two).Sub(numeric.FromReal(sbar))
			if dfz.AbsSquared().Sign() == 0 {
				break
			}
			step := fz.Quo(dfz)
			z = z.Sub(step).Round(w)
			if numeric.Log2Abs(step.AbsSquared())/2 < -float64(bits+4) {
				converged = true
				break
			}
		}
		if !converged {
			return nil, fmt.Errorf("quadratic: polish entry %d: %w", i, numeric.ErrNoConvergence)
		}
		out[i] = z.DivBy(scale).Round(bits)
	}

	if after := score(hi, out); after > math.Max(before, f.cfg.PolishTol) {
		return nil, fmt.Errorf("quadratic: polish raised the score from %g to %g", before, after)
	}
	return out, nil
}
