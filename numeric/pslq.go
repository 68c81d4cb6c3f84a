package numeric

import (
	"fmt"
	"math"
	"math/big"
)

// RelationFinder detects an integer vector t with sum_i t[i] x[i] ~ 0, where
// the x[i] are trusted to accuracy bits.
type RelationFinder interface {
	FindRelation(ctx Context, x []*big.Float, accuracy uint) ([]*big.Int, error)
}

// PSLQ is the one-level PSLQ algorithm of Ferguson and Bailey, run in
// big.Float at the context precision with the basis matrix kept in big.Int.
type PSLQ struct {
	MaxIter int
	// Guard is the number of low bits of accuracy not trusted when deciding
	// that an entry of y vanished.
	Guard int
}

const (
	defaultPSLQIter  = 10000
	defaultPSLQGuard = 16
)

// log2 of the PSLQ parameter gamma = 2/sqrt(3) (slightly above the bound sqrt(4/3)).
var log2Gamma = math.Log2(2/math.Sqrt(3)) + 1e-3

type pslqState struct {
	ctx Context
	n   int
	y   []*big.Float
	h   [][]*big.Float // n x (n-1)
	b   [][]*big.Int   // n x n, y = x B
}

// FindRelation implements RelationFinder.
func (p PSLQ) FindRelation(ctx Context, x []*big.Float, accuracy uint) ([]*big.Int, error) {
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("PSLQ: need at least 2 values, got %d", n)
	}
	maxIter := p.MaxIter
	if maxIter <= 0 {
		maxIter = defaultPSLQIter
	}
	guard := p.Guard
	if guard <= 0 {
		guard = defaultPSLQGuard
	}
	if accuracy > ctx.Prec {
		accuracy = ctx.Prec
	}
	eps := -(int(accuracy) - guard)

	// A vanishing input is its own relation.
	for i := range x {
		if Below(x[i], eps) {
			t := make([]*big.Int, n)
			for k := range t {
				t[k] = new(big.Int)
			}
			t[i].SetInt64(1)
			return t, nil
		}
	}

	st := newPSLQState(ctx, x)
	for i := 1; i < n; i++ {
		for j := i - 1; j >= 0; j-- {
			st.reduce(i, j)
		}
	}
	if t := st.relation(eps); t != nil {
		return t, nil
	}

	for it := 0; it < maxIter; it++ {
		m := st.selectRow()
		st.swap(m)
		if m < n-2 {
			st.corner(m)
		}
		for i := m + 1; i < n; i++ {
			top := i - 1
			if top > m+1 {
				top = m + 1
			}
			for j := top; j >= 0; j-- {
				st.reduce(i, j)
			}
		}
		if t := st.relation(eps); t != nil {
			return t, nil
		}
		// Any relation has norm at least 1/max|H[j][j]|; once that bound
		// exceeds what the accuracy can certify, stop.
		if -st.maxDiagLog2() > float64(accuracy)/2 {
			return nil, fmt.Errorf("PSLQ: norm bound exceeded after %d iterations: %w", it+1, ErrNoRelation)
		}
	}
	return nil, fmt.Errorf("PSLQ: %d iterations: %w", maxIter, ErrNoRelation)
}

func newPSLQState(ctx Context, x []*big.Float) *pslqState {
	n := len(x)
	st := &pslqState{ctx: ctx, n: n}

	// s[k] = sqrt(sum_{j>=k} x_j^2), then normalise so that |y| = 1.
	s := make([]*big.Float, n)
	acc := ctx.Int(0)
	sq := new(big.Float).SetPrec(ctx.Prec)
	for k := n - 1; k >= 0; k-- {
		acc.Add(acc, sq.Mul(x[k], x[k]))
		s[k] = ctx.Sqrt(acc)
	}
	inv := new(big.Float).SetPrec(ctx.Prec).Quo(ctx.Int(1), s[0])
	st.y = make([]*big.Float, n)
	for k := 0; k < n; k++ {
		st.y[k] = new(big.Float).SetPrec(ctx.Prec).Mul(x[k], inv)
		s[k].Mul(s[k], inv)
	}

	st.h = make([][]*big.Float, n)
	for i := 0; i < n; i++ {
		st.h[i] = make([]*big.Float, n-1)
		for j := 0; j < n-1; j++ {
			v := ctx.Int(0)
			switch {
			case i == j:
				v.Quo(s[j+1], s[j])
			case i > j:
				den := new(big.Float).SetPrec(ctx.Prec).Mul(s[j], s[j+1])
				v.Mul(st.y[i], st.y[j])
				v.Quo(v, den)
				v.Neg(v)
			}
			st.h[i][j] = v
		}
	}

	st.b = make([][]*big.Int, n)
	for i := 0; i < n; i++ {
		st.b[i] = make([]*big.Int, n)
		for j := 0; j < n; j++ {
			st.b[i][j] = new(big.Int)
		}
		st.b[i][i].SetInt64(1)
	}
	return st
}

// reduce subtracts nint(H[i][j]/H[j][j]) times row j from row i of H and
// applies the inverse operation to y and B.
func (st *pslqState) reduce(i, j int) {
	if st.h[j][j].Sign() == 0 {
		return
	}
	q := new(big.Float).SetPrec(st.ctx.Prec).Quo(st.h[i][j], st.h[j][j])
	t := Nint(q)
	if t.Sign() == 0 {
		return
	}
	tf := new(big.Float).SetPrec(st.ctx.Prec).SetInt(t)
	tmp := new(big.Float).SetPrec(st.ctx.Prec)

	st.y[j].Add(st.y[j], tmp.Mul(tf, st.y[i]))
	for k := 0; k <= j; k++ {
		st.h[i][k].Sub(st.h[i][k], tmp.Mul(tf, st.h[j][k]))
	}
	ti := new(big.Int)
	for k := 0; k < st.n; k++ {
		st.b[k][j].Add(st.b[k][j], ti.Mul(t, st.b[k][i]))
	}
}

func (st *pslqState) selectRow() int {
	m, best := 0, math.Inf(-1)
	for i := 0; i < st.n-1; i++ {
		v := float64(i+1)*log2Gamma + Log2Abs(st.h[i][i])
		if v > best {
			m, best = i, v
		}
	}
	return m
}

func (st *pslqState) swap(m int) {
	st.y[m], st.y[m+1] = st.y[m+1], st.y[m]
	st.h[m], st.h[m+1] = st.h[m+1], st.h[m]
	for k := 0; k < st.n; k++ {
		st.b[k][m], st.b[k][m+1] = st.b[k][m+1], st.b[k][m]
	}
}

// corner restores the lower trapezoidal shape of H after a swap.
func (st *pslqState) corner(m int) {
	ctx := st.ctx
	a, b := st.h[m][m], st.h[m][m+1]
	t0 := new(big.Float).SetPrec(ctx.Prec).Mul(a, a)
	t0.Add(t0, new(big.Float).SetPrec(ctx.Prec).Mul(b, b))
	if t0.Sign() == 0 {
		return
	}
	t0 = ctx.Sqrt(t0)
	t1 := new(big.Float).SetPrec(ctx.Prec).Quo(a, t0)
	t2 := new(big.Float).SetPrec(ctx.Prec).Quo(b, t0)
	for i := m; i < st.n; i++ {
		t3, t4 := st.h[i][m], st.h[i][m+1]
		u := new(big.Float).SetPrec(ctx.Prec).Mul(t1, t3)
		u.Add(u, new(big.Float).SetPrec(ctx.Prec).Mul(t2, t4))
		v := new(big.Float).SetPrec(ctx.Prec).Mul(t1, t4)
		v.Sub(v, new(big.Float).SetPrec(ctx.Prec).Mul(t2, t3))
		st.h[i][m], st.h[i][m+1] = u, v
	}
}

// relation returns the column of B matching a vanished entry of y.
func (st *pslqState) relation(eps int) []*big.Int {
	for j := 0; j < st.n; j++ {
		if !Below(st.y[j], eps) {
			continue
		}
		t := make([]*big.Int, st.n)
		nonzero := false
		for k := 0; k < st.n; k++ {
			t[k] = new(big.Int).Set(st.b[k][j])
			if t[k].Sign() != 0 {
				nonzero = true
			}
		}
		if nonzero {
			return t
		}
	}
	return nil
}

func (st *pslqState) maxDiagLog2() float64 {
	best := math.Inf(-1)
	for j := 0; j < st.n-1; j++ {
		if v := Log2Abs(st.h[j][j]); v > best {
			best = v
		}
	}
	return best
}
