package solver

import (
	"fmt"

	shiftsearch "sic-ghost/Shift_Search"
	"sic-ghost/automorphism"
	"sic-ghost/numeric"
)

// Field is everything the solver needs to know about one number field and
// its ghost. Implementations own the algebra; the solver only drives
// precision.
type Field interface {
	// Label identifies the field in configuration override tables.
	Label() string
	Dimension() int
	// Seed returns the low-precision ghost.
	Seed() ([]*numeric.BigComplex, error)
	// Orbit returns the orbit factor orders and the flattened orbit
	// representatives, row-major over the orders.
	Orbit() (orders, reps []int)
	// Basis returns the integral basis and its Galois image at prec bits.
	Basis(prec uint) automorphism.BasisPair
	Overlap(ctx numeric.Context, shift int, psi, phi []*numeric.BigComplex) *numeric.BigComplex
	// Refine lifts psi to bits of precision without changing its value.
	Refine(ctx numeric.Context, psi []*numeric.BigComplex, bits uint) ([]*numeric.BigComplex, error)

	shiftsearch.Completer
}

// Orbit is the Galois orbit structure: n = prod(Orders) = len(Reps).
type Orbit struct {
	Orders []int
	Reps   []int
}

func NewOrbit(orders, reps []int) (Orbit, error) {
	if len(orders) == 0 {
		return Orbit{}, fmt.Errorf("solver: empty orbit")
	}
	for j, m := range orders {
		if m < 1 {
			return Orbit{}, fmt.Errorf("solver: orbit factor %d has order %d", j, m)
		}
	}
	if n := numeric.Prod(orders); n != len(reps) {
		return Orbit{}, fmt.Errorf("solver: orbit of size %d with %d representatives", n, len(reps))
	}
	return Orbit{Orders: append([]int(nil), orders...), Reps: append([]int(nil), reps...)}, nil
}

// Size returns n.
func (o Orbit) Size() int { return len(o.Reps) }
