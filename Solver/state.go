package solver

import (
	"errors"
	"fmt"

	ghost "sic-ghost/Ghost_Invariants"
	"sic-ghost/automorphism"
	"sic-ghost/intersect"
	"sic-ghost/numeric"
)

// State is a stage of one precision iteration, or a terminal state.
type State int

const (
	Seeding State = iota
	ExtractingInvariants
	Dualizing
	RootFinding
	Intersecting
	Validating
	Converged
	Exhausted
)

var stateNames = [...]string{
	"Seeding",
	"ExtractingInvariants",
	"Dualizing",
	"RootFinding",
	"Intersecting",
	"Validating",
	"Converged",
	"Exhausted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

var (
	// ErrPrecisionExhausted is returned when the precision passes MaxPrec
	// without convergence.
	ErrPrecisionExhausted = errors.New("solver: precision exceeded")

	// ErrMaxPrecTooLow is returned by New for a MaxPrec below MinPrec.
	ErrMaxPrecTooLow = errors.New("solver: max precision below minimum")

	// ErrNonFiniteInvariant is numeric.ErrNonFinite, so NaN panics caught
	// inside worker goroutines match it as well.
	ErrNonFiniteInvariant = numeric.ErrNonFinite
	ErrPhaseValidation    = errors.New("solver: phase off the unit circle")

	ErrAmbiguousIntersection = intersect.ErrAmbiguous
)

// recoverable lists the failures answered by doubling the precision.
var recoverable = []error{
	ghost.ErrDegenerateInvariant,
	automorphism.ErrNoRelation,
	numeric.ErrSingular,
	numeric.ErrNoConvergence,
	ErrNonFiniteInvariant,
	ErrAmbiguousIntersection,
	ErrPhaseValidation,
}

// StageError is a failed transition out of State at Prec bits.
type StageError struct {
	State State
	Prec  uint
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("solver: %s at %d bits: %v", e.State, e.Prec, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Recoverable reports whether a higher precision may succeed.
func (e *StageError) Recoverable() bool {
	for _, r := range recoverable {
		if errors.Is(e.Err, r) {
			return true
		}
	}
	return false
}

func stageErr(state State, prec uint, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{State: state, Prec: prec, Err: err}
}
