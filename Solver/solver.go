// Package solver reconstructs a high-precision fiducial from a ghost seed by
// doubling the working precision until the dualized invariants yield a
// consistent array of unit-modulus phases.
package solver

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	ghost "sic-ghost/Ghost_Invariants"
	shiftsearch "sic-ghost/Shift_Search"
	"sic-ghost/automorphism"
	"sic-ghost/numeric"
	"sic-ghost/prof"
)

// Solver drives one field through the precision loop. A Solver is not safe
// for concurrent use; each call to Phases or Solve starts a fresh session.
type Solver struct {
	field     Field
	opts      Options
	orbit     Orbit
	pair      automorphism.BasisPair
	extractor ghost.Extractor
	log       *zap.Logger
	sess      *session
}

// PhaseResult is an accepted phase array.
type PhaseResult struct {
	X *numeric.Array[*numeric.BigComplex]
	// Prec is the target precision of the converged iteration.
	Prec       uint
	Iterations int
	Trace      []Event
}

// Result is the polished fiducial together with how it was found.
type Result struct {
	PhaseResult
	Psi        []*numeric.BigComplex
	Shift      []int
	ShiftIndex int
	Score      float64
}

// New checks the options and the field's orbit structure. The basis pair is
// fixed here for every later run.
func New(field Field, opts Options) (*Solver, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	orbit, err := NewOrbit(field.Orbit())
	if err != nil {
		return nil, err
	}
	pair := field.Basis(opts.BufferPrec)
	if len(pair.Primal) == 0 || len(pair.Primal) != len(pair.Dual) {
		return nil, fmt.Errorf("solver: field %s returned a malformed basis pair", field.Label())
	}
	log := opts.Logger.With(zap.String("field", field.Label()))
	return &Solver{
		field:     field,
		opts:      opts,
		orbit:     orbit,
		pair:      pair,
		extractor: ghost.Extractor{Parallel: opts.Parallel, Logger: log},
		log:       log,
	}, nil
}

// Options returns the effective options after defaults.
func (s *Solver) Options() Options { return s.opts }

// Orbit returns the validated orbit structure.
func (s *Solver) Orbit() Orbit { return s.orbit }

// Phases runs the precision loop. Recoverable stage failures double the
// precision; passing MaxPrec returns ErrPrecisionExhausted. On every return
// the session is left at StablePrec.
func (s *Solver) Phases() (*PhaseResult, error) {
	s.sess = newSession(s.log)
	seed, err := s.field.Seed()
	if err != nil {
		return nil, fmt.Errorf("solver: seed: %w", err)
	}

	var last error
	iterations := 0
	prec := s.opts.StartPrec
	for ; prec <= s.opts.MaxPrec; prec *= 2 {
		iterations++
		x, err := s.iterate(seed, prec)
		if err == nil {
			s.sess.set(ReasonRestore, s.opts.StablePrec)
			s.log.Info("phases converged",
				zap.Stringer("state", Converged),
				zap.Uint("prec", prec),
				zap.Int("iterations", iterations))
			return &PhaseResult{X: x, Prec: prec, Iterations: iterations, Trace: s.sess.Trace()}, nil
		}

		var se *StageError
		if !errors.As(err, &se) || !se.Recoverable() {
			s.sess.set(ReasonRestore, s.opts.StablePrec)
			return nil, err
		}
		s.opts.Counter.Add(se.State.String(), 1)
		s.log.Debug("iteration discarded", zap.Stringer("state", se.State), zap.Uint("prec", prec), zap.Error(se.Err))
		last = err
	}

	s.sess.set(ReasonRestore, s.opts.StablePrec)
	s.log.Debug("precision loop ended", zap.Stringer("state", Exhausted), zap.Int("iterations", iterations))
	return nil, fmt.Errorf("%w: next step %d bits is above max %d after %d iterations: %w",
		ErrPrecisionExhausted, prec, s.opts.MaxPrec, iterations, last)
}

// Trace returns the precision changes of the last run.
func (s *Solver) Trace() []Event {
	if s.sess == nil {
		return nil
	}
	return s.sess.Trace()
}

// Solve runs Phases, then searches the Galois shift and polishes the result.
func (s *Solver) Solve() (*Result, error) {
	ph, err := s.Phases()
	if err != nil {
		return nil, err
	}
	defer prof.Track(s.log, time.Now(), "shift search")
	ctx := numeric.NewContext(s.opts.StablePrec)
	found, err := shiftsearch.Search(ctx, ph.X, s.field, shiftsearch.Options{
		Tol:    s.opts.ShiftTol,
		Digits: s.opts.RefineDigits,
		Logger: s.log,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("shift accepted", zap.Ints("shift", found.Shift), zap.Float64("score", found.Score), zap.Int("tried", found.Tried))
	return &Result{
		PhaseResult: *ph,
		Psi:         found.Psi,
		Shift:       found.Shift,
		ShiftIndex:  found.Index,
		Score:       found.Score,
	}, nil
}

// guard turns a NaN panic from math/big into a recoverable stage failure.
func guard(state *State, prec uint, err *error) {
	r := recover()
	if r == nil {
		return
	}
	nan, ok := r.(big.ErrNaN)
	if !ok {
		panic(r)
	}
	*err = &StageError{State: *state, Prec: prec, Err: fmt.Errorf("%w: %s", ErrNonFiniteInvariant, nan.Error())}
}

// iterate is one pass at target precision prec.
func (s *Solver) iterate(seed []*numeric.BigComplex, prec uint) (x *numeric.Array[*numeric.BigComplex], err error) {
	state := Seeding
	defer guard(&state, prec, &err)
	defer prof.Track(s.log, time.Now(), fmt.Sprintf("iteration at %d bits", prec))

	ctx := s.sess.set(ReasonSeed, prec)
	psi, err := s.field.Refine(ctx, seed, prec)
	if err != nil {
		return nil, stageErr(state, prec, err)
	}
	phi, err := partner(ctx, psi, s.field.Dimension())
	if err != nil {
		return nil, stageErr(state, prec, err)
	}

	state = ExtractingInvariants
	inv, err := s.extractor.Extract(ctx, s.overlaps(ctx, psi, phi))
	if err != nil {
		return nil, stageErr(state, prec, err)
	}

	state = Dualizing
	bctx := s.sess.set(ReasonBuffer, s.opts.BufferPrec)
	dl, err := s.dualize(bctx, inv, min(prec, s.opts.BufferPrec))
	if err != nil {
		return nil, stageErr(state, prec, err)
	}

	state = RootFinding
	rows, err := s.rootSets(bctx, dl)
	if err != nil {
		return nil, stageErr(state, prec, err)
	}

	state = Intersecting
	x, err = s.phaseArray(rows)
	if err != nil {
		return nil, stageErr(state, prec, err)
	}

	state = Validating
	sctx := s.sess.set(ReasonNormalize, s.opts.StablePrec)
	if err := s.validate(sctx, x); err != nil {
		return nil, stageErr(state, prec, err)
	}
	return x, nil
}
