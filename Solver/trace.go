package solver

import (
	"go.uber.org/zap"

	"sic-ghost/numeric"
)

// Reason says why the working precision was set.
type Reason int

const (
	// ReasonSeed is the target precision of an iteration.
	ReasonSeed Reason = iota
	// ReasonBuffer is the fixed precision used from dualization onwards.
	ReasonBuffer
	// ReasonNormalize precedes phase validation.
	ReasonNormalize
	// ReasonRestore leaves the session at the stable precision.
	ReasonRestore
)

func (r Reason) String() string {
	switch r {
	case ReasonSeed:
		return "seed"
	case ReasonBuffer:
		return "buffer"
	case ReasonNormalize:
		return "normalize"
	case ReasonRestore:
		return "restore"
	}
	return "unknown"
}

// MarshalText lets reports carry the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Event is one change of the working precision.
type Event struct {
	Reason Reason `json:"reason"`
	Prec   uint   `json:"prec"`
}

// session owns the working precision of one run. Nothing else in the
// process observes it.
type session struct {
	ctx    numeric.Context
	trace  []Event
	logger *zap.Logger
}

func newSession(logger *zap.Logger) *session {
	return &session{logger: logger}
}

func (s *session) set(reason Reason, prec uint) numeric.Context {
	s.ctx = numeric.NewContext(prec)
	s.trace = append(s.trace, Event{Reason: reason, Prec: prec})
	s.logger.Debug("working precision", zap.Stringer("reason", reason), zap.Uint("prec", prec))
	return s.ctx
}

// Trace returns a copy of the recorded precision changes.
func (s *session) Trace() []Event {
	return append([]Event(nil), s.trace...)
}
