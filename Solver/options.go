package solver

import (
	"fmt"

	"go.uber.org/zap"

	shiftsearch "sic-ghost/Shift_Search"
	"sic-ghost/intersect"
	"sic-ghost/measure"
	"sic-ghost/numeric"
)

// MinPrec is the starting precision and the smallest accepted MaxPrec.
const MinPrec = 128

const (
	DefaultMaxPrec    = 2048
	DefaultBufferPrec = 320
	DefaultStablePrec = 256
	DefaultPhaseTol   = 1e-6
)

// Options configures one Solver. Zero fields take the defaults above.
type Options struct {
	StartPrec uint
	MaxPrec   uint
	// BufferPrec is the working precision from dualization onwards.
	BufferPrec uint
	// StablePrec is the precision phases are validated at and the precision
	// the session is left at.
	StablePrec    uint
	IntersectPrec uint
	IntersectBase int

	PhaseTol     float64
	ShiftTol     float64
	RefineDigits int

	// Parallel fans per-factor work out over goroutines.
	Parallel bool

	Roots     numeric.RootFinder
	Relations numeric.RelationFinder
	Logger    *zap.Logger
	Counter   *measure.Counter
}

func (o Options) withDefaults() (Options, error) {
	if o.StartPrec == 0 {
		o.StartPrec = MinPrec
	}
	if o.MaxPrec == 0 {
		o.MaxPrec = DefaultMaxPrec
	}
	if o.MaxPrec < MinPrec {
		return o, fmt.Errorf("%w: %d < %d", ErrMaxPrecTooLow, o.MaxPrec, MinPrec)
	}
	if o.StartPrec > o.MaxPrec {
		return o, fmt.Errorf("%w: %d < start %d", ErrMaxPrecTooLow, o.MaxPrec, o.StartPrec)
	}
	if o.BufferPrec == 0 {
		o.BufferPrec = DefaultBufferPrec
	}
	if o.StablePrec == 0 {
		o.StablePrec = DefaultStablePrec
	}
	if o.IntersectPrec == 0 {
		o.IntersectPrec = intersect.DefaultPrec
	}
	if o.IntersectBase == 0 {
		o.IntersectBase = intersect.DefaultBase
	}
	if o.PhaseTol <= 0 {
		o.PhaseTol = DefaultPhaseTol
	}
	if o.ShiftTol <= 0 {
		o.ShiftTol = shiftsearch.DefaultTol
	}
	if o.RefineDigits <= 0 {
		o.RefineDigits = shiftsearch.DefaultDigits
	}
	if o.Roots == nil {
		o.Roots = numeric.DurandKerner{}
	}
	if o.Relations == nil {
		o.Relations = numeric.PSLQ{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Counter == nil {
		o.Counter = measure.NewCounter()
	}
	return o, nil
}
