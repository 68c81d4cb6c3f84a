// Parameters/system.go
package Parameters

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	solver "sic-ghost/Solver"
	"sic-ghost/intersect"
	"sic-ghost/quadratic"
)

// ErrConfig wraps every invalid configuration value.
var ErrConfig = errors.New("parameters: invalid configuration")

// SolverParams are the tunables of the precision loop.
type SolverParams struct {
	StartPrec     uint    `toml:"start_prec" yaml:"start_prec" json:"start_prec"`         // first target precision (bits)
	MaxPrec       uint    `toml:"max_prec" yaml:"max_prec" json:"max_prec"`               // give up above this
	BufferPrec    uint    `toml:"buffer_prec" yaml:"buffer_prec" json:"buffer_prec"`      // precision from dualization on
	StablePrec    uint    `toml:"stable_prec" yaml:"stable_prec" json:"stable_prec"`      // validation and resting precision
	IntersectPrec uint    `toml:"intersect_prec" yaml:"intersect_prec" json:"intersect_prec"`
	IntersectBase int     `toml:"intersect_base" yaml:"intersect_base" json:"intersect_base"`
	PhaseTol      float64 `toml:"phase_tol" yaml:"phase_tol" json:"phase_tol"`
	ShiftTol      float64 `toml:"shift_tol" yaml:"shift_tol" json:"shift_tol"`
	RefineDigits  int     `toml:"refine_digits" yaml:"refine_digits" json:"refine_digits"` // significant digits of the final polish
	Parallel      bool    `toml:"parallel" yaml:"parallel" json:"parallel"`
}

// Override raises or caps the precision for one field, keyed by its label.
type Override struct {
	StartPrec uint `toml:"start_prec" yaml:"start_prec" json:"start_prec,omitempty"`
	MaxPrec   uint `toml:"max_prec" yaml:"max_prec" json:"max_prec,omitempty"`
}

// Params is the whole configuration file.
type Params struct {
	Solver    SolverParams        `toml:"solver" yaml:"solver" json:"solver"`
	Field     quadratic.Config    `toml:"field" yaml:"field" json:"field"`
	Overrides map[string]Override `toml:"overrides" yaml:"overrides" json:"overrides,omitempty"`
}

func Default() Params {
	return Params{
		Solver: SolverParams{
			StartPrec:     solver.MinPrec,
			MaxPrec:       solver.DefaultMaxPrec,
			BufferPrec:    solver.DefaultBufferPrec,
			StablePrec:    solver.DefaultStablePrec,
			IntersectPrec: intersect.DefaultPrec,
			IntersectBase: intersect.DefaultBase,
			PhaseTol:      solver.DefaultPhaseTol,
			ShiftTol:      1e-6,
			RefineDigits:  30,
		},
		Field:     quadratic.DefaultConfig(),
		Overrides: map[string]Override{},
	}
}

// Load reads a TOML or YAML file, chosen by extension, on top of Default.
func Load(path string) (Params, error) {
	p := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &p)
		if err != nil {
			return Params{}, fmt.Errorf("load parameters: %w", err)
		}
		if keys := meta.Undecoded(); len(keys) > 0 {
			return Params{}, fmt.Errorf("%w: unknown keys %v in %s", ErrConfig, keys, path)
		}
		if meta.IsDefined("solver", "max_prec") && p.Solver.MaxPrec < solver.MinPrec {
			return Params{}, fmt.Errorf("%w: solver.max_prec %d: %w", ErrConfig, p.Solver.MaxPrec, solver.ErrMaxPrecTooLow)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Params{}, fmt.Errorf("load parameters: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Params{}, fmt.Errorf("load parameters: %w", err)
		}
	default:
		return Params{}, fmt.Errorf("%w: unsupported file %q", ErrConfig, path)
	}
	if p.Overrides == nil {
		p.Overrides = map[string]Override{}
	}
	return p, p.Validate()
}

// ApplyEnv applies SIC_START_PREC and SIC_MAX_PREC when set.
func (p Params) ApplyEnv(getenv func(string) string) (Params, error) {
	for _, e := range []struct {
		key string
		dst *uint
	}{
		{"SIC_START_PREC", &p.Solver.StartPrec},
		{"SIC_MAX_PREC", &p.Solver.MaxPrec},
	} {
		v := strings.TrimSpace(getenv(e.key))
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s=%q: %w", ErrConfig, e.key, v, err)
		}
		*e.dst = uint(n)
	}
	return p, p.Validate()
}

func (p Params) Validate() error {
	s := p.Solver
	switch {
	case s.MaxPrec < solver.MinPrec:
		return fmt.Errorf("%w: max_prec %d: %w", ErrConfig, s.MaxPrec, solver.ErrMaxPrecTooLow)
	case s.StartPrec > s.MaxPrec:
		return fmt.Errorf("%w: start_prec %d above max_prec %d", ErrConfig, s.StartPrec, s.MaxPrec)
	case s.IntersectBase != 0 && s.IntersectBase < 2:
		return fmt.Errorf("%w: intersect_base %d", ErrConfig, s.IntersectBase)
	case s.PhaseTol < 0 || s.ShiftTol < 0:
		return fmt.Errorf("%w: negative tolerance", ErrConfig)
	}
	for label, o := range p.Overrides {
		if o.MaxPrec != 0 && o.MaxPrec < solver.MinPrec {
			return fmt.Errorf("%w: override %q max_prec %d: %w", ErrConfig, label, o.MaxPrec, solver.ErrMaxPrecTooLow)
		}
	}
	return nil
}

// For returns the solver parameters with the override for label applied.
func (p Params) For(label string) SolverParams {
	s := p.Solver
	if o, ok := p.Overrides[label]; ok {
		if o.StartPrec != 0 {
			s.StartPrec = o.StartPrec
		}
		if o.MaxPrec != 0 {
			s.MaxPrec = o.MaxPrec
		}
	}
	return s
}

// Options converts the parameters into solver options.
func (s SolverParams) Options() solver.Options {
	return solver.Options{
		StartPrec:     s.StartPrec,
		MaxPrec:       s.MaxPrec,
		BufferPrec:    s.BufferPrec,
		StablePrec:    s.StablePrec,
		IntersectPrec: s.IntersectPrec,
		IntersectBase: s.IntersectBase,
		PhaseTol:      s.PhaseTol,
		ShiftTol:      s.ShiftTol,
		RefineDigits:  s.RefineDigits,
		Parallel:      s.Parallel,
	}
}

const defaultHeader = `# sicghost parameters
#
# Per-field precision overrides are keyed by the field label, e.g.
#
#   [overrides."d5/Q(sqrt3)/4+1w"]
#   start_prec = 256

`

// WriteDefault writes the default parameters as TOML to path.
func WriteDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write parameters: %w", err)
		}
	}
	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return fmt.Errorf("write parameters: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
