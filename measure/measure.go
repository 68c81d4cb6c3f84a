package measure

import (
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Enabled turns on the per-stage report written by Dump and Section.
var Enabled bool

func init() {
	Enabled = os.Getenv("MEASURE_STAGES") == "1"
}

// Digits returns the number of decimal digits carried by bits of mantissa.
func Digits(bits uint) int {
	return int(math.Floor(float64(bits) * math.Log10(2)))
}

// Human formats a precision as "320 bits (96 digits)".
func Human(bits uint) string {
	return fmt.Sprintf("%d bits (%d digits)", bits, Digits(bits))
}

// Counter accumulates named event counts for one run. The zero value is not
// usable; call NewCounter.
type Counter struct {
	mu sync.Mutex
	M  map[string]int64
}

func NewCounter() *Counter {
	return &Counter{M: make(map[string]int64)}
}

func (c *Counter) Add(key string, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.M[key] += n
	c.mu.Unlock()
}

// Snapshot returns a copy of the counts.
func (c *Counter) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	if c == nil {
		return out
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.M {
		out[k] = v
	}
	return out
}

func (c *Counter) Dump(logger *zap.Logger) {
	if !Enabled || c == nil {
		return
	}
	snap := c.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Info("[measure]", zap.String("stage", k), zap.Int64("count", snap[k]))
	}
}

func Section(logger *zap.Logger, name string, f func()) {
	if !Enabled {
		f()
		return
	}
	logger.Info("[measure] begin", zap.String("section", name))
	f()
	logger.Info("[measure] end", zap.String("section", name))
}
