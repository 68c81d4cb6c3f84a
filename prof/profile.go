package prof

import (
	"time"

	"go.uber.org/zap"
)

// Track logs the duration since start with the given name.
//
//	defer prof.Track(logger, time.Now(), "extract")
func Track(logger *zap.Logger, start time.Time, name string) {
	logger.Debug("stage timing", zap.String("stage", name), zap.Duration("took", time.Since(start)))
}
