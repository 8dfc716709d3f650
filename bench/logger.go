package bench

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the bench package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the bench package's logger.
// This must be called before any benchmark sessions.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapFunction(name string) zap.Field { return zap.String("function", name) }
func zapReplicas(n int) zap.Field       { return zap.Int("replicas", n) }
func zapFootprint(b int64) zap.Field    { return zap.Int64("footprint_bytes", b) }
