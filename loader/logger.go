package loader

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the loader package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the loader package's logger.
// This must be called before any loading operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapPath(path string) zap.Field    { return zap.String("path", path) }
func zapTarget(path string) zap.Field  { return zap.String("link_target", path) }
func zapFunctionCount(n int) zap.Field { return zap.Int("functions", n) }
