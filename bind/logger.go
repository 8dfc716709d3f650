package bind

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the bind package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the bind package's logger.
// This must be called before any binding operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapFunction(name string) zap.Field { return zap.String("function", name) }
func zapParam(name string) zap.Field    { return zap.String("param", name) }
