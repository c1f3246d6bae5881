// log.go - Optional structured logging, nop unless installed

package mongoexec

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerMu     sync.RWMutex
	globalLogger = zap.NewNop()
)

// SetLogger installs a logger for execution diagnostics (attempt, retry and
// fallback events at debug level). Passing nil restores the no-op logger.
// Nothing in this package requires logging for correctness.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

func defaultLogger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}
