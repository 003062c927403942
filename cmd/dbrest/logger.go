package dbrest

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const logLevelNone = "none"

// newLogger builds the process logger. "none" silences it.
func newLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == logLevelNone {
		return zap.NewNop(), nil
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.DisableStacktrace = lvl.Level() > zap.DebugLevel
	return zc.Build()
}
