package pgx

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const healthQuery = "SELECT 'connected' AS dummy"

// IsConnected runs a trivial query on q and reports whether it answered.
// Failures are logged, never returned.
func IsConnected(ctx context.Context, q Querier, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dummy string
	if err := q.QueryRow(ctx, healthQuery).Scan(&dummy); err != nil {
		logger.Error("health check failed", zap.Error(err))
		return false
	}
	return strings.EqualFold(dummy, "connected")
}
