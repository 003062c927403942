package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a connection needed to run a single statement.
// It is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx alike, so the same
// statement code runs inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a Querier that can also start transactions. It abstracts away the
// underlying connection type (pgx.Conn, pgxpool.Pool, or a mock in tests).
type Conn interface {
	Querier
	// Begin starts a transaction. Unlike database/sql, the context only affects the begin command.
	// i.e. there is no auto-rollback on context cancellation.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ConnSource hands out the connection statements are run on.
type ConnSource interface {
	Conn(ctx context.Context) (Conn, error)
}

type fixedConn struct {
	conn Conn
}

func (f fixedConn) Conn(context.Context) (Conn, error) {
	return f.conn, nil
}

// FixedConn returns a ConnSource that always yields c.
func FixedConn(c Conn) ConnSource {
	return fixedConn{conn: c}
}
