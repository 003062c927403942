package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SelectRequest describes a generic select. An empty Where selects every row;
// Where may hold '?' markers, one per entry in Values.
type SelectRequest struct {
	TableName string
	Columns   []string
	Where     string
	Values    []string
}

// RowDescriptor is one row to insert: parallel column names and typed values.
type RowDescriptor struct {
	TableName string       `json:"tableName" validate:"required"`
	Columns   []string     `json:"columns" validate:"required,min=1"`
	Values    []TypedValue `json:"values" validate:"required,min=1"`
}

// InsertedRow is a row the database accepted, with its values as bound.
type InsertedRow struct {
	TableName string
	Columns   []string
	Values    []any
}

// EventSink is told about inserted rows once they are durable.
type EventSink interface {
	RowsInserted(ctx context.Context, rows []InsertedRow)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, rows []InsertedRow)

func (f SinkFunc) RowsInserted(ctx context.Context, rows []InsertedRow) {
	f(ctx, rows)
}

// Sinks returns an EventSink that hands rows to each sink in order. Nil sinks are skipped.
func Sinks(sinks ...EventSink) EventSink {
	return SinkFunc(func(ctx context.Context, rows []InsertedRow) {
		for _, s := range sinks {
			if s != nil {
				s.RowsInserted(ctx, rows)
			}
		}
	})
}

// ShimOptions configures a Shim. The zero value is usable.
type ShimOptions struct {
	Logger *zap.Logger
	// NullText replaces SQL NULL in select results. Defaults to DefaultNullText.
	NullText *string
	// Serialize makes every call wait for the previous one to finish.
	Serialize bool
	// AtomicInserts runs each batch of inserts in one transaction.
	AtomicInserts bool
	// ValidateFilters parses generated selects before running them.
	ValidateFilters bool
	AllowedTables   TableAllowList
	Sink            EventSink
	// Observe, if set, is called with the duration of every statement.
	Observe func(op string, d time.Duration)
}

// Shim builds and runs the generic statements on connections from a ConnSource.
type Shim struct {
	src    ConnSource
	opts   ShimOptions
	logger *zap.Logger
	render renderer
	mu     sync.Mutex
}

// NewShim returns a Shim that takes its connections from src.
func NewShim(src ConnSource, opts ShimOptions) *Shim {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	nullText := DefaultNullText
	if opts.NullText != nil {
		nullText = *opts.NullText
	}
	return &Shim{
		src:    src,
		opts:   opts,
		logger: logger,
		render: renderer{nullText: nullText},
	}
}

func (s *Shim) lock() func() {
	if !s.opts.Serialize {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Shim) observe(op string, start time.Time) {
	if s.opts.Observe != nil {
		s.opts.Observe(op, time.Since(start))
	}
}

// IsConnected reports whether the database answers a trivial query.
func (s *Shim) IsConnected(ctx context.Context) bool {
	defer s.lock()()

	conn, err := s.src.Conn(ctx)
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		return false
	}
	defer s.observe("health", time.Now())
	return IsConnected(ctx, conn, s.logger)
}

// buildSelect returns the statement and its arguments for req.
func (s *Shim) buildSelect(req SelectRequest) (string, []any, error) {
	table, err := s.opts.AllowedTables.Check(req.TableName)
	if err != nil {
		return "", nil, err
	}
	cols, err := checkColumns(req.Columns)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", cols, table)

	where := strings.TrimSpace(req.Where)
	if where == "" {
		if len(req.Values) > 0 {
			return "", nil, fmt.Errorf("%w: %d values given without a condition", ErrInvalidFilter, len(req.Values))
		}
		return sql, nil, nil
	}

	where, n := Rebind(where)
	if n != len(req.Values) {
		return "", nil, fmt.Errorf("%w: condition has %d placeholders but %d values were given", ErrInvalidFilter, n, len(req.Values))
	}
	sql += " WHERE " + where

	if s.opts.ValidateFilters {
		if err := ValidateSelect(sql); err != nil {
			return "", nil, err
		}
	}

	args := make([]any, len(req.Values))
	for i, v := range req.Values {
		args[i] = v
	}
	return sql, args, nil
}

// SelectRows runs a generic select and renders every row as text keyed by the
// requested column names. Any error discards the partial result.
func (s *Shim) SelectRows(ctx context.Context, req SelectRequest) (*RowSet, error) {
	sql, args, err := s.buildSelect(req)
	if err != nil {
		return nil, err
	}

	defer s.lock()()

	conn, err := s.src.Conn(ctx)
	if err != nil {
		return nil, err
	}

	defer s.observe("select", time.Now())
	s.logger.Debug("select", zap.String("sql", sql), zap.Int("args", len(args)))

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", req.TableName, err)
	}
	defer rows.Close()

	result := &RowSet{TableName: req.TableName, Rows: []Row{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(values) != len(req.Columns) {
			return nil, fmt.Errorf("expected %d columns, got %d", len(req.Columns), len(values))
		}

		var row Row
		for i, name := range req.Columns {
			text, err := s.render.column(name, values[i])
			if err != nil {
				return nil, err
			}
			row.Set(name, text)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", req.TableName, err)
	}

	return result, nil
}

// buildInsert validates row and returns its statement and bound arguments.
func (s *Shim) buildInsert(row RowDescriptor) (string, []any, error) {
	table, err := s.opts.AllowedTables.Check(row.TableName)
	if err != nil {
		return "", nil, err
	}
	cols, err := checkColumns(row.Columns)
	if err != nil {
		return "", nil, err
	}
	if len(row.Columns) != len(row.Values) {
		return "", nil, fmt.Errorf("%w: %d columns but %d values for %s", ErrMalformed, len(row.Columns), len(row.Values), row.TableName)
	}

	args, err := BindAll(row.Values)
	if err != nil {
		return "", nil, err
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, strings.Join(placeholders, ", "))
	return sql, args, nil
}

// Batch runs statements for one unit of work, inside a transaction when the
// Shim is configured for atomic inserts.
type Batch struct {
	shim     *Shim
	q        Querier
	inserted []InsertedRow
}

// Insert inserts a single row.
func (b *Batch) Insert(ctx context.Context, row RowDescriptor) error {
	sql, args, err := b.shim.buildInsert(row)
	if err != nil {
		return err
	}

	defer b.shim.observe("insert", time.Now())
	b.shim.logger.Debug("insert", zap.String("sql", sql), zap.Int("args", len(args)))

	if _, err := b.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert record into %s: %w", row.TableName, err)
	}

	b.inserted = append(b.inserted, InsertedRow{TableName: row.TableName, Columns: row.Columns, Values: args})
	return nil
}

// QueryText runs a query returning a single non-null text value.
func (b *Batch) QueryText(ctx context.Context, sql string, args ...any) (string, error) {
	defer b.shim.observe("query", time.Now())
	b.shim.logger.Debug("query", zap.String("sql", sql), zap.Int("args", len(args)))

	var v string
	if err := b.q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

// Inserted returns the rows inserted so far.
func (b *Batch) Inserted() []InsertedRow {
	return b.inserted
}

// Do runs fn as one unit of work. With AtomicInserts the work is committed
// only if fn succeeds; otherwise every statement stands on its own and work
// done before a failure stays applied.
func (s *Shim) Do(ctx context.Context, fn func(*Batch) error) error {
	inserted, err := s.do(ctx, fn)
	if len(inserted) > 0 && s.opts.Sink != nil {
		s.opts.Sink.RowsInserted(ctx, inserted)
	}
	return err
}

func (s *Shim) do(ctx context.Context, fn func(*Batch) error) ([]InsertedRow, error) {
	defer s.lock()()

	conn, err := s.src.Conn(ctx)
	if err != nil {
		return nil, err
	}

	if !s.opts.AtomicInserts {
		b := &Batch{shim: s, q: conn}
		err := fn(b)
		return b.inserted, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	b := &Batch{shim: s, q: tx}
	if err := fn(b); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return b.inserted, nil
}

// InsertRows inserts rows in order. On failure the error names the failing row.
func (s *Shim) InsertRows(ctx context.Context, rows []RowDescriptor) error {
	err := s.Do(ctx, func(b *Batch) error {
		for i, row := range rows {
			if err := b.Insert(ctx, row); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("insert failed", zap.Error(err))
		return err
	}

	s.logger.Info("rows inserted", zap.Int("count", len(rows)))
	return nil
}
