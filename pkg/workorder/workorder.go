// Package workorder numbers and stores work orders: a header row, its detail
// rows and optional attachment rows, all stamped with a company-scoped
// sequence number and a correlative code computed by the database.
package workorder

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	ColumnNoOrdenTrabajo = "no_orden_trabajo"
	ColumnCorrelativoOt  = "correlativo_ot"
)

// Config names the database objects the numbering queries use.
type Config struct {
	SequenceTable   string `mapstructure:"sequenceTable"`
	CompanyColumn   string `mapstructure:"companyColumn"`
	SequenceColumn  string `mapstructure:"sequenceColumn"`
	CorrelativeFunc string `mapstructure:"correlativeFunc"`
}

// DefaultConfig returns the objects of the maintenance schema.
func DefaultConfig() Config {
	return Config{
		SequenceTable:   "maquinarian.ma_maestro_orden_trabajo",
		CompanyColumn:   "id_empresa",
		SequenceColumn:  "no_orden_trabajo",
		CorrelativeFunc: "maquinarian.ma_fn_correlativo_ot",
	}
}

// Runner runs a unit of work against the database. *pg.Shim satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func(*pg.Batch) error) error
}

// Request is a work order as submitted.
type Request struct {
	Encabezado *pg.RowDescriptor  `json:"encabezado" validate:"required"`
	Detalle    []pg.RowDescriptor `json:"detalle" validate:"required,dive"`
	Adjuntos   []pg.RowDescriptor `json:"adjuntos,omitempty" validate:"dive"`
	Parametros map[string]any     `json:"parametros" validate:"required"`
}

// Params are the numbering inputs. They arrive as strings or numbers.
type Params struct {
	Empresa int64 `mapstructure:"empresa"`
	Area    int64 `mapstructure:"area"`
	TipoOt  int64 `mapstructure:"tipo_ot"`
}

// Result carries the identifiers assigned to a stored work order.
type Result struct {
	NoOrdenTrabajo string `json:"noOrdenTrabajo"`
	CorrelativoOt  string `json:"correlativo_ot"`
}

// Service inserts work orders.
type Service struct {
	db             Runner
	logger         *zap.Logger
	sequenceSQL    string
	correlativeSQL string
}

// NewService returns a Service for cfg. Every configured name must be a plain
// or schema-qualified identifier.
func NewService(db Runner, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, name := range []string{cfg.SequenceTable, cfg.CompanyColumn, cfg.SequenceColumn, cfg.CorrelativeFunc} {
		if !pg.ValidIdentifier(name) {
			return nil, fmt.Errorf("workorder: %w: %q", pg.ErrInvalidIdentifier, name)
		}
	}

	return &Service{
		db:     db,
		logger: logger,
		sequenceSQL: fmt.Sprintf(
			"SELECT (COALESCE(MAX(COALESCE(%s, 0)), 0) + 1)::text FROM %s WHERE %s = $1",
			cfg.SequenceColumn, cfg.SequenceTable, cfg.CompanyColumn,
		),
		correlativeSQL: fmt.Sprintf("SELECT COALESCE(%s($1, $2, $3)::text, '')", cfg.CorrelativeFunc),
	}, nil
}

// DecodeParams reads empresa, area and tipo_ot. All three are required.
func DecodeParams(raw map[string]any) (Params, error) {
	var p Params
	if raw == nil {
		return p, fmt.Errorf("%w: parametros is required", pg.ErrMalformed)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalString,
		WeaklyTypedInput: true,
		ErrorUnset:       true,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("%w: parametros: %v", pg.ErrParse, err)
	}
	return p, nil
}

// decimalString parses numeric strings in base 10 only, so "010" is ten.
// JSON numbers must be whole.
func decimalString(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int64 {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return strconv.ParseInt(strings.TrimSpace(data.(string)), 10, 64)
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if math.Trunc(f) != f || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not an integer", data)
		}
	}
	return data, nil
}

// Insert numbers the work order and stores header, details and attachments
// in that order. A failure stops the sequence; rows stored before it stay
// unless the Runner is transactional.
func (s *Service) Insert(ctx context.Context, req Request) (*Result, error) {
	if req.Encabezado == nil || req.Detalle == nil {
		return nil, fmt.Errorf("%w: encabezado and detalle are required", pg.ErrMalformed)
	}

	params, err := DecodeParams(req.Parametros)
	if err != nil {
		return nil, err
	}

	var res Result
	err = s.db.Do(ctx, func(b *pg.Batch) error {
		var err error
		res.NoOrdenTrabajo, err = b.QueryText(ctx, s.sequenceSQL, params.Empresa)
		if err != nil {
			return fmt.Errorf("next work order number: %w", err)
		}

		res.CorrelativoOt, err = b.QueryText(ctx, s.correlativeSQL, params.Empresa, params.Area, params.TipoOt)
		if err != nil {
			return fmt.Errorf("work order correlative: %w", err)
		}

		if err := b.Insert(ctx, stamp(*req.Encabezado, res)); err != nil {
			return fmt.Errorf("encabezado: %w", err)
		}
		for i, row := range req.Detalle {
			if err := b.Insert(ctx, stamp(row, res)); err != nil {
				return fmt.Errorf("detalle %d: %w", i+1, err)
			}
		}
		for i, row := range req.Adjuntos {
			if err := b.Insert(ctx, stamp(row, res)); err != nil {
				return fmt.Errorf("adjunto %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("work order insert failed", zap.Int64("empresa", params.Empresa), zap.Error(err))
		return nil, err
	}

	s.logger.Info("work order inserted",
		zap.Int64("empresa", params.Empresa),
		zap.String("no_orden_trabajo", res.NoOrdenTrabajo),
		zap.String("correlativo_ot", res.CorrelativoOt),
		zap.Int("detalle", len(req.Detalle)),
		zap.Int("adjuntos", len(req.Adjuntos)))
	return &res, nil
}

// stamp returns a copy of row with the reserved columns set to the assigned
// identifiers. The submitted type tags are kept.
func stamp(row pg.RowDescriptor, res Result) pg.RowDescriptor {
	values := make([]pg.TypedValue, len(row.Values))
	copy(values, row.Values)

	for i, col := range row.Columns {
		if i >= len(values) {
			break
		}
		switch {
		case strings.EqualFold(col, ColumnNoOrdenTrabajo):
			values[i].Value = res.NoOrdenTrabajo
		case strings.EqualFold(col, ColumnCorrelativoOt):
			values[i].Value = res.CorrelativoOt
		}
	}

	row.Values = values
	return row
}
