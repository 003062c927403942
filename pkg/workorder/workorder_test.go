package workorder

import (
	"context"
	"errors"
	"testing"

	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sequenceSQL    = "SELECT (COALESCE(MAX(COALESCE(no_orden_trabajo, 0)), 0) + 1)::text FROM maquinarian.ma_maestro_orden_trabajo WHERE id_empresa = $1"
	correlativeSQL = "SELECT COALESCE(maquinarian.ma_fn_correlativo_ot($1, $2, $3)::text, '')"
)

func newTestService(t *testing.T, opts pg.ShimOptions) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc, err := NewService(pg.NewShim(pg.FixedConn(mock), opts), DefaultConfig(), nil)
	require.NoError(t, err)
	return svc, mock
}

func sampleRequest() Request {
	return Request{
		Encabezado: &pg.RowDescriptor{
			TableName: "maquinarian.ma_maestro_orden_trabajo",
			Columns:   []string{"id_empresa", "no_orden_trabajo", "correlativo_ot"},
			Values:    []pg.TypedValue{{Type: "INTEGER", Value: "1"}, {Type: "INTEGER", Value: "0"}, {Type: "STRING", Value: ""}},
		},
		Detalle: []pg.RowDescriptor{{
			TableName: "maquinarian.ma_detalle_orden_trabajo",
			Columns:   []string{"NO_ORDEN_TRABAJO", "descripcion"},
			Values:    []pg.TypedValue{{Type: "INTEGER", Value: "0"}, {Type: "STRING", Value: "cambio de aceite"}},
		}},
		Adjuntos: []pg.RowDescriptor{
			{
				TableName: "maquinarian.ma_adjunto_orden_trabajo",
				Columns:   []string{"no_orden_trabajo", "archivo"},
				Values:    []pg.TypedValue{{Type: "INTEGER", Value: "0"}, {Type: "BLOB", Value: "aGk="}},
			},
			{
				TableName: "maquinarian.ma_adjunto_orden_trabajo",
				Columns:   []string{"no_orden_trabajo", "archivo"},
				Values:    []pg.TypedValue{{Type: "INTEGER", Value: "0"}, {Type: "BLOB", Value: "null"}},
			},
		},
		Parametros: map[string]any{"empresa": "1", "area": 3.0, "tipo_ot": "2"},
	}
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t, pg.ShimOptions{})

	mock.ExpectQuery(sequenceSQL).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("42"))
	mock.ExpectQuery(correlativeSQL).WithArgs(int64(1), int64(3), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("OT-01-0042"))
	mock.ExpectExec("INSERT INTO maquinarian.ma_maestro_orden_trabajo (id_empresa, no_orden_trabajo, correlativo_ot) VALUES ($1, $2, $3)").
		WithArgs(int64(1), int64(42), "OT-01-0042").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO maquinarian.ma_detalle_orden_trabajo (NO_ORDEN_TRABAJO, descripcion) VALUES ($1, $2)").
		WithArgs(int64(42), "cambio de aceite").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// both attachments, not as many as there are details
	mock.ExpectExec("INSERT INTO maquinarian.ma_adjunto_orden_trabajo (no_orden_trabajo, archivo) VALUES ($1, $2)").
		WithArgs(int64(42), []byte("hi")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO maquinarian.ma_adjunto_orden_trabajo (no_orden_trabajo, archivo) VALUES ($1, $2)").
		WithArgs(int64(42), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := sampleRequest()
	res, err := svc.Insert(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, &Result{NoOrdenTrabajo: "42", CorrelativoOt: "OT-01-0042"}, res)
	assert.NoError(t, mock.ExpectationsWereMet())

	// the caller's rows are left as submitted
	assert.Equal(t, "0", req.Encabezado.Values[1].Value)
}

func TestInsertWithoutAttachments(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t, pg.ShimOptions{})

	mock.ExpectQuery(sequenceSQL).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("1"))
	mock.ExpectQuery(correlativeSQL).WithArgs(int64(7), int64(1), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("X-1"))
	mock.ExpectExec("INSERT INTO ot (no_orden_trabajo) VALUES ($1)").
		WithArgs("1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := svc.Insert(ctx, Request{
		Encabezado: &pg.RowDescriptor{TableName: "ot", Columns: []string{"no_orden_trabajo"}, Values: []pg.TypedValue{{Type: "STRING", Value: "?"}}},
		Detalle:    []pg.RowDescriptor{},
		Parametros: map[string]any{"empresa": 7, "area": "1", "tipo_ot": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", res.NoOrdenTrabajo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMalformed(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t, pg.ShimOptions{})

	req := sampleRequest()
	req.Encabezado = nil
	_, err := svc.Insert(ctx, req)
	assert.ErrorIs(t, err, pg.ErrMalformed)

	req = sampleRequest()
	req.Detalle = nil
	_, err = svc.Insert(ctx, req)
	assert.ErrorIs(t, err, pg.ErrMalformed)

	req = sampleRequest()
	req.Parametros = nil
	_, err = svc.Insert(ctx, req)
	assert.ErrorIs(t, err, pg.ErrMalformed)

	req = sampleRequest()
	req.Parametros = map[string]any{"empresa": "uno", "area": "1", "tipo_ot": "1"}
	_, err = svc.Insert(ctx, req)
	assert.ErrorIs(t, err, pg.ErrParse)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t, pg.ShimOptions{})

	mock.ExpectQuery(sequenceSQL).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("5"))
	mock.ExpectQuery(correlativeSQL).WithArgs(int64(1), int64(3), int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"text"}).AddRow("C-5"))
	mock.ExpectExec("INSERT INTO maquinarian.ma_maestro_orden_trabajo (id_empresa, no_orden_trabajo, correlativo_ot) VALUES ($1, $2, $3)").
		WithArgs(int64(1), int64(5), "C-5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO maquinarian.ma_detalle_orden_trabajo (NO_ORDEN_TRABAJO, descripcion) VALUES ($1, $2)").
		WithArgs(int64(5), "cambio de aceite").
		WillReturnError(errors.New("foreign key violation"))

	_, err := svc.Insert(ctx, sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detalle 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, mock := newTestService(t, pg.ShimOptions{AtomicInserts: true})

	mock.ExpectBegin()
	mock.ExpectQuery(sequenceSQL).WithArgs(int64(1)).
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := svc.Insert(ctx, sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next work order number")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewServiceRejectsBadNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorrelativeFunc = "f(); drop table x"
	_, err := NewService(nil, cfg, nil)
	assert.ErrorIs(t, err, pg.ErrInvalidIdentifier)
}

func TestDecodeParams(t *testing.T) {
	p, err := DecodeParams(map[string]any{"empresa": "010", "area": 2.0, "tipo_ot": " 3 "})
	require.NoError(t, err)
	assert.Equal(t, Params{Empresa: 10, Area: 2, TipoOt: 3}, p)

	_, err = DecodeParams(map[string]any{"empresa": "1", "area": "2"})
	assert.ErrorIs(t, err, pg.ErrParse)
	_, err = DecodeParams(map[string]any{"empresa": 1.9, "area": "2", "tipo_ot": "3"})
	assert.ErrorIs(t, err, pg.ErrParse)

	_, err = DecodeParams(map[string]any{"empresa": "1.0", "area": "2", "tipo_ot": "3"})
	assert.ErrorIs(t, err, pg.ErrParse)

	p, err = DecodeParams(map[string]any{"empresa": 4.0, "area": int64(5), "tipo_ot": "6"})
	require.NoError(t, err)
	assert.Equal(t, Params{Empresa: 4, Area: 5, TipoOt: 6}, p)
}

func TestStamp(t *testing.T) {
	row := pg.RowDescriptor{
		TableName: "t",
		Columns:   []string{"Correlativo_OT", "no_orden_trabajo", "otro"},
		Values:    []pg.TypedValue{{Type: "STRING", Value: "a"}, {Type: "INTEGER", Value: "null"}},
	}
	got := stamp(row, Result{NoOrdenTrabajo: "9", CorrelativoOt: "C-9"})
	assert.Equal(t, []pg.TypedValue{{Type: "STRING", Value: "C-9"}, {Type: "INTEGER", Value: "9"}}, got.Values)
	assert.Equal(t, "a", row.Values[0].Value)
}
