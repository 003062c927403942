package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edgeflare/dbrest/pkg/httputil"
	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/edgeflare/dbrest/pkg/workorder"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultBaseURL is where the endpoints are mounted unless configured otherwise.
const DefaultBaseURL = "/Service"

const (
	paramSelect = "select"
	paramInsert = "insert"
)

// Store is the data access the endpoints need. *pg.Shim satisfies it.
type Store interface {
	IsConnected(ctx context.Context) bool
	SelectRows(ctx context.Context, req pg.SelectRequest) (*pg.RowSet, error)
	InsertRows(ctx context.Context, rows []pg.RowDescriptor) error
}

// WorkOrders stores work orders. *workorder.Service satisfies it.
type WorkOrders interface {
	Insert(ctx context.Context, req workorder.Request) (*workorder.Result, error)
}

// Option configures a Server.
type Option func(*Server)

// WithBaseURL mounts the endpoints under base.
func WithBaseURL(base string) Option {
	return func(s *Server) {
		s.baseURL = base
	}
}

// WithLogger sets the logger used when a request carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Server struct {
	db         Store
	workOrders WorkOrders
	validate   *validator.Validate
	logger     *zap.Logger
	baseURL    string
}

func NewServer(db Store, workOrders WorkOrders, opts ...Option) *Server {
	s := &Server{
		db:         db,
		workOrders: workOrders,
		validate:   newValidator(),
		logger:     zap.NewNop(),
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseURL = "/" + strings.Trim(s.baseURL, "/")
	if s.baseURL == "/" {
		s.baseURL = ""
	}
	return s
}

// BaseURL returns the path prefix of the endpoints.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// Register mounts the endpoints on r.
func (s *Server) Register(r *httputil.Router) {
	g := r.Group(s.baseURL)
	g.HandleFunc("GET /isOnline", s.handleIsOnline)
	g.HandleFunc("GET /getDataFromTable", s.handleGetDataFromTable)
	g.HandleFunc("GET /insertDataIntoTable", s.handleInsertDataIntoTable)
	g.HandleFunc("GET /insertOrdenTrabajo", s.handleInsertOrdenTrabajo)
}

// Handler returns the endpoints on a router of their own.
func (s *Server) Handler() http.Handler {
	r := httputil.NewRouter(httputil.WithLogger(s.logger))
	s.Register(r)
	return r
}

func (s *Server) log(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(httputil.LogEntryCtxKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return s.logger
}

// fail writes the failure envelope for err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	level := zap.ErrorLevel
	if IsMalformed(err) {
		level = zap.WarnLevel
	}
	s.log(r.Context()).Log(level, "request failed",
		zap.String("endpoint", strings.TrimPrefix(r.URL.Path, s.baseURL)),
		zap.Error(err))
	httputil.JSON(w, http.StatusOK, NewFailure(TagResponse, err.Error()))
}

// OnPanic writes the failure envelope for a recovered panic.
func (s *Server) OnPanic(w http.ResponseWriter, r *http.Request, err error) {
	httputil.JSON(w, http.StatusOK, NewFailure(TagResponse, err.Error()))
}

// OnLimit writes the failure envelope for a rate limited request.
func (s *Server) OnLimit(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusTooManyRequests, NewFailure(TagResponse, http.StatusText(http.StatusTooManyRequests)))
}

func queryParam(r *http.Request, name string) (string, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return "", fmt.Errorf("%w: missing query parameter %s", pg.ErrMalformed, name)
	}
	return raw, nil
}

func (s *Server) handleIsOnline(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, NewEnvelope(TagResponse, s.db.IsConnected(r.Context())))
}

func (s *Server) handleGetDataFromTable(w http.ResponseWriter, r *http.Request) {
	raw, err := queryParam(r, paramSelect)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if isEmptyObject(raw) {
		s.fail(w, r, ErrEmptyRequest)
		return
	}

	var payload SelectPayload
	if err := decode(s.validate, raw, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	rs, err := s.db.SelectRows(r.Context(), payload.Request())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, SelectResult{
		Tag:       TagResponse,
		Status:    true,
		TableName: rs.TableName,
		Rows:      rs.Rows,
	})
}

func (s *Server) handleInsertDataIntoTable(w http.ResponseWriter, r *http.Request) {
	raw, err := queryParam(r, paramInsert)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var payload InsertPayload
	if err := decode(s.validate, raw, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.db.InsertRows(r.Context(), payload.Rows); err != nil {
		s.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, NewEnvelope(TagResponse, true))
}

func (s *Server) handleInsertOrdenTrabajo(w http.ResponseWriter, r *http.Request) {
	raw, err := queryParam(r, paramInsert)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log(r.Context()).Debug("insertOrdenTrabajo", zap.Int("payload_bytes", len(raw)))

	var req workorder.Request
	if err := decode(s.validate, raw, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.workOrders.Insert(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, WorkOrderResult{
		Tag:            TagResponse,
		Status:         true,
		NoOrdenTrabajo: res.NoOrdenTrabajo,
		CorrelativoOt:  res.CorrelativoOt,
	})
}

// IsMalformed reports whether err was caused by the request rather than the database.
func IsMalformed(err error) bool {
	return errors.Is(err, pg.ErrMalformed) || errors.Is(err, ErrEmptyRequest)
}
