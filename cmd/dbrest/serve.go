package dbrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/edgeflare/dbrest/pkg/config"
	"github.com/edgeflare/dbrest/pkg/httputil"
	mw "github.com/edgeflare/dbrest/pkg/httputil/middleware"
	"github.com/edgeflare/dbrest/pkg/metrics"
	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/rest"
	"github.com/edgeflare/dbrest/pkg/workorder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Register built-in connectors
	_ "github.com/edgeflare/dbrest/pkg/pipeline/peer/debug"
	_ "github.com/edgeflare/dbrest/pkg/pipeline/peer/kafka"
	_ "github.com/edgeflare/dbrest/pkg/pipeline/peer/mqtt"
	_ "github.com/edgeflare/dbrest/pkg/pipeline/peer/nats"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"rest"},
		Short:   "Start the REST API server",
		Long:    `Starts the HTTP server exposing isOnline, getDataFromTable, insertDataIntoTable and insertOrdenTrabajo`,
		RunE:    runServe,
	}

	f := cmd.Flags()
	f.StringP("conn-string", "c", "", "PostgreSQL connection string")
	f.StringP("listen-addr", "l", "", "REST server listen address")
	f.String("base-url", "", "Base URL for API endpoints")
	return cmd
}

// newRouter wires the endpoints and the middleware stack around src.
func newRouter(cfg *config.Config, src pg.ConnSource, sink pg.EventSink, logger *zap.Logger) (*httputil.Router, error) {
	nullText := cfg.REST.NullPlaceholder
	shim := pg.NewShim(src, pg.ShimOptions{
		Logger:          logger,
		NullText:        &nullText,
		Serialize:       cfg.REST.Serialize,
		AtomicInserts:   cfg.REST.AtomicInserts,
		ValidateFilters: cfg.REST.ValidateFilters,
		AllowedTables:   pg.NewTableAllowList(cfg.REST.AllowedTables...),
		Sink:            sink,
		Observe:         metrics.ObserveQuery,
	})

	workOrders, err := workorder.NewService(shim, cfg.WorkOrder, logger)
	if err != nil {
		return nil, err
	}

	server := rest.NewServer(shim, workOrders,
		rest.WithBaseURL(cfg.REST.BaseURL),
		rest.WithLogger(logger),
	)

	limit := cfg.REST.RateLimit
	limit.OnLimit = server.OnLimit

	router := httputil.NewRouter(httputil.WithLogger(logger))
	router.Use(mw.RequestID)
	// the request logger reads the request ID and is read by everything after it
	if !strings.EqualFold(cfg.LogLevel, logLevelNone) {
		router.Use(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}
	router.Use(
		mw.Recover(logger, server.OnPanic),
		mw.Metrics(metrics.Requests),
		mw.CORSWithOptions(cfg.REST.CORS),
		mw.RateLimit(limit),
	)
	server.Register(router)

	return router, nil
}

// countInserts feeds the rows inserted counter.
func countInserts(_ context.Context, rows []pg.InsertedRow) {
	for _, row := range rows {
		metrics.CountInsert(row.TableName)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.File != "" {
		logger.Info("using config file", zap.String("file", cfg.File))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{
			Addr:   cfg.Metrics.Addr,
			Path:   cfg.Metrics.Path,
			Logger: logger,
		})
	}

	holder := pg.NewHolder(pg.PoolConfig{
		ConnString:     cfg.REST.PG.ConnString,
		MaxConns:       cfg.REST.PG.MaxConns,
		ConnectTimeout: cfg.REST.PG.ConnectTimeout,
	}, logger)
	defer holder.Close()

	// a failure here is retried, once per attempt, by later requests
	if _, err := holder.Connect(ctx); err != nil {
		logger.Warn("database not available at startup", zap.Error(err))
	}

	manager := pipeline.NewManager(logger)
	if err := manager.Init(&cfg.Pipeline); err != nil {
		return fmt.Errorf("failed to initialize peers: %w", err)
	}
	defer manager.Close()

	router, err := newRouter(cfg, holder, pg.Sinks(pg.SinkFunc(countInserts), manager), logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := router.ListenAndServe(cfg.REST.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received termination signal, shutting down")
	case err = <-errChan:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.REST.ShutdownTimeout)
	defer cancel()

	if serr := router.Shutdown(shutdownCtx); serr != nil {
		logger.Error("server shutdown error", zap.Error(serr))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}
