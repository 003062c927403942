package dbrest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/dbrest/pkg/config"
	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/spf13/cobra"
)

var errNotConnected = errors.New("database is not reachable")

// pingGrace is added to the connect timeout so the health query itself can finish.
const pingGrace = 5 * time.Second

func newPingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		Long:  `Runs the same health check as the isOnline endpoint and exits non-zero if it fails`,
		RunE:  runPing,
	}
	cmd.Flags().String("conn-string", "", "PostgreSQL connection string")
	return cmd
}

func runPing(cmd *cobra.Command, args []string) error {
	if cfg == nil || cfg.REST.PG.ConnString == "" {
		return config.ErrNoConnString
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.REST.PG.ConnectTimeout+pingGrace)
	defer cancel()

	holder := pg.NewHolder(pg.PoolConfig{
		ConnString:     cfg.REST.PG.ConnString,
		MaxConns:       1,
		ConnectTimeout: cfg.REST.PG.ConnectTimeout,
	}, logger)
	defer holder.Close()

	shim := pg.NewShim(holder, pg.ShimOptions{Logger: logger})
	if !shim.IsConnected(ctx) {
		return errNotConnected
	}

	fmt.Fprintln(cmd.OutOrStdout(), "connected")
	return nil
}
