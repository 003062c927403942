package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgeflare/dbrest/pkg/metrics"
	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"go.uber.org/zap"
)

type activePeer struct {
	name      string
	connector Connector
	tables    map[string]struct{}
}

func (p *activePeer) wants(schema, table string) bool {
	if len(p.tables) == 0 {
		return true
	}
	_, full := p.tables[schema+"."+table]
	_, bare := p.tables[table]
	return full || bare
}

// Manager connects the configured peers and fans insert events out to them.
// Publish failures are logged and counted, never returned to the inserter.
type Manager struct {
	peers       []*activePeer
	logger      *zap.Logger
	retryDelays []time.Duration
	now         func() time.Time
}

// NewManager returns a Manager with no peers.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:      logger,
		retryDelays: []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second},
		now:         time.Now,
	}
}

// Init connects every peer in config. The first peer that cannot be
// connected after retries aborts Init and disconnects the ones before it.
func (m *Manager) Init(config *Config) error {
	m.logger.Info("initializing pipeline manager", zap.Int("peerCount", len(config.Peers)))

	for _, p := range config.Peers {
		if err := m.addPeer(p); err != nil {
			m.Close()
			return err
		}
	}

	m.logger.Info("initialized all peers", zap.Int("totalPeers", len(m.peers)))
	return nil
}

func (m *Manager) addPeer(p Peer) error {
	connector, err := NewConnector(p.ConnectorName)
	if err != nil {
		return fmt.Errorf("failed to add peer %s: %w", p.Name, err)
	}

	configJSON, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config for peer %s: %w", p.Name, err)
	}

	err = connector.Connect(configJSON, m.logger.With(zap.String("peer", p.Name)))
	for _, delay := range m.retryDelays {
		if err == nil {
			break
		}
		m.logger.Warn("retrying connection", zap.String("name", p.Name), zap.Duration("delay", delay), zap.Error(err))
		time.Sleep(delay)
		err = connector.Connect(configJSON, m.logger.With(zap.String("peer", p.Name)))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize connector %s: %w", p.Name, err)
	}

	active := &activePeer{name: p.Name, connector: connector}
	if len(p.Tables) > 0 {
		active.tables = make(map[string]struct{}, len(p.Tables))
		for _, t := range p.Tables {
			active.tables[strings.ToLower(t)] = struct{}{}
		}
	}
	m.peers = append(m.peers, active)

	m.logger.Info("connected peer", zap.String("name", p.Name), zap.String("connector", p.ConnectorName))
	return nil
}

// Peers returns the names of the connected peers.
func (m *Manager) Peers() []string {
	names := make([]string, len(m.peers))
	for i, p := range m.peers {
		names[i] = p.name
	}
	return names
}

// Publish sends event to every peer interested in its table.
func (m *Manager) Publish(ctx context.Context, event cdc.Event) {
	schema, table := event.Payload.Source.Schema, event.Payload.Source.Table
	for _, p := range m.peers {
		if ctx.Err() != nil {
			return
		}
		if !p.wants(schema, table) {
			continue
		}
		if err := p.connector.Pub(event); err != nil {
			metrics.PublishErrors.WithLabelValues(p.name).Inc()
			m.logger.Error("failed to publish event",
				zap.String("peer", p.name),
				zap.String("table", schema+"."+table),
				zap.Error(err))
		}
	}
}

// RowsInserted implements pg.EventSink.
func (m *Manager) RowsInserted(ctx context.Context, rows []pg.InsertedRow) {
	if len(m.peers) == 0 {
		return
	}
	now := m.now()
	for _, row := range rows {
		m.Publish(ctx, NewInsertEvent(row, now))
	}
}

// Close disconnects every peer.
func (m *Manager) Close() error {
	var errs []error
	for _, p := range m.peers {
		if err := p.connector.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", p.name, err))
		}
	}
	m.peers = nil
	return errors.Join(errs...)
}
