package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"go.uber.org/zap"
)

// A Connector delivers events to one destination.
type Connector interface {
	// Connect initializes the connector with the provided configuration.
	// The config parameter is a raw JSON message containing connector-specific settings.
	// Additional arguments can be passed via the args parameter.
	Connect(config json.RawMessage, args ...any) error

	// Pub sends the given CDC event to the connector's destination.
	// It returns an error if the publish operation fails.
	Pub(event cdc.Event, args ...any) error

	Disconnect() error
}

// Factory returns a new, unconnected Connector.
type Factory func() Connector

// Predefined connectors
const (
	ConnectorDebug = "debug"
	ConnectorKafka = "kafka"
	ConnectorMQTT  = "mqtt"
	ConnectorNATS  = "nats"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterConnector makes a connector available under name. Registering the
// same name twice replaces the earlier factory.
func RegisterConnector(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// NewConnector returns a fresh connector registered under name.
func NewConnector(name string) (Connector, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector %s not found", name)
	}
	return f(), nil
}

// Connectors lists the registered connector names.
func Connectors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoggerFromArgs returns the first *zap.Logger in args, or a no-op logger.
func LoggerFromArgs(args []any) *zap.Logger {
	for _, arg := range args {
		if l, ok := arg.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.NewNop()
}
