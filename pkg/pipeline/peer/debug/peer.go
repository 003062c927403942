// Package debug provides a connector that logs every event instead of
// delivering it anywhere.
package debug

import (
	"encoding/json"
	"fmt"

	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"go.uber.org/zap"
)

// Config selects what gets logged.
type Config struct {
	// Payload adds the row image to each log entry.
	Payload bool `json:"payload"`
}

// PeerDebug is a debug peer that logs the data to the console
type PeerDebug struct {
	Config Config
	logger *zap.Logger
}

func (p *PeerDebug) Connect(config json.RawMessage, args ...any) error {
	if len(config) > 0 && string(config) != "null" {
		if err := json.Unmarshal(config, &p.Config); err != nil {
			return fmt.Errorf("unmarshal debug config: %w", err)
		}
	}
	p.logger = pipeline.LoggerFromArgs(args)
	return nil
}

func (p *PeerDebug) Pub(event cdc.Event, _ ...any) error {
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	fields := []zap.Field{
		zap.String("schema", event.Payload.Source.Schema),
		zap.String("table", event.Payload.Source.Table),
		zap.String("op", string(event.Payload.Op)),
		zap.Int64("ts_ms", event.Payload.TsMs),
	}
	if p.Config.Payload {
		fields = append(fields, zap.Any("after", event.Payload.After))
	}
	p.logger.Info(pipeline.ConnectorDebug, fields...)
	return nil
}

func (p *PeerDebug) Disconnect() error {
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorDebug, func() pipeline.Connector { return &PeerDebug{} })
}
