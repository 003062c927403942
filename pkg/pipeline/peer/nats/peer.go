package nats

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const defaultSubjectPrefix = "dbrest"

// PeerNATS publishes events to NATS subjects
type PeerNATS struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
	Config Config
}

var errConnNotInitialized = errors.New("NATS connection not initialized")

// Config represents NATS configuration
type Config struct {
	Servers       []string `json:"servers"`
	Stream        string   `json:"stream,omitempty"`
	SubjectPrefix string   `json:"subjectPrefix"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"password,omitempty"`
	TLS           struct {
		Enabled  bool   `json:"enabled"`
		CertFile string `json:"certFile,omitempty"`
		KeyFile  string `json:"keyFile,omitempty"`
		CAFile   string `json:"caFile,omitempty"`
	} `json:"tls,omitempty"`
}

// Connect establishes a connection to the NATS server
func (p *PeerNATS) Connect(config json.RawMessage, args ...any) error {
	if err := json.Unmarshal(config, &p.Config); err != nil {
		return fmt.Errorf("unmarshal NATS config: %w", err)
	}
	p.logger = pipeline.LoggerFromArgs(args)

	if len(p.Config.Servers) == 0 {
		p.Config.Servers = []string{nats.DefaultURL}
	}
	p.Config.SubjectPrefix = cmp.Or(p.Config.SubjectPrefix, defaultSubjectPrefix)

	nc, err := nats.Connect(strings.Join(p.Config.Servers, ","), defaultOptions(p.Config, p.logger)...)
	if err != nil {
		return fmt.Errorf("connect to NATS server: %w", err)
	}
	p.nc = nc

	if p.Config.Stream == "" {
		return nil
	}

	if p.js, err = nc.JetStream(); err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return fmt.Errorf("ensure stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event is published to.
func (p *PeerNATS) Subject(event cdc.Event) string {
	return Subject(cmp.Or(p.Config.SubjectPrefix, defaultSubjectPrefix), event)
}

// Subject joins prefix with the event's schema, table and operation.
func Subject(prefix string, event cdc.Event) string {
	return fmt.Sprintf("%s.%s.%s.%s",
		prefix,
		event.Payload.Source.Schema,
		event.Payload.Source.Table,
		event.Payload.Op)
}

// Pub publishes a CDC event to NATS
func (p *PeerNATS) Pub(event cdc.Event, _ ...any) error {
	if p.nc == nil {
		return errConnNotInitialized
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal CDC event: %w", err)
	}

	subject := p.Subject(event)
	if p.js != nil {
		_, err = p.js.Publish(subject, data)
	} else {
		err = p.nc.Publish(subject, data)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Disconnect flushes pending messages and closes the NATS connection
func (p *PeerNATS) Disconnect() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc = nil
	p.js = nil
	return err
}

// ensureStream creates the stream if it does not exist yet
func (p *PeerNATS) ensureStream() error {
	_, err := p.js.StreamInfo(p.Config.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("get stream info: %w", err)
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     p.Config.Stream,
		Subjects: []string{p.Config.SubjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	p.logger.Info("created stream", zap.String("stream", p.Config.Stream))
	return nil
}

func defaultOptions(c Config, logger *zap.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name("dbrest"),
		nats.Timeout(5 * time.Second),
		nats.PingInterval(10 * time.Second),
		nats.MaxPingsOutstanding(3),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	if c.Username != "" && c.Password != "" {
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	if c.TLS.Enabled {
		if c.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(c.TLS.CAFile))
		}
		if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
			opts = append(opts, nats.ClientCert(c.TLS.CertFile, c.TLS.KeyFile))
		}
	}

	return opts
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorNATS, func() pipeline.Connector { return &PeerNATS{} })
}
