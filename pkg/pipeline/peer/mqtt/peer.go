package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
	"go.uber.org/zap"
)

var (
	errNotConnected   = errors.New("MQTT client not connected")
	errPublishTimeout = errors.New("MQTT publish timed out")
)

// publisher is the part of mqtt.Client the peer uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// PeerMQTT publishes events to MQTT topics
type PeerMQTT struct {
	client publisher
	logger *zap.Logger
	Config Config
}

func (p *PeerMQTT) Connect(config json.RawMessage, args ...any) error {
	if err := json.Unmarshal(config, &p.Config); err != nil {
		return fmt.Errorf("failed to unmarshal MQTT config: %w", err)
	}
	p.Config.setDefaults()
	p.logger = pipeline.LoggerFromArgs(args)

	opts, err := p.Config.clientOptions()
	if err != nil {
		return err
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.logger.Info("MQTT connected", zap.Strings("servers", p.Config.Servers))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(p.Config.timeout()) {
		client.Disconnect(0)
		return fmt.Errorf("broker connection error: timed out after %s", p.Config.timeout())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("broker connection error: %w", err)
	}

	p.client = client
	return nil
}

// Topic returns the topic an event is published to.
func (p *PeerMQTT) Topic(event cdc.Event) string {
	prefix := strings.Trim(p.Config.TopicPrefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return fmt.Sprintf("%s/%s/%s/%s", prefix, event.Payload.Source.Schema, event.Payload.Source.Table, event.Payload.Op)
}

func (p *PeerMQTT) Pub(event cdc.Event, _ ...any) error {
	if p.client == nil {
		return errNotConnected
	}

	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	token := p.client.Publish(p.Topic(event), p.Config.QoS, p.Config.Retained, data)
	if !token.WaitTimeout(p.Config.timeout()) {
		return errPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.Topic(event), err)
	}
	return nil
}

func (p *PeerMQTT) Disconnect() error {
	if p.client != nil {
		p.client.Disconnect(500)
		p.client = nil
	}
	return nil
}

func init() {
	pipeline.RegisterConnector(pipeline.ConnectorMQTT, func() pipeline.Connector { return &PeerMQTT{} })
}
