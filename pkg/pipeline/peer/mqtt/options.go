package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// TLSOptions holds TLS configuration that can be marshaled from JSON/YAML
type TLSOptions struct {
	InsecureSkipVerify bool   `json:"insecureSkipVerify"`
	ServerName         string `json:"serverName,omitempty"`
	CAFile             string `json:"caFile,omitempty"`
	CertFile           string `json:"certFile,omitempty"`
	KeyFile            string `json:"keyFile,omitempty"`
	CACert             string `json:"caCert,omitempty"`
	ClientCert         string `json:"clientCert,omitempty"`
	ClientKey          string `json:"clientKey,omitempty"`
}

// Config is the MQTT peer configuration
type Config struct {
	Servers     []string    `json:"servers"`
	TopicPrefix string      `json:"topicPrefix"`
	ClientID    string      `json:"clientID"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	QoS         byte        `json:"qos"`
	Retained    bool        `json:"retained"`
	TLS         *TLSOptions `json:"tls,omitempty"`
	// ConnectTimeout in seconds, also bounds each publish
	ConnectTimeout int `json:"connectTimeout,omitempty"`
}

const (
	defaultServer      = "tcp://localhost:1883"
	defaultTopicPrefix = "dbrest"
	defaultTimeout     = 5 * time.Second
)

func (c *Config) timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return time.Duration(c.ConnectTimeout) * time.Second
	}
	return defaultTimeout
}

func (c *Config) setDefaults() {
	if len(c.Servers) == 0 {
		c.Servers = []string{defaultServer}
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = defaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "dbrest-" + uuid.NewString()[:8]
	}
}

// clientOptions converts c into paho options.
func (c *Config) clientOptions() (*mqtt.ClientOptions, error) {
	if c.QoS > 2 {
		return nil, fmt.Errorf("invalid QoS %d", c.QoS)
	}

	opts := mqtt.NewClientOptions()
	for _, server := range c.Servers {
		opts.AddBroker(server)
	}
	opts.SetClientID(c.ClientID)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetConnectTimeout(c.timeout())
	opts.SetWriteTimeout(c.timeout())
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	if c.TLS != nil {
		tlsConfig, err := createTLSConfig(c.TLS)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	return opts, nil
}

func createTLSConfig(tlsOpts *TLSOptions) (*tls.Config, error) {
	config := &tls.Config{
		InsecureSkipVerify: tlsOpts.InsecureSkipVerify,
		ServerName:         tlsOpts.ServerName,
	}

	if tlsOpts.CAFile != "" || tlsOpts.CACert != "" {
		caCert := []byte(tlsOpts.CACert)
		if tlsOpts.CAFile != "" {
			b, err := os.ReadFile(tlsOpts.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA file: %w", err)
			}
			caCert = b
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = pool
	}

	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case tlsOpts.CertFile != "" && tlsOpts.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(tlsOpts.CertFile, tlsOpts.KeyFile)
	case tlsOpts.ClientCert != "" && tlsOpts.ClientKey != "":
		cert, err = tls.X509KeyPair([]byte(tlsOpts.ClientCert), []byte(tlsOpts.ClientKey))
	default:
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	config.Certificates = []tls.Certificate{cert}

	return config, nil
}
