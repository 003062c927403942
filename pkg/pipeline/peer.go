package pipeline

// Peer is an event destination with an associated connector (ie NATS, Kafka, MQTT).
type Peer struct {
	Name          string `mapstructure:"name"`
	ConnectorName string `mapstructure:"connector"`
	// Config is handed to the connector as JSON, eg broker addresses and topic prefix.
	Config map[string]any `mapstructure:"config"`
	// Tables limits the peer to inserts into these tables. Empty means all tables.
	Tables []string `mapstructure:"tables"`
}

// Config lists the peers inserted rows are published to.
type Config struct {
	Peers []Peer `mapstructure:"peers"`
}

// GetPeer returns the peer called name, or nil.
func (c *Config) GetPeer(name string) *Peer {
	for i := range c.Peers {
		if c.Peers[i].Name == name {
			return &c.Peers[i]
		}
	}
	return nil
}
