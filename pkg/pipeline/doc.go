// Package pipeline publishes rows inserted through the REST API as CDC-style
// events to the configured `Peer`s (NATS, Kafka, MQTT or a debug log).
//
// Every peer type implements the `Connector` interface and registers a
// factory for itself from an init function, so importing a peer package is
// what makes its connector name usable in configuration.
package pipeline
