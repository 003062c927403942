// Package mqtt publishes insert events to an MQTT broker.
//
// topic: prefix/SCHEMA/TABLE/OPERATION
// payload: the JSON encoded cdc.Event payload
//
// prefix defaults to dbrest and may contain slashes. Inserts use the c operation.
//
// Example:
//
//	mosquitto_sub -t 'dbrest/maquinarian/#'
package mqtt
