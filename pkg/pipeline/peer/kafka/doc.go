// Package kafka publishes insert events to Kafka.
//
// Kafka topic naming conventions:
//   - Case-sensitive, no spaces
//   - Valid chars: alphanumeric, `.`, `-`, `_`
//   - Recommended max length: 249 bytes
//
// Events go to the `[prefix].[schema_name].[table_name].[operation]` topic,
// where prefix defaults to dbrest. Inserts use the `c` operation, eg
// dbrest.public.clientes.c
//
// Message Format:
//   - Value: the JSON encoded cdc.Event
//   - Headers: op and the schema qualified table
//
// Topics are expected to exist or be auto-created by the brokers.
//
// SASL supports SCRAM-SHA-256, SCRAM-SHA-512 and PLAIN.
package kafka
