// Package nats publishes insert events to NATS.
//
// NATS subject (aka topic) patterns:
//   - Case-sensitive, dot-separated, no spaces
//   - Valid chars: alphanumeric, `-` or `_`
//   - Max length: 255 bytes
//
// Events go to `prefix.schema_name.table_name.operation`, where prefix
// defaults to dbrest and may itself be dot-separated.
//
// Examples:
//   - dbrest.public.clientes.c
//   - erp.dbrest.maquinarian.ma_maestro_orden_trabajo.c
//
// Payload: the JSON encoded cdc.Event
//
// With a stream configured, events are published through JetStream and the
// stream is created when missing.
package nats
