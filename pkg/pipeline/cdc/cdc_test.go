package cdc

import (
	"encoding/json"
	"testing"

	"github.com/edgeflare/dbrest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBuilder(t *testing.T) {
	src := NewSourceBuilder("dbrest", "dbrest").
		WithDatabase("erp").
		WithSchema("ventas").
		WithTable("clientes").
		WithTimestamp(1700000000000).
		Build()

	ev := NewEventBuilder().
		WithSource(src).
		WithOperation(OpCreate).
		WithAfter(map[string]any{"id": 1}).
		WithTimestamp(1700000000000).
		Build()

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	payload := got["payload"].(map[string]any)
	assert.Equal(t, "c", payload["op"])
	assert.Nil(t, payload["before"])
	assert.Equal(t, map[string]any{"id": 1.0}, payload["after"])
	source := payload["source"].(map[string]any)
	assert.Equal(t, "ventas", source["schema"])
	assert.Equal(t, "clientes", source["table"])
	assert.Equal(t, "erp", source["db"])
	assert.Equal(t, "struct", got["schema"].(map[string]any)["type"])
}

// TestDebeziumConformance reads a Debezium insert event into Event.
func TestDebeziumConformance(t *testing.T) {
	var event Event
	raw, err := testutil.LoadJSON("cdc.json", &event)
	require.NoError(t, err)
	require.NotNil(t, raw["payload"])

	assert.Equal(t, OpCreate, event.Payload.Op)
	assert.Equal(t, "public", event.Payload.Source.Schema)
	assert.Equal(t, "clientes", event.Payload.Source.Table)
	assert.Equal(t, map[string]any{"id": 1.0, "nombre": "Ana"}, event.Payload.After)
}
