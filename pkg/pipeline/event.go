package pipeline

import (
	"strings"
	"time"

	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/edgeflare/dbrest/pkg/pipeline/cdc"
)

const (
	sourceConnector = "dbrest"
	defaultSchema   = "public"
)

// splitTable splits a possibly schema-qualified name. Names are folded to
// lower case, matching how the database stores unquoted identifiers.
func splitTable(name string) (schema, table string) {
	name = strings.ToLower(name)
	if s, t, ok := strings.Cut(name, "."); ok {
		return s, t
	}
	return defaultSchema, name
}

// afterImage maps each column to its inserted value. NULLs become nil.
func afterImage(row pg.InsertedRow) map[string]any {
	after := make(map[string]any, len(row.Columns))
	for i, col := range row.Columns {
		if i >= len(row.Values) {
			break
		}
		v := row.Values[i]
		if _, isNull := v.(pg.Null); isNull {
			v = nil
		}
		after[strings.ToLower(col)] = v
	}
	return after
}

// NewInsertEvent builds the create event for one inserted row.
func NewInsertEvent(row pg.InsertedRow, now time.Time) cdc.Event {
	schema, table := splitTable(row.TableName)
	ts := now.UnixMilli()

	source := cdc.NewSourceBuilder(sourceConnector, sourceConnector).
		WithSchema(schema).
		WithTable(table).
		WithTimestamp(ts).
		Build()

	return cdc.NewEventBuilder().
		WithSource(source).
		WithOperation(cdc.OpCreate).
		WithAfter(afterImage(row)).
		WithTimestamp(ts).
		Build()
}
