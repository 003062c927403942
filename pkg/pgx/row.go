package pgx

import (
	"bytes"
	"encoding/json"
)

// Field is one column of a result row.
type Field struct {
	Name  string
	Value string
}

// Row is a result row that keeps its columns in request order. It marshals to
// a JSON object whose keys appear in that order.
type Row struct {
	Fields []Field
}

// Set assigns value to name. A name that is already present keeps its
// position and takes the new value.
func (r *Row) Set(name, value string) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RowSet is the result of a select: the table it came from and its rows in
// the order the database returned them.
type RowSet struct {
	TableName string `json:"tableName"`
	Rows      []Row  `json:"rows"`
}
