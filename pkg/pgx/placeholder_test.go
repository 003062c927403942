package pgx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		count int
	}{
		{"", "", 0},
		{"id = 1", "id = 1", 0},
		{"id = ?", "id = $1", 1},
		{"id = ? AND nombre = ?", "id = $1 AND nombre = $2", 2},
		{"nombre = '?' AND id = ?", "nombre = '?' AND id = $1", 1},
		{"nombre = 'it''s ?' AND id = ?", "nombre = 'it''s ?' AND id = $1", 1},
		{`"odd?col" = ?`, `"odd?col" = $1`, 1},
		{"id IN (?,?,?)", "id IN ($1,$2,$3)", 3},
		{"id = ? -- nombre = ?", "id = $1 -- nombre = ?", 1},
		{"id = ? -- why?\nAND nombre = ?", "id = $1 -- why?\nAND nombre = $2", 2},
		{"id = ? /* or ? */ AND nombre = ?", "id = $1 /* or ? */ AND nombre = $2", 2},
		{"id = ? /* unterminated ?", "id = $1 /* unterminated ?", 1},
		{"a - ? = 1", "a - $1 = 1", 1},
		{"a / ? = 1", "a / $1 = 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, n := Rebind(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, n)
		})
	}
}
