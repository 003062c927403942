package pgx

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueType(t *testing.T) {
	for _, tag := range []string{"INTEGER", "integer", " Date ", "string", "FLOAT", "blob"} {
		_, err := ParseValueType(tag)
		assert.NoError(t, err, tag)
	}

	_, err := ParseValueType("BOOLEAN")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), "Unsupported Value: BOOLEAN")
}

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		in      TypedValue
		want    any
		wantErr error
	}{
		{name: "integer", in: TypedValue{"INTEGER", "42"}, want: int64(42)},
		{name: "negative integer", in: TypedValue{"INTEGER", "-7"}, want: int64(-7)},
		{name: "integer null", in: TypedValue{"INTEGER", "null"}, want: Null{Type: TypeInteger}},
		{name: "integer NULL upper", in: TypedValue{"INTEGER", "NULL"}, want: Null{Type: TypeInteger}},
		{name: "integer garbage", in: TypedValue{"INTEGER", "4x"}, wantErr: ErrParse},
		{name: "string", in: TypedValue{"STRING", "Ana"}, want: "Ana"},
		{name: "empty string", in: TypedValue{"STRING", ""}, want: ""},
		{name: "string null", in: TypedValue{"STRING", "Null"}, want: Null{Type: TypeString}},
		{name: "date", in: TypedValue{"DATE", "1700000000000"}, want: time.UnixMilli(1700000000000).UTC()},
		{name: "date null", in: TypedValue{"DATE", "null"}, want: Null{Type: TypeDate}},
		{name: "date not epoch", in: TypedValue{"DATE", "2024-01-01"}, wantErr: ErrParse},
		{name: "float", in: TypedValue{"FLOAT", "3.5"}, want: 3.5},
		{name: "float null", in: TypedValue{"FLOAT", "null"}, want: Null{Type: TypeFloat}},
		{name: "float garbage", in: TypedValue{"FLOAT", "three"}, wantErr: ErrParse},
		{name: "blob", in: TypedValue{"BLOB", "aGVsbG8="}, want: []byte("hello")},
		{name: "blob null", in: TypedValue{"BLOB", "null"}, want: Null{Type: TypeBlob}},
		{name: "blob not base64", in: TypedValue{"BLOB", "***"}, wantErr: ErrParse},
		{name: "unknown type", in: TypedValue{"BOOL", "true"}, wantErr: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bind(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNullEncodesAsNil(t *testing.T) {
	var v driver.Valuer = Null{Type: TypeBlob}
	got, err := v.Value()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "NULL(BLOB)", Null{Type: TypeBlob}.String())
}

func TestBindAll(t *testing.T) {
	args, err := BindAll([]TypedValue{{"INTEGER", "1"}, {"STRING", "x"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "x"}, args)

	_, err = BindAll([]TypedValue{{"INTEGER", "1"}, {"FLOAT", "nope"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "value 2")
}
