package pgx

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueType is the declared type of a TypedValue. It decides how the string
// value is converted before it is bound to a statement parameter.
type ValueType string

const (
	TypeInteger ValueType = "INTEGER"
	TypeString  ValueType = "STRING"
	TypeDate    ValueType = "DATE"
	TypeFloat   ValueType = "FLOAT"
	TypeBlob    ValueType = "BLOB"
)

// nullLiteral is the value that stands for SQL NULL regardless of type.
const nullLiteral = "null"

// ParseValueType resolves a type tag case-insensitively.
func ParseValueType(tag string) (ValueType, error) {
	switch t := ValueType(strings.ToUpper(strings.TrimSpace(tag))); t {
	case TypeInteger, TypeString, TypeDate, TypeFloat, TypeBlob:
		return t, nil
	default:
		return "", fmt.Errorf("Unsupported Value: %s: %w", tag, ErrUnsupportedType)
	}
}

// TypedValue is a value transmitted as a string together with the type it must be bound as.
// Dates are epoch milliseconds, blobs are standard base64.
type TypedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IsNull reports whether the value is the null literal.
func (v TypedValue) IsNull() bool {
	return strings.EqualFold(v.Value, nullLiteral)
}

// Null is a SQL NULL standing in for a value of Type. It encodes as NULL
// through driver.Valuer and keeps the type around for logging and tests.
type Null struct {
	Type ValueType
}

// Value implements driver.Valuer.
func (Null) Value() (driver.Value, error) {
	return nil, nil
}

func (n Null) String() string {
	return "NULL(" + string(n.Type) + ")"
}

// Bind converts v into a statement argument according to its declared type.
func Bind(v TypedValue) (any, error) {
	t, err := ParseValueType(v.Type)
	if err != nil {
		return nil, err
	}

	if v.IsNull() {
		return Null{Type: t}, nil
	}

	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: integer %q: %v", ErrParse, v.Value, err)
		}
		return n, nil
	case TypeString:
		return v.Value, nil
	case TypeDate:
		ms, err := strconv.ParseInt(strings.TrimSpace(v.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q is not epoch milliseconds: %v", ErrParse, v.Value, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: float %q: %v", ErrParse, v.Value, err)
		}
		return f, nil
	case TypeBlob:
		b, err := base64.StdEncoding.DecodeString(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: blob is not base64: %v", ErrParse, err)
		}
		return b, nil
	}

	// unreachable, ParseValueType rejects everything else
	return nil, fmt.Errorf("Unsupported Value: %s: %w", v.Type, ErrUnsupportedType)
}

// BindAll binds values in order. The first failure aborts and reports its 1-based position.
func BindAll(values []TypedValue) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		arg, err := Bind(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		args[i] = arg
	}
	return args, nil
}
