package pgx

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultNullText is what a NULL column renders as unless configured otherwise.
const DefaultNullText = " "

// dateMarker marks a column whose value is returned as epoch milliseconds.
const dateMarker = "fecha"

// IsDateColumn reports whether name is rendered as a date.
func IsDateColumn(name string) bool {
	return strings.Contains(name, dateMarker)
}

// renderer turns scanned column values into their response text.
type renderer struct {
	nullText string
}

func (r renderer) column(name string, v any) (string, error) {
	if IsDateColumn(name) {
		return r.date(name, v)
	}
	return r.value(v)
}

func (r renderer) date(name string, v any) (string, error) {
	t, valid, ok := asTime(v)
	if !ok {
		return "", fmt.Errorf("%w: column %s holds %T, not a date", ErrUnsupportedType, name, v)
	}
	if !valid {
		return r.nullText, nil
	}
	return strconv.FormatInt(t.UnixMilli(), 10), nil
}

func asTime(v any) (t time.Time, valid, ok bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, true
	case time.Time:
		return x, true, true
	case pgtype.Date:
		return x.Time, x.Valid, true
	case pgtype.Timestamp:
		return x.Time, x.Valid, true
	case pgtype.Timestamptz:
		return x.Time, x.Valid, true
	}
	return time.Time{}, false, false
}

func (r renderer) value(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return r.nullText, nil
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case map[string]any, []any:
		// json, jsonb and array columns
		b, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		return string(b), nil
	case pgtype.Numeric:
		if !x.Valid {
			return r.nullText, nil
		}
		// the text encoding is exponent form, the JSON one is plain decimal
		b, err := x.MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		return strings.Trim(string(b), `"`), nil
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv), nil
		}
		return r.value(dv)
	default:
		return fmt.Sprint(x), nil
	}
}
