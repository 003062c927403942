package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	pg "github.com/edgeflare/dbrest/pkg/pgx"
	"github.com/go-playground/validator/v10"
)

// ErrEmptyRequest is returned for a select payload without any key.
var ErrEmptyRequest = errors.New("La peticion enviada esta vacia {}.")

// SelectPayload is the select query parameter.
type SelectPayload struct {
	TableName      string            `json:"tableName" validate:"required"`
	Columns        []string          `json:"columns" validate:"required,min=1,dive,required"`
	WhereCondition *string           `json:"whereCondition"`
	WhereValues    []json.RawMessage `json:"whereValues"`
}

// Request converts p for the shim. Where values are bound as their JSON
// text with every double quote removed, so "1" and 1 both bind as 1.
func (p SelectPayload) Request() pg.SelectRequest {
	req := pg.SelectRequest{TableName: p.TableName, Columns: p.Columns}
	if p.WhereCondition == nil {
		return req
	}
	req.Where = *p.WhereCondition
	req.Values = make([]string, len(p.WhereValues))
	for i, v := range p.WhereValues {
		req.Values[i] = strings.ReplaceAll(string(v), `"`, "")
	}
	return req
}

// InsertPayload is the insert query parameter of insertDataIntoTable.
type InsertPayload struct {
	Rows []pg.RowDescriptor `json:"rows" validate:"required,dive"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals raw into dst and validates it.
func decode(v *validator.Validate, raw string, dst any) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: %v", pg.ErrMalformed, err)
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// isEmptyObject reports whether raw is a JSON object without keys.
func isEmptyObject(raw string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return false
	}
	return obj != nil && len(obj) == 0
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", pg.ErrMalformed, err)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s element(s)", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", pg.ErrMalformed, strings.Join(msgs, "; "))
}
