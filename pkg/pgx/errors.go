package pgx

import "errors"

var (
	ErrUnsupportedType   = errors.New("unsupported value type")
	ErrParse             = errors.New("parse error")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrTableNotAllowed   = errors.New("table not allowed")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrMalformed         = errors.New("malformed request")
)
