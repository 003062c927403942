package pgx

import (
	"fmt"
	"regexp"
	"strings"
)

// identRe matches a plain or schema-qualified SQL name. Names are emitted
// unquoted so they fold the way the database folds them.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*(\.[A-Za-z_][A-Za-z0-9_$#]*)?$`)

// ValidIdentifier reports whether name can be placed in a statement verbatim.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// checkIdentifier returns name unchanged if it is valid.
func checkIdentifier(kind, name string) (string, error) {
	if !ValidIdentifier(name) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
	}
	return name, nil
}

// checkColumns validates every column and returns them joined for a column list.
func checkColumns(columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: no columns", ErrMalformed)
	}
	for _, c := range columns {
		if _, err := checkIdentifier("column", c); err != nil {
			return "", err
		}
	}
	return strings.Join(columns, ", "), nil
}

// TableAllowList restricts which tables may be named in a request.
// An empty list allows every valid identifier.
type TableAllowList map[string]struct{}

// NewTableAllowList builds an allow list. Matching is case-insensitive.
func NewTableAllowList(tables ...string) TableAllowList {
	if len(tables) == 0 {
		return nil
	}
	l := make(TableAllowList, len(tables))
	for _, t := range tables {
		t = strings.TrimSpace(t)
		if t != "" {
			l[strings.ToLower(t)] = struct{}{}
		}
	}
	return l
}

// Check validates table as an identifier and against the list.
func (l TableAllowList) Check(table string) (string, error) {
	if _, err := checkIdentifier("table", table); err != nil {
		return "", err
	}
	if len(l) == 0 {
		return table, nil
	}
	if _, ok := l[strings.ToLower(table)]; !ok {
		return "", fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}
	return table, nil
}
