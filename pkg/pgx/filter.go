package pgx

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// ValidateSelect parses sql and accepts it only if it is exactly one plain
// SELECT. Set operations, SELECT INTO and trailing statements are rejected,
// which is what keeps a free-text filter from widening into another query.
func ValidateSelect(sql string) error {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	if len(tree.GetStmts()) != 1 {
		return fmt.Errorf("%w: expected one statement, got %d", ErrInvalidFilter, len(tree.GetStmts()))
	}

	sel := tree.GetStmts()[0].GetStmt().GetSelectStmt()
	if sel == nil {
		return fmt.Errorf("%w: not a SELECT", ErrInvalidFilter)
	}
	if sel.GetOp() != pg_query.SetOperation_SETOP_NONE {
		return fmt.Errorf("%w: set operations are not allowed", ErrInvalidFilter)
	}
	if sel.GetIntoClause() != nil {
		return fmt.Errorf("%w: SELECT INTO is not allowed", ErrInvalidFilter)
	}
	return nil
}
