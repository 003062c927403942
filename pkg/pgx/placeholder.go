package pgx

import (
	"strconv"
	"strings"
)

// Rebind rewrites positional '?' markers in a SQL fragment into $1..$n and
// returns the number of markers found. Markers inside single-quoted literals,
// double-quoted identifiers, -- line comments and /* */ block comments are
// left alone. E'' backslash escapes and $$ dollar quoting are not recognized;
// a fragment using them must not carry '?' inside them.
func Rebind(fragment string) (string, int) {
	var b strings.Builder
	b.Grow(len(fragment) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case quote != 0:
			// a doubled quote is an escaped quote and keeps us inside
			if c == quote {
				if i+1 < len(fragment) && fragment[i+1] == quote {
					b.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '-' && strings.HasPrefix(fragment[i:], "--"):
			end := strings.IndexByte(fragment[i:], '\n')
			if end < 0 {
				end = len(fragment) - i
			}
			b.WriteString(fragment[i : i+end])
			i += end - 1
		case c == '/' && strings.HasPrefix(fragment[i:], "/*"):
			end := strings.Index(fragment[i+2:], "*/")
			if end < 0 {
				end = len(fragment) - i
			} else {
				end += 4
			}
			b.WriteString(fragment[i : i+end])
			i += end - 1
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), n
}
