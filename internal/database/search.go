package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE pattern matching q as a literal substring.
// Use it with `LIKE ? ESCAPE '\'`. SQLite's LIKE folds ASCII case only, so
// non-ASCII letters match when their case is exact.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
