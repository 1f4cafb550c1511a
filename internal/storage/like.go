package storage

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in s so it matches literally when used
// with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
