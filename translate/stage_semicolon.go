package translate

import "strings"

// stageSemicolon trims every trailing statement terminator (and the
// whitespace around them), since IRIS SQL rejects a trailing semicolon on
// statements submitted through the embedded/pooled executor APIs.
// Idempotent: running it twice on its own output is a no-op because there
// is nothing left to trim.
func stageSemicolon(sql string) string {
	trimmed := strings.TrimRight(sql, " \t\n\r")
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, ";"), " \t\n\r")
	}
	return trimmed
}
