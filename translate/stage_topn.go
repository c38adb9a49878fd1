package translate

import (
	"regexp"
	"strings"
)

// limitRE matches a trailing "LIMIT n" clause (optionally preceded by an
// OFFSET, which IRIS's TOP doesn't support directly and this gateway
// leaves for the caller to reject, per spec.md's documented limitation).
var limitRE = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*$`)

// stageTopN rewrites a trailing "... SELECT ... LIMIT n" into IRIS's
// "SELECT TOP n ...", since IRIS has no LIMIT clause. It only recognizes a
// LIMIT at the very end of the statement (after any WHERE/GROUP
// BY/ORDER BY), which is the common case a query translator needs to
// handle on the hot path; anything more exotic (LIMIT combined with
// OFFSET) is intentionally not rewritten and is surfaced as a query error
// by the backend instead of silently producing wrong results.
//
// Idempotent: once rewritten, the statement has no "LIMIT n" text left to
// match.
func stageTopN(sql string) string {
	return mapCode(sql, func(code string) string {
		m := limitRE.FindStringSubmatchIndex(code)
		if m == nil {
			return code
		}
		n := code[m[2]:m[3]]
		withoutLimit := strings.TrimRight(code[:m[0]], " \t\n\r")
		return insertTopN(withoutLimit, n)
	})
}

// insertTopN inserts "TOP n" immediately after the first top-level SELECT
// keyword (and after DISTINCT, if present), so
// "SELECT DISTINCT a FROM t" + "5" becomes "SELECT DISTINCT TOP 5 a FROM t".
func insertTopN(sql, n string) string {
	idx := findKeyword(sql, "SELECT")
	if idx < 0 {
		return sql
	}
	after := idx + len("SELECT")
	rest := sql[after:]
	trimmedRest := strings.TrimLeft(rest, " \t\n\r")
	skipped := len(rest) - len(trimmedRest)
	insertAt := after + skipped
	if distIdx := findKeyword(sql[insertAt:], "DISTINCT"); distIdx == 0 {
		insertAt += len("DISTINCT")
		rest2 := sql[insertAt:]
		trimmed2 := strings.TrimLeft(rest2, " \t\n\r")
		insertAt += len(rest2) - len(trimmed2)
	}
	return sql[:insertAt] + "TOP " + n + " " + sql[insertAt:]
}

// findKeyword finds a case-insensitive whole-word match of kw at the start
// of s (ignoring leading whitespace), returning its index or -1.
func findKeyword(s, kw string) int {
	trimmed := strings.TrimLeft(s, " \t\n\r")
	skip := len(s) - len(trimmed)
	if len(trimmed) < len(kw) {
		return -1
	}
	if !strings.EqualFold(trimmed[:len(kw)], kw) {
		return -1
	}
	if len(trimmed) > len(kw) && isIdentByte(trimmed[len(kw)]) {
		return -1
	}
	return skip
}
