package translate

import "strings"

// IdentifierCasePolicy controls how unquoted identifiers are cased before
// reaching IRIS, per spec.md §6's configurable identifier case policy.
// IRIS itself is case-insensitive for unquoted identifiers but folds them
// to uppercase internally; PostgreSQL folds to lowercase. A client that
// assumes PostgreSQL's folding (e.g. writing `SELECT Foo FROM Bar`
// expecting it to match a lowercase-stored `foo`) needs this gateway to
// pick one folding and apply it consistently.
type IdentifierCasePolicy int

const (
	// CasePreserve leaves unquoted identifiers exactly as the client wrote
	// them; this is only correct when the IRIS schema's own identifiers
	// happen to match, and is the default for backward compatibility.
	CasePreserve IdentifierCasePolicy = iota
	CaseUpper
	CaseLower
)

// stageIdentifier folds bare (unquoted) identifiers to the configured case.
// It never touches string literals or quoted identifiers (mapCode already
// restricts it to regionCode spans, and a double-quoted identifier's case
// is significant in both PostgreSQL and IRIS), and it leaves SQL keywords
// alone since folding their case has no effect on parsing either dialect.
// Runs after stageParams/stageVector/stageTopN, so by this point every
// parameter placeholder is already "?" and never looks like a bare word.
func stageIdentifier(sql string, policy IdentifierCasePolicy) string {
	if policy == CasePreserve {
		return sql
	}
	return mapCode(sql, func(code string) string {
		var sb strings.Builder
		i := 0
		for i < len(code) {
			if isIdentStartByte(code[i]) {
				start := i
				i++
				for i < len(code) && isIdentByte(code[i]) {
					i++
				}
				word := code[start:i]
				if isSQLKeyword(word) {
					sb.WriteString(word)
				} else {
					sb.WriteString(foldIdentifier(word, policy))
				}
				continue
			}
			sb.WriteByte(code[i])
			i++
		}
		return sb.String()
	})
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func foldIdentifier(word string, policy IdentifierCasePolicy) string {
	switch policy {
	case CaseUpper:
		return strings.ToUpper(word)
	case CaseLower:
		return strings.ToLower(word)
	default:
		return word
	}
}

// sqlKeywords lists the reserved words and common clause/function keywords
// stageIdentifier leaves untouched. Not exhaustive, but covers the clauses
// and functions this translator's own stages and the spec's query
// scenarios actually produce or pass through.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"NOT": true, "AS": true, "DISTINCT": true, "ALL": true, "ANY": true,
	"IN": true, "IS": true, "NULL": true, "LIKE": true, "ILIKE": true,
	"BETWEEN": true, "ORDER": true, "BY": true, "GROUP": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "ASC": true, "DESC": true, "JOIN": true,
	"INNER": true, "OUTER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"ON": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true,
	"DELETE": true, "CREATE": true, "TABLE": true, "DROP": true,
	"ALTER": true, "INDEX": true, "VIEW": true, "BEGIN": true,
	"COMMIT": true, "ROLLBACK": true, "TRANSACTION": true, "SAVEPOINT": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"CAST": true, "EXISTS": true, "DEFAULT": true, "PRIMARY": true,
	"KEY": true, "FOREIGN": true, "REFERENCES": true, "UNIQUE": true,
	"CHECK": true, "CONSTRAINT": true, "WITH": true, "TRUE": true,
	"FALSE": true, "COUNT": true, "SUM": true, "AVG": true, "MIN": true,
	"MAX": true, "SHOW": true, "EXPLAIN": true, "COPY": true, "TO": true,
	"RETURNING": true, "USING": true,
}

func isSQLKeyword(word string) bool {
	return sqlKeywords[strings.ToUpper(word)]
}
