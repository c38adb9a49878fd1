package translate

import "strings"

// stageCast rewrites "$n::type" into "CAST(?n AS IRISTYPE)" placeholders
// (kept as "$n" internally so stageParams can still find and number them)
// and records the inferred OID for parameter n in paramOIDs. Must run
// before stageParams, which converts any remaining bare "$n" to "?".
//
// Idempotent: once a placeholder has been rewritten to CAST(...), the "::"
// marker is gone, so a second pass over the same output makes no further
// change.
func stageCast(sql string, paramOIDs map[int]uint32) string {
	return mapCode(sql, func(code string) string {
		var sb strings.Builder
		i := 0
		for i < len(code) {
			if code[i] == '$' && i+1 < len(code) && isDigit(code[i+1]) {
				start := i
				j := i + 1
				for j < len(code) && isDigit(code[j]) {
					j++
				}
				paramNum := code[start+1 : j]
				if j+1 < len(code) && code[j] == ':' && code[j+1] == ':' {
					typeStart := j + 2
					k, typeName := scanCastTypeName(code, typeStart)
					if typeName != "" {
						if oid, ok := oidForCastType(typeName); ok {
							if n, err := atoiSafe(paramNum); err == nil {
								paramOIDs[n] = oid
							}
						}
						sb.WriteString("CAST($")
						sb.WriteString(paramNum)
						sb.WriteString(" AS ")
						sb.WriteString(irisTypeFor(typeName))
						sb.WriteString(")")
						i = k
						continue
					}
				}
				sb.WriteString(code[start:j])
				i = j
				continue
			}
			sb.WriteByte(code[i])
			i++
		}
		return sb.String()
	})
}

// multiWordCastTypeSecond lists the second word of the cast type names that
// are written as two bare identifiers, e.g. "double precision",
// "character varying". Anything else stops at a single identifier token, so
// a trailing "AS v" alias or "AND name" clause is never folded into the
// type name.
var multiWordCastTypeSecond = map[string]string{
	"double":    "precision",
	"character": "varying",
}

// scanCastTypeName scans a single type token starting at code[start], and
// if that token is the first word of a known two-word type name, also
// consumes the matching second word. It returns the offset in code just
// past the consumed type name and the name itself.
func scanCastTypeName(code string, start int) (end int, name string) {
	i := start
	for i < len(code) && isIdentByte(code[i]) {
		i++
	}
	first := code[start:i]
	if second, ok := multiWordCastTypeSecond[strings.ToLower(first)]; ok {
		j := i
		for j < len(code) && code[j] == ' ' {
			j++
		}
		k := j
		for k < len(code) && isIdentByte(code[k]) {
			k++
		}
		if strings.EqualFold(code[j:k], second) {
			return k, code[start:k]
		}
	}
	return i, first
}

func atoiSafe(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotDigits
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

var errNotDigits = stageCastError("translate: not a digit string")

type stageCastError string

func (e stageCastError) Error() string { return string(e) }
