package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mevdschee/pgwire-iris/typecodec"
)

// quoteLiteral renders a decoded parameter value as an IRIS SQL literal,
// for the degradation path documented in execmany.go where a param set
// cannot be bound directly (date/timestamp/vector parameters on the
// embedded API, per spec.md §4.3).
func quoteLiteral(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		return strconv.FormatInt(typecodec.GoBoolToIRIS(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case string:
		return quoteString(t), nil
	case time.Time:
		return quoteString(t.Format("2006-01-02 15:04:05.999999")), nil
	case typecodec.Vector:
		return fmt.Sprintf("TO_VECTOR('%s')", typecodec.FormatIRISVector(t)), nil
	}
	return "", fmt.Errorf("backend: cannot render %T as a literal", v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// substituteParams replaces positional "?" placeholders in sql with
// quoted literals from params, in order. It is only used on the
// literal-substitution fallback path and assumes sql has already been
// through the translation pipeline (so placeholders are "?", not "$n").
func substituteParams(sql string, params []any) (string, error) {
	var sb strings.Builder
	argIdx := 0
	inString := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == '\'' {
			inString = !inString
			sb.WriteByte(c)
			continue
		}
		if c == '?' && !inString {
			if argIdx >= len(params) {
				return "", fmt.Errorf("backend: not enough parameters for query")
			}
			lit, err := quoteLiteral(params[argIdx])
			if err != nil {
				return "", err
			}
			sb.WriteString(lit)
			argIdx++
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}
