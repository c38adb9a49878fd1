package translate

import "strings"

// vectorOps maps pgvector's infix distance operators to the IRIS function
// that computes the same thing. "<#>" is documented by pgvector as
// *negated* inner product; this gateway's open-question decision (see
// SPEC_FULL.md §9) is to preserve that negation by wrapping the IRIS call
// rather than silently dropping the sign.
var vectorOps = []struct {
	op   string
	fn   string
	negate bool
}{
	{"<->", "VECTOR_L2", false},
	{"<=>", "VECTOR_COSINE", false},
	{"<#>", "VECTOR_DOT_PRODUCT", true},
}

// stageVector rewrites "a <op> b" into "VECTOR_FN(a, b)" (or
// "-VECTOR_FN(a, b)" for <#>). Operands are taken as the maximal
// parenthesis-balanced, non-comma token on either side, which covers
// identifiers, CAST(...) expressions, and dotted column references.
//
// Idempotent: its output contains none of the three operator tokens, so a
// second pass makes no change.
func stageVector(sql string) string {
	return mapCode(sql, func(code string) string {
		for _, vo := range vectorOps {
			code = rewriteVectorOp(code, vo.op, vo.fn, vo.negate)
		}
		return code
	})
}

func rewriteVectorOp(code, op, fn string, negate bool) string {
	for {
		idx := strings.Index(code, op)
		if idx < 0 {
			return code
		}
		left, leftStart := scanOperandLeft(code, idx)
		right, rightEnd := scanOperandRight(code, idx+len(op))
		call := fn + "(" + strings.TrimSpace(left) + ", " + strings.TrimSpace(right) + ")"
		if negate {
			call = "-" + call
		}
		code = code[:leftStart] + call + code[rightEnd:]
	}
}

// scanOperandLeft walks backward from idx over a parenthesis-balanced
// expression: an identifier/dotted-path, or a parenthesized group.
func scanOperandLeft(code string, idx int) (string, int) {
	i := idx
	for i > 0 && (code[i-1] == ' ' || code[i-1] == '\t') {
		i--
	}
	end := i
	depth := 0
	for i > 0 {
		c := code[i-1]
		switch {
		case c == ')':
			depth++
			i--
		case c == '(':
			if depth == 0 {
				i++
				goto done
			}
			depth--
			i--
		case depth > 0:
			i--
		case isIdentByte(c) || c == '.' || c == '$' || c == '\'':
			i--
		default:
			goto done
		}
	}
done:
	return code[i:end], i
}

func scanOperandRight(code string, idx int) (string, int) {
	i := idx
	for i < len(code) && (code[i] == ' ' || code[i] == '\t') {
		i++
	}
	start := i
	depth := 0
	for i < len(code) {
		c := code[i]
		switch {
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth == 0 {
				goto done
			}
			depth--
			i++
		case depth > 0:
			i++
		case isIdentByte(c) || c == '.' || c == '$' || c == '\'':
			i++
		default:
			goto done
		}
	}
done:
	return code[start:i], i
}
