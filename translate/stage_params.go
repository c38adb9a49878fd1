package translate

// stageParams rewrites every remaining "$n" positional placeholder to "?",
// the form IRIS's bind APIs expect. Must run after stageCast so cast-typed
// placeholders have already been expanded to CAST($n AS ...) and are
// rewritten here too (the "$n" inside the CAST is still a placeholder).
//
// Idempotent: its output contains no "$n" sequences, so a second pass is a
// no-op.
func stageParams(sql string) string {
	return mapCode(sql, func(code string) string {
		out := make([]byte, 0, len(code))
		i := 0
		for i < len(code) {
			if code[i] == '$' && i+1 < len(code) && isDigit(code[i+1]) {
				j := i + 1
				for j < len(code) && isDigit(code[j]) {
					j++
				}
				out = append(out, '?')
				i = j
				continue
			}
			out = append(out, code[i])
			i++
		}
		return string(out)
	})
}
