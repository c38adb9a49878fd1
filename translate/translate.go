package translate

// Options configures one run of the pipeline.
type Options struct {
	CasePolicy IdentifierCasePolicy
}

// Result is the output of translating one client-supplied statement.
type Result struct {
	SQL        string
	ParamOIDs  map[int]uint32 // 1-based parameter position -> inferred OID
	ParamCount int
	Aliases    []string
}

// Translate runs the fixed eight-stage pipeline over sql, per spec.md
// §4.4. Every stage is pure and idempotent, so running Translate again on
// a Result.SQL it already produced is a no-op.
func Translate(sql string, paramCount int, opts Options) *Result {
	paramOIDs := make(map[int]uint32, paramCount)

	out := stageSemicolon(sql)
	aliases := extractAliases(out)
	out = stageCast(out, paramOIDs)
	out = stageParams(out)
	out = stageVector(out)
	out = stageTopN(out)
	out = stageIdentifier(out, opts.CasePolicy)
	finalizeParamOIDs(paramOIDs, paramCount)

	return &Result{
		SQL:        out,
		ParamOIDs:  paramOIDs,
		ParamCount: paramCount,
		Aliases:    aliases,
	}
}
