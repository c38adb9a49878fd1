package session

import "github.com/mevdschee/pgwire-iris/translate"

// PreparedStatement is the result of a Parse message: a translated
// statement plus the parameter OIDs the client bound it with (or, absent
// explicit OIDs, the ones the translator inferred from "::type" casts).
type PreparedStatement struct {
	Name       string
	RawSQL     string
	Translated *translate.Result
	ParamOIDs  []uint32
}

// Portal is the result of a Bind message against a PreparedStatement: a
// materialized set of parameter values plus the result-column format
// codes requested for the eventual Execute.
type Portal struct {
	Name          string
	Stmt          *PreparedStatement
	Params        []any
	ResultFormats []int16
	// Suspended holds the execution cursor state for a portal that has
	// been partially drained by an Execute with a nonzero row limit; a
	// follow-up Execute on the same portal resumes from here instead of
	// re-running the statement, per spec.md §4.5's PortalSuspended rule.
	Suspended bool
	Rows      [][]any
	RowCursor int
}

// unnamedStatement and unnamedPortal are the canonical keys for the
// unnamed prepared statement/portal, which Parse/Bind silently replace
// rather than erroring on redefinition (unlike a named statement, which
// is an error to redefine without a Close first).
const (
	unnamedStatement = ""
	unnamedPortal    = ""
)
