// Package catalog answers a small, fixed set of client-introspection
// queries (server version probes, SHOW commands, pg_catalog lookups
// drivers send during connection setup) directly, without going anywhere
// near IRIS, mirroring the teacher's handleShowTQDBStatus special case.
package catalog

import (
	"strings"

	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

// Catalog holds the static answers this gateway serves locally.
type Catalog struct {
	serverVersion string
	entries       []entry
}

type entry struct {
	match   func(sql string) bool
	columns []backend.ColumnMeta
	row     []any
}

// New builds the standard catalog shim, reporting serverVersion in
// response to version probes.
func New(serverVersion string) *Catalog {
	c := &Catalog{serverVersion: serverVersion}
	c.entries = []entry{
		{
			match:   matchesAny("select version()", "select version();"),
			columns: []backend.ColumnMeta{{Name: "version", OID: typecodec.OIDText}},
			row:     []any{"PostgreSQL " + serverVersion + " (pgwire-iris)"},
		},
		{
			match:   matchesAny("show server_version", "show server_version;"),
			columns: []backend.ColumnMeta{{Name: "server_version", OID: typecodec.OIDText}},
			row:     []any{serverVersion},
		},
		{
			match:   matchesAny("show transaction isolation level", "show transaction isolation level;"),
			columns: []backend.ColumnMeta{{Name: "transaction_isolation", OID: typecodec.OIDText}},
			row:     []any{"read committed"},
		},
		{
			match:   matchesAny("select current_schema()", "select current_schema();"),
			columns: []backend.ColumnMeta{{Name: "current_schema", OID: typecodec.OIDText}},
			row:     []any{"SQLUser"},
		},
	}
	return c
}

// TryAnswer reports whether sql matches a catalog entry, and if so, the
// synthesized result to send instead of reaching the backend.
func (c *Catalog) TryAnswer(sql string) (*backend.Result, bool) {
	for _, e := range c.entries {
		if e.match(sql) {
			return &backend.Result{Columns: e.columns, Rows: [][]any{e.row}, Tag: "SELECT 1"}, true
		}
	}
	return nil, false
}

func matchesAny(forms ...string) func(string) bool {
	return func(sql string) bool {
		norm := strings.ToLower(strings.TrimSpace(sql))
		for _, f := range forms {
			if norm == f {
				return true
			}
		}
		return false
	}
}
