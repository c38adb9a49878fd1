package translate

import "testing"

func TestTranslateIdempotent(t *testing.T) {
	cases := []struct {
		sql        string
		paramCount int
	}{
		{"SELECT * FROM foo WHERE id = $1", 1},
		{"SELECT * FROM foo WHERE id = $1::int4 AND name = $2", 2},
		{"SELECT a, b FROM t ORDER BY a LIMIT 10", 0},
		{"SELECT embedding <-> $1::vector AS dist FROM docs ORDER BY dist LIMIT 5", 1},
		{"INSERT INTO t (a) VALUES ($1);", 1},
		{"SELECT 'a string with $1 inside it' AS s", 0},
		{"SELECT a FROM t -- trailing LIMIT 10 in a comment\n WHERE b = $1", 1},
	}
	for _, tc := range cases {
		first := Translate(tc.sql, tc.paramCount, Options{})
		second := Translate(first.SQL, tc.paramCount, Options{})
		if first.SQL != second.SQL {
			t.Errorf("not idempotent for %q:\n  first:  %q\n  second: %q", tc.sql, first.SQL, second.SQL)
		}
	}
}

func TestStageCastRewritesPlaceholder(t *testing.T) {
	res := Translate("SELECT * FROM t WHERE id = $1::int4", 1, Options{})
	if res.ParamOIDs[1] != 23 {
		t.Errorf("expected int4 cast to infer OID 23, got %d", res.ParamOIDs[1])
	}
	want := "SELECT * FROM t WHERE id = CAST(? AS INTEGER)"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageCastStopsAtSingleTypeToken(t *testing.T) {
	res := Translate("SELECT $1::int AS v", 1, Options{})
	if res.ParamOIDs[1] != 23 {
		t.Errorf("expected int cast to infer OID 23, got %d", res.ParamOIDs[1])
	}
	want := "SELECT CAST(? AS INTEGER) AS v"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageCastDoesNotSwallowTrailingClause(t *testing.T) {
	res := Translate("SELECT * FROM t WHERE id = $1::int4 AND name = $2", 2, Options{})
	want := "SELECT * FROM t WHERE id = CAST(? AS INTEGER) AND name = ?"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageCastRecognizesMultiWordTypes(t *testing.T) {
	res := Translate("SELECT $1::double precision AS v", 1, Options{})
	if res.ParamOIDs[1] != 701 {
		t.Errorf("expected double precision cast to infer OID 701, got %d", res.ParamOIDs[1])
	}
	want := "SELECT CAST(? AS DOUBLE) AS v"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageParamsLeavesStringLiteralsAlone(t *testing.T) {
	res := Translate("SELECT '$1 is not a param' AS s WHERE x = $1", 1, Options{})
	want := "SELECT '$1 is not a param' AS s WHERE x = ?"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageVectorRewritesOperators(t *testing.T) {
	res := Translate("SELECT a <-> b AS d1, a <#> b AS d2, a <=> b AS d3 FROM t", 0, Options{})
	want := "SELECT VECTOR_L2(a, b) AS d1, -VECTOR_DOT_PRODUCT(a, b) AS d2, VECTOR_COSINE(a, b) AS d3 FROM t"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageTopNRewritesLimit(t *testing.T) {
	res := Translate("SELECT DISTINCT a FROM t LIMIT 5", 0, Options{})
	want := "SELECT DISTINCT TOP 5 a FROM t"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}

func TestStageSemicolonTrim(t *testing.T) {
	res := Translate("SELECT 1;  ", 0, Options{})
	if res.SQL != "SELECT 1" {
		t.Errorf("got %q", res.SQL)
	}
}
