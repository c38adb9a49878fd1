package translate

import (
	"reflect"
	"testing"
)

func TestExtractAliases(t *testing.T) {
	sql := `SELECT a AS first, b AS "Second", c FROM t WHERE x = 'as y'`
	got := extractAliases(sql)
	want := []string{"first", "Second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractAliasesIgnoresStringLiterals(t *testing.T) {
	sql := `SELECT a FROM t WHERE note = 'value AS bogus'`
	got := extractAliases(sql)
	if len(got) != 0 {
		t.Errorf("expected no aliases, got %v", got)
	}
}
