package translate

import "testing"

func TestStageIdentifierPreserveIsNoOp(t *testing.T) {
	sql := "SELECT Foo, Bar FROM MyTable WHERE Id = ?"
	if got := stageIdentifier(sql, CasePreserve); got != sql {
		t.Errorf("got %q, want unchanged %q", got, sql)
	}
}

func TestStageIdentifierFoldsUpper(t *testing.T) {
	sql := "SELECT Foo, Bar FROM MyTable WHERE Id = ?"
	want := "SELECT FOO, BAR FROM MYTABLE WHERE ID = ?"
	if got := stageIdentifier(sql, CaseUpper); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStageIdentifierFoldsLower(t *testing.T) {
	sql := "SELECT Foo, Bar FROM MyTable WHERE Id = ?"
	want := "SELECT foo, bar FROM mytable WHERE id = ?"
	if got := stageIdentifier(sql, CaseLower); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStageIdentifierLeavesQuotedAndStringsAlone(t *testing.T) {
	sql := `SELECT "MixedCase", note FROM t WHERE note = 'Leave Me'`
	want := `SELECT "MixedCase", note FROM t WHERE note = 'Leave Me'`
	if got := stageIdentifier(sql, CaseLower); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateAppliesIdentifierCasePolicy(t *testing.T) {
	res := Translate("SELECT Name FROM Users WHERE Id = $1", 1, Options{CasePolicy: CaseUpper})
	want := "SELECT NAME FROM USERS WHERE ID = ?"
	if res.SQL != want {
		t.Errorf("got %q, want %q", res.SQL, want)
	}
}
