package translate

import (
	"regexp"
	"strings"
)

// aliasRE finds "<expr> AS <alias>" pairs in a select list. It is
// deliberately simple (no full expression grammar): it looks for the
// keyword AS followed by a bare or double-quoted identifier, which covers
// the overwhelming majority of client-generated aliases without needing a
// real parser, in keeping with this translator's hot-path constraints.
var aliasRE = regexp.MustCompile(`(?i)\bAS\s+("?[A-Za-z_][A-Za-z0-9_]*"?)`)

// trailingAsRE matches a code region that ends in "AS ", whose alias is
// then the double-quoted identifier region that follows it.
var trailingAsRE = regexp.MustCompile(`(?i)\bAS\s+$`)

// extractAliases returns the column aliases named via "AS alias" in sql's
// select list, in order of appearance. Used to recover client-intended
// column names when a backend result otherwise reports a generic or
// positional name (see session's row-description construction).
func extractAliases(sql string) []string {
	var aliases []string
	regions := scanRegions(sql)
	for i, region := range regions {
		if region.kind != regionCode {
			continue
		}
		code := sql[region.start:region.end]
		for _, m := range aliasRE.FindAllStringSubmatch(code, -1) {
			aliases = append(aliases, strings.Trim(m[1], `"`))
		}
		if trailingAsRE.MatchString(code) && i+1 < len(regions) && regions[i+1].kind == regionDoubleQuoted {
			q := regions[i+1]
			aliases = append(aliases, strings.Trim(sql[q.start:q.end], `"`))
		}
	}
	return aliases
}
