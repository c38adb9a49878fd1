package copyproto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Direction is which way data moves across the COPY sub-protocol.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

// Statement is a parsed COPY ... FROM STDIN / COPY ... TO STDOUT command.
// Exactly one of Table or Query is set: Query only appears on the
// "COPY (subquery) TO STDOUT" form.
type Statement struct {
	Direction Direction
	Table     string
	Columns   []string
	Query     string
	Options   Options
}

var copyRE = regexp.MustCompile(`(?is)^\s*COPY\s+(?:\((?P<query>.+)\)|(?P<table>[A-Za-z_][\w.\"]*)\s*(?:\(\s*(?P<columns>[^)]*)\))?)\s+(?P<dir>FROM|TO)\s+(?P<stdio>STDIN|STDOUT)\s*(?:WITH\s*\(\s*(?P<opts>.*?)\s*\))?\s*;?\s*$`)

// ErrNotCopy marks a statement that isn't a COPY command at all.
var ErrNotCopy = fmt.Errorf("copyproto: not a COPY statement")

// Parse recognizes a COPY statement and its WITH (...) options, starting
// from the gateway-wide defaults.
func Parse(sql string, defaults Options) (*Statement, error) {
	m := copyRE.FindStringSubmatch(sql)
	if m == nil {
		return nil, ErrNotCopy
	}
	names := copyRE.SubexpNames()
	get := func(name string) string {
		for i, n := range names {
			if n == name {
				return m[i]
			}
		}
		return ""
	}

	dir := DirectionIn
	if strings.EqualFold(get("dir"), "TO") {
		dir = DirectionOut
	}
	stdio := strings.ToUpper(get("stdio"))
	if dir == DirectionIn && stdio != "STDIN" {
		return nil, fmt.Errorf("copyproto: COPY FROM requires STDIN, got %s", stdio)
	}
	if dir == DirectionOut && stdio != "STDOUT" {
		return nil, fmt.Errorf("copyproto: COPY TO requires STDOUT, got %s", stdio)
	}

	stmt := &Statement{
		Direction: dir,
		Table:     strings.Trim(get("table"), `"`),
		Query:     strings.TrimSpace(get("query")),
		Options:   defaults,
	}
	if cols := strings.TrimSpace(get("columns")); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			stmt.Columns = append(stmt.Columns, strings.Trim(strings.TrimSpace(c), `"`))
		}
	}
	if stmt.Query != "" && dir == DirectionIn {
		return nil, fmt.Errorf("copyproto: COPY (query) FROM STDIN is not supported")
	}

	if err := applyOptions(&stmt.Options, get("opts")); err != nil {
		return nil, err
	}
	return stmt, nil
}

// applyOptions parses the comma-separated WITH (...) clause body, e.g.
// `FORMAT csv, DELIMITER ',', NULL '\N', HEADER true`, onto opts.
func applyOptions(opts *Options, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	for _, clause := range splitTopLevel(body, ',') {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		fields := strings.SplitN(clause, " ", 2)
		key := strings.ToUpper(strings.TrimSpace(fields[0]))
		val := ""
		if len(fields) > 1 {
			val = unquote(strings.TrimSpace(fields[1]))
		}
		switch key {
		case "FORMAT":
			// only CSV and the text default are recognized; both use the
			// same ingest/egest path, since IRIS has no native COPY BINARY.
		case "DELIMITER":
			if val == "" {
				return fmt.Errorf("copyproto: DELIMITER requires a value")
			}
			opts.Delimiter = []rune(val)[0]
		case "NULL":
			opts.NullString = val
		case "HEADER":
			opts.HasHeader = parseBool(val)
		default:
			return fmt.Errorf("copyproto: unsupported COPY option %q", key)
		}
	}
	return nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return strings.EqualFold(s, "match")
	}
	return b
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// splitTopLevel splits s on sep, ignoring separators inside single-quoted
// strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inQuote = !inQuote
			cur.WriteByte(c)
			continue
		}
		if c == sep && !inQuote {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	parts = append(parts, cur.String())
	return parts
}
