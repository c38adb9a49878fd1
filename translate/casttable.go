package translate

import "strings"

// castOIDTable maps a PostgreSQL cast type name (as written after "::") to
// the OID this gateway should bind that parameter position as, per
// spec.md §4.4's "parameter-OID inference from CAST" stage. Only types a
// client plausibly casts a bind parameter to are listed; anything else
// falls back to text.
var castOIDTable = map[string]uint32{
	"bool":               16,
	"boolean":            16,
	"int2":                21,
	"smallint":            21,
	"int4":                23,
	"int":                 23,
	"integer":             23,
	"int8":                20,
	"bigint":              20,
	"text":                25,
	"varchar":             1043,
	"character varying":   1043,
	"float4":              700,
	"real":                700,
	"float8":              701,
	"double precision":     701,
	"numeric":              1700,
	"decimal":              1700,
	"date":                 1082,
	"timestamp":            1114,
	"vector":               16388,
}

func oidForCastType(typeName string) (uint32, bool) {
	oid, ok := castOIDTable[strings.ToLower(strings.TrimSpace(typeName))]
	return oid, ok
}

// irisCastType maps a PostgreSQL cast type name to the IRIS SQL type
// keyword to render inside CAST(? AS ...), since IRIS doesn't recognize
// several of PostgreSQL's spellings (e.g. "int4", "double precision").
var irisCastType = map[string]string{
	"bool":             "BIT",
	"boolean":          "BIT",
	"int2":             "SMALLINT",
	"smallint":         "SMALLINT",
	"int4":             "INTEGER",
	"int":              "INTEGER",
	"integer":          "INTEGER",
	"int8":             "BIGINT",
	"bigint":           "BIGINT",
	"text":             "VARCHAR",
	"varchar":          "VARCHAR",
	"character varying": "VARCHAR",
	"float4":           "REAL",
	"real":             "REAL",
	"float8":           "DOUBLE",
	"double precision": "DOUBLE",
	"numeric":          "NUMERIC",
	"decimal":          "NUMERIC",
	"date":             "DATE",
	"timestamp":        "TIMESTAMP",
	"vector":           "VECTOR",
}

func irisTypeFor(typeName string) string {
	if t, ok := irisCastType[strings.ToLower(strings.TrimSpace(typeName))]; ok {
		return t
	}
	return strings.ToUpper(typeName)
}
