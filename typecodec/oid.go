// Package typecodec encodes and decodes PostgreSQL wire values by OID, and
// converts between IRIS's native value representations and PostgreSQL's.
package typecodec

// Advertised OIDs, per the wire contract this gateway exposes to clients.
const (
	OIDBool        = 16
	OIDInt8        = 20
	OIDInt2        = 21
	OIDInt4        = 23
	OIDText        = 25
	OIDFloat4      = 700
	OIDFloat8      = 701
	OIDVarchar     = 1043
	OIDDate        = 1082
	OIDTimestamp   = 1114
	OIDTimestampTZ = 1184
	OIDNumeric     = 1700
	OIDVector      = 16388
)

// Format codes as used on the wire (RowDescription/Bind/parameter format).
const (
	FormatText   = int16(0)
	FormatBinary = int16(1)
)

// Codec encodes and decodes a Go value for one PostgreSQL OID.
type Codec interface {
	OID() uint32
	EncodeText(v any) ([]byte, error)
	EncodeBinary(v any) ([]byte, error)
	DecodeText(b []byte) (any, error)
	DecodeBinary(b []byte) (any, error)
}

// Registry is a table of (OID) -> Codec, as described in spec.md §4.2: "a
// table of (pg_oid, format) -> {encode, decode}". Format is carried on each
// Codec, not in the key, since a single codec always knows both.
type Registry struct {
	byOID map[uint32]Codec
}

// NewRegistry builds the standard registry covering every advertised OID.
func NewRegistry() *Registry {
	r := &Registry{byOID: make(map[uint32]Codec, 16)}
	for _, c := range []Codec{
		boolCodec{},
		int2Codec{},
		int4Codec{},
		int8Codec{},
		textCodec{oid: OIDText},
		textCodec{oid: OIDVarchar},
		float4Codec{},
		float8Codec{},
		dateCodec{},
		timestampCodec{},
		numericCodec{},
		vectorCodec{},
	} {
		r.byOID[c.OID()] = c
	}
	return r
}

// Lookup returns the codec for an OID, or (nil, false) when unadvertised.
func (r *Registry) Lookup(oid uint32) (Codec, bool) {
	c, ok := r.byOID[oid]
	return c, ok
}

// Encode renders v on the wire for oid in the requested format. A nil v
// always means SQL NULL and is the caller's responsibility to represent as
// a -1 length column, per spec.md §4.2 ("Null is encoded as a column length
// of -1") — this function is never called for NULL values.
func (r *Registry) Encode(oid uint32, format int16, v any) ([]byte, error) {
	c, ok := r.byOID[oid]
	if !ok {
		return nil, errUnadvertisedOID(oid)
	}
	if format == FormatBinary {
		return c.EncodeBinary(v)
	}
	return c.EncodeText(v)
}

// Decode parses a wire-format parameter value for oid.
func (r *Registry) Decode(oid uint32, format int16, b []byte) (any, error) {
	c, ok := r.byOID[oid]
	if !ok {
		return nil, errUnadvertisedOID(oid)
	}
	if format == FormatBinary {
		return c.DecodeBinary(b)
	}
	return c.DecodeText(b)
}
