package typecodec

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

type boolCodec struct{}

func (boolCodec) OID() uint32 { return OIDBool }

func (boolCodec) EncodeText(v any) ([]byte, error) {
	b, err := asBool(v)
	if err != nil {
		return nil, err
	}
	if b {
		return []byte("t"), nil
	}
	return []byte("f"), nil
}

func (boolCodec) EncodeBinary(v any) ([]byte, error) {
	b, err := asBool(v)
	if err != nil {
		return nil, err
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (boolCodec) DecodeText(b []byte) (any, error) {
	switch strings.TrimSpace(string(b)) {
	case "t", "true", "TRUE", "1":
		return true, nil
	case "f", "false", "FALSE", "0":
		return false, nil
	}
	return nil, errMalformed{OIDBool, "t/f"}
}

func (boolCodec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 1 {
		return nil, errMalformed{OIDBool, "1 byte"}
	}
	return b[0] != 0, nil
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	}
	return false, errMalformed{OIDBool, "bool"}
}

type int2Codec struct{}

func (int2Codec) OID() uint32 { return OIDInt2 }

func (int2Codec) EncodeText(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatInt(n, 10)), nil
}

func (int2Codec) EncodeBinary(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(int16(n)))
	return buf, nil
}

func (int2Codec) DecodeText(b []byte) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 16)
	if err != nil {
		return nil, errMalformed{OIDInt2, "int16"}
	}
	return n, nil
}

func (int2Codec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 2 {
		return nil, errMalformed{OIDInt2, "2 bytes"}
	}
	return int64(int16(binary.BigEndian.Uint16(b))), nil
}

type int4Codec struct{}

func (int4Codec) OID() uint32 { return OIDInt4 }

func (int4Codec) EncodeText(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatInt(n, 10)), nil
}

func (int4Codec) EncodeBinary(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(int32(n)))
	return buf, nil
}

func (int4Codec) DecodeText(b []byte) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return nil, errMalformed{OIDInt4, "int32"}
	}
	return n, nil
}

func (int4Codec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, errMalformed{OIDInt4, "4 bytes"}
	}
	return int64(int32(binary.BigEndian.Uint32(b))), nil
}

type int8Codec struct{}

func (int8Codec) OID() uint32 { return OIDInt8 }

func (int8Codec) EncodeText(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatInt(n, 10)), nil
}

func (int8Codec) EncodeBinary(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf, nil
}

func (int8Codec) DecodeText(b []byte) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return nil, errMalformed{OIDInt8, "int64"}
	}
	return n, nil
}

func (int8Codec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, errMalformed{OIDInt8, "8 bytes"}
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	}
	return 0, errMalformed{0, "integer"}
}

// textCodec serves both text (25) and varchar (1043): on the wire they are
// byte-identical, only the advertised OID differs.
type textCodec struct{ oid uint32 }

func (c textCodec) OID() uint32 { return c.oid }

func (c textCodec) EncodeText(v any) ([]byte, error) {
	s, err := asString(v, c.oid)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c textCodec) EncodeBinary(v any) ([]byte, error) { return c.EncodeText(v) }

func (c textCodec) DecodeText(b []byte) (any, error) { return string(b), nil }

func (c textCodec) DecodeBinary(b []byte) (any, error) { return string(b), nil }

func asString(v any, oid uint32) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errMalformed{oid, "string"}
}

type float4Codec struct{}

func (float4Codec) OID() uint32 { return OIDFloat4 }

func (float4Codec) EncodeText(v any) ([]byte, error) {
	f, err := asFloat64(v)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 32)), nil
}

func (float4Codec) EncodeBinary(v any) ([]byte, error) {
	f, err := asFloat64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(float32(f)))
	return buf, nil
}

func (float4Codec) DecodeText(b []byte) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 32)
	if err != nil {
		return nil, errMalformed{OIDFloat4, "float32"}
	}
	return f, nil
}

func (float4Codec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, errMalformed{OIDFloat4, "4 bytes"}
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
}

type float8Codec struct{}

func (float8Codec) OID() uint32 { return OIDFloat8 }

func (float8Codec) EncodeText(v any) ([]byte, error) {
	f, err := asFloat64(v)
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (float8Codec) EncodeBinary(v any) ([]byte, error) {
	f, err := asFloat64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf, nil
}

func (float8Codec) DecodeText(b []byte) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return nil, errMalformed{OIDFloat8, "float64"}
	}
	return f, nil
}

func (float8Codec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, errMalformed{OIDFloat8, "8 bytes"}
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func asFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	}
	return 0, errMalformed{0, "float"}
}
