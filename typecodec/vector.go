package typecodec

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Vector is the in-memory representation of a pgvector-style value: an
// ordered list of float32 components. IRIS has no first-class vector wire
// type of its own (see iris.go), so this is the one OID with no IRIS-side
// analogue to preserve beyond the flat float list.
type Vector []float32

type vectorCodec struct{}

func (vectorCodec) OID() uint32 { return OIDVector }

// EncodeText renders "[1,2,3]", matching pgvector's textual form.
func (vectorCodec) EncodeText(v any) ([]byte, error) {
	vec, err := asVector(v)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

// EncodeBinary renders pgvector's binary layout: uint16 dim, uint16 unused,
// then dim big-endian float32 components.
func (vectorCodec) EncodeBinary(v any) ([]byte, error) {
	vec, err := asVector(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4+len(vec)*4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(vec)))
	binary.BigEndian.PutUint16(buf[2:4], 0)
	for i, f := range vec {
		binary.BigEndian.PutUint32(buf[4+i*4:8+i*4], math.Float32bits(f))
	}
	return buf, nil
}

func (vectorCodec) DecodeText(b []byte) (any, error) {
	s := strings.TrimSpace(string(b))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return Vector{}, nil
	}
	parts := strings.Split(s, ",")
	vec := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, errMalformed{OIDVector, "[f1,f2,...]"}
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func (vectorCodec) DecodeBinary(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, errMalformed{OIDVector, "vector header"}
	}
	dim := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) != 4+dim*4 {
		return nil, errMalformed{OIDVector, "vector components"}
	}
	vec := make(Vector, dim)
	for i := 0; i < dim; i++ {
		vec[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4+i*4 : 8+i*4]))
	}
	return vec, nil
}

func asVector(v any) (Vector, error) {
	if vec, ok := v.(Vector); ok {
		return vec, nil
	}
	if fs, ok := v.([]float32); ok {
		return Vector(fs), nil
	}
	return nil, errMalformed{OIDVector, "[]float32"}
}
