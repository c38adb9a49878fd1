package typecodec

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// numeric sign markers, per the documented PostgreSQL NUMERIC wire format.
const (
	numericPositive = 0x0000
	numericNegative = 0x4000
	numericNaN      = 0xC000
)

type numericCodec struct{}

func (numericCodec) OID() uint32 { return OIDNumeric }

func (numericCodec) EncodeText(v any) ([]byte, error) {
	s, err := asNumericString(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// EncodeBinary renders the base-10000 digit-group layout: ndigits(int16),
// weight(int16), sign(uint16), dscale(int16), then ndigits digit groups.
func (numericCodec) EncodeBinary(v any) ([]byte, error) {
	s, err := asNumericString(v)
	if err != nil {
		return nil, err
	}
	sign := numericPositive
	if strings.HasPrefix(s, "-") {
		sign = numericNegative
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	dscale := len(fracPart)

	digits := digitGroups(intPart, fracPart)
	weight := computeWeight(intPart)

	buf := make([]byte, 8+len(digits)*2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(digits)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], uint16(sign))
	binary.BigEndian.PutUint16(buf[6:8], uint16(dscale))
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+i*2:10+i*2], uint16(d))
	}
	return buf, nil
}

// digitGroups splits an unsigned decimal integer+fraction pair into
// base-10000 groups, aligned on 4-digit boundaries from the decimal point.
func digitGroups(intPart, fracPart string) []int16 {
	if intPart == "" {
		intPart = "0"
	}
	// Pad intPart on the left so its length is a multiple of 4.
	for len(intPart)%4 != 0 {
		intPart = "0" + intPart
	}
	// Pad fracPart on the right so its length is a multiple of 4.
	frac := fracPart
	for len(frac)%4 != 0 {
		frac += "0"
	}
	var groups []int16
	for i := 0; i < len(intPart); i += 4 {
		n, _ := strconv.Atoi(intPart[i : i+4])
		groups = append(groups, int16(n))
	}
	for i := 0; i < len(frac); i += 4 {
		n, _ := strconv.Atoi(frac[i : i+4])
		groups = append(groups, int16(n))
	}
	return trimZeroGroups(groups)
}

func trimZeroGroups(groups []int16) []int16 {
	start := 0
	for start < len(groups) && groups[start] == 0 {
		start++
	}
	end := len(groups)
	for end > start && groups[end-1] == 0 {
		end--
	}
	if start == end {
		return nil
	}
	return groups[start:end]
}

// computeWeight returns the base-10000 weight of the first digit group
// relative to the decimal point, or -1 when the integer part is zero.
func computeWeight(intPart string) int16 {
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		return -1
	}
	padded := intPart
	for len(padded)%4 != 0 {
		padded = "0" + padded
	}
	return int16(len(padded)/4 - 1)
}

func (numericCodec) DecodeText(b []byte) (any, error) {
	s := strings.TrimSpace(string(b))
	if _, ok := new(big.Float).SetString(s); !ok {
		return nil, errMalformed{OIDNumeric, "decimal string"}
	}
	return s, nil
}

func (numericCodec) DecodeBinary(b []byte) (any, error) {
	if len(b) < 8 {
		return nil, errMalformed{OIDNumeric, "numeric header"}
	}
	ndigits := int(binary.BigEndian.Uint16(b[0:2]))
	weight := int16(binary.BigEndian.Uint16(b[2:4]))
	sign := binary.BigEndian.Uint16(b[4:6])
	dscale := int(binary.BigEndian.Uint16(b[6:8]))
	if sign == numericNaN {
		return "NaN", nil
	}
	if len(b) < 8+ndigits*2 {
		return nil, errMalformed{OIDNumeric, "numeric digits"}
	}
	var sb strings.Builder
	if sign == numericNegative {
		sb.WriteByte('-')
	}
	if weight < 0 {
		sb.WriteString("0" + strings.Repeat("0000", -int(weight)-1))
	}
	intDigits := int(weight) + 1
	for i := 0; i < ndigits; i++ {
		d := binary.BigEndian.Uint16(b[8+i*2 : 10+i*2])
		if i == 0 && weight >= 0 {
			fmt.Fprintf(&sb, "%d", d)
		} else {
			fmt.Fprintf(&sb, "%04d", d)
		}
	}
	sb.WriteString(strings.Repeat("0000", max(intDigits-ndigits, 0)))
	s := sb.String()
	if dscale > 0 {
		// The groups after the integer groups are the fraction; pad/truncate it to dscale.
		cut := len(s) - max(ndigits-intDigits, 0)*4
		if cut > len(s) {
			s = s + strings.Repeat("0", cut-len(s))
		}
		whole, frac := s[:cut], s[cut:]
		for len(frac) < dscale {
			frac += "0"
		}
		frac = frac[:dscale]
		s = whole + "." + frac
	}
	return s, nil
}

func asNumericString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	return "", errMalformed{OIDNumeric, "numeric"}
}
