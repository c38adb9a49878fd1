package typecodec

import (
	"strings"
	"testing"
	"time"
)

func TestScalarRoundTrip(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		oid uint32
		v   any
	}{
		{OIDBool, true},
		{OIDBool, false},
		{OIDInt2, int64(-1234)},
		{OIDInt4, int64(123456789)},
		{OIDInt8, int64(-9223372036854775807)},
		{OIDText, "hello, world"},
		{OIDVarchar, ""},
		{OIDFloat4, float64(3.5)},
		{OIDFloat8, float64(-2.71828)},
	}
	for _, tc := range cases {
		for _, format := range []int16{FormatText, FormatBinary} {
			enc, err := reg.Encode(tc.oid, format, tc.v)
			if err != nil {
				t.Fatalf("oid %d format %d encode: %v", tc.oid, format, err)
			}
			dec, err := reg.Decode(tc.oid, format, enc)
			if err != nil {
				t.Fatalf("oid %d format %d decode: %v", tc.oid, format, err)
			}
			if !valuesEqual(tc.v, dec) {
				t.Errorf("oid %d format %d: got %v (%T), want %v (%T)", tc.oid, format, dec, dec, tc.v, tc.v)
			}
		}
	}
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv || (av != av && bv != bv)
		}
	}
	return a == b
}

func TestNumericRoundTrip(t *testing.T) {
	reg := NewRegistry()
	for _, s := range []string{"0", "123", "-123", "123.456", "0.001", "-0.5", "10000", "99999999.9999"} {
		enc, err := reg.Encode(OIDNumeric, FormatBinary, s)
		if err != nil {
			t.Fatalf("%s: encode: %v", s, err)
		}
		dec, err := reg.Decode(OIDNumeric, FormatBinary, enc)
		if err != nil {
			t.Fatalf("%s: decode: %v", s, err)
		}
		got, ok := dec.(string)
		if !ok {
			t.Fatalf("%s: decoded non-string %v", s, dec)
		}
		if !numericStringsEqual(s, got) {
			t.Errorf("numeric roundtrip: want %s, got %s", s, got)
		}
	}
}

func numericStringsEqual(want, got string) bool {
	// Compare numerically-equivalent forms (e.g. "10000" vs "10000.0000")
	// rather than byte-for-byte, since dscale padding is allowed to differ.
	trim := func(s string) string {
		if !strings.Contains(s, ".") {
			return s
		}
		for len(s) > 1 && s[len(s)-1] == '0' {
			s = s[:len(s)-1]
		}
		for len(s) > 0 && s[len(s)-1] == '.' {
			s = s[:len(s)-1]
		}
		return s
	}
	return trim(want) == trim(got)
}

func TestDateTimestampRoundTrip(t *testing.T) {
	reg := NewRegistry()
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	enc, err := reg.Encode(OIDDate, FormatBinary, d)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := reg.Decode(OIDDate, FormatBinary, enc)
	if err != nil {
		t.Fatal(err)
	}
	got := dec.(time.Time)
	if !got.Equal(d) {
		t.Errorf("date roundtrip: want %v, got %v", d, got)
	}

	ts := time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC)
	enc, err = reg.Encode(OIDTimestamp, FormatBinary, ts)
	if err != nil {
		t.Fatal(err)
	}
	dec, err = reg.Decode(OIDTimestamp, FormatBinary, enc)
	if err != nil {
		t.Fatal(err)
	}
	got = dec.(time.Time)
	if !got.Equal(ts) {
		t.Errorf("timestamp roundtrip: want %v, got %v", ts, got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	reg := NewRegistry()
	vec := Vector{1.5, -2.25, 0, 3.125}
	for _, format := range []int16{FormatText, FormatBinary} {
		enc, err := reg.Encode(OIDVector, format, vec)
		if err != nil {
			t.Fatal(err)
		}
		dec, err := reg.Decode(OIDVector, format, enc)
		if err != nil {
			t.Fatal(err)
		}
		got := dec.(Vector)
		if len(got) != len(vec) {
			t.Fatalf("format %d: length mismatch got %d want %d", format, len(got), len(vec))
		}
		for i := range vec {
			if got[i] != vec[i] {
				t.Errorf("format %d: component %d: got %v want %v", format, i, got[i], vec[i])
			}
		}
	}
}

func TestHorologRoundTrip(t *testing.T) {
	ts := time.Date(2024, 6, 1, 8, 30, 15, 0, time.UTC)
	s := JoinHorolog(ts)
	got, err := SplitHorolog(s)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(ts) {
		t.Errorf("horolog roundtrip: want %v, got %v", ts, got)
	}
}

func TestIRISVectorRoundTrip(t *testing.T) {
	vec := Vector{0.1, 0.2, 0.3}
	s := FormatIRISVector(vec)
	got, err := ParseIRISVector(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length mismatch")
	}
}
