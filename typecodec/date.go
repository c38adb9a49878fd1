package typecodec

import (
	"encoding/binary"
	"time"
)

// j2000 is the PostgreSQL epoch (2000-01-01) that date/timestamp binary
// wire values are relative to, per spec.md §4.2.
var j2000 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const dateLayout = "2006-01-02"
const timestampLayout = "2006-01-02 15:04:05.999999"

type dateCodec struct{}

func (dateCodec) OID() uint32 { return OIDDate }

func (dateCodec) EncodeText(v any) ([]byte, error) {
	t, err := asTime(v, OIDDate)
	if err != nil {
		return nil, err
	}
	return []byte(t.Format(dateLayout)), nil
}

// EncodeBinary renders the number of days since 2000-01-01 as an int32.
func (dateCodec) EncodeBinary(v any) ([]byte, error) {
	t, err := asTime(v, OIDDate)
	if err != nil {
		return nil, err
	}
	days := int32(t.UTC().Truncate(24*time.Hour).Sub(j2000).Hours() / 24)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(days))
	return buf, nil
}

func (dateCodec) DecodeText(b []byte) (any, error) {
	t, err := time.Parse(dateLayout, string(b))
	if err != nil {
		return nil, errMalformed{OIDDate, "YYYY-MM-DD"}
	}
	// time.Parse itself rejects an out-of-range day (e.g. Feb 29 in a
	// non-leap year); re-formatting and comparing is a second guard that
	// the input is exactly the canonical YYYY-MM-DD text.
	if t.Format(dateLayout) != string(b) {
		return nil, errMalformed{OIDDate, "YYYY-MM-DD"}
	}
	return t, nil
}

func (dateCodec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 4 {
		return nil, errMalformed{OIDDate, "4 bytes"}
	}
	days := int32(binary.BigEndian.Uint32(b))
	return j2000.AddDate(0, 0, int(days)), nil
}

type timestampCodec struct{}

func (timestampCodec) OID() uint32 { return OIDTimestamp }

func (timestampCodec) EncodeText(v any) ([]byte, error) {
	t, err := asTime(v, OIDTimestamp)
	if err != nil {
		return nil, err
	}
	return []byte(t.Format(timestampLayout)), nil
}

// EncodeBinary renders microseconds since 2000-01-01T00:00:00 as an int64.
func (timestampCodec) EncodeBinary(v any) ([]byte, error) {
	t, err := asTime(v, OIDTimestamp)
	if err != nil {
		return nil, err
	}
	micros := t.UTC().Sub(j2000).Microseconds()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(micros))
	return buf, nil
}

func (timestampCodec) DecodeText(b []byte) (any, error) {
	t, err := time.Parse(timestampLayout, string(b))
	if err != nil {
		return nil, errMalformed{OIDTimestamp, "YYYY-MM-DD HH:MM:SS[.ffffff]"}
	}
	return t, nil
}

func (timestampCodec) DecodeBinary(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, errMalformed{OIDTimestamp, "8 bytes"}
	}
	micros := int64(binary.BigEndian.Uint64(b))
	return j2000.Add(time.Duration(micros) * time.Microsecond), nil
}

func asTime(v any, oid uint32) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if tt, err := time.Parse(timestampLayout, t); err == nil {
			return tt, nil
		}
		if tt, err := time.Parse(dateLayout, t); err == nil {
			return tt, nil
		}
	}
	return time.Time{}, errMalformed{oid, "time.Time"}
}
