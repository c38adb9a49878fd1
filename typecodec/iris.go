package typecodec

import (
	"strconv"
	"strings"
	"time"
)

// horologEpoch is day zero of IRIS's $HOROLOG day count: 1840-12-31, per
// the InterSystems documentation for $HOROLOG and $ZDATE/$ZDATETIME.
var horologEpoch = time.Date(1840, 12, 31, 0, 0, 0, 0, time.UTC)

// HorologToTime converts an IRIS $HOROLOG day count to a UTC date.
func HorologToTime(days int) time.Time {
	return horologEpoch.AddDate(0, 0, days)
}

// TimeToHorolog converts a UTC date to an IRIS $HOROLOG day count.
func TimeToHorolog(t time.Time) int {
	return int(t.UTC().Truncate(24 * time.Hour).Sub(horologEpoch).Hours() / 24)
}

// SplitHorolog parses IRIS's "days,seconds" $HOROLOG timestamp form (the
// shape returned by embedded-API date/time columns) into a time.Time.
func SplitHorolog(s string) (time.Time, error) {
	daysStr, secStr, ok := strings.Cut(s, ",")
	if !ok {
		return time.Time{}, errMalformed{OIDTimestamp, "days,seconds"}
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return time.Time{}, errMalformed{OIDTimestamp, "days,seconds"}
	}
	secs, err := strconv.ParseFloat(secStr, 64)
	if err != nil {
		return time.Time{}, errMalformed{OIDTimestamp, "days,seconds"}
	}
	return HorologToTime(days).Add(time.Duration(secs * float64(time.Second))), nil
}

// JoinHorolog renders a time.Time as IRIS's "days,seconds" $HOROLOG form.
func JoinHorolog(t time.Time) string {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	secs := t.Sub(midnight).Seconds()
	return strconv.Itoa(TimeToHorolog(t)) + "," + strconv.FormatFloat(secs, 'f', -1, 64)
}

// IRISBoolToGo converts IRIS's BIT-as-integer boolean representation (0/1,
// sometimes returned as a string) to a Go bool.
func IRISBoolToGo(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return false, errMalformed{OIDBool, "0/1"}
		}
		return n != 0, nil
	}
	return false, errMalformed{OIDBool, "IRIS bit"}
}

// GoBoolToIRIS renders a Go bool as IRIS's 0/1 BIT representation.
func GoBoolToIRIS(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ParseIRISVector parses IRIS's textual vector form, a comma-separated list
// of numbers with no surrounding brackets (as returned by TO_VECTOR columns
// read back through the embedded API), into a Vector.
func ParseIRISVector(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Vector{}, nil
	}
	parts := strings.Split(s, ",")
	vec := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, errMalformed{OIDVector, "IRIS vector"}
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// FormatIRISVector renders a Vector in IRIS's bare comma-separated textual
// form, suitable for substitution into a TO_VECTOR(...) literal.
func FormatIRISVector(v Vector) string {
	var sb strings.Builder
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	return sb.String()
}
