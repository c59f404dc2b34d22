package segmentation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Log timestamps appear either as wall-clock strings (the recorder's native
// format) or as epoch-seconds floats. A single log must be self-consistent;
// each row is parsed independently and mixed formats simply all parse.
var wallClockLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// ParseTimestamp parses one timestamp cell into a UTC time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// FormatTimestamp renders a timestamp the way the summary CSV expects it,
// millisecond precision in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000")
}
