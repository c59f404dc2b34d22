package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"100", time.Unix(100, 0).UTC()},
		{"100.5", time.Unix(100, 500000000).UTC()},
		{"2024-03-01 10:00:05.250", time.Date(2024, 3, 1, 10, 0, 5, 250000000, time.UTC)},
		{"2024-03-01T10:00:05.250", time.Date(2024, 3, 1, 10, 0, 5, 250000000, time.UTC)},
		{"2024-03-01T10:00:05Z", time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseTimestamp(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, got.Equal(tc.want), "input %q: got %v want %v", tc.in, got, tc.want)
	}
}

func TestParseTimestampErrors(t *testing.T) {
	for _, in := range []string{"", "  ", "yesterday", "10:00"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 5, 250000000, time.UTC)
	formatted := FormatTimestamp(ts)
	assert.Equal(t, "2024-03-01 10:00:05.250", formatted)

	parsed, err := ParseTimestamp(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}
