package segmentation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGestureLog(t *testing.T) {
	input := "gesture_index,gesture_name,timestamp\n" +
		"0,wave,100.0\n" +
		"1,point,130.0\n" +
		"2,swipe left,160.0\n"

	log, err := ParseGestureLog(strings.NewReader(input), "7")
	require.NoError(t, err)

	require.Len(t, log.Events, 3)
	assert.Zero(t, log.OrderDisagreements)
	assert.Equal(t, "7", log.Events[0].ParticipantID)
	assert.Equal(t, "wave", log.Events[0].Name)
	assert.Equal(t, 2, log.Events[2].Index)
}

func TestParseGestureLogRecorderHeader(t *testing.T) {
	// The labeling tool writes Timestamp,Gesture,Gesture_Index.
	input := "Timestamp,Gesture,Gesture_Index\n" +
		"2024-03-01 10:00:05.000,ROTATE,0\n" +
		"2024-03-01 10:00:25.000,GRAB,1\n"

	log, err := ParseGestureLog(strings.NewReader(input), "7")
	require.NoError(t, err)
	require.Len(t, log.Events, 2)
	assert.Equal(t, "ROTATE", log.Events[0].Name)
}

func TestParseGestureLogSortsByTimestamp(t *testing.T) {
	// Row order disagrees with timestamp order: timestamps win, and the
	// disagreement is surfaced as a count rather than silently absorbed.
	input := "gesture_index,gesture_name,timestamp\n" +
		"0,wave,130.0\n" +
		"1,point,100.0\n" +
		"2,swipe,160.0\n"

	log, err := ParseGestureLog(strings.NewReader(input), "7")
	require.NoError(t, err)

	assert.Equal(t, 1, log.OrderDisagreements)
	assert.Equal(t, []int{1, 0, 2}, []int{log.Events[0].Index, log.Events[1].Index, log.Events[2].Index})
}

func TestParseGestureLogErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty file", input: ""},
		{name: "header only", input: "gesture_index,gesture_name,timestamp\n"},
		{name: "missing columns", input: "foo,bar\n1,2\n"},
		{name: "unparsable timestamp", input: "gesture_index,gesture_name,timestamp\n0,wave,not-a-time\n"},
		{name: "duplicate gesture_index", input: "gesture_index,gesture_name,timestamp\n0,wave,100.0\n0,point,130.0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGestureLog(strings.NewReader(tc.input), "7")
			require.Error(t, err)
			assert.True(t, IsMalformedLog(err))
		})
	}
}
