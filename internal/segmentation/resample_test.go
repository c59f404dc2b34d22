package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetFrameCount(t *testing.T) {
	tests := []struct {
		duration time.Duration
		fps      float64
		want     int
	}{
		{15 * time.Second, 30, 450},
		{3 * time.Second, 30, 90},
		{3500 * time.Millisecond, 30, 105},
		{3 * time.Second, 24, 72},
		{0, 30, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TargetFrameCount(tc.duration, tc.fps))
	}
}

func TestSelectSourceFramesDropStride(t *testing.T) {
	// 60 fps source down to 30 fps: every other frame.
	sel := SelectSourceFrames(120, 60)
	require.Len(t, sel, 60)
	assert.Equal(t, 0, sel[0])
	assert.Equal(t, 2, sel[1])
	assert.Equal(t, 118, sel[59])
}

func TestSelectSourceFramesDuplicateStride(t *testing.T) {
	// 15 fps source up to 30 fps: each frame twice.
	sel := SelectSourceFrames(30, 60)
	require.Len(t, sel, 60)
	assert.Equal(t, 0, sel[0])
	assert.Equal(t, 0, sel[1])
	assert.Equal(t, 1, sel[2])
	assert.Equal(t, 29, sel[59])
}

func TestSelectSourceFramesProperties(t *testing.T) {
	for _, tc := range []struct{ source, target int }{
		{450, 450}, {449, 450}, {451, 450}, {37, 90}, {1000, 90}, {1, 10},
	} {
		sel := SelectSourceFrames(tc.source, tc.target)
		require.Len(t, sel, tc.target, "source=%d target=%d", tc.source, tc.target)

		last := -1
		for _, s := range sel {
			assert.GreaterOrEqual(t, s, last)
			assert.Less(t, s, tc.source)
			last = s
		}
	}
}

func TestSelectSourceFramesEmptyInputs(t *testing.T) {
	assert.Nil(t, SelectSourceFrames(0, 10))
	assert.Nil(t, SelectSourceFrames(10, 0))
}
