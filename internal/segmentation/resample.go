package segmentation

import (
	"math"
	"time"
)

// TargetFrameCount is the frame count a normalized clip must have for a given
// effective duration: round(duration x target fps). Every accepted clip holds
// this count within one frame regardless of source camera jitter.
func TargetFrameCount(duration time.Duration, targetFPS float64) int {
	return int(math.Round(duration.Seconds() * targetFPS))
}

// SelectSourceFrames picks which of sourceCount frames to emit to reach
// exactly targetCount output frames at an even stride. When the source has
// more frames than needed, frames are dropped evenly; when it has fewer,
// frames are duplicated evenly. The returned slice holds source frame
// offsets (0-based within the range), one per output frame, non-decreasing.
func SelectSourceFrames(sourceCount, targetCount int) []int {
	if sourceCount <= 0 || targetCount <= 0 {
		return nil
	}

	out := make([]int, targetCount)
	stride := float64(sourceCount) / float64(targetCount)
	for i := 0; i < targetCount; i++ {
		src := int(float64(i) * stride)
		if src >= sourceCount {
			src = sourceCount - 1
		}
		out[i] = src
	}
	return out
}
