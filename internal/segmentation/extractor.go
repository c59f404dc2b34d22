package segmentation

import (
	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// Extraction is the concrete frame range a window maps to on one camera.
// An empty range rejects the segment for that camera only; other cameras of
// the same gesture are unaffected.
type Extraction struct {
	Stream entity.CameraStream
	Window entity.SegmentWindow
	Range  entity.FrameRange
	State  entity.SegmentState
}

// Extractor resolves accepted windows against per-clock timestamp indexes.
// Azure modalities share one index (one capture clock) but carry independent
// media, so the identical time window yields the identical frame range for
// all three.
type Extractor struct {
	indexes map[string]*TimestampIndex // keyed by CameraStream.ClockID
}

func NewExtractor() *Extractor {
	return &Extractor{indexes: make(map[string]*TimestampIndex)}
}

// AddIndex registers the timestamp index for a capture clock.
func (e *Extractor) AddIndex(clockID string, idx *TimestampIndex) {
	e.indexes[clockID] = idx
}

// Index returns the registered index for a clock, if any.
func (e *Extractor) Index(clockID string) (*TimestampIndex, bool) {
	idx, ok := e.indexes[clockID]
	return idx, ok
}

// Extract maps a window onto one camera stream. Rejected windows pass through
// in their terminal state; accepted windows with no frames in the window
// become NO_FRAMES for this camera.
func (e *Extractor) Extract(stream entity.CameraStream, window entity.SegmentWindow) Extraction {
	ex := Extraction{Stream: stream, Window: window, Range: entity.FrameRange{Empty: true}}

	if !window.Accepted {
		ex.State = entity.SegmentTooShort
		return ex
	}

	idx, ok := e.indexes[stream.ClockID]
	if !ok {
		ex.State = entity.SegmentNoFrames
		return ex
	}

	r := idx.FrameRangeForWindow(window.EffectiveStart, window.EffectiveEnd)
	if r.Empty {
		ex.State = entity.SegmentNoFrames
		return ex
	}

	ex.Range = r
	ex.State = entity.SegmentFramesFound
	return ex
}
