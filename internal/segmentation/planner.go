package segmentation

import (
	"time"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// Planner turns gesture onsets into non-overlapping segment windows. The same
// windows apply identically to every camera of the recording set.
type Planner struct {
	ReadingCutoff   time.Duration
	SegmentDuration time.Duration
	MinDuration     time.Duration
}

// Plan computes one window per gesture event. Events must be sorted by onset
// (EventLog guarantees this). Rejected windows are returned too, flagged, so
// the manifest can carry a row for every gesture.
//
// For event i the requested window is
// [onset+cutoff, onset+cutoff+duration]. If the next gesture starts before
// the requested end, the window is truncated there: the later onset always
// wins the boundary, so consecutive segments never overlap. Windows shorter
// than MinDuration after truncation are rejected; there is no retroactive
// re-expansion when a later gesture is itself rejected.
func (p Planner) Plan(events []entity.GestureEvent) []entity.SegmentWindow {
	windows := make([]entity.SegmentWindow, 0, len(events))

	for i, ev := range events {
		start := ev.Onset.Add(p.ReadingCutoff)
		end := start.Add(p.SegmentDuration)

		w := entity.SegmentWindow{
			GestureIndex:   ev.Index,
			GestureName:    ev.Name,
			GestureOnset:   ev.Onset,
			RequestedStart: start,
			RequestedEnd:   end,
			EffectiveStart: start,
			EffectiveEnd:   end,
		}

		if i+1 < len(events) {
			next := events[i+1].Onset
			if next.Before(w.EffectiveEnd) {
				w.EffectiveEnd = next
			}
		}

		// Boundary-inclusive: a window exactly at MinDuration is accepted.
		if w.EffectiveEnd.Sub(w.EffectiveStart) >= p.MinDuration {
			w.Accepted = true
		} else {
			w.Accepted = false
			w.RejectReason = RejectTooShort
			if w.EffectiveEnd.Before(w.EffectiveStart) {
				w.EffectiveEnd = w.EffectiveStart
			}
		}

		windows = append(windows, w)
	}

	return windows
}
