package entity

import (
	"sort"
	"strconv"
	"time"
)

// Modality is the video signal a camera stream carries. The three Azure
// Kinect modalities come from one physical sensor and share a capture clock.
type Modality string

const (
	ModalityWebcam     Modality = "webcam"
	ModalityAzureColor Modality = "azure_color"
	ModalityAzureDepth Modality = "azure_depth"
	ModalityAzureIR    Modality = "azure_ir"
)

// CameraStream describes one recorded video stream of a participant session.
type CameraStream struct {
	// ID is the camera identifier used in filenames and the manifest,
	// e.g. "1" for a numbered webcam or "azure_depth".
	ID       string
	Modality Modality
	// ClockID keys the timestamp log the stream was captured against.
	// Azure modalities share one ClockID; webcams each have their own.
	ClockID     string
	MediaKey    string
	FrameLogKey string
}

// FrameRecord is one row of a camera's frame-timestamp log.
type FrameRecord struct {
	CameraID  string
	Index     int
	Timestamp time.Time
}

// FrameRange is an inclusive range of source frame indices. Empty ranges are
// represented by the zero value with Empty=true.
type FrameRange struct {
	First int
	Last  int
	Empty bool
}

// Count returns the number of frames covered by the range.
func (r FrameRange) Count() int {
	if r.Empty {
		return 0
	}
	return r.Last - r.First + 1
}

// GestureEvent is a labeled gesture onset for one participant.
type GestureEvent struct {
	ParticipantID string
	Index         int
	Name          string
	Onset         time.Time
}

// SegmentWindow is the planner's output for one gesture event. Effective
// bounds reflect overlap truncation against the following gesture.
type SegmentWindow struct {
	GestureIndex   int
	GestureName    string
	GestureOnset   time.Time
	RequestedStart time.Time
	RequestedEnd   time.Time
	EffectiveStart time.Time
	EffectiveEnd   time.Time
	Accepted       bool
	RejectReason   string
}

// Duration is the effective window length, zero for rejected windows.
func (w SegmentWindow) Duration() time.Duration {
	if !w.Accepted {
		return 0
	}
	return w.EffectiveEnd.Sub(w.EffectiveStart)
}

// SegmentState tracks a single (camera, gesture) segment through the
// pipeline. Accepted and Rejected are terminal.
type SegmentState string

const (
	SegmentPlanned     SegmentState = "PLANNED"
	SegmentFramesFound SegmentState = "FRAMES_FOUND"
	SegmentEncoded     SegmentState = "ENCODED"
	SegmentAccepted    SegmentState = "ACCEPTED"
	SegmentNoFrames    SegmentState = "NO_FRAMES"
	SegmentTooShort    SegmentState = "TOO_SHORT"
	SegmentRejected    SegmentState = "REJECTED"
)

// SegmentRecord is one manifest row for a (camera, gesture) pair. Records are
// immutable once appended to the manifest; corrections require a new run.
type SegmentRecord struct {
	ParticipantID       string
	CameraID            string
	SegmentID           string
	GestureName         string
	GestureIndex        int
	GestureTime         time.Time
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
	TrainingDuration    time.Duration
	ReadingTimeExcluded bool
	TrainingReady       bool
	Filename            string
	Filepath            string
}

// LessCameraID orders camera IDs the way the recording sets are laid out:
// numeric webcams first in numeric order, then named modalities
// alphabetically.
func LessCameraID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// SortCameraStreams sorts streams in manifest order.
func SortCameraStreams(streams []CameraStream) {
	sort.Slice(streams, func(i, j int) bool {
		return LessCameraID(streams[i].ID, streams[j].ID)
	})
}
