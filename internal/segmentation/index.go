package segmentation

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// TimestampIndex maps a camera's frame positions to capture timestamps,
// ordered by time. Construction cleans the raw log: rows with non-increasing
// frame indices or timestamps that run backwards beyond the tolerance are
// dropped and counted, never fatal.
type TimestampIndex struct {
	cameraID   string
	timestamps []time.Time
	frames     []int
	corrupted  int
}

// NewTimestampIndex builds an index from raw frame records. Records must be
// in log order; cleaning preserves the non-decreasing timestamp invariant.
func NewTimestampIndex(cameraID string, records []entity.FrameRecord, tolerance time.Duration) *TimestampIndex {
	idx := &TimestampIndex{cameraID: cameraID}

	lastFrame := -1
	var lastTS time.Time
	for _, rec := range records {
		if rec.Index <= lastFrame {
			idx.corrupted++
			continue
		}
		ts := rec.Timestamp
		if len(idx.timestamps) > 0 && ts.Before(lastTS) {
			if lastTS.Sub(ts) > tolerance {
				idx.corrupted++
				continue
			}
			// Within tolerance: clamp so the array stays sorted.
			ts = lastTS
		}
		idx.timestamps = append(idx.timestamps, ts)
		idx.frames = append(idx.frames, rec.Index)
		lastFrame = rec.Index
		lastTS = ts
	}

	return idx
}

// ParseFrameLog reads a frame-timestamp CSV (header row required, columns
// frame_index and timestamp) and builds the index for one camera. A log that
// cannot be read at all is a MalformedLogError; individual bad rows are
// counted as corrupted.
func ParseFrameLog(r io.Reader, cameraID string, tolerance time.Duration) (*TimestampIndex, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &MalformedLogError{Reason: fmt.Sprintf("frame log for camera %s has no header", cameraID), Err: err}
	}
	frameCol, tsCol := frameLogColumns(header)

	var records []entity.FrameRecord
	dropped := 0
	rowFrame := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedLogError{Reason: fmt.Sprintf("frame log for camera %s is unreadable", cameraID), Err: err}
		}

		frameIdx := rowFrame
		if frameCol >= 0 && frameCol < len(row) {
			n, err := strconv.Atoi(strings.TrimSpace(row[frameCol]))
			if err != nil {
				dropped++
				rowFrame++
				continue
			}
			frameIdx = n
		}
		rowFrame++

		if tsCol < 0 || tsCol >= len(row) {
			dropped++
			continue
		}
		ts, err := ParseTimestamp(row[tsCol])
		if err != nil {
			dropped++
			continue
		}

		records = append(records, entity.FrameRecord{CameraID: cameraID, Index: frameIdx, Timestamp: ts})
	}

	idx := NewTimestampIndex(cameraID, records, tolerance)
	idx.corrupted += dropped
	return idx, nil
}

// frameLogColumns resolves header positions. The original recorder wrote
// "Timestamp" with no frame column (row order is the frame order), the
// documented format is "frame_index,timestamp"; both are accepted.
func frameLogColumns(header []string) (frameCol, tsCol int) {
	frameCol, tsCol = -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "frame_index", "frame":
			frameCol = i
		case "timestamp", "time":
			tsCol = i
		}
	}
	return frameCol, tsCol
}

func (x *TimestampIndex) CameraID() string { return x.cameraID }

// Len is the number of usable frame records.
func (x *TimestampIndex) Len() int { return len(x.timestamps) }

// Corrupted is the number of rows dropped during cleaning.
func (x *TimestampIndex) Corrupted() int { return x.corrupted }

// StartTime is the capture time of the first usable frame.
func (x *TimestampIndex) StartTime() (time.Time, bool) {
	if len(x.timestamps) == 0 {
		return time.Time{}, false
	}
	return x.timestamps[0], true
}

// FrameRangeForWindow returns the inclusive range of frame indices whose
// timestamps fall within [start, end]. An empty window is not an error;
// callers decide whether that is fatal for the segment.
func (x *TimestampIndex) FrameRangeForWindow(start, end time.Time) entity.FrameRange {
	n := len(x.timestamps)
	lo := sort.Search(n, func(i int) bool { return !x.timestamps[i].Before(start) })
	hi := sort.Search(n, func(i int) bool { return x.timestamps[i].After(end) }) - 1

	if lo >= n || hi < lo {
		return entity.FrameRange{Empty: true}
	}
	return entity.FrameRange{First: x.frames[lo], Last: x.frames[hi]}
}
