package segmentation

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// summaryColumns is the single source of truth for the training summary
// layout. Column order is part of the output contract.
var summaryColumns = []string{
	"participant_id", "camera_id", "segment_id", "filename", "filepath",
	"start_time", "end_time", "gesture_name", "gesture_index", "gesture_time",
	"duration_seconds", "training_duration", "reading_time_excluded",
	"training_ready",
}

// ManifestStats aggregates a finished run.
type ManifestStats struct {
	Accepted        int
	Rejected        int
	TrainingSeconds float64
}

// ManifestBuilder accumulates one SegmentRecord per (camera, gesture) pair,
// rejected ones included. Records are immutable once appended; the builder is
// the only structure shared between camera workers, so appends take a lock.
// Rendering to CSV happens only at export time.
type ManifestBuilder struct {
	mu      sync.Mutex
	records []entity.SegmentRecord
}

func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{}
}

// Append adds a record. Duplicate (camera, gesture) pairs are a programming
// error and rejected.
func (m *ManifestBuilder) Append(rec entity.SegmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.records {
		if existing.CameraID == rec.CameraID && existing.GestureIndex == rec.GestureIndex {
			return fmt.Errorf("duplicate segment record for camera %s gesture %d", rec.CameraID, rec.GestureIndex)
		}
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns a sorted copy: cameras in recording-set order, gestures
// ascending within a camera. The sort makes manifest output deterministic
// regardless of camera worker interleaving.
func (m *ManifestBuilder) Records() []entity.SegmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.SegmentRecord, len(m.records))
	copy(out, m.records)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CameraID != out[j].CameraID {
			return entity.LessCameraID(out[i].CameraID, out[j].CameraID)
		}
		return out[i].GestureIndex < out[j].GestureIndex
	})
	return out
}

// Stats counts accepted and rejected segments and sums training time.
func (m *ManifestBuilder) Stats() ManifestStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s ManifestStats
	for _, rec := range m.records {
		if rec.TrainingReady {
			s.Accepted++
			s.TrainingSeconds += rec.TrainingDuration.Seconds()
		} else {
			s.Rejected++
		}
	}
	return s
}

// WriteCSV renders the summary table. Two runs over identical inputs produce
// byte-identical output.
func (m *ManifestBuilder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryColumns); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for _, rec := range m.Records() {
		row := []string{
			rec.ParticipantID,
			rec.CameraID,
			rec.SegmentID,
			rec.Filename,
			rec.Filepath,
			FormatTimestamp(rec.StartTime),
			FormatTimestamp(rec.EndTime),
			rec.GestureName,
			strconv.Itoa(rec.GestureIndex),
			FormatTimestamp(rec.GestureTime),
			strconv.FormatFloat(rec.Duration.Seconds(), 'f', 3, 64),
			strconv.FormatFloat(rec.TrainingDuration.Seconds(), 'f', 3, 64),
			strconv.FormatBool(rec.ReadingTimeExcluded),
			strconv.FormatBool(rec.TrainingReady),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
