package segmentation

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// EventLog is a parsed, validated sequence of gesture onsets for one
// participant, sorted by onset timestamp.
type EventLog struct {
	Events []entity.GestureEvent

	// OrderDisagreements counts events whose log row order disagreed with
	// timestamp order. Timestamp order is authoritative; a non-zero count is
	// a data-quality warning, not an error.
	OrderDisagreements int
}

// ParseGestureLog reads the gesture-event CSV (header row required, columns
// gesture_index, gesture_name, timestamp). An empty table, unparsable
// timestamps, or duplicate gesture indices are MalformedLogErrors: the whole
// run has nothing trustworthy to plan from.
func ParseGestureLog(r io.Reader, participantID string) (*EventLog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &MalformedLogError{Reason: "gesture log has no header", Err: err}
	}
	idxCol, nameCol, tsCol := gestureLogColumns(header)
	if nameCol < 0 || tsCol < 0 {
		return nil, &MalformedLogError{Reason: fmt.Sprintf("gesture log header %v lacks gesture_name/timestamp columns", header)}
	}

	log := &EventLog{}
	seen := make(map[int]bool)
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedLogError{Reason: "gesture log is unreadable", Err: err}
		}

		onset, err := ParseTimestamp(record[tsCol])
		if err != nil {
			return nil, &MalformedLogError{Reason: fmt.Sprintf("gesture log row %d", row+1), Err: err}
		}

		gestureIdx := row
		if idxCol >= 0 && idxCol < len(record) {
			n, err := strconv.Atoi(strings.TrimSpace(record[idxCol]))
			if err != nil {
				return nil, &MalformedLogError{Reason: fmt.Sprintf("gesture log row %d has bad gesture_index %q", row+1, record[idxCol])}
			}
			gestureIdx = n
		}
		if seen[gestureIdx] {
			return nil, &MalformedLogError{Reason: fmt.Sprintf("duplicate gesture_index %d", gestureIdx)}
		}
		seen[gestureIdx] = true

		log.Events = append(log.Events, entity.GestureEvent{
			ParticipantID: participantID,
			Index:         gestureIdx,
			Name:          strings.TrimSpace(record[nameCol]),
			Onset:         onset,
		})
		row++
	}

	if len(log.Events) == 0 {
		return nil, &MalformedLogError{Reason: "gesture log has no valid rows"}
	}

	// Timestamp order is authoritative. Count rows the sort had to move so
	// callers can surface the disagreement instead of silently reordering.
	for i := 1; i < len(log.Events); i++ {
		if log.Events[i].Onset.Before(log.Events[i-1].Onset) {
			log.OrderDisagreements++
		}
	}
	sort.SliceStable(log.Events, func(i, j int) bool {
		return log.Events[i].Onset.Before(log.Events[j].Onset)
	})

	return log, nil
}

func gestureLogColumns(header []string) (idxCol, nameCol, tsCol int) {
	idxCol, nameCol, tsCol = -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "gesture_index":
			idxCol = i
		case "gesture_name", "gesture":
			nameCol = i
		case "timestamp", "time":
			tsCol = i
		}
	}
	return idxCol, nameCol, tsCol
}
