package entity

import "github.com/google/uuid"

// SegmentationRequestMessage is the inbound message from the
// segmentation.request queue. ObjectPrefix overrides the configured base path
// when non-empty.
type SegmentationRequestMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	ParticipantID string    `json:"participant_id"`
	ObjectPrefix  string    `json:"object_prefix,omitempty"`
	NotifyEmail   string    `json:"notify_email,omitempty"`
}

// SegmentationStatusMessage is the outbound message published to the
// segmentation.status queue.
type SegmentationStatusMessage struct {
	JobID            uuid.UUID `json:"job_id"`
	ParticipantID    string    `json:"participant_id"`
	Status           JobStatus `json:"status"`
	CamerasProcessed int       `json:"cameras_processed,omitempty"`
	SegmentsAccepted int       `json:"segments_accepted,omitempty"`
	SegmentsRejected int       `json:"segments_rejected,omitempty"`
	TrainingSeconds  float64   `json:"training_seconds,omitempty"`
	SummaryKey       string    `json:"summary_key,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Attempt          int       `json:"attempt"`
	MaxAttempts      int       `json:"max_attempts"`
}
