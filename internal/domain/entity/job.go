package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// SegmentationJob is one participant segmentation run.
type SegmentationJob struct {
	ID               uuid.UUID
	ParticipantID    string
	Status           JobStatus
	CamerasProcessed int
	SegmentsAccepted int
	SegmentsRejected int
	TrainingSeconds  float64
	SummaryKey       string
	StatsOnly        bool
	Attempt          int
	MaxAttempts      int
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

func NewSegmentationJob(participantID string, statsOnly bool, maxAttempts int) *SegmentationJob {
	now := time.Now().UTC()
	return &SegmentationJob{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Status:        JobStatusPending,
		StatsOnly:     statsOnly,
		Attempt:       0,
		MaxAttempts:   maxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (j *SegmentationJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *SegmentationJob) MarkCompleted(cameras, accepted, rejected int, trainingSeconds float64, summaryKey string) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.CamerasProcessed = cameras
	j.SegmentsAccepted = accepted
	j.SegmentsRejected = rejected
	j.TrainingSeconds = trainingSeconds
	j.SummaryKey = summaryKey
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *SegmentationJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *SegmentationJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
