package postgres

import (
	"context"
	"fmt"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.SegmentationJob) error {
	query := `
		INSERT INTO segmentation_jobs (
			id, participant_id, status, cameras_processed,
			segments_accepted, segments_rejected, training_seconds,
			summary_key, stats_only, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.ParticipantID, string(job.Status), job.CamerasProcessed,
		job.SegmentsAccepted, job.SegmentsRejected, job.TrainingSeconds,
		job.SummaryKey, job.StatsOnly, job.Attempt, job.MaxAttempts,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.SegmentationJob) error {
	query := `
		UPDATE segmentation_jobs SET
			status=$2, cameras_processed=$3, segments_accepted=$4,
			segments_rejected=$5, training_seconds=$6, summary_key=$7,
			attempt=$8, error_message=$9, updated_at=$10, completed_at=$11
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.CamerasProcessed, job.SegmentsAccepted,
		job.SegmentsRejected, job.TrainingSeconds, job.SummaryKey,
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SegmentationJob, error) {
	query := `
		SELECT id, participant_id, status, cameras_processed,
			segments_accepted, segments_rejected, training_seconds,
			summary_key, stats_only, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM segmentation_jobs WHERE id=$1`

	job := &entity.SegmentationJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.ParticipantID, &status, &job.CamerasProcessed,
		&job.SegmentsAccepted, &job.SegmentsRejected, &job.TrainingSeconds,
		&job.SummaryKey, &job.StatsOnly, &job.Attempt, &job.MaxAttempts,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}

// SegmentRepository stores one row per (camera, gesture) manifest record.
type SegmentRepository struct {
	pool *pgxpool.Pool
}

func NewSegmentRepository(pool *pgxpool.Pool) *SegmentRepository {
	return &SegmentRepository{pool: pool}
}

func (r *SegmentRepository) InsertSegments(ctx context.Context, jobID uuid.UUID, records []entity.SegmentRecord) error {
	batch := &pgx.Batch{}
	query := `
		INSERT INTO segment_records (
			job_id, participant_id, camera_id, segment_id, gesture_name,
			gesture_index, gesture_time, start_time, end_time,
			duration_seconds, training_seconds, reading_time_excluded,
			training_ready, filename, filepath
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	for _, rec := range records {
		batch.Queue(query,
			jobID, rec.ParticipantID, rec.CameraID, rec.SegmentID, rec.GestureName,
			rec.GestureIndex, rec.GestureTime, rec.StartTime, rec.EndTime,
			rec.Duration.Seconds(), rec.TrainingDuration.Seconds(), rec.ReadingTimeExcluded,
			rec.TrainingReady, rec.Filename, rec.Filepath,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert segment record: %w", err)
		}
	}
	return nil
}

// DeleteSegmentsForJob clears a job's rows before a retry rebuilds them; the
// manifest is never updated incrementally.
func (r *SegmentRepository) DeleteSegmentsForJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM segment_records WHERE job_id=$1`, jobID)
	if err != nil {
		return fmt.Errorf("delete segment records: %w", err)
	}
	return nil
}
