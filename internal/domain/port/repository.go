package port

import (
	"context"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.SegmentationJob) error
	Update(ctx context.Context, job *entity.SegmentationJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SegmentationJob, error)
}

// SegmentRepository persists manifest rows. Rows are insert-only; a re-run
// replaces the whole job's rows.
type SegmentRepository interface {
	InsertSegments(ctx context.Context, jobID uuid.UUID, records []entity.SegmentRecord) error
	DeleteSegmentsForJob(ctx context.Context, jobID uuid.UUID) error
}
