package port

import (
	"context"
	"io"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// RecordingStorage gives access to one participant's recording set in object
// storage: frame logs, the gesture log, raw camera media, and the processed
// outputs.
type RecordingStorage interface {
	// DiscoverStreams lists the camera streams of a participant that have
	// both a frame log and a media object. Streams whose media is missing
	// are omitted (the camera is skipped for the run).
	DiscoverStreams(ctx context.Context, prefix, participantID string) ([]entity.CameraStream, error)

	DownloadGestureLog(ctx context.Context, prefix, participantID, destPath string) error
	DownloadFrameLog(ctx context.Context, stream entity.CameraStream, destPath string) error
	DownloadMedia(ctx context.Context, stream entity.CameraStream, destPath string) error

	UploadClip(ctx context.Context, objectKey, filePath string) error
	UploadSummary(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
