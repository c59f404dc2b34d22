package port

import (
	"context"
	"time"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
)

// MediaInfo is the probed metadata of a source video container.
type MediaInfo struct {
	FPS      float64
	Width    int
	Height   int
	Duration time.Duration
}

// EncodeRequest materializes one accepted segment window as a clip. The frame
// range refers to source frame indices; the encoder resamples to TargetFPS.
type EncodeRequest struct {
	InputPath  string
	OutputPath string
	Modality   entity.Modality
	Range      entity.FrameRange
	NativeFPS  float64
	TargetFPS  float64
	Duration   time.Duration
}

type EncodeResult struct {
	FramesWritten int
}

type ClipEncoder interface {
	Probe(ctx context.Context, mediaPath string) (*MediaInfo, error)
	EncodeSegment(ctx context.Context, req EncodeRequest) (*EncodeResult, error)
}
