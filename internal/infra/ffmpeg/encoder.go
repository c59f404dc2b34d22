// Package ffmpeg adapts the external ffmpeg/ffprobe binaries as the clip
// encoding primitive: decode a frame range, normalize the frame rate, encode
// the output clip.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/gesturelab/segmentation-service/internal/domain/port"
	"github.com/gesturelab/segmentation-service/internal/segmentation"
	"go.uber.org/zap"
)

type Encoder struct {
	ffmpegPath  string
	ffprobePath string
	crf         int
	logger      *zap.Logger
}

func NewEncoder(logger *zap.Logger) *Encoder {
	return &Encoder{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		crf:         18,
		logger:      logger,
	}
}

// EncodeSegment materializes one accepted frame range as a normalized clip.
// The select filter keeps exactly the source range, the fps filter applies
// the even-stride drop/duplicate resample, and -frames:v pins the output
// frame count so every clip has the same duration-to-frame-count ratio.
func (e *Encoder) EncodeSegment(ctx context.Context, req port.EncodeRequest) (*port.EncodeResult, error) {
	if req.Range.Empty {
		return nil, fmt.Errorf("empty frame range for %s", req.OutputPath)
	}
	if req.NativeFPS <= 0 || req.TargetFPS <= 0 {
		return nil, fmt.Errorf("invalid frame rates native=%v target=%v", req.NativeFPS, req.TargetFPS)
	}

	frameCount := segmentation.TargetFrameCount(req.Duration, req.TargetFPS)
	if frameCount == 0 {
		return nil, fmt.Errorf("zero-length clip for %s", req.OutputPath)
	}

	args := buildEncodeArgs(req, frameCount, e.crf)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	e.logger.Debug("segment encoded",
		zap.String("output", req.OutputPath),
		zap.Int("frames", frameCount),
		zap.Int("source_first", req.Range.First),
		zap.Int("source_last", req.Range.Last),
	)

	return &port.EncodeResult{FramesWritten: frameCount}, nil
}

func buildEncodeArgs(req port.EncodeRequest, frameCount, crf int) []string {
	args := []string{"-i", req.InputPath}

	filter := fmt.Sprintf(
		"select='between(n\\,%d\\,%d)',setpts=N/%g/TB,fps=%g",
		req.Range.First, req.Range.Last, req.NativeFPS, req.TargetFPS,
	)
	// Depth and IR streams are stored as video but may carry odd pixel
	// formats; force a decodable output format for them.
	switch req.Modality {
	case "azure_depth", "azure_ir":
		filter += ",format=yuv420p"
	}

	args = append(args,
		"-vf", filter,
		"-frames:v", fmt.Sprintf("%d", frameCount),
		"-an",
		"-c:v", "libx264",
		"-crf", fmt.Sprintf("%d", crf),
		"-y",
		req.OutputPath,
	)
	return args
}
