// Package minio adapts object storage to the recording-set layout produced by
// the capture rig:
//
//	{prefix}/logs/{pid}/auto_labels.csv            gesture-event log
//	{prefix}/logs/{pid}/webcam_{n}.csv             per-webcam frame log
//	{prefix}/logs/{pid}/webcam_azure_kinect.csv    shared Azure frame log
//	{prefix}/images/{pid}/{n}/webcam_{n}.mp4       webcam media
//	{prefix}/images/{pid}/azure/webcam_azure_kinect_{color,depth,ir}.mp4
package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Storage struct {
	client        *miniogo.Client
	recordingsBkt string
	clipsBkt      string
	logger        *zap.Logger
}

type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	UseSSL           bool
	RecordingsBucket string
	ClipsBucket      string
}

func NewStorage(cfg StorageConfig, logger *zap.Logger) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:        client,
		recordingsBkt: cfg.RecordingsBucket,
		clipsBkt:      cfg.ClipsBucket,
		logger:        logger,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.recordingsBkt, s.clipsBkt} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// DiscoverStreams lists a participant's frame logs and returns the camera
// streams whose media object also exists. Cameras with a log but no media
// are skipped with a warning; the rest of the run continues without them.
func (s *Storage) DiscoverStreams(ctx context.Context, prefix, participantID string) ([]entity.CameraStream, error) {
	logPrefix := path.Join(prefix, "logs", participantID) + "/"

	var streams []entity.CameraStream
	for obj := range s.client.ListObjects(ctx, s.recordingsBkt, miniogo.ListObjectsOptions{Prefix: logPrefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list frame logs: %w", obj.Err)
		}

		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, "webcam_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		camID := strings.TrimSuffix(strings.TrimPrefix(name, "webcam_"), ".csv")

		for _, stream := range streamsForLog(prefix, participantID, camID, obj.Key) {
			if !s.objectExists(ctx, stream.MediaKey) {
				s.logger.Warn("camera media missing, skipping camera",
					zap.String("participant_id", participantID),
					zap.String("camera_id", stream.ID),
					zap.String("media_key", stream.MediaKey),
				)
				continue
			}
			streams = append(streams, stream)
		}
	}

	entity.SortCameraStreams(streams)
	return streams, nil
}

// streamsForLog expands one frame-log object into its camera streams. The
// azure log covers three modalities sharing the capture clock.
func streamsForLog(prefix, participantID, camID, logKey string) []entity.CameraStream {
	if camID == "azure_kinect" {
		azure := func(mod entity.Modality, media string) entity.CameraStream {
			return entity.CameraStream{
				ID:          string(mod),
				Modality:    mod,
				ClockID:     "azure_kinect",
				MediaKey:    path.Join(prefix, "images", participantID, "azure", media),
				FrameLogKey: logKey,
			}
		}
		return []entity.CameraStream{
			azure(entity.ModalityAzureColor, "webcam_azure_kinect_color.mp4"),
			azure(entity.ModalityAzureDepth, "webcam_azure_kinect_depth.mp4"),
			azure(entity.ModalityAzureIR, "webcam_azure_kinect_ir.mp4"),
		}
	}

	return []entity.CameraStream{{
		ID:          camID,
		Modality:    entity.ModalityWebcam,
		ClockID:     camID,
		MediaKey:    path.Join(prefix, "images", participantID, camID, "webcam_"+camID+".mp4"),
		FrameLogKey: logKey,
	}}
}

func (s *Storage) objectExists(ctx context.Context, key string) bool {
	_, err := s.client.StatObject(ctx, s.recordingsBkt, key, miniogo.StatObjectOptions{})
	return err == nil
}

func (s *Storage) DownloadGestureLog(ctx context.Context, prefix, participantID, destPath string) error {
	key := path.Join(prefix, "logs", participantID, "auto_labels.csv")
	return s.client.FGetObject(ctx, s.recordingsBkt, key, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) DownloadFrameLog(ctx context.Context, stream entity.CameraStream, destPath string) error {
	return s.client.FGetObject(ctx, s.recordingsBkt, stream.FrameLogKey, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) DownloadMedia(ctx context.Context, stream entity.CameraStream, destPath string) error {
	return s.client.FGetObject(ctx, s.recordingsBkt, stream.MediaKey, destPath, miniogo.GetObjectOptions{})
}

func (s *Storage) UploadClip(ctx context.Context, objectKey, filePath string) error {
	_, err := s.client.FPutObject(ctx, s.clipsBkt, objectKey, filePath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("upload clip %s: %w", objectKey, err)
	}
	return nil
}

func (s *Storage) UploadSummary(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.clipsBkt, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("upload summary %s: %w", objectKey, err)
	}
	return nil
}
