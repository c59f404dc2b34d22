package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
	"github.com/gesturelab/segmentation-service/internal/domain/port"
	"github.com/gesturelab/segmentation-service/internal/infra/metrics"
	"github.com/gesturelab/segmentation-service/internal/segmentation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SegmentRecordingUseCase drives one participant recording set through the
// segmentation pipeline: gesture log -> windows -> per-camera frame ranges ->
// encoded clips -> manifest.
type SegmentRecordingUseCase struct {
	jobs      port.JobRepository
	segments  port.SegmentRepository
	storage   port.RecordingStorage
	encoder   port.ClipEncoder
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       SegmentationConfig
}

type SegmentationConfig struct {
	TempDir            string
	MaxRetries         int
	BasePath           string
	SegmentDuration    time.Duration
	ReadingCutoff      time.Duration
	MinDuration        time.Duration
	TimestampTolerance time.Duration
	TargetFPS          float64
	StatsOnly          bool
}

func NewSegmentRecordingUseCase(
	jobs port.JobRepository,
	segments port.SegmentRepository,
	storage port.RecordingStorage,
	encoder port.ClipEncoder,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg SegmentationConfig,
) *SegmentRecordingUseCase {
	return &SegmentRecordingUseCase{
		jobs:      jobs,
		segments:  segments,
		storage:   storage,
		encoder:   encoder,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

func (uc *SegmentRecordingUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "SegmentRecordingUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.SegmentationRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.participant_id", msg.ParticipantID),
	)

	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("participant_id", msg.ParticipantID),
	)

	job, err := uc.jobs.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewSegmentationJob(msg.ParticipantID, uc.cfg.StatsOnly, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.jobs.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *SegmentRecordingUseCase) runPipeline(
	ctx context.Context,
	job *entity.SegmentationJob,
	msg entity.SegmentationRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	prefix := uc.cfg.BasePath
	if msg.ObjectPrefix != "" {
		prefix = msg.ObjectPrefix
	}

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Gesture log: the one input whose failure aborts the whole run.
	planStart := time.Now()
	ctx2, spanPlan := tracer.Start(ctx, "plan_windows")
	gestureLogPath := filepath.Join(workDir, "auto_labels.csv")
	if err := uc.storage.DownloadGestureLog(ctx2, prefix, msg.ParticipantID, gestureLogPath); err != nil {
		spanPlan.End()
		log.Error("failed to download gesture log", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_gesture_log: "+err.Error(), log)
	}

	eventLog, err := uc.parseGestureLog(gestureLogPath, msg.ParticipantID)
	if err != nil {
		spanPlan.End()
		if segmentation.IsMalformedLog(err) {
			log.Error("gesture log is malformed, nothing to plan", zap.Error(err))
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "parse_gesture_log: "+err.Error(), log)
	}
	if eventLog.OrderDisagreements > 0 {
		log.Warn("gesture log row order disagrees with timestamp order, timestamps used",
			zap.Int("rows_moved", eventLog.OrderDisagreements),
		)
	}

	planner := segmentation.Planner{
		ReadingCutoff:   uc.cfg.ReadingCutoff,
		SegmentDuration: uc.cfg.SegmentDuration,
		MinDuration:     uc.cfg.MinDuration,
	}
	windows := planner.Plan(eventLog.Events)
	spanPlan.End()
	metrics.StageDuration.WithLabelValues("plan").Observe(time.Since(planStart).Seconds())

	log.Info("segment windows planned",
		zap.Int("gestures", len(eventLog.Events)),
		zap.Int("windows", len(windows)),
	)

	// Camera discovery and timestamp indexing.
	indexStart := time.Now()
	ctx3, spanIdx := tracer.Start(ctx, "build_indexes")
	streams, err := uc.storage.DiscoverStreams(ctx3, prefix, msg.ParticipantID)
	if err != nil {
		spanIdx.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "discover_streams: "+err.Error(), log)
	}
	if len(streams) == 0 {
		spanIdx.End()
		log.Error("no camera streams with media found")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "no camera streams with media found")
	}

	extractor, err := uc.buildIndexes(ctx3, streams, workDir, log)
	spanIdx.End()
	if err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "build_indexes: "+err.Error(), log)
	}
	metrics.StageDuration.WithLabelValues("index").Observe(time.Since(indexStart).Seconds())

	// Per-camera extraction and encoding. Cameras are independent: each has
	// its own index and output files, so they run concurrently; the manifest
	// is the only shared structure and serializes its own appends.
	encodeStart := time.Now()
	ctx4, spanEnc := tracer.Start(ctx, "extract_and_encode")
	manifest := segmentation.NewManifestBuilder()

	var wg sync.WaitGroup
	for _, stream := range streams {
		wg.Add(1)
		go func(stream entity.CameraStream) {
			defer wg.Done()
			uc.processCamera(ctx4, stream, windows, extractor, manifest, workDir, prefix, msg.ParticipantID, log)
		}(stream)
	}
	wg.Wait()
	spanEnc.End()
	metrics.StageDuration.WithLabelValues("encode").Observe(time.Since(encodeStart).Seconds())

	// Export: summary CSV, database rows, status message.
	records := manifest.Records()
	stats := manifest.Stats()

	summaryKey := path.Join(prefix, "post-processed", msg.ParticipantID, "training_summary.csv")
	var summary bytes.Buffer
	if err := manifest.WriteCSV(&summary); err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "render_summary: "+err.Error(), log)
	}
	if !uc.cfg.StatsOnly {
		if err := uc.storage.UploadSummary(ctx, summaryKey, bytes.NewReader(summary.Bytes()), int64(summary.Len())); err != nil {
			log.Error("summary upload failed", zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_summary: "+err.Error(), log)
		}
	}

	if err := uc.segments.DeleteSegmentsForJob(ctx, job.ID); err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "clear_segments: "+err.Error(), log)
	}
	if err := uc.segments.InsertSegments(ctx, job.ID, records); err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "insert_segments: "+err.Error(), log)
	}

	job.MarkCompleted(len(streams), stats.Accepted, stats.Rejected, stats.TrainingSeconds, summaryKey)
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	metrics.TrainingSecondsTotal.Add(stats.TrainingSeconds)
	uc.publishStatus(ctx, job, log)
	uc.logRunReport(records, stats, len(streams), log)

	return nil
}

func (uc *SegmentRecordingUseCase) parseGestureLog(logPath, participantID string) (*segmentation.EventLog, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("open gesture log: %w", err)
	}
	defer f.Close()
	return segmentation.ParseGestureLog(f, participantID)
}

// buildIndexes downloads and parses one frame log per capture clock. A clock
// whose log is unusable only disables its own cameras (their segments come
// out NO_FRAMES); it never aborts the run.
func (uc *SegmentRecordingUseCase) buildIndexes(
	ctx context.Context,
	streams []entity.CameraStream,
	workDir string,
	log *zap.Logger,
) (*segmentation.Extractor, error) {
	extractor := segmentation.NewExtractor()

	for _, stream := range streams {
		if _, ok := extractor.Index(stream.ClockID); ok {
			continue
		}

		logPath := filepath.Join(workDir, "framelog_"+stream.ClockID+".csv")
		if err := uc.storage.DownloadFrameLog(ctx, stream, logPath); err != nil {
			return nil, fmt.Errorf("download frame log for clock %s: %w", stream.ClockID, err)
		}

		f, err := os.Open(logPath)
		if err != nil {
			return nil, fmt.Errorf("open frame log: %w", err)
		}
		idx, err := segmentation.ParseFrameLog(f, stream.ClockID, uc.cfg.TimestampTolerance)
		f.Close()
		if err != nil {
			log.Warn("frame log unusable, cameras on this clock get no frames",
				zap.String("clock_id", stream.ClockID),
				zap.Error(err),
			)
			continue
		}

		if idx.Corrupted() > 0 {
			metrics.CorruptFrameRowsTotal.Add(float64(idx.Corrupted()))
			log.Warn("dropped corrupt frame-log rows",
				zap.String("clock_id", stream.ClockID),
				zap.Int("dropped", idx.Corrupted()),
				zap.Int("kept", idx.Len()),
			)
		}
		extractor.AddIndex(stream.ClockID, idx)
	}

	return extractor, nil
}

// processCamera walks every window for one camera, appending a manifest row
// per gesture. Camera-local failures (missing media, encode errors) reject
// segments for this camera only.
func (uc *SegmentRecordingUseCase) processCamera(
	ctx context.Context,
	stream entity.CameraStream,
	windows []entity.SegmentWindow,
	extractor *segmentation.Extractor,
	manifest *segmentation.ManifestBuilder,
	workDir, prefix, participantID string,
	log *zap.Logger,
) {
	camLog := log.With(zap.String("camera_id", stream.ID))

	var mediaPath string
	var nativeFPS float64
	if !uc.cfg.StatsOnly {
		mediaPath = filepath.Join(workDir, "media_"+stream.ID+".mp4")
		if err := uc.storage.DownloadMedia(ctx, stream, mediaPath); err != nil {
			camLog.Warn("camera media unavailable, skipping camera", zap.Error(err))
			return
		}
		info, err := uc.encoder.Probe(ctx, mediaPath)
		if err != nil {
			camLog.Warn("camera media unreadable, skipping camera", zap.Error(err))
			return
		}
		nativeFPS = info.FPS
	}

	camDir := filepath.Join(workDir, "post-processed", participantID, "camera_"+stream.ID)
	if !uc.cfg.StatsOnly {
		if err := os.MkdirAll(camDir, 0755); err != nil {
			camLog.Error("failed to create camera output dir", zap.Error(err))
			return
		}
	}

	segmentIndex := 0
	for _, window := range windows {
		extraction := extractor.Extract(stream, window)
		rec := uc.buildRecord(stream, window, participantID)

		switch extraction.State {
		case entity.SegmentTooShort:
			metrics.SegmentsRejectedTotal.WithLabelValues(segmentation.RejectTooShort).Inc()

		case entity.SegmentNoFrames:
			metrics.SegmentsRejectedTotal.WithLabelValues(segmentation.RejectNoFrames).Inc()
			camLog.Warn("no frames in window",
				zap.Int("gesture_index", window.GestureIndex),
				zap.Time("start", window.EffectiveStart),
				zap.Time("end", window.EffectiveEnd),
			)

		case entity.SegmentFramesFound:
			filename := segmentation.ClipFilename(participantID, stream.ID, segmentIndex, window.GestureName)
			objectKey := path.Join(prefix, "post-processed", participantID, "camera_"+stream.ID, filename)

			if uc.cfg.StatsOnly {
				rec.TrainingReady = true
				rec.TrainingDuration = window.Duration()
				rec.Filename = filename
				rec.Filepath = objectKey
				segmentIndex++
				metrics.SegmentsAcceptedTotal.Inc()
				break
			}

			outputPath := filepath.Join(camDir, filename)
			result, err := uc.encoder.EncodeSegment(ctx, port.EncodeRequest{
				InputPath:  mediaPath,
				OutputPath: outputPath,
				Modality:   stream.Modality,
				Range:      extraction.Range,
				NativeFPS:  nativeFPS,
				TargetFPS:  uc.cfg.TargetFPS,
				Duration:   window.Duration(),
			})
			if err != nil {
				camLog.Error("segment encode failed",
					zap.Int("gesture_index", window.GestureIndex),
					zap.Error(err),
				)
				metrics.SegmentsRejectedTotal.WithLabelValues("encode_error").Inc()
				break
			}
			if err := uc.storage.UploadClip(ctx, objectKey, outputPath); err != nil {
				camLog.Error("clip upload failed",
					zap.String("filename", filename),
					zap.Error(err),
				)
				metrics.SegmentsRejectedTotal.WithLabelValues("upload_error").Inc()
				break
			}

			rec.TrainingReady = true
			rec.TrainingDuration = window.Duration()
			rec.Filename = filename
			rec.Filepath = objectKey
			segmentIndex++
			metrics.SegmentsAcceptedTotal.Inc()
			metrics.ClipFramesWrittenTotal.Add(float64(result.FramesWritten))
		}

		if err := manifest.Append(rec); err != nil {
			camLog.Error("manifest append failed", zap.Error(err))
		}
	}
}

// buildRecord creates the rejected-shape row; acceptance fills in training
// fields and the filename. Records are immutable once appended.
func (uc *SegmentRecordingUseCase) buildRecord(
	stream entity.CameraStream,
	window entity.SegmentWindow,
	participantID string,
) entity.SegmentRecord {
	return entity.SegmentRecord{
		ParticipantID:       participantID,
		CameraID:            stream.ID,
		SegmentID:           fmt.Sprintf("p%s_cam%s_g%03d", participantID, stream.ID, window.GestureIndex),
		GestureName:         window.GestureName,
		GestureIndex:        window.GestureIndex,
		GestureTime:         window.GestureOnset,
		StartTime:           window.EffectiveStart,
		EndTime:             window.EffectiveEnd,
		Duration:            window.Duration(),
		ReadingTimeExcluded: uc.cfg.ReadingCutoff > 0,
		TrainingReady:       false,
	}
}

// logRunReport prints the legible end-of-run summary: per-camera counts and
// the gesture distribution of accepted segments.
func (uc *SegmentRecordingUseCase) logRunReport(
	records []entity.SegmentRecord,
	stats segmentation.ManifestStats,
	cameras int,
	log *zap.Logger,
) {
	perCamera := make(map[string]int)
	perGesture := make(map[string]int)
	for _, rec := range records {
		if rec.TrainingReady {
			perCamera[rec.CameraID]++
			perGesture[rec.GestureName]++
		}
	}

	fields := []zap.Field{
		zap.Int("cameras", cameras),
		zap.Int("segments_accepted", stats.Accepted),
		zap.Int("segments_rejected", stats.Rejected),
		zap.Float64("training_seconds", stats.TrainingSeconds),
		zap.Bool("stats_only", uc.cfg.StatsOnly),
	}
	for cam, n := range perCamera {
		fields = append(fields, zap.Int("camera_"+cam+"_segments", n))
	}
	for gesture, n := range perGesture {
		fields = append(fields, zap.Int("gesture_"+gesture+"_segments", n))
	}
	log.Info("segmentation run complete", fields...)
}

func (uc *SegmentRecordingUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.SegmentationJob,
	msg entity.SegmentationRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *SegmentRecordingUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.SegmentationJob,
	msg entity.SegmentationRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.jobs.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.NotifyEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.NotifyEmail, job.ID.String(), msg.ParticipantID, errMsg)
	}

	return nil
}

func (uc *SegmentRecordingUseCase) publishStatus(ctx context.Context, job *entity.SegmentationJob, log *zap.Logger) {
	statusMsg := entity.SegmentationStatusMessage{
		JobID:            job.ID,
		ParticipantID:    job.ParticipantID,
		Status:           job.Status,
		CamerasProcessed: job.CamerasProcessed,
		SegmentsAccepted: job.SegmentsAccepted,
		SegmentsRejected: job.SegmentsRejected,
		TrainingSeconds:  job.TrainingSeconds,
		SummaryKey:       job.SummaryKey,
		ErrorMessage:     job.ErrorMessage,
		Attempt:          job.Attempt,
		MaxAttempts:      job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
