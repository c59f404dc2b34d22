package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gesturelab/segmentation-service/internal/domain/entity"
	"github.com/gesturelab/segmentation-service/internal/domain/port"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStorage struct {
	mu sync.Mutex

	streams    []entity.CameraStream
	gestureLog string
	frameLogs  map[string]string // clock ID -> frame log CSV
	mediaOK    map[string]bool   // camera ID -> media downloadable

	uploadedClips []string
	summaryKey    string
	summaryBody   string
}

func (f *fakeStorage) DiscoverStreams(_ context.Context, _, _ string) ([]entity.CameraStream, error) {
	return f.streams, nil
}

func (f *fakeStorage) DownloadGestureLog(_ context.Context, _, _, destPath string) error {
	return os.WriteFile(destPath, []byte(f.gestureLog), 0644)
}

func (f *fakeStorage) DownloadFrameLog(_ context.Context, stream entity.CameraStream, destPath string) error {
	body, ok := f.frameLogs[stream.ClockID]
	if !ok {
		return fmt.Errorf("no frame log for clock %s", stream.ClockID)
	}
	return os.WriteFile(destPath, []byte(body), 0644)
}

func (f *fakeStorage) DownloadMedia(_ context.Context, stream entity.CameraStream, destPath string) error {
	if !f.mediaOK[stream.ID] {
		return errors.New("object does not exist")
	}
	return os.WriteFile(destPath, []byte("media"), 0644)
}

func (f *fakeStorage) UploadClip(_ context.Context, objectKey, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadedClips = append(f.uploadedClips, objectKey)
	return nil
}

func (f *fakeStorage) UploadSummary(_ context.Context, objectKey string, reader io.Reader, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.summaryKey = objectKey
	f.summaryBody = string(body)
	return nil
}

type fakeEncoder struct {
	mu      sync.Mutex
	encoded []port.EncodeRequest
	failAll bool
}

func (f *fakeEncoder) Probe(_ context.Context, _ string) (*port.MediaInfo, error) {
	return &port.MediaInfo{FPS: 10}, nil
}

func (f *fakeEncoder) EncodeSegment(_ context.Context, req port.EncodeRequest) (*port.EncodeResult, error) {
	if f.failAll {
		return nil, errors.New("encode failed")
	}
	f.mu.Lock()
	f.encoded = append(f.encoded, req)
	f.mu.Unlock()
	if err := os.WriteFile(req.OutputPath, []byte("clip"), 0644); err != nil {
		return nil, err
	}
	return &port.EncodeResult{FramesWritten: req.Range.Count()}, nil
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.SegmentationJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*entity.SegmentationJob)}
}

func (f *fakeJobRepo) Create(_ context.Context, job *entity.SegmentationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) Update(_ context.Context, job *entity.SegmentationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.SegmentationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

type fakeSegmentRepo struct {
	mu       sync.Mutex
	inserted []entity.SegmentRecord
	deleted  int
}

func (f *fakeSegmentRepo) InsertSegments(_ context.Context, _ uuid.UUID, records []entity.SegmentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeSegmentRepo) DeleteSegmentsForJob(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	statuses [][]byte
}

func (f *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, msg)
	return nil
}

type fakeDLQ struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, email, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, email)
	return nil
}

var testBase = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func ts(offset time.Duration) string {
	return testBase.Add(offset).Format("2006-01-02 15:04:05.000")
}

// frameLogCSV produces a 10 fps frame log spanning the given duration.
func frameLogCSV(span time.Duration) string {
	var sb strings.Builder
	sb.WriteString("frame_index,timestamp\n")
	step := 100 * time.Millisecond
	for i := 0; time.Duration(i)*step <= span; i++ {
		fmt.Fprintf(&sb, "%d,%s\n", i, ts(time.Duration(i)*step))
	}
	return sb.String()
}

func gestureLogCSV() string {
	return "gesture_index,gesture_name,timestamp\n" +
		"0,Wave Hello," + ts(0) + "\n" +
		"1,Point Up," + ts(20*time.Second) + "\n"
}

func testConfig(t *testing.T, statsOnly bool) SegmentationConfig {
	t.Helper()
	return SegmentationConfig{
		TempDir:            t.TempDir(),
		MaxRetries:         3,
		BasePath:           "dataset",
		SegmentDuration:    15 * time.Second,
		ReadingCutoff:      5 * time.Second,
		MinDuration:        3 * time.Second,
		TimestampTolerance: 100 * time.Millisecond,
		TargetFPS:          30,
		StatsOnly:          statsOnly,
	}
}

func testStreams() []entity.CameraStream {
	return []entity.CameraStream{
		{ID: "azure_color", Modality: entity.ModalityAzureColor, ClockID: "azure_kinect"},
		{ID: "0", Modality: entity.ModalityWebcam, ClockID: "webcam_0"},
	}
}

func newTestUseCase(t *testing.T, storage *fakeStorage, statsOnly bool) (*SegmentRecordingUseCase, *fakeJobRepo, *fakeSegmentRepo, *fakePublisher, *fakeDLQ, *fakeNotifier, *fakeEncoder) {
	t.Helper()
	jobs := newFakeJobRepo()
	segments := &fakeSegmentRepo{}
	publisher := &fakePublisher{}
	dlq := &fakeDLQ{}
	notifier := &fakeNotifier{}
	encoder := &fakeEncoder{}
	uc := NewSegmentRecordingUseCase(
		jobs, segments, storage, encoder, publisher, dlq, notifier,
		zap.NewNop(), testConfig(t, statsOnly),
	)
	return uc, jobs, segments, publisher, dlq, notifier, encoder
}

func requestBody(jobID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{"job_id":%q,"participant_id":"07","notify_email":"lab@example.com"}`, jobID.String()))
}

func TestExecuteFullRun(t *testing.T) {
	storage := &fakeStorage{
		streams:    testStreams(),
		gestureLog: gestureLogCSV(),
		frameLogs: map[string]string{
			"azure_kinect": frameLogCSV(45 * time.Second),
			"webcam_0":     frameLogCSV(45 * time.Second),
		},
		mediaOK: map[string]bool{"azure_color": true, "0": true},
	}
	uc, jobs, segments, publisher, dlq, _, encoder := newTestUseCase(t, storage, false)

	jobID := uuid.New()
	err := uc.Execute(context.Background(), requestBody(jobID))
	require.NoError(t, err)

	job, err := jobs.FindByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.CamerasProcessed)
	assert.Equal(t, 4, job.SegmentsAccepted)
	assert.Zero(t, job.SegmentsRejected)

	// 2 cameras x 2 gestures, all accepted and uploaded.
	assert.Len(t, segments.inserted, 4)
	assert.Len(t, storage.uploadedClips, 4)
	assert.Len(t, encoder.encoded, 4)
	assert.Equal(t, 1, segments.deleted)
	assert.Empty(t, dlq.reasons)
	require.Len(t, publisher.statuses, 1)
	assert.Contains(t, string(publisher.statuses[0]), `"status":"COMPLETED"`)

	assert.Contains(t, storage.summaryKey, "training_summary.csv")
	assert.Contains(t, storage.summaryBody, "wave_hello")
	assert.Contains(t, storage.summaryBody, "point_up")

	for _, rec := range segments.inserted {
		assert.True(t, rec.TrainingReady)
		assert.NotEmpty(t, rec.Filename)
	}
}

func TestExecuteStatsOnly(t *testing.T) {
	storage := &fakeStorage{
		streams:    testStreams(),
		gestureLog: gestureLogCSV(),
		frameLogs: map[string]string{
			"azure_kinect": frameLogCSV(45 * time.Second),
			"webcam_0":     frameLogCSV(45 * time.Second),
		},
	}
	uc, jobs, segments, _, _, _, encoder := newTestUseCase(t, storage, true)

	jobID := uuid.New()
	require.NoError(t, uc.Execute(context.Background(), requestBody(jobID)))

	job, err := jobs.FindByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 4, job.SegmentsAccepted)

	// Accounting only: no media touched, nothing encoded or uploaded.
	assert.Empty(t, encoder.encoded)
	assert.Empty(t, storage.uploadedClips)
	assert.Empty(t, storage.summaryKey)
	assert.Len(t, segments.inserted, 4)
}

func TestExecuteMalformedGestureLog(t *testing.T) {
	storage := &fakeStorage{
		streams:    testStreams(),
		gestureLog: "gesture_index,gesture_name,timestamp\n",
	}
	uc, jobs, _, _, dlq, notifier, _ := newTestUseCase(t, storage, false)

	jobID := uuid.New()
	err := uc.Execute(context.Background(), requestBody(jobID))
	require.NoError(t, err, "permanent failures are consumed, not redelivered")

	job, err := jobs.FindByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	require.Len(t, dlq.reasons, 1)
	assert.Contains(t, dlq.reasons[0], "gesture log")
	assert.Equal(t, []string{"lab@example.com"}, notifier.emails)
}

func TestExecuteBadJSON(t *testing.T) {
	uc, _, _, _, dlq, _, _ := newTestUseCase(t, &fakeStorage{}, false)

	err := uc.Execute(context.Background(), []byte("{not json"))
	require.NoError(t, err)
	require.Len(t, dlq.reasons, 1)
	assert.Contains(t, dlq.reasons[0], "unmarshal_error")
}

func TestExecuteMissingMediaSkipsCamera(t *testing.T) {
	storage := &fakeStorage{
		streams:    testStreams(),
		gestureLog: gestureLogCSV(),
		frameLogs: map[string]string{
			"azure_kinect": frameLogCSV(45 * time.Second),
			"webcam_0":     frameLogCSV(45 * time.Second),
		},
		mediaOK: map[string]bool{"azure_color": true}, // webcam 0 lost its media
	}
	uc, jobs, segments, _, _, _, _ := newTestUseCase(t, storage, false)

	jobID := uuid.New()
	require.NoError(t, uc.Execute(context.Background(), requestBody(jobID)))

	job, err := jobs.FindByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.SegmentsAccepted)

	require.Len(t, segments.inserted, 2)
	for _, rec := range segments.inserted {
		assert.Equal(t, "azure_color", rec.CameraID)
	}
}

func TestExecuteUnusableFrameLogRejectsSegments(t *testing.T) {
	storage := &fakeStorage{
		streams:    testStreams(),
		gestureLog: gestureLogCSV(),
		frameLogs: map[string]string{
			"azure_kinect": frameLogCSV(45 * time.Second),
			"webcam_0":     "frame_index,timestamp\n", // empty after header
		},
		mediaOK: map[string]bool{"azure_color": true, "0": true},
	}
	uc, jobs, segments, _, _, _, _ := newTestUseCase(t, storage, false)

	jobID := uuid.New()
	require.NoError(t, uc.Execute(context.Background(), requestBody(jobID)))

	job, err := jobs.FindByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.SegmentsAccepted)
	assert.Equal(t, 2, job.SegmentsRejected)

	require.Len(t, segments.inserted, 4)
	for _, rec := range segments.inserted {
		if rec.CameraID == "0" {
			assert.False(t, rec.TrainingReady, "camera without usable frame log must not be training-ready")
		} else {
			assert.True(t, rec.TrainingReady)
		}
	}
}
