package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gesturelab_jobs_processed_total",
		Help: "Total number of segmentation jobs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gesturelab_stage_duration_seconds",
		Help:    "Duration of segmentation pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	SegmentsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gesturelab_segments_accepted_total",
		Help: "Total number of training-ready segments produced",
	})

	SegmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gesturelab_segments_rejected_total",
		Help: "Total number of rejected segments, by reason",
	}, []string{"reason"})

	CorruptFrameRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gesturelab_corrupt_frame_rows_total",
		Help: "Frame-log rows dropped during timestamp index cleaning",
	})

	ClipFramesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gesturelab_clip_frames_written_total",
		Help: "Total frames written across all encoded clips",
	})

	TrainingSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gesturelab_training_seconds_total",
		Help: "Total seconds of training-ready video produced",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gesturelab_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gesturelab_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
