package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprep_pipeline_runs_total",
			Help: "Total number of full pipeline runs",
		},
		[]string{"status"}, // status: ok, partial, error
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docprep_pipeline_run_duration_seconds",
			Help:    "Full pipeline run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docprep_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Stage outcome metrics
	skewResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprep_skew_results_total",
			Help: "Skew estimation outcomes",
		},
		[]string{"status"}, // status: rotated, too_small, no_lines, below_min
	)

	blocksDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docprep_blocks_detected",
			Help:    "Number of text blocks detected per page",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"strategy"},
	)

	recognitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprep_block_recognitions_total",
			Help: "Per-block recognition outcomes",
		},
		[]string{"status"}, // status: ok, failed, skipped
	)

	textLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docprep_text_length",
			Help:    "Length of recognized text per run",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)
)
