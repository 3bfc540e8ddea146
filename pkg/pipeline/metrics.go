package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFramesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Name:      "frames_published_total",
		Help:      "Encoded frames handed to the session bus.",
	})
	metricFramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Name:      "frames_skipped_total",
		Help:      "Frames the encoder decided to skip.",
	})
	metricEncodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Name:      "encode_failures_total",
		Help:      "Per-frame encode failures, the stream continues.",
	})
	metricFramesOversized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Name:      "frames_oversized_total",
		Help:      "Coded frames dropped for exceeding the assembly buffer.",
	})
	metricBytesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framecast",
		Name:      "published_bytes_total",
		Help:      "Total coded payload bytes published.",
	})
	metricEncodeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "framecast",
		Name:      "encode_seconds",
		Help:      "Wall time of one encode invocation.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)
