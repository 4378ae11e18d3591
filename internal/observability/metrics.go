package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpf",
		Name:      "scans_processed_total",
		Help:      "Total number of scan requests processed, by outcome",
	}, []string{"outcome"})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mpf",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in scan images",
	})

	CandidatesCompared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mpf",
		Name:      "candidates_compared_total",
		Help:      "Total number of stored embeddings compared against probes",
	})

	MatchesFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mpf",
		Name:      "matches_found_total",
		Help:      "Total number of scans that matched an open case",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpf",
		Name:      "notifications_sent_total",
		Help:      "Total number of guardian notification dispatches, by result",
	}, []string{"result"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mpf",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mpf",
		Name:      "queue_depth",
		Help:      "Number of pending scan tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mpf",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mpf",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
