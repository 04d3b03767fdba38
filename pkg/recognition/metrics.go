package recognition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chesscast",
		Subsystem: "recognition",
		Name:      "workers_active",
		Help:      "The number of running recognition workers.",
	})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "recognition",
		Name:      "frames_sent_total",
		Help:      "Frames written into recognition workers.",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "recognition",
		Name:      "frames_dropped_total",
		Help:      "Frames pushed out of full worker queues.",
	})
	results = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "recognition",
		Name:      "results_total",
		Help:      "Worker output lines by outcome.",
	}, []string{"outcome"})
	diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "recognition",
		Name:      "diagnostics_total",
		Help:      "Worker diagnostics by kind.",
	}, []string{"kind"})
)
