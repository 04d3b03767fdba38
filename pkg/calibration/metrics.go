package calibration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	calibrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "calibration",
		Name:      "runs_total",
		Help:      "Calibration runs by outcome.",
	}, []string{"outcome"})
	calibrationTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chesscast",
		Subsystem: "calibration",
		Name:      "duration_seconds",
		Help:      "Calibration run time.",
		Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60},
	})
)
