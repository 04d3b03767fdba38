package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chesscast",
		Subsystem: "gateway",
		Name:      "clients",
		Help:      "Number of connected clients.",
	})
	events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "gateway",
		Name:      "events_total",
		Help:      "Inbound events by type.",
	}, []string{"t"})
	framesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "gateway",
		Name:      "frames_relayed_total",
		Help:      "Frames sent to viewers.",
	})
	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "gateway",
		Name:      "frames_skipped_total",
		Help:      "Frames not sent to slow viewers.",
	})
)
