package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "chesscast",
	Subsystem: "session",
	Name:      "active",
	Help:      "Number of tokens with a session.",
})
