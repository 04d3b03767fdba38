package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chesscast",
		Subsystem: "media",
		Name:      "rooms",
		Help:      "Number of media rooms.",
	})
	transports = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chesscast",
		Subsystem: "media",
		Name:      "transports",
		Help:      "Number of open transports.",
	})
	producers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "media",
		Name:      "producers_total",
		Help:      "Producers created.",
	})
	consumers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chesscast",
		Subsystem: "media",
		Name:      "consumers_total",
		Help:      "Consumers created.",
	})
)
