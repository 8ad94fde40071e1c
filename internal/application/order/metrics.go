package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sagaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservas",
		Subsystem: "order",
		Name:      "saga_total",
		Help:      "Ejecuciones del saga de órdenes por operación y resultado",
	}, []string{"operation", "outcome"})

	sagaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reservas",
		Subsystem: "order",
		Name:      "saga_duration_seconds",
		Help:      "Duración de cada operación del saga",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservas",
		Subsystem: "order",
		Name:      "compensations_total",
		Help:      "Compensaciones ejecutadas (release o restore) y su resultado",
	}, []string{"action", "outcome"})
)
