package reservation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal cuenta operaciones por tipo y resultado.
	// outcome: ok, error o el código de fallo (insufficient_stock, reservation_expired, ...).
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reservas",
		Subsystem: "reservation",
		Name:      "operations_total",
		Help:      "Operaciones del ledger de reservas por tipo y resultado",
	}, []string{"operation", "outcome"})

	expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reservas",
		Subsystem: "reservation",
		Name:      "expired_total",
		Help:      "Reservas eliminadas por vencimiento del TTL",
	})

	activeActors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reservas",
		Subsystem: "reservation",
		Name:      "active_actors",
		Help:      "Actores (producto, bodega) cargados en memoria",
	})
)

func observe(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
