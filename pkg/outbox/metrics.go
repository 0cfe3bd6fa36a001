package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	enqueueTotal  *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec
	deadTotal     *prometheus.CounterVec
	pending       prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *metrics
)

func getMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInst = &metrics{
			enqueueTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "outbox_enqueue_total",
				Help: "Сколько событий положено в outbox.",
			}, []string{"topic"}),
			dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "outbox_dispatch_total",
				Help: "Попытки доставки по топику и результату.",
			}, []string{"topic", "result"}),
			deadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "outbox_dead_total",
				Help: "События, переведенные в dead-letter.",
			}, []string{"topic"}),
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "outbox_pending",
				Help: "Недоставленные события в outbox.",
			}),
		}
		prometheus.MustRegister(
			metricsInst.enqueueTotal,
			metricsInst.dispatchTotal,
			metricsInst.deadTotal,
			metricsInst.pending,
		)
	})
	return metricsInst
}
