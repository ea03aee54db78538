package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
	QueueDLQSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_dlq_size",
			Help: "Number of tasks parked in the dead-letter queue",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(QueueProcessedTotal, QueueDLQSize)
}

func recordProcessed(kind, status string) {
	QueueProcessedTotal.WithLabelValues(kind, status).Inc()
}
