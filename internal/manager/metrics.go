package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Name:      "downloads_total",
			Help:      "Finished model downloads by source and result",
		},
		[]string{"source", "result"},
	)

	downloadsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatd",
			Name:      "downloads_active",
			Help:      "Download workers currently running",
		},
	)

	instanceLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Name:      "instance_loads_total",
			Help:      "Model instance constructions by architecture and result",
		},
		[]string{"architecture", "result"},
	)

	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Name:      "chat_requests_total",
			Help:      "Chat calls by architecture and result",
		},
		[]string{"architecture", "result"},
	)

	chatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatd",
			Name:      "chat_duration_seconds",
			Help:      "Time spent generating a chat reply",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"architecture"},
	)
)

func init() {
	prometheus.MustRegister(downloadsTotal, downloadsActive, instanceLoadsTotal, chatRequestsTotal, chatDuration)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
