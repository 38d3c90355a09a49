package hub

import "github.com/prometheus/client_golang/prometheus"

var downloadBytesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chatd",
		Name:      "download_bytes_total",
		Help:      "Bytes fetched from model hubs",
	},
	[]string{"source"},
)

func init() {
	prometheus.MustRegister(downloadBytesTotal)
}
