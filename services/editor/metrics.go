package editor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	savesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_editor_saves_total",
		Help: "Editor saves by resource and outcome (ok, error, invalid).",
	}, []string{"resource", "outcome"})

	saveSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_editor_save_seconds",
		Help:    "Latency of editor saves reaching the store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
)
