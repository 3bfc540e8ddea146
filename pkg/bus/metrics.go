package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "framecast",
	Name:      "frames_dropped_total",
	Help:      "Coded frames dropped on a full send backlog.",
})
