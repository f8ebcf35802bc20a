// Package metrics exposes Prometheus collectors for the control plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks commands waiting per cluster worker.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dip_worker_queue_depth",
		Help: "Commands waiting in a cluster worker queue.",
	}, []string{"cluster_id"})

	// StateTransitions counts status writes per entity kind and target state.
	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dip_state_transitions_total",
		Help: "Lifecycle state transitions persisted to the store.",
	}, []string{"entity", "status"})

	// HTTPRequests counts requests by route pattern and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dip_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "route", "code"})
)
