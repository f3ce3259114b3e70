// Package metrics defines the coordinator's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Invocations counts execute invocations by kind and outcome.
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_invocations_total",
			Help: "Total execute invocations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// InvocationDuration observes execute invocation latency by kind.
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordinator_invocation_duration_seconds",
			Help:    "Execute invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// MintQueueDepth gauges the number of mint requests awaiting a
	// provisioning callback.
	MintQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_mint_queue_depth",
		Help: "Mint requests awaiting provisioning completion",
	})

	// TokensBound counts tokens bound to a controller since start.
	TokensBound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_tokens_bound_total",
		Help: "Tokens bound to a remote account controller",
	})

	// CallbacksReceived counts inbound controller callbacks by kind.
	CallbacksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_callbacks_received_total",
			Help: "Inbound controller callbacks by kind",
		},
		[]string{"kind"},
	)

	// OutboundMessages counts messages published toward controllers and
	// the provisioning subsystem.
	OutboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_outbound_messages_total",
			Help: "Outbound messages by subject",
		},
		[]string{"subject"},
	)

	// OutboundSendFailures counts outbound messages that failed after
	// their invocation committed. Non-zero values need operator attention:
	// the state change is durable but its message never left.
	OutboundSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_outbound_send_failures_total",
		Help: "Outbound messages that failed after their transaction committed",
	})

	// NATSConnectionStatus reports messaging-channel connectivity.
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})
)
