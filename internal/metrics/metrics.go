package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventPolls tracks event poll attempts per event type and outcome
	EventPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_event_polls_total",
			Help: "Total number of event polls",
		},
		[]string{"event_type", "status"},
	)

	// EventsDispatched tracks events delivered to subscriber callbacks
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_events_dispatched_total",
			Help: "Total number of events delivered to subscribers",
		},
		[]string{"event_type"},
	)

	// EventCallbackErrors tracks subscriber callbacks that failed or panicked
	EventCallbackErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_event_callback_errors_total",
			Help: "Total number of failed subscriber callbacks",
		},
		[]string{"event_type"},
	)

	// ActiveSubscriptions tracks live event subscriptions
	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movement_active_subscriptions",
			Help: "Number of active event subscriptions",
		},
	)

	// EventWatermark tracks the last delivered sequence number per event type
	EventWatermark = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movement_event_last_sequence_number",
			Help: "Last delivered event sequence number",
		},
		[]string{"event_type"},
	)

	// WalletOperations tracks wallet calls per wallet, operation and outcome
	WalletOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_wallet_operations_total",
			Help: "Total number of wallet operations",
		},
		[]string{"wallet", "operation", "status"},
	)

	// RPCCallsTotal tracks RPC calls per provider and operation
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movement_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movement_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// LedgerVersion tracks the latest ledger version reported by the node
	LedgerVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movement_ledger_version",
			Help: "Latest ledger version reported by the fullnode",
		},
	)
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
