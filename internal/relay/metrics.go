package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCreated counts cross-chain transactions created at
	// settlement.
	TransactionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_relay_transactions_created_total",
		Help: "Total number of cross-chain payout transactions created",
	})

	// TransactionsByStatus counts status transitions by target status.
	TransactionsByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predictpool_relay_status_transitions_total",
		Help: "Total number of cross-chain transaction status transitions",
	}, []string{"status"})

	// SignatureFailures counts signing requests that returned an error or
	// empty signature.
	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_relay_signature_failures_total",
		Help: "Total number of failed threshold signature requests",
	})

	// SignatureTimeouts counts Pending transactions failed by the timeout
	// sweeper.
	SignatureTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_relay_signature_timeouts_total",
		Help: "Total number of transactions failed because no signature callback arrived in time",
	})
)
