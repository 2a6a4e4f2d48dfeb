// Prometheus counters for coordinator runs. Exposition is left to the
// outer wrapper; the engine only increments.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airnode_coordinator_runs_started_total",
		Help: "Coordinator runs started",
	})

	RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airnode_coordinator_runs_completed_total",
		Help: "Coordinator runs completed without fatal error",
	})

	RequestsByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airnode_coordinator_requests_total",
		Help: "Requests observed, labelled by terminal status",
	}, []string{"status"})

	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airnode_coordinator_api_calls_total",
		Help: "Aggregated API calls executed, labelled by outcome",
	}, []string{"outcome"})

	TransactionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airnode_coordinator_transactions_total",
		Help: "Fulfillment transactions submitted, labelled by kind",
	}, []string{"kind"})
)
