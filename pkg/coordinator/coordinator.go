// Coordinator run orchestration.
//
// One Run is a short batch: initialize every chain provider (bounded
// fan-out, joined), aggregate equivalent requests across providers,
// execute each aggregated API call once, disaggregate the results and
// submit the resulting transactions. All state between stages flows by
// value; the returned log stream is deterministic for identical inputs.

package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/airnode/coordinator/pkg/aggregation"
	"github.com/airnode/coordinator/pkg/api"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/evm/fulfillments"
	"github.com/airnode/coordinator/pkg/evm/provider"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/metrics"
	"github.com/airnode/coordinator/pkg/requests"
	"github.com/airnode/coordinator/pkg/wallet"
)

const (
	// RunTimeout bounds one coordinator run end to end
	RunTimeout = 2 * time.Minute

	// MaxConcurrentProviderInits bounds the provider fan-out
	MaxConcurrentProviderInits = 4
)

// Run executes one coordinator batch and returns the final state with
// the run's ordered log stream. A non-nil error means the run could not
// start at all; per-provider failures only log and skip that provider.
func Run(ctx context.Context, cfg *config.Config, master *wallet.MasterHDNode) ([]logger.Log, State, error) {
	ctx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()

	runID := uuid.NewString()
	state := New(runID, cfg)
	logs := []logger.Log{logger.Info("Coordinator run %s starting", runID)}
	metrics.RunsStarted.Inc()

	// Stage 1: per-provider initialization, joined before aggregation
	initLogs, providers := initializeProviders(ctx, cfg, master)
	logs = append(logs, initLogs...)
	if len(providers) == 0 {
		logs = append(logs, logger.Errorf("No chain provider could be initialized, aborting run %s", runID))
		return logs, state, fmt.Errorf("no chain provider could be initialized")
	}
	state = Update(state, func(s *State) { s.EVMProviders = providers })

	// Stage 2: aggregation across providers
	providerCalls := make([][]requests.APICall, len(providers))
	for i, p := range providers {
		providerCalls[i] = p.Requests.APICalls
	}
	aggLogs, aggregated, providerCalls := aggregation.Aggregate(cfg, providerCalls)
	logs = append(logs, aggLogs...)
	logs = append(logs, logger.Info("Aggregated %d API call(s) for run %s", len(aggregated), runID))

	// Stage 3: execution, joined before disaggregation
	execLogs, executed := api.Execute(ctx, cfg, aggregated)
	logs = append(logs, execLogs...)

	// Stage 4: disaggregation back onto each provider
	disaggLogs, providerCalls := aggregation.Disaggregate(providerCalls, executed)
	logs = append(logs, disaggLogs...)

	updatedProviders := make([]provider.State, len(providers))
	for i, p := range providers {
		calls := providerCalls[i]
		updatedProviders[i] = p.With(func(s *provider.State) {
			s.Requests = requests.Grouped{APICalls: calls, Withdrawals: p.Requests.Withdrawals}
		})
	}
	state = Update(state, func(s *State) {
		s.EVMProviders = updatedProviders
		s.AggregatedCallsByID = executed
	})

	// Stage 5: transaction submission per provider
	for _, p := range state.EVMProviders {
		submitLogs, hashes := fulfillments.Submit(ctx, p, master)
		logs = append(logs, submitLogs...)
		logs = append(logs, logger.Info("Provider %s submitted %d transaction(s)", p.Name(), len(hashes)))
	}

	countStatuses(state)
	metrics.RunsCompleted.Inc()
	logs = append(logs, logger.Info("Coordinator run %s completed", runID))
	return logs, state, nil
}

type initResult struct {
	logs  []logger.Log
	state *provider.State
	err   error
	chain config.ChainConfig
	prov  config.ChainProvider
}

// initializeProviders runs provider.Initialize for every configured
// (chain, provider) pair with bounded parallelism and joins the results
// in configuration order, keeping downstream stages deterministic.
func initializeProviders(ctx context.Context, cfg *config.Config, master *wallet.MasterHDNode) ([]logger.Log, []provider.State) {
	type target struct {
		chain config.ChainConfig
		prov  config.ChainProvider
	}
	var targets []target
	for _, chain := range cfg.NodeSettings.Chains {
		for _, prov := range chain.Providers {
			targets = append(targets, target{chain: chain, prov: prov})
		}
	}

	sem := semaphore.NewWeighted(MaxConcurrentProviderInits)
	results := make([]initResult, len(targets))
	done := make(chan int, len(targets))

	for i, t := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = initResult{err: err, chain: t.chain, prov: t.prov}
			done <- i
			continue
		}
		go func(i int, t target) {
			defer sem.Release(1)
			initLogs, s, err := provider.Initialize(ctx, cfg, t.chain, t.prov, master)
			results[i] = initResult{logs: initLogs, state: s, err: err, chain: t.chain, prov: t.prov}
			done <- i
		}(i, t)
	}
	for range targets {
		<-done
	}

	var logs []logger.Log
	var providers []provider.State
	for _, r := range results {
		logs = append(logs, r.logs...)
		if r.err != nil {
			logs = append(logs, logger.Error(
				fmt.Sprintf("Failed to initialize provider %s on chain %d, skipping", r.prov.Name, r.chain.ID), r.err))
			continue
		}
		providers = append(providers, *r.state)
	}
	return logs, providers
}

func countStatuses(state State) {
	for _, p := range state.EVMProviders {
		for _, call := range p.Requests.APICalls {
			metrics.RequestsByStatus.WithLabelValues(string(call.Status)).Inc()
		}
		for _, w := range p.Requests.Withdrawals {
			metrics.RequestsByStatus.WithLabelValues(string(w.Status)).Inc()
		}
	}
}
