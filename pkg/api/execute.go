// Executor: runs every aggregated API call with bounded parallelism.

package api

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/semaphore"

	"github.com/airnode/coordinator/pkg/aggregation"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/metrics"
	"github.com/airnode/coordinator/pkg/requests"
)

// MaxConcurrentCalls bounds the API call fan-out
const MaxConcurrentCalls = 10

type callResult struct {
	id   common.Hash
	logs []logger.Log
	call aggregation.AggregatedCall
}

// Execute invokes the external API for every aggregated call. Calls are
// independent: a failure marks only its own call with ApiCallFailed.
// The returned map carries either a ResponseValue or an ErrorCode on
// every entry; logs are ordered by aggregated call id for determinism.
func Execute(ctx context.Context, cfg *config.Config, aggregated map[common.Hash]aggregation.AggregatedCall) ([]logger.Log, map[common.Hash]aggregation.AggregatedCall) {
	ids := make([]common.Hash, 0, len(aggregated))
	for id := range aggregated {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	sem := semaphore.NewWeighted(MaxConcurrentCalls)
	results := make([]callResult, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Run deadline hit: mark the remaining calls failed
			call := aggregated[id]
			call.ErrorCode = requests.ErrAPICallFailed
			results[i] = callResult{
				id:   id,
				logs: []logger.Log{logger.Error(fmt.Sprintf("API call %s aborted", id.Hex()), err)},
				call: call,
			}
			continue
		}

		wg.Add(1)
		go func(i int, call aggregation.AggregatedCall) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = executeOne(ctx, cfg, call)
		}(i, aggregated[id])
	}
	wg.Wait()

	var logs []logger.Log
	out := make(map[common.Hash]aggregation.AggregatedCall, len(results))
	for _, r := range results {
		logs = append(logs, r.logs...)
		out[r.id] = r.call
	}
	return logs, out
}

func executeOne(ctx context.Context, cfg *config.Config, call aggregation.AggregatedCall) callResult {
	fail := func(message string, err error) callResult {
		metrics.APICalls.WithLabelValues("failed").Inc()
		call.ErrorCode = requests.ErrAPICallFailed
		return callResult{
			id:   call.ID,
			logs: []logger.Log{logger.Error(message, err)},
			call: call,
		}
	}

	_, endpoint, err := cfg.FindEndpoint(call.Trigger.OISTitle, call.Trigger.EndpointName)
	if err != nil {
		return fail(fmt.Sprintf("API call %s: endpoint resolution failed", call.ID.Hex()), err)
	}

	reserved, err := ResolveReserved(endpoint, call.Parameters)
	if err != nil {
		return fail(fmt.Sprintf("API call %s: invalid reserved parameters", call.ID.Hex()), err)
	}

	body, err := Call(ctx, cfg, call.Trigger, call.Parameters)
	if err != nil {
		return fail(fmt.Sprintf("API call %s to endpoint %q failed", call.ID.Hex(), call.Trigger.EndpointName), err)
	}

	encoded, err := ExtractAndEncode(body, reserved)
	if err != nil {
		return fail(fmt.Sprintf("API call %s: failed to process response", call.ID.Hex()), err)
	}

	metrics.APICalls.WithLabelValues("succeeded").Inc()
	call.ResponseValue = encoded
	return callResult{
		id:   call.ID,
		logs: []logger.Log{logger.Info("API call %s to endpoint %q succeeded", call.ID.Hex(), call.Trigger.EndpointName)},
		call: call,
	}
}
