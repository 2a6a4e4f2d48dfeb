package aggregation

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/requests"
)

// Disaggregate maps executed aggregated calls back onto each provider's
// Pending API calls. A request whose aggregated call cannot be found,
// or whose parameters no longer match it, becomes Blocked so the next
// run can retry it.
func Disaggregate(providerCalls [][]requests.APICall, aggregated map[common.Hash]AggregatedCall) ([]logger.Log, [][]requests.APICall) {
	var logs []logger.Log

	out := make([][]requests.APICall, len(providerCalls))
	for p, calls := range providerCalls {
		updated := make([]requests.APICall, 0, len(calls))
		for _, call := range calls {
			if call.Status != requests.StatusPending {
				updated = append(updated, call)
				continue
			}

			match, found := lookup(call, aggregated)
			if !found {
				logs = append(logs, logger.Errorf("Unable to find matching aggregated API calls for Request:%s", call.ID.Hex()))
				call.Status = requests.StatusBlocked
				call.ErrorCode = requests.ErrNoMatchingAggregatedCall
				updated = append(updated, call)
				continue
			}

			if match.ErrorCode != "" {
				call.Status = requests.StatusErrored
				call.ErrorCode = requests.ErrAPICallFailed
				updated = append(updated, call)
				continue
			}

			call.ResponseValue = match.ResponseValue
			updated = append(updated, call)
		}
		out[p] = updated
	}
	return logs, out
}

func lookup(call requests.APICall, aggregated map[common.Hash]AggregatedCall) (AggregatedCall, bool) {
	if call.AggregatedCallID == nil || call.EndpointID == nil {
		return AggregatedCall{}, false
	}
	match, found := aggregated[*call.AggregatedCallID]
	if !found {
		return AggregatedCall{}, false
	}
	// A request whose parameters diverged from the aggregated call must
	// not receive its response.
	if Fingerprint(*call.EndpointID, call.Parameters) != Fingerprint(match.EndpointID, match.Parameters) {
		return AggregatedCall{}, false
	}
	return match, true
}
