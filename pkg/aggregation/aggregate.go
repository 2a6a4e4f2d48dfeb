// Cross-provider aggregation.
//
// Equivalent Pending API calls observed on independent chain providers
// collapse into one aggregated call, keyed by a canonical fingerprint of
// (endpointId, parameters), so each distinct API invocation happens
// exactly once per run.

package aggregation

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/requests"
)

// AggregatedCall is the coalesced representation of equivalent requests
type AggregatedCall struct {
	// ID is the first participating request id in provider-then-block
	// order; it is recorded back onto every participating request.
	ID         common.Hash
	EndpointID common.Hash
	Parameters map[string]string
	Type       requests.APICallType
	Trigger    config.RequestTrigger

	ResponseValue []byte
	ErrorCode     requests.ErrorCode
}

// Fingerprint canonicalizes (endpointId, parameters) into the
// aggregation key: parameter keys sorted lexicographically, each pair
// written as 0x1f, key, 0x1e, value, so the unprintable separators keep
// values from colliding with the framing.
func Fingerprint(endpointID common.Hash, parameters map[string]string) string {
	keys := make([]string, 0, len(parameters))
	for k := range parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpointID.Hex())
	for _, k := range keys {
		b.WriteByte(0x1f)
		b.WriteString(k)
		b.WriteByte(0x1e)
		b.WriteString(parameters[k])
	}
	return b.String()
}

// Aggregate collapses the providers' Pending API calls. providerCalls
// must be ordered as the providers appear in configuration; each
// provider's calls are visited in (blockNumber, logIndex) order, making
// the chosen aggregated id deterministic. Returns the aggregated calls
// keyed by id and a copy of each provider's calls, sorted in
// (blockNumber, logIndex) order, with AggregatedCallID stamped onto
// every participating request.
func Aggregate(cfg *config.Config, providerCalls [][]requests.APICall) ([]logger.Log, map[common.Hash]AggregatedCall, [][]requests.APICall) {
	var logs []logger.Log
	aggregated := map[common.Hash]AggregatedCall{}
	idByFingerprint := map[string]common.Hash{}

	out := make([][]requests.APICall, len(providerCalls))
	for p, calls := range providerCalls {
		sorted := make([]requests.APICall, len(calls))
		copy(sorted, calls)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Metadata.BlockNumber != sorted[j].Metadata.BlockNumber {
				return sorted[i].Metadata.BlockNumber < sorted[j].Metadata.BlockNumber
			}
			return sorted[i].Metadata.LogIndex < sorted[j].Metadata.LogIndex
		})

		for i, call := range sorted {
			if call.Status != requests.StatusPending || call.EndpointID == nil {
				continue
			}

			fingerprint := Fingerprint(*call.EndpointID, call.Parameters)
			id, exists := idByFingerprint[fingerprint]
			if !exists {
				id = call.ID
				idByFingerprint[fingerprint] = id

				trigger, _ := cfg.FindTrigger(call.EndpointID.Hex())
				aggregated[id] = AggregatedCall{
					ID:         id,
					EndpointID: *call.EndpointID,
					Parameters: call.Parameters,
					Type:       call.Type,
					Trigger:    trigger,
				}
				logs = append(logs, logger.Debug("Aggregated call %s created for endpoint ID:%s", id.Hex(), call.EndpointID.Hex()))
			}

			aggregatedID := id
			sorted[i].AggregatedCallID = &aggregatedID
		}
		out[p] = sorted
	}

	return logs, aggregated, out
}
