// Builders turning parsed chain events into request records.

package requests

import (
	"github.com/airnode/coordinator/pkg/evm/events"
	"github.com/airnode/coordinator/pkg/logger"
)

func metadataFromEvent(m events.Metadata) Metadata {
	return Metadata{
		BlockNumber:                      m.BlockNumber,
		LogIndex:                         m.LogIndex,
		TransactionHash:                  m.TransactionHash,
		CurrentBlock:                     m.CurrentBlock,
		IgnoreBlockedRequestsAfterBlocks: m.IgnoreBlockedRequestsAfterBlocks,
	}
}

// NewAPICall materializes one request record from a creation event.
// Every request starts Pending; fields its creation event does not
// carry (the fulfillment-side fields of a short request, the endpoint
// id of short and regular requests) stay nil until template application.
func NewAPICall(ev events.RequestCreated) APICall {
	return APICall{
		ID:                ev.RequestID,
		Type:              APICallType(ev.Kind),
		Status:            StatusPending,
		ProviderID:        ev.ProviderID,
		RequesterIndex:    ev.RequesterIndex,
		ClientAddress:     ev.ClientAddress,
		DesignatedWallet:  ev.DesignatedWallet,
		FulfillAddress:    ev.FulfillAddress,
		FulfillFunctionID: ev.FulfillFunctionID,
		EndpointID:        ev.EndpointID,
		TemplateID:        ev.TemplateID,
		EncodedParameters: ev.Parameters,
		RequestCount:      ev.RequestCount,
		Metadata:          metadataFromEvent(ev.Metadata),
	}
}

// NewWithdrawal materializes one withdrawal record
func NewWithdrawal(ev events.WithdrawalRequested) Withdrawal {
	return Withdrawal{
		ID:               ev.WithdrawalID,
		ProviderID:       ev.ProviderID,
		RequesterIndex:   ev.RequesterIndex,
		DesignatedWallet: ev.DesignatedWallet,
		Destination:      ev.Destination,
		Status:           StatusPending,
		Metadata:         metadataFromEvent(ev.Metadata),
	}
}

// Group builds a provider's request groups from a parsed event batch and
// applies the fulfilled/failed overlays, so a request that already has a
// resolution in the same batch arrives downstream with its final status.
func Group(batch *events.Batch) ([]logger.Log, Grouped) {
	apiCalls := make([]APICall, 0, len(batch.Created))
	for _, ev := range batch.Created {
		apiCalls = append(apiCalls, NewAPICall(ev))
	}

	withdrawals := make([]Withdrawal, 0, len(batch.WithdrawalsRequested))
	for _, ev := range batch.WithdrawalsRequested {
		withdrawals = append(withdrawals, NewWithdrawal(ev))
	}

	fulfilledIDs := make(map[string]bool, len(batch.Fulfilled))
	for _, ev := range batch.Fulfilled {
		fulfilledIDs[ev.RequestID.Hex()] = true
	}
	failedIDs := make(map[string]bool, len(batch.Failed))
	for _, ev := range batch.Failed {
		failedIDs[ev.RequestID.Hex()] = true
	}
	withdrawnIDs := make(map[string]bool, len(batch.WithdrawalsFulfilled))
	for _, ev := range batch.WithdrawalsFulfilled {
		withdrawnIDs[ev.WithdrawalID.Hex()] = true
	}

	fulfilledLogs, apiCalls := ApplyFulfillments(apiCalls, fulfilledIDs)
	failedLogs, apiCalls := ApplyFailures(apiCalls, failedIDs)
	withdrawalLogs, withdrawals := ApplyWithdrawalFulfillments(withdrawals, withdrawnIDs)

	logs := logger.Merge(fulfilledLogs, failedLogs, withdrawalLogs)
	return logs, Grouped{APICalls: apiCalls, Withdrawals: withdrawals}
}
