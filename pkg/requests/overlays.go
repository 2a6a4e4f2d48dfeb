// Overlays of on-chain resolutions onto the run's pending requests.

package requests

import (
	"github.com/airnode/coordinator/pkg/logger"
)

// ApplyFulfillments marks every API call whose id appears in
// fulfilledIDs as Fulfilled. Idempotent.
func ApplyFulfillments(apiCalls []APICall, fulfilledIDs map[string]bool) ([]logger.Log, []APICall) {
	var logs []logger.Log
	out := make([]APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if fulfilledIDs[call.ID.Hex()] {
			logs = append(logs, logger.Debug("Request ID:%s (API call) has already been fulfilled", call.ID.Hex()))
			call.Status = StatusFulfilled
		}
		out = append(out, call)
	}
	return logs, out
}

// ApplyFailures marks matching API calls as Errored with ApiCallFailed,
// unless the request is already Fulfilled.
func ApplyFailures(apiCalls []APICall, failedIDs map[string]bool) ([]logger.Log, []APICall) {
	var logs []logger.Log
	out := make([]APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if failedIDs[call.ID.Hex()] && call.Status != StatusFulfilled {
			logs = append(logs, logger.Debug("Request ID:%s (API call) has already failed on-chain", call.ID.Hex()))
			call.Status = StatusErrored
			call.ErrorCode = ErrAPICallFailed
		}
		out = append(out, call)
	}
	return logs, out
}

// ApplyWithdrawalFulfillments marks fulfilled withdrawals
func ApplyWithdrawalFulfillments(withdrawals []Withdrawal, fulfilledIDs map[string]bool) ([]logger.Log, []Withdrawal) {
	var logs []logger.Log
	out := make([]Withdrawal, 0, len(withdrawals))

	for _, w := range withdrawals {
		if fulfilledIDs[w.ID.Hex()] {
			logs = append(logs, logger.Debug("Request ID:%s (withdrawal) has already been fulfilled", w.ID.Hex()))
			w.Status = StatusFulfilled
		}
		out = append(out, w)
	}
	return logs, out
}

// BlockPendingWithdrawals errors API calls whose designated wallet has a
// withdrawal pending in the same batch. Serving them would race the
// withdrawal for the wallet's balance.
func BlockPendingWithdrawals(apiCalls []APICall, withdrawals []Withdrawal) ([]logger.Log, []APICall) {
	pendingWallets := map[string]bool{}
	for _, w := range withdrawals {
		if w.Status == StatusPending {
			pendingWallets[w.DesignatedWallet.Hex()] = true
		}
	}
	if len(pendingWallets) == 0 {
		return nil, apiCalls
	}

	var logs []logger.Log
	out := make([]APICall, 0, len(apiCalls))
	for _, call := range apiCalls {
		if call.Status == StatusPending && call.DesignatedWallet != nil && pendingWallets[call.DesignatedWallet.Hex()] {
			logs = append(logs, logger.Warn("Request ID:%s is blocked by a pending withdrawal for wallet %s", call.ID.Hex(), call.DesignatedWallet.Hex()))
			call.Status = StatusErrored
			call.ErrorCode = ErrPendingWithdrawal
		}
		out = append(out, call)
	}
	return logs, out
}

// DropAgedBlocked removes Blocked requests older than the chain's
// ignoreBlockedRequestsAfterBlocks limit. Aged-out requests are dropped
// from the batch, not errored.
func DropAgedBlocked(apiCalls []APICall) ([]logger.Log, []APICall) {
	var logs []logger.Log
	out := make([]APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if call.Status == StatusBlocked && call.Metadata.CurrentBlock > call.Metadata.BlockNumber {
			age := call.Metadata.CurrentBlock - call.Metadata.BlockNumber
			if age > call.Metadata.IgnoreBlockedRequestsAfterBlocks {
				logs = append(logs, logger.Warn("Request ID:%s is blocked and %d blocks old, dropping from batch", call.ID.Hex(), age))
				continue
			}
		}
		out = append(out, call)
	}
	return logs, out
}
