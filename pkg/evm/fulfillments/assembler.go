// Transaction assembly and submission.
//
// Per provider, actionable requests are grouped by requester index and
// submitted from that requester's designated wallet in deterministic
// (blockNumber, logIndex) order, with contiguous nonces starting at the
// wallet's on-chain transaction count. A failed submission is logged
// and never aborts its peers.

package fulfillments

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/airnode/coordinator/pkg/evm/contracts"
	"github.com/airnode/coordinator/pkg/evm/provider"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/metrics"
	"github.com/airnode/coordinator/pkg/requests"
	"github.com/airnode/coordinator/pkg/wallet"
)

// Non-zero status submitted with every fail transaction. The request's
// error code stays in the node's logs; the chain only needs to know the
// fulfillment failed.
const failStatusCode = 1

// fallbackGasLimit is used when gas estimation fails
const fallbackGasLimit = 500000

type actionKind int

const (
	actionFulfill actionKind = iota
	actionFail
	actionWithdraw
)

// action is one transaction to be assembled
type action struct {
	kind       actionKind
	apiCall    requests.APICall
	withdrawal requests.Withdrawal
	meta       requests.Metadata
}

// Submit assembles and submits every transaction the provider's
// requests call for. Returns the submitted transaction hashes.
func Submit(ctx context.Context, s provider.State, master *wallet.MasterHDNode) ([]logger.Log, []common.Hash) {
	var logs []logger.Log
	var submitted []common.Hash

	byRequester := groupActions(s.Requests)

	// Deterministic requester order
	indices := make([]string, 0, len(byRequester))
	for index := range byRequester {
		indices = append(indices, index)
	}
	sort.Strings(indices)

	for _, index := range indices {
		requesterLogs, hashes := submitForRequester(ctx, s, master, index, byRequester[index])
		logs = append(logs, requesterLogs...)
		submitted = append(submitted, hashes...)
	}
	return logs, submitted
}

// groupActions collects the actionable requests per requester index.
// Fulfilled, Ignored and Blocked requests produce no transaction, and
// neither does an Errored request whose fulfillment fields never
// resolved.
func groupActions(grouped requests.Grouped) map[string][]action {
	out := map[string][]action{}

	for _, call := range grouped.APICalls {
		if call.RequesterIndex == nil || call.DesignatedWallet == nil ||
			call.FulfillAddress == nil || len(call.FulfillFunctionID) != 4 {
			continue
		}
		index := call.RequesterIndex.String()
		switch {
		case call.Status == requests.StatusPending && len(call.ResponseValue) == 32:
			out[index] = append(out[index], action{kind: actionFulfill, apiCall: call, meta: call.Metadata})
		case call.Status == requests.StatusErrored:
			out[index] = append(out[index], action{kind: actionFail, apiCall: call, meta: call.Metadata})
		}
	}

	for _, w := range grouped.Withdrawals {
		if w.Status != requests.StatusPending || w.RequesterIndex == nil {
			continue
		}
		out[w.RequesterIndex.String()] = append(out[w.RequesterIndex.String()], action{kind: actionWithdraw, withdrawal: w, meta: w.Metadata})
	}

	for index := range out {
		actions := out[index]
		sort.SliceStable(actions, func(i, j int) bool {
			if actions[i].meta.BlockNumber != actions[j].meta.BlockNumber {
				return actions[i].meta.BlockNumber < actions[j].meta.BlockNumber
			}
			return actions[i].meta.LogIndex < actions[j].meta.LogIndex
		})
		out[index] = actions
	}
	return out
}

func submitForRequester(ctx context.Context, s provider.State, master *wallet.MasterHDNode, index string, actions []action) ([]logger.Log, []common.Hash) {
	var logs []logger.Log
	var submitted []common.Hash

	requesterIndex, ok := new(big.Int).SetString(index, 10)
	if !ok {
		return []logger.Log{logger.Errorf("Invalid requester index %q", index)}, nil
	}

	priv, err := master.DeriveDesignated(requesterIndex)
	if err != nil {
		return []logger.Log{logger.Error(fmt.Sprintf("Failed to derive designated wallet for requester %s", index), err)}, nil
	}
	walletAddr := crypto.PubkeyToAddress(priv.PublicKey)

	nonce, haveCount := s.TransactionCountsByRequesterIndex[index]
	if !haveCount {
		return []logger.Log{logger.Errorf("No transaction count fetched for requester %s, skipping its transactions", index)}, nil
	}

	for _, act := range actions {
		plan, planLogs, skip := planAction(ctx, s, walletAddr, act)
		logs = append(logs, planLogs...)
		if skip {
			continue
		}

		tx := types.NewTransaction(nonce, s.AirnodeAddress, plan.value, plan.gasLimit, s.GasPrice, plan.callData)
		nonce++

		sendLogs, hash := signAndSend(ctx, s, priv, tx, plan)
		logs = append(logs, sendLogs...)
		if hash != nil {
			submitted = append(submitted, *hash)
		}
	}
	return logs, submitted
}

type txPlan struct {
	callData []byte
	value    *big.Int
	gasLimit uint64
	label    string
	kind     string
}

// planAction packs the action's contract call and decides value and gas.
// skip=true means the action must not consume a nonce.
func planAction(ctx context.Context, s provider.State, walletAddr common.Address, act action) (txPlan, []logger.Log, bool) {
	airnode, err := contracts.Airnode()
	if err != nil {
		return txPlan{}, []logger.Log{logger.Error("Failed to load Airnode ABI", err)}, true
	}

	switch act.kind {
	case actionFulfill:
		var data [32]byte
		copy(data[:], act.apiCall.ResponseValue)
		callData, err := airnode.Pack("fulfill",
			[32]byte(act.apiCall.ID),
			[32]byte(act.apiCall.ProviderID),
			big.NewInt(0),
			data,
			*act.apiCall.FulfillAddress,
			[4]byte(act.apiCall.FulfillFunctionID),
		)
		if err != nil {
			return txPlan{}, []logger.Log{logger.Error(fmt.Sprintf("Failed to pack fulfill for Request:%s", act.apiCall.ID.Hex()), err)}, true
		}
		return txPlan{
			callData: callData,
			value:    big.NewInt(0),
			gasLimit: estimateOrFallback(ctx, s, walletAddr, callData, nil),
			label:    "fulfill for Request:" + act.apiCall.ID.Hex(),
			kind:     "fulfill",
		}, nil, false

	case actionFail:
		callData, err := airnode.Pack("fail",
			[32]byte(act.apiCall.ID),
			[32]byte(act.apiCall.ProviderID),
			big.NewInt(failStatusCode),
			*act.apiCall.FulfillAddress,
			[4]byte(act.apiCall.FulfillFunctionID),
		)
		if err != nil {
			return txPlan{}, []logger.Log{logger.Error(fmt.Sprintf("Failed to pack fail for Request:%s", act.apiCall.ID.Hex()), err)}, true
		}
		return txPlan{
			callData: callData,
			value:    big.NewInt(0),
			gasLimit: estimateOrFallback(ctx, s, walletAddr, callData, nil),
			label:    "fail for Request:" + act.apiCall.ID.Hex(),
			kind:     "fail",
		}, nil, false

	case actionWithdraw:
		return planWithdrawal(ctx, s, airnode, walletAddr, act.withdrawal)
	}
	return txPlan{}, nil, true
}

// planWithdrawal sends the designated wallet's entire balance minus the
// transaction cost to the destination. A wallet that cannot cover its
// own gas produces no transaction.
func planWithdrawal(ctx context.Context, s provider.State, airnode abi.ABI, walletAddr common.Address, w requests.Withdrawal) (txPlan, []logger.Log, bool) {
	callData, err := airnode.Pack("fulfillWithdrawal",
		[32]byte(w.ID),
		[32]byte(w.ProviderID),
		w.RequesterIndex,
		w.Destination,
	)
	if err != nil {
		return txPlan{}, []logger.Log{logger.Error(fmt.Sprintf("Failed to pack fulfillWithdrawal for Request:%s", w.ID.Hex()), err)}, true
	}

	balance, err := s.Client.BalanceAt(ctx, walletAddr)
	if err != nil {
		return txPlan{}, []logger.Log{logger.Error(fmt.Sprintf("Failed to fetch balance for withdrawal Request:%s", w.ID.Hex()), err)}, true
	}

	gasLimit := estimateOrFallback(ctx, s, walletAddr, callData, big.NewInt(1))
	txCost := new(big.Int).Mul(s.GasPrice, new(big.Int).SetUint64(gasLimit))
	value := new(big.Int).Sub(balance, txCost)
	if value.Sign() <= 0 {
		return txPlan{}, []logger.Log{logger.Warn("Designated wallet %s cannot cover the withdrawal transaction cost for Request:%s", walletAddr.Hex(), w.ID.Hex())}, true
	}

	return txPlan{
		callData: callData,
		value:    value,
		gasLimit: gasLimit,
		label:    "fulfillWithdrawal for Request:" + w.ID.Hex(),
		kind:     "withdrawal",
	}, nil, false
}

func estimateOrFallback(ctx context.Context, s provider.State, from common.Address, callData []byte, value *big.Int) uint64 {
	gasLimit, err := s.Client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &s.AirnodeAddress,
		Value: value,
		Data:  callData,
	})
	if err != nil || gasLimit == 0 {
		return fallbackGasLimit
	}
	return gasLimit
}

func signAndSend(ctx context.Context, s provider.State, priv *ecdsa.PrivateKey, tx *types.Transaction, plan txPlan) ([]logger.Log, *common.Hash) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.Client.ChainID()), priv)
	if err != nil {
		return []logger.Log{logger.Error("Failed to sign "+plan.label, err)}, nil
	}
	if err := s.Client.SendTransaction(ctx, signed); err != nil {
		return []logger.Log{logger.Error("Failed to submit "+plan.label, err)}, nil
	}

	metrics.TransactionsSubmitted.WithLabelValues(plan.kind).Inc()

	hash := signed.Hash()
	return []logger.Log{logger.Info("Submitted %s in transaction %s (nonce %d)", plan.label, hash.Hex(), tx.Nonce())}, &hash
}
