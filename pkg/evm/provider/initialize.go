// Provider initialization: everything that happens per chain provider
// before aggregation. Connect, reconcile the provider record, fetch and
// decode event logs, and drive each request to the edge of aggregation.

package provider

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/authorization"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/evm"
	"github.com/airnode/coordinator/pkg/evm/contracts"
	"github.com/airnode/coordinator/pkg/evm/events"
	"github.com/airnode/coordinator/pkg/evm/templates"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/params"
	"github.com/airnode/coordinator/pkg/requests"
	"github.com/airnode/coordinator/pkg/wallet"
)

// Initialize prepares one chain provider for aggregation. A returned
// error means the provider is unusable this run; the coordinator skips
// it and continues with its peers.
func Initialize(ctx context.Context, cfg *config.Config, chain config.ChainConfig, chainProvider config.ChainProvider, master *wallet.MasterHDNode) ([]logger.Log, *State, error) {
	var logs []logger.Log

	client, err := evm.Dial(chainProvider.URL, chain.ID)
	if err != nil {
		return logs, nil, err
	}

	providerID, err := master.ProviderID()
	if err != nil {
		return logs, nil, fmt.Errorf("failed to derive provider id: %w", err)
	}
	xpub, err := master.XPub()
	if err != nil {
		return logs, nil, fmt.Errorf("failed to derive xpub: %w", err)
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return logs, nil, fmt.Errorf("failed to fetch current block: %w", err)
	}
	currentBlock := head
	if chain.MinConfirmations > 0 && currentBlock > chain.MinConfirmations {
		currentBlock -= chain.MinConfirmations
	}
	logs = append(logs, logger.Info("Provider %s is at block %d", chainProvider.Name, currentBlock))

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return logs, nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	state := State{
		ChainConfig:        chain,
		ProviderConfig:     chainProvider,
		Client:             client,
		AirnodeAddress:     common.HexToAddress(chain.Contracts.Airnode),
		ConvenienceAddress: common.HexToAddress(chain.Contracts.Convenience),
		ProviderID:         providerID,
		XPub:               xpub,
		CurrentBlock:       currentBlock,
		GasPrice:           gasPrice,
	}

	record, err := FetchRecord(ctx, client, state.ConvenienceAddress, providerID)
	if err != nil {
		return logs, nil, fmt.Errorf("failed to fetch provider record: %w", err)
	}
	recordLogs, _ := VerifyOrCreateRecord(ctx, state, master, record)
	logs = append(logs, recordLogs...)

	groupLogs, grouped, err := fetchRequests(ctx, state)
	logs = append(logs, groupLogs...)
	if err != nil {
		return logs, nil, err
	}

	pipelineLogs, grouped, endorsements, err := runPipeline(ctx, cfg, state, grouped)
	logs = append(logs, pipelineLogs...)
	if err != nil {
		return logs, nil, err
	}

	txCounts, err := fetchTransactionCounts(ctx, state, grouped)
	if err != nil {
		return logs, nil, err
	}

	final := state.With(func(s *State) {
		s.Requests = grouped
		s.Endorsements = endorsements
		s.TransactionCountsByRequesterIndex = txCounts
	})
	return logs, &final, nil
}

// fetchRequests pulls the run's event window and materializes grouped
// requests with the fulfilled/failed overlays applied.
func fetchRequests(ctx context.Context, s State) ([]logger.Log, requests.Grouped, error) {
	airnode, err := contracts.Airnode()
	if err != nil {
		return nil, requests.Grouped{}, err
	}

	topics := []common.Hash{
		airnode.Events["ClientRequestCreated"].ID,
		airnode.Events["ClientShortRequestCreated"].ID,
		airnode.Events["ClientFullRequestCreated"].ID,
		airnode.Events["ClientRequestFulfilled"].ID,
		airnode.Events["ClientRequestFailed"].ID,
		airnode.Events["WithdrawalRequested"].ID,
		airnode.Events["WithdrawalFulfilled"].ID,
	}

	fromBlock := uint64(0)
	if s.CurrentBlock > s.ChainConfig.BlockHistoryLimit {
		fromBlock = s.CurrentBlock - s.ChainConfig.BlockHistoryLimit
	}

	rawLogs, err := s.Client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(s.CurrentBlock),
		Addresses: []common.Address{s.AirnodeAddress},
		Topics:    [][]common.Hash{topics, {s.ProviderID}},
	})
	if err != nil {
		return nil, requests.Grouped{}, fmt.Errorf("failed to fetch event logs: %w", err)
	}

	decodeLogs, batch, err := events.Decode(rawLogs, events.Context{
		CurrentBlock:                     s.CurrentBlock,
		IgnoreBlockedRequestsAfterBlocks: s.ChainConfig.IgnoreBlockedRequestsAfterBlocks,
	})
	if err != nil {
		return decodeLogs, requests.Grouped{}, err
	}

	groupLogs, grouped := requests.Group(batch)
	return logger.Merge(decodeLogs, groupLogs), grouped, nil
}

// runPipeline drives the provider's API calls through parameter
// decoding, template resolution, the pending-withdrawal guard,
// authorization and blocked-request aging.
func runPipeline(ctx context.Context, cfg *config.Config, s State, grouped requests.Grouped) ([]logger.Log, requests.Grouped, authorization.Endorsements, error) {
	paramLogs, apiCalls := params.Apply(grouped.APICalls)

	templatesByID, err := templates.Fetch(ctx, s.Client, s.ConvenienceAddress, apiCalls)
	if err != nil {
		return paramLogs, grouped, nil, fmt.Errorf("failed to fetch templates: %w", err)
	}
	templateLogs, apiCalls := templates.Apply(apiCalls, templatesByID)

	withdrawalGuardLogs, apiCalls := requests.BlockPendingWithdrawals(apiCalls, grouped.Withdrawals)

	endorsements, err := fetchEndorsements(ctx, s, apiCalls)
	if err != nil {
		return logger.Merge(paramLogs, templateLogs, withdrawalGuardLogs), grouped, nil, err
	}

	authLogs, apiCalls := authorization.Apply(cfg, apiCalls, endorsements)
	ageLogs, apiCalls := requests.DropAgedBlocked(apiCalls)

	logs := logger.Merge(paramLogs, templateLogs, withdrawalGuardLogs, authLogs, ageLogs)
	return logs, requests.Grouped{APICalls: apiCalls, Withdrawals: grouped.Withdrawals}, endorsements, nil
}

// fetchEndorsements batches every (requesterIndex, clientAddress) pair
// of the Pending API calls into one convenience call.
func fetchEndorsements(ctx context.Context, s State, apiCalls []requests.APICall) (authorization.Endorsements, error) {
	type pair struct {
		index  *big.Int
		client common.Address
	}
	var pairs []pair
	seen := map[string]bool{}
	for _, call := range apiCalls {
		if call.Status != requests.StatusPending || call.RequesterIndex == nil {
			continue
		}
		key := call.RequesterIndex.String() + "/" + call.ClientAddress.Hex()
		if !seen[key] {
			seen[key] = true
			pairs = append(pairs, pair{index: call.RequesterIndex, client: call.ClientAddress})
		}
	}

	endorsements := authorization.Endorsements{}
	if len(pairs) == 0 {
		return endorsements, nil
	}

	convenience, err := contracts.Convenience()
	if err != nil {
		return nil, err
	}
	indices := make([]*big.Int, len(pairs))
	clients := make([]common.Address, len(pairs))
	for i, p := range pairs {
		indices[i] = p.index
		clients[i] = p.client
	}
	callData, err := convenience.Pack("checkEndorsementStatuses", indices, clients)
	if err != nil {
		return nil, fmt.Errorf("failed to pack checkEndorsementStatuses: %w", err)
	}

	raw, err := s.Client.CallContract(ctx, ethereum.CallMsg{To: &s.ConvenienceAddress, Data: callData})
	if err != nil {
		return nil, fmt.Errorf("checkEndorsementStatuses call failed: %w", err)
	}
	unpacked, err := convenience.Unpack("checkEndorsementStatuses", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack checkEndorsementStatuses result: %w", err)
	}
	statuses, ok := unpacked[0].([]bool)
	if !ok || len(statuses) != len(pairs) {
		return nil, fmt.Errorf("checkEndorsementStatuses returned an unexpected shape")
	}

	for i, p := range pairs {
		key := p.index.String()
		if endorsements[key] == nil {
			endorsements[key] = map[string]bool{}
		}
		endorsements[key][p.client.Hex()] = statuses[i]
	}
	return endorsements, nil
}

// fetchTransactionCounts reads each actionable requester's designated
// wallet transaction count once. The assembler allocates nonces from
// these counts.
func fetchTransactionCounts(ctx context.Context, s State, grouped requests.Grouped) (map[string]uint64, error) {
	walletsByIndex := map[string]common.Address{}

	for _, call := range grouped.APICalls {
		if call.RequesterIndex == nil || call.DesignatedWallet == nil {
			continue
		}
		if call.Status == requests.StatusPending || call.Status == requests.StatusErrored {
			walletsByIndex[call.RequesterIndex.String()] = *call.DesignatedWallet
		}
	}
	for _, w := range grouped.Withdrawals {
		if w.Status == requests.StatusPending && w.RequesterIndex != nil {
			walletsByIndex[w.RequesterIndex.String()] = w.DesignatedWallet
		}
	}

	counts := make(map[string]uint64, len(walletsByIndex))
	for index, addr := range walletsByIndex {
		count, err := s.Client.TransactionCount(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transaction count of wallet %s: %w", addr.Hex(), err)
		}
		counts[index] = count
	}
	return counts, nil
}
