// Event decoder: classifies raw chain logs by topic into typed events.

package events

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/airnode/coordinator/pkg/evm/contracts"
	"github.com/airnode/coordinator/pkg/logger"
)

// Context carries the per-run values stamped onto every event's metadata
type Context struct {
	CurrentBlock                     uint64
	IgnoreBlockedRequestsAfterBlocks uint64
}

// Decode classifies raw logs into a typed Batch. Logs with unknown
// topics are skipped with a WARN. Input order does not matter; the
// output lists are in (blockNumber, logIndex) order.
func Decode(rawLogs []types.Log, ctx Context) ([]logger.Log, *Batch, error) {
	airnode, err := contracts.Airnode()
	if err != nil {
		return nil, nil, err
	}

	sorted := make([]types.Log, len(rawLogs))
	copy(sorted, rawLogs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BlockNumber != sorted[j].BlockNumber {
			return sorted[i].BlockNumber < sorted[j].BlockNumber
		}
		return sorted[i].Index < sorted[j].Index
	})

	var logs []logger.Log
	batch := &Batch{}

	for _, raw := range sorted {
		if len(raw.Topics) == 0 {
			logs = append(logs, logger.Warn("Skipping log with no topics in transaction %s", raw.TxHash.Hex()))
			continue
		}

		meta := Metadata{
			BlockNumber:                      raw.BlockNumber,
			LogIndex:                         raw.Index,
			TransactionHash:                  raw.TxHash,
			CurrentBlock:                     ctx.CurrentBlock,
			IgnoreBlockedRequestsAfterBlocks: ctx.IgnoreBlockedRequestsAfterBlocks,
		}

		var parseErr error
		switch raw.Topics[0] {
		case airnode.Events["ClientRequestCreated"].ID:
			parseErr = parseCreated(airnode, raw, meta, KindRegular, batch)
		case airnode.Events["ClientShortRequestCreated"].ID:
			parseErr = parseCreated(airnode, raw, meta, KindShort, batch)
		case airnode.Events["ClientFullRequestCreated"].ID:
			parseErr = parseCreated(airnode, raw, meta, KindFull, batch)
		case airnode.Events["ClientRequestFulfilled"].ID:
			parseErr = parseFulfilled(airnode, raw, meta, batch)
		case airnode.Events["ClientRequestFailed"].ID:
			parseErr = parseFailed(raw, meta, batch)
		case airnode.Events["WithdrawalRequested"].ID:
			parseErr = parseWithdrawalRequested(airnode, raw, meta, batch)
		case airnode.Events["WithdrawalFulfilled"].ID:
			parseErr = parseWithdrawalFulfilled(airnode, raw, meta, batch)
		default:
			logs = append(logs, logger.Warn("Skipping log with unknown topic %s in transaction %s", raw.Topics[0].Hex(), raw.TxHash.Hex()))
			continue
		}

		if parseErr != nil {
			logs = append(logs, logger.Error(fmt.Sprintf("Failed to parse log in transaction %s", raw.TxHash.Hex()), parseErr))
		}
	}

	return logs, batch, nil
}

func parseCreated(airnode abi.ABI, raw types.Log, meta Metadata, kind Kind, batch *Batch) error {
	if len(raw.Topics) < 3 {
		return fmt.Errorf("request creation log has %d topics, want 3", len(raw.Topics))
	}

	eventName := map[Kind]string{
		KindShort:   "ClientShortRequestCreated",
		KindRegular: "ClientRequestCreated",
		KindFull:    "ClientFullRequestCreated",
	}[kind]

	args := map[string]interface{}{}
	if err := airnode.UnpackIntoMap(args, eventName, raw.Data); err != nil {
		return fmt.Errorf("unpack %s: %w", eventName, err)
	}

	ev := RequestCreated{
		Kind:          kind,
		ProviderID:    raw.Topics[1],
		RequestID:     raw.Topics[2],
		RequestCount:  argBigInt(args, "noRequests"),
		ClientAddress: argAddress(args, "clientAddress"),
		Parameters:    argBytes(args, "parameters"),
		Metadata:      meta,
	}

	switch kind {
	case KindShort:
		ev.TemplateID = argHashPtr(args, "templateId")
	case KindRegular:
		ev.TemplateID = argHashPtr(args, "templateId")
		ev.RequesterIndex = argBigInt(args, "requesterIndex")
		ev.DesignatedWallet = argAddressPtr(args, "designatedWallet")
		ev.FulfillAddress = argAddressPtr(args, "fulfillAddress")
		ev.FulfillFunctionID = argFunctionID(args, "fulfillFunctionId")
	case KindFull:
		ev.EndpointID = argHashPtr(args, "endpointId")
		ev.RequesterIndex = argBigInt(args, "requesterIndex")
		ev.DesignatedWallet = argAddressPtr(args, "designatedWallet")
		ev.FulfillAddress = argAddressPtr(args, "fulfillAddress")
		ev.FulfillFunctionID = argFunctionID(args, "fulfillFunctionId")
	}

	batch.Created = append(batch.Created, ev)
	return nil
}

func parseFulfilled(airnode abi.ABI, raw types.Log, meta Metadata, batch *Batch) error {
	if len(raw.Topics) < 3 {
		return fmt.Errorf("fulfillment log has %d topics, want 3", len(raw.Topics))
	}

	args := map[string]interface{}{}
	if err := airnode.UnpackIntoMap(args, "ClientRequestFulfilled", raw.Data); err != nil {
		return fmt.Errorf("unpack ClientRequestFulfilled: %w", err)
	}

	data := common.Hash{}
	if v, ok := args["data"].([32]byte); ok {
		data = common.BytesToHash(v[:])
	}

	batch.Fulfilled = append(batch.Fulfilled, RequestFulfilled{
		ProviderID: raw.Topics[1],
		RequestID:  raw.Topics[2],
		StatusCode: argBigInt(args, "statusCode"),
		Data:       data,
		Metadata:   meta,
	})
	return nil
}

func parseFailed(raw types.Log, meta Metadata, batch *Batch) error {
	if len(raw.Topics) < 3 {
		return fmt.Errorf("failure log has %d topics, want 3", len(raw.Topics))
	}
	batch.Failed = append(batch.Failed, RequestFailed{
		ProviderID: raw.Topics[1],
		RequestID:  raw.Topics[2],
		Metadata:   meta,
	})
	return nil
}

func parseWithdrawalRequested(airnode abi.ABI, raw types.Log, meta Metadata, batch *Batch) error {
	if len(raw.Topics) < 4 {
		return fmt.Errorf("withdrawal request log has %d topics, want 4", len(raw.Topics))
	}

	args := map[string]interface{}{}
	if err := airnode.UnpackIntoMap(args, "WithdrawalRequested", raw.Data); err != nil {
		return fmt.Errorf("unpack WithdrawalRequested: %w", err)
	}

	batch.WithdrawalsRequested = append(batch.WithdrawalsRequested, WithdrawalRequested{
		ProviderID:       raw.Topics[1],
		RequesterIndex:   new(big.Int).SetBytes(raw.Topics[2].Bytes()),
		WithdrawalID:     raw.Topics[3],
		DesignatedWallet: argAddress(args, "designatedWallet"),
		Destination:      argAddress(args, "destination"),
		Metadata:         meta,
	})
	return nil
}

func parseWithdrawalFulfilled(airnode abi.ABI, raw types.Log, meta Metadata, batch *Batch) error {
	if len(raw.Topics) < 4 {
		return fmt.Errorf("withdrawal fulfillment log has %d topics, want 4", len(raw.Topics))
	}

	args := map[string]interface{}{}
	if err := airnode.UnpackIntoMap(args, "WithdrawalFulfilled", raw.Data); err != nil {
		return fmt.Errorf("unpack WithdrawalFulfilled: %w", err)
	}

	batch.WithdrawalsFulfilled = append(batch.WithdrawalsFulfilled, WithdrawalFulfilled{
		ProviderID:       raw.Topics[1],
		RequesterIndex:   new(big.Int).SetBytes(raw.Topics[2].Bytes()),
		WithdrawalID:     raw.Topics[3],
		DesignatedWallet: argAddress(args, "designatedWallet"),
		Destination:      argAddress(args, "destination"),
		Amount:           argBigInt(args, "amount"),
		Metadata:         meta,
	})
	return nil
}

// Argument extraction helpers. Unpacked values that are missing or of an
// unexpected shape yield zero values rather than panics.

func argBigInt(args map[string]interface{}, name string) *big.Int {
	if v, ok := args[name].(*big.Int); ok {
		return v
	}
	return nil
}

func argAddress(args map[string]interface{}, name string) common.Address {
	if v, ok := args[name].(common.Address); ok {
		return v
	}
	return common.Address{}
}

func argAddressPtr(args map[string]interface{}, name string) *common.Address {
	if v, ok := args[name].(common.Address); ok {
		addr := v
		return &addr
	}
	return nil
}

func argHashPtr(args map[string]interface{}, name string) *common.Hash {
	if v, ok := args[name].([32]byte); ok {
		h := common.BytesToHash(v[:])
		return &h
	}
	return nil
}

func argBytes(args map[string]interface{}, name string) []byte {
	if v, ok := args[name].([]byte); ok {
		return v
	}
	return nil
}

func argFunctionID(args map[string]interface{}, name string) []byte {
	if v, ok := args[name].([4]byte); ok {
		return v[:]
	}
	return nil
}
