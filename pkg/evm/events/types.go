// Typed chain events consumed by the coordinator.

package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies which creation event produced a request
type Kind string

const (
	KindShort   Kind = "short"
	KindRegular Kind = "regular"
	KindFull    Kind = "full"
)

// Metadata is chain context shared by all parsed events
type Metadata struct {
	BlockNumber     uint64
	LogIndex        uint
	TransactionHash common.Hash

	// CurrentBlock is the run's view of the chain head at fetch time
	CurrentBlock uint64
	// IgnoreBlockedRequestsAfterBlocks is the chain's blocked-request age limit
	IgnoreBlockedRequestsAfterBlocks uint64
}

// RequestCreated is one of the three request creation events. Fields
// that the short and regular variants do not carry are zero.
type RequestCreated struct {
	Kind       Kind
	ProviderID common.Hash
	RequestID  common.Hash

	RequestCount      *big.Int
	ClientAddress     common.Address
	TemplateID        *common.Hash
	EndpointID        *common.Hash
	RequesterIndex    *big.Int
	DesignatedWallet  *common.Address
	FulfillAddress    *common.Address
	FulfillFunctionID []byte
	Parameters        []byte

	Metadata Metadata
}

// RequestFulfilled is a ClientRequestFulfilled event
type RequestFulfilled struct {
	ProviderID common.Hash
	RequestID  common.Hash
	StatusCode *big.Int
	Data       common.Hash
	Metadata   Metadata
}

// RequestFailed is a ClientRequestFailed event
type RequestFailed struct {
	ProviderID common.Hash
	RequestID  common.Hash
	Metadata   Metadata
}

// WithdrawalRequested is a WithdrawalRequested event
type WithdrawalRequested struct {
	ProviderID       common.Hash
	WithdrawalID     common.Hash
	RequesterIndex   *big.Int
	DesignatedWallet common.Address
	Destination      common.Address
	Metadata         Metadata
}

// WithdrawalFulfilled is a WithdrawalFulfilled event
type WithdrawalFulfilled struct {
	ProviderID       common.Hash
	WithdrawalID     common.Hash
	RequesterIndex   *big.Int
	DesignatedWallet common.Address
	Destination      common.Address
	Amount           *big.Int
	Metadata         Metadata
}

// Batch groups a run's parsed events by type, each list in
// (blockNumber, logIndex) order.
type Batch struct {
	Created              []RequestCreated
	Fulfilled            []RequestFulfilled
	Failed               []RequestFailed
	WithdrawalsRequested []WithdrawalRequested
	WithdrawalsFulfilled []WithdrawalFulfilled
}
