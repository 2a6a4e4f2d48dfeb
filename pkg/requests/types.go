// Request model for the coordinator pipeline.
//
// Requests are built once from chain logs at the start of a run, updated
// only by stages that return fresh copies, and discarded at the end of
// the run. Nothing here touches the chain.

package requests

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of a request within one run
type Status string

const (
	// StatusPending requests are eligible for execution
	StatusPending Status = "Pending"
	// StatusFulfilled requests were already fulfilled on-chain
	StatusFulfilled Status = "Fulfilled"
	// StatusIgnored requests are not served by this node
	StatusIgnored Status = "Ignored"
	// StatusBlocked requests cannot be decided yet and are carried
	// forward unless they age out
	StatusBlocked Status = "Blocked"
	// StatusErrored requests are submitted as fail transactions
	StatusErrored Status = "Errored"
)

// ErrorCode identifies why a request errored or blocked
type ErrorCode string

const (
	ErrRequestParameterDecodingFailed  ErrorCode = "RequestParameterDecodingFailed"
	ErrReservedParametersInvalid       ErrorCode = "ReservedParametersInvalid"
	ErrTemplateNotFound                ErrorCode = "TemplateNotFound"
	ErrTemplateParameterDecodingFailed ErrorCode = "TemplateParameterDecodingFailed"
	ErrInsufficientParameters          ErrorCode = "InsufficientParameters"
	ErrUnauthorizedClient              ErrorCode = "UnauthorizedClient"
	ErrPendingWithdrawal               ErrorCode = "PendingWithdrawal"
	ErrNoMatchingAggregatedCall        ErrorCode = "NoMatchingAggregatedCall"
	ErrAPICallFailed                   ErrorCode = "ApiCallFailed"
	ErrUnknownEndpointID               ErrorCode = "UnknownEndpointId"
	ErrUnknownOIS                      ErrorCode = "UnknownOIS"
)

// APICallType distinguishes the three request creation events
type APICallType string

const (
	TypeShort   APICallType = "short"
	TypeRegular APICallType = "regular"
	TypeFull    APICallType = "full"
)

// Metadata is chain context attached to every request
type Metadata struct {
	BlockNumber     uint64
	LogIndex        uint
	TransactionHash common.Hash

	// CurrentBlock is the run's view of the chain head
	CurrentBlock uint64
	// IgnoreBlockedRequestsAfterBlocks ages out Blocked requests
	IgnoreBlockedRequestsAfterBlocks uint64
}

// APICall is an oracle request observed on-chain
type APICall struct {
	ID         common.Hash
	Type       APICallType
	Status     Status
	ErrorCode  ErrorCode
	ProviderID common.Hash

	RequesterIndex    *big.Int
	ClientAddress     common.Address
	DesignatedWallet  *common.Address
	FulfillAddress    *common.Address
	FulfillFunctionID []byte
	EndpointID        *common.Hash
	TemplateID        *common.Hash

	EncodedParameters []byte
	Parameters        map[string]string

	RequestCount *big.Int
	Metadata     Metadata

	// AggregatedCallID links the request to its coalesced API call
	AggregatedCallID *common.Hash
	ResponseValue    []byte
}

// Withdrawal is a requester's withdrawal request for a designated wallet
type Withdrawal struct {
	ID               common.Hash
	ProviderID       common.Hash
	RequesterIndex   *big.Int
	DesignatedWallet common.Address
	Destination      common.Address
	Status           Status
	ErrorCode        ErrorCode
	Metadata         Metadata
}

// Grouped is a provider's pending work, split by kind
type Grouped struct {
	APICalls    []APICall
	Withdrawals []Withdrawal
}

// IsTerminal reports whether a status can no longer change this run
func (s Status) IsTerminal() bool {
	return s == StatusFulfilled || s == StatusIgnored || s == StatusErrored
}
