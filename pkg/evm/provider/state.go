// Per-provider state snapshots.

package provider

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/authorization"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/evm"
	"github.com/airnode/coordinator/pkg/requests"
)

// State is one chain provider's view of the run: its connection, chain
// context, pending work and the lookups the assembler needs. Stages
// never mutate a State in place; they derive a new one with With.
type State struct {
	ChainConfig   config.ChainConfig
	ProviderConfig config.ChainProvider

	Client             *evm.Client
	AirnodeAddress     common.Address
	ConvenienceAddress common.Address

	ProviderID common.Hash
	XPub       string

	CurrentBlock uint64
	GasPrice     *big.Int

	Requests requests.Grouped

	// TransactionCountsByRequesterIndex maps a requester index (decimal
	// string) to its designated wallet's on-chain transaction count,
	// fetched once per run.
	TransactionCountsByRequesterIndex map[string]uint64

	Endorsements authorization.Endorsements
}

// With returns a copy of the state with fn applied to it
func (s State) With(fn func(*State)) State {
	next := s
	fn(&next)
	return next
}

// Name identifies the provider in logs
func (s State) Name() string {
	return s.ProviderConfig.Name
}
