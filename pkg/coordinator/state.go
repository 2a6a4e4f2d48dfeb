// Coordinator state snapshots.

package coordinator

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/aggregation"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/evm/provider"
)

// State is the coordinator's view of one run. Stages derive new
// snapshots with Update; nothing mutates a State in place.
type State struct {
	RunID  string
	Config *config.Config

	EVMProviders []provider.State

	AggregatedCallsByID map[common.Hash]aggregation.AggregatedCall
}

// New constructs the initial state for a run
func New(runID string, cfg *config.Config) State {
	return State{
		RunID:               runID,
		Config:              cfg,
		AggregatedCallsByID: map[common.Hash]aggregation.AggregatedCall{},
	}
}

// Update returns a copy of the state with fn applied to it
func Update(s State, fn func(*State)) State {
	next := s
	fn(&next)
	return next
}
