package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ConvenienceABI covers the batched view calls the coordinator makes
// once per run: provider record lookup, template resolution and
// endorsement checks.
const ConvenienceABI = `[
	{
		"inputs": [{"name": "providerId", "type": "bytes32"}],
		"name": "getProviderAndBlockNumber",
		"outputs": [
			{"name": "admin", "type": "address"},
			{"name": "xpub", "type": "string"},
			{"name": "authorizers", "type": "address[]"},
			{"name": "blockNumber", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "templateIds", "type": "bytes32[]"}],
		"name": "getTemplates",
		"outputs": [
			{"name": "providerIds", "type": "bytes32[]"},
			{"name": "endpointIds", "type": "bytes32[]"},
			{"name": "requesterIndices", "type": "uint256[]"},
			{"name": "designatedWallets", "type": "address[]"},
			{"name": "fulfillAddresses", "type": "address[]"},
			{"name": "fulfillFunctionIds", "type": "bytes4[]"},
			{"name": "parameters", "type": "bytes[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "requesterIndices", "type": "uint256[]"},
			{"name": "clientAddresses", "type": "address[]"}
		],
		"name": "checkEndorsementStatuses",
		"outputs": [{"name": "statuses", "type": "bool[]"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	convenienceOnce sync.Once
	convenienceABI  abi.ABI
	convenienceErr  error
)

// Convenience returns the parsed Convenience contract ABI
func Convenience() (abi.ABI, error) {
	convenienceOnce.Do(func() {
		convenienceABI, convenienceErr = abi.JSON(strings.NewReader(ConvenienceABI))
		if convenienceErr != nil {
			convenienceErr = fmt.Errorf("failed to parse Convenience ABI: %w", convenienceErr)
		}
	})
	return convenienceABI, convenienceErr
}
