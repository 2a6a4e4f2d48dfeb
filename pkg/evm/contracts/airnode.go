// On-chain interface definitions.
//
// The Airnode contract holds the request/fulfill entry points and emits
// the events the coordinator consumes. Only the fragments the engine
// uses are declared here.

package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// AirnodeABI is the subset of the Airnode contract the engine consumes
// and emits.
const AirnodeABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requestId", "type": "bytes32"},
			{"indexed": false, "name": "noRequests", "type": "uint256"},
			{"indexed": false, "name": "clientAddress", "type": "address"},
			{"indexed": false, "name": "templateId", "type": "bytes32"},
			{"indexed": false, "name": "requesterIndex", "type": "uint256"},
			{"indexed": false, "name": "designatedWallet", "type": "address"},
			{"indexed": false, "name": "fulfillAddress", "type": "address"},
			{"indexed": false, "name": "fulfillFunctionId", "type": "bytes4"},
			{"indexed": false, "name": "parameters", "type": "bytes"}
		],
		"name": "ClientRequestCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requestId", "type": "bytes32"},
			{"indexed": false, "name": "noRequests", "type": "uint256"},
			{"indexed": false, "name": "clientAddress", "type": "address"},
			{"indexed": false, "name": "templateId", "type": "bytes32"},
			{"indexed": false, "name": "parameters", "type": "bytes"}
		],
		"name": "ClientShortRequestCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requestId", "type": "bytes32"},
			{"indexed": false, "name": "noRequests", "type": "uint256"},
			{"indexed": false, "name": "clientAddress", "type": "address"},
			{"indexed": false, "name": "endpointId", "type": "bytes32"},
			{"indexed": false, "name": "requesterIndex", "type": "uint256"},
			{"indexed": false, "name": "designatedWallet", "type": "address"},
			{"indexed": false, "name": "fulfillAddress", "type": "address"},
			{"indexed": false, "name": "fulfillFunctionId", "type": "bytes4"},
			{"indexed": false, "name": "parameters", "type": "bytes"}
		],
		"name": "ClientFullRequestCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requestId", "type": "bytes32"},
			{"indexed": false, "name": "statusCode", "type": "uint256"},
			{"indexed": false, "name": "data", "type": "bytes32"}
		],
		"name": "ClientRequestFulfilled",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requestId", "type": "bytes32"}
		],
		"name": "ClientRequestFailed",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requesterIndex", "type": "uint256"},
			{"indexed": true, "name": "withdrawalRequestId", "type": "bytes32"},
			{"indexed": false, "name": "designatedWallet", "type": "address"},
			{"indexed": false, "name": "destination", "type": "address"}
		],
		"name": "WithdrawalRequested",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "providerId", "type": "bytes32"},
			{"indexed": true, "name": "requesterIndex", "type": "uint256"},
			{"indexed": true, "name": "withdrawalRequestId", "type": "bytes32"},
			{"indexed": false, "name": "designatedWallet", "type": "address"},
			{"indexed": false, "name": "destination", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "WithdrawalFulfilled",
		"type": "event"
	},
	{
		"inputs": [
			{"name": "requestId", "type": "bytes32"},
			{"name": "providerId", "type": "bytes32"},
			{"name": "statusCode", "type": "uint256"},
			{"name": "data", "type": "bytes32"},
			{"name": "fulfillAddress", "type": "address"},
			{"name": "fulfillFunctionId", "type": "bytes4"}
		],
		"name": "fulfill",
		"outputs": [
			{"name": "callSuccess", "type": "bool"},
			{"name": "callData", "type": "bytes"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "requestId", "type": "bytes32"},
			{"name": "providerId", "type": "bytes32"},
			{"name": "statusCode", "type": "uint256"},
			{"name": "fulfillAddress", "type": "address"},
			{"name": "fulfillFunctionId", "type": "bytes4"}
		],
		"name": "fail",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "withdrawalRequestId", "type": "bytes32"},
			{"name": "providerId", "type": "bytes32"},
			{"name": "requesterIndex", "type": "uint256"},
			{"name": "destination", "type": "address"}
		],
		"name": "fulfillWithdrawal",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "admin", "type": "address"},
			{"name": "xpub", "type": "string"},
			{"name": "authorizers", "type": "address[]"}
		],
		"name": "createProvider",
		"outputs": [{"name": "providerId", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

var (
	airnodeOnce sync.Once
	airnodeABI  abi.ABI
	airnodeErr  error
)

// Airnode returns the parsed Airnode contract ABI
func Airnode() (abi.ABI, error) {
	airnodeOnce.Do(func() {
		airnodeABI, airnodeErr = abi.JSON(strings.NewReader(AirnodeABI))
		if airnodeErr != nil {
			airnodeErr = fmt.Errorf("failed to parse Airnode ABI: %w", airnodeErr)
		}
	})
	return airnodeABI, airnodeErr
}
