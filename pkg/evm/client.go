// Chain RPC client.
//
// Thin wrapper over ethclient with the node's retry policy applied to
// every call. One Client per configured chain provider.

package evm

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/airnode/coordinator/pkg/retries"
)

// Client wraps a JSON-RPC connection to one EVM chain provider
type Client struct {
	client  *ethclient.Client
	chainID *big.Int
	url     string
}

// Dial connects to a chain provider
func Dial(url string, chainID int64) (*Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain provider %s: %w", url, err)
	}
	return &Client{client: client, chainID: big.NewInt(chainID), url: url}, nil
}

// ChainID returns the configured chain id
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// URL returns the provider URL
func (c *Client) URL() string {
	return c.url
}

// BlockNumber returns the current block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return retries.Retry(ctx, func(ctx context.Context) (uint64, error) {
		return c.client.BlockNumber(ctx)
	})
}

// FilterLogs fetches event logs matching the query
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return retries.Retry(ctx, func(ctx context.Context) ([]types.Log, error) {
		return c.client.FilterLogs(ctx, q)
	})
}

// BalanceAt returns the latest balance of an address
func (c *Client) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	return retries.Retry(ctx, func(ctx context.Context) (*big.Int, error) {
		return c.client.BalanceAt(ctx, address, nil)
	})
}

// TransactionCount returns the pending nonce of an address
func (c *Client) TransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return retries.Retry(ctx, func(ctx context.Context) (uint64, error) {
		return c.client.PendingNonceAt(ctx, address)
	})
}

// SuggestGasPrice returns the chain's suggested gas price
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return retries.Retry(ctx, func(ctx context.Context) (*big.Int, error) {
		return c.client.SuggestGasPrice(ctx)
	})
}

// EstimateGas estimates the gas needed by a call
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return retries.Retry(ctx, func(ctx context.Context) (uint64, error) {
		return c.client.EstimateGas(ctx, msg)
	})
}

// CallContract executes a read-only contract call
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return retries.Retry(ctx, func(ctx context.Context) ([]byte, error) {
		return c.client.CallContract(ctx, msg, nil)
	})
}

// SendTransaction submits a signed transaction. Submission is not
// retried: a nonce must not be raced against itself.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, retries.DefaultTimeout)
	defer cancel()
	if err := c.client.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	return nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.client.Close()
}
