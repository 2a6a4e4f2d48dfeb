// On-chain provider record reconciliation.
//
// The master wallet owns one provider record per chain: (admin, xpub,
// authorizers). At the start of each run the record is compared to
// configuration and created or updated when stale — but only when the
// master wallet can afford the transaction. An underfunded node keeps
// serving requests; it just cannot update its own metadata.

package provider

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/airnode/coordinator/pkg/evm"
	"github.com/airnode/coordinator/pkg/evm/contracts"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/wallet"
)

// Record is the on-chain provider record
type Record struct {
	Admin       common.Address
	XPub        string
	Authorizers []common.Address
	BlockNumber *big.Int
}

// Exists reports whether the record has been created on-chain
func (r Record) Exists() bool {
	return r.XPub != ""
}

// FetchRecord reads the provider record with the run's retry policy
func FetchRecord(ctx context.Context, client *evm.Client, convenienceAddr common.Address, providerID common.Hash) (Record, error) {
	convenience, err := contracts.Convenience()
	if err != nil {
		return Record{}, err
	}
	callData, err := convenience.Pack("getProviderAndBlockNumber", [32]byte(providerID))
	if err != nil {
		return Record{}, fmt.Errorf("failed to pack getProviderAndBlockNumber: %w", err)
	}

	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &convenienceAddr, Data: callData})
	if err != nil {
		return Record{}, fmt.Errorf("getProviderAndBlockNumber call failed: %w", err)
	}

	unpacked, err := convenience.Unpack("getProviderAndBlockNumber", raw)
	if err != nil {
		return Record{}, fmt.Errorf("failed to unpack getProviderAndBlockNumber result: %w", err)
	}
	if len(unpacked) != 4 {
		return Record{}, fmt.Errorf("getProviderAndBlockNumber returned %d values, want 4", len(unpacked))
	}

	record := Record{}
	if v, ok := unpacked[0].(common.Address); ok {
		record.Admin = v
	}
	if v, ok := unpacked[1].(string); ok {
		record.XPub = v
	}
	if v, ok := unpacked[2].([]common.Address); ok {
		record.Authorizers = v
	}
	if v, ok := unpacked[3].(*big.Int); ok {
		record.BlockNumber = v
	}
	return record, nil
}

// matchesConfig reports whether the on-chain record already agrees with
// the configured admin, authorizers and the node's xpub.
func matchesConfig(record Record, admin common.Address, authorizers []common.Address, xpub string) bool {
	if !record.Exists() || record.XPub != xpub || record.Admin != admin {
		return false
	}
	if len(record.Authorizers) != len(authorizers) {
		return false
	}
	for i := range authorizers {
		if record.Authorizers[i] != authorizers[i] {
			return false
		}
	}
	return true
}

// VerifyOrCreateRecord reconciles the on-chain record with
// configuration. Returns the submitted createProvider transaction, or
// nil when the record was already current or funds were insufficient.
func VerifyOrCreateRecord(ctx context.Context, s State, master *wallet.MasterHDNode, record Record) ([]logger.Log, *types.Transaction) {
	admin := common.HexToAddress(s.ChainConfig.Admin)
	authorizers := make([]common.Address, 0, len(s.ChainConfig.Authorizers))
	for _, a := range s.ChainConfig.Authorizers {
		authorizers = append(authorizers, common.HexToAddress(a))
	}

	if matchesConfig(record, admin, authorizers, s.XPub) {
		return []logger.Log{logger.Debug("Provider record %s is up to date", s.ProviderID.Hex())}, nil
	}

	var logs []logger.Log
	if record.Exists() {
		logs = append(logs, logger.Info("Provider record %s exists but is stale, updating", s.ProviderID.Hex()))
	} else {
		logs = append(logs, logger.Info("Provider record %s not found, creating", s.ProviderID.Hex()))
	}

	airnode, err := contracts.Airnode()
	if err != nil {
		return append(logs, logger.Error("Failed to load Airnode ABI", err)), nil
	}
	callData, err := airnode.Pack("createProvider", admin, s.XPub, authorizers)
	if err != nil {
		return append(logs, logger.Error("Failed to pack createProvider", err)), nil
	}

	masterAddr, err := master.Address()
	if err != nil {
		return append(logs, logger.Error("Failed to derive master wallet address", err)), nil
	}

	gasLimit, err := s.Client.EstimateGas(ctx, ethereum.CallMsg{
		From:  masterAddr,
		To:    &s.AirnodeAddress,
		Value: big.NewInt(1),
		Data:  callData,
	})
	if err != nil {
		return append(logs, logger.Error("Failed to estimate createProvider gas", err)), nil
	}

	balance, err := s.Client.BalanceAt(ctx, masterAddr)
	if err != nil {
		return append(logs, logger.Error("Failed to fetch master wallet balance", err)), nil
	}

	txCost := new(big.Int).Mul(s.GasPrice, new(big.Int).SetUint64(gasLimit))
	if balance.Cmp(txCost) < 0 {
		// The node still serves requests; it just cannot touch its
		// own record until the master wallet is funded.
		logs = append(logs,
			logger.Warn("Master wallet %s does not have sufficient funds to create the provider record", masterAddr.Hex()),
			logger.Warn("Balance: %s wei, transaction cost: %s wei", balance.String(), txCost.String()),
			logger.Warn("The provider record will not be created or updated this run"),
		)
		return logs, nil
	}

	// Send everything above the transaction cost along as value, so the
	// provider record holds the master wallet's spare funds.
	value := new(big.Int).Sub(balance, txCost)

	nonce, err := s.Client.TransactionCount(ctx, masterAddr)
	if err != nil {
		return append(logs, logger.Error("Failed to fetch master wallet transaction count", err)), nil
	}

	tx := types.NewTransaction(nonce, s.AirnodeAddress, value, gasLimit, s.GasPrice, callData)
	priv, err := master.PrivateKey()
	if err != nil {
		return append(logs, logger.Error("Failed to derive master wallet key", err)), nil
	}
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.Client.ChainID()), priv)
	if err != nil {
		return append(logs, logger.Error("Failed to sign createProvider transaction", err)), nil
	}
	if err := s.Client.SendTransaction(ctx, signed); err != nil {
		return append(logs, logger.Error("Failed to submit createProvider transaction", err)), nil
	}

	logs = append(logs, logger.Info("Submitted createProvider transaction %s", signed.Hash().Hex()))
	return logs, signed
}
