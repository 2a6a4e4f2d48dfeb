// Master HD wallet handling.
//
// The node's identity on every chain derives from one BIP32 master key:
// providerId from the master wallet address, xpub published on-chain so
// requesters can verify designated wallet derivation, and one designated
// wallet per requester index at m/0/index.

package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// MasterHDNode wraps the node's BIP32 master extended key
type MasterHDNode struct {
	key *hdkeychain.ExtendedKey
}

// NewMasterHDNode derives the master key from a BIP39 mnemonic
func NewMasterHDNode(mnemonic string) (*MasterHDNode, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid master key mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}

	return &MasterHDNode{key: key}, nil
}

// XPub returns the serialized extended public key
func (m *MasterHDNode) XPub() (string, error) {
	neutered, err := m.key.Neuter()
	if err != nil {
		return "", fmt.Errorf("failed to neuter master key: %w", err)
	}
	return neutered.String(), nil
}

// Address returns the master wallet address
func (m *MasterHDNode) Address() (common.Address, error) {
	priv, err := m.PrivateKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// PrivateKey returns the master wallet private key
func (m *MasterHDNode) PrivateKey() (*ecdsa.PrivateKey, error) {
	ecPriv, err := m.key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract master private key: %w", err)
	}
	return ecPriv.ToECDSA(), nil
}

// ProviderID derives the deterministic on-chain provider id: the keccak
// hash of the ABI-encoded master wallet address.
func (m *MasterHDNode) ProviderID() (common.Hash, error) {
	addr, err := m.Address()
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(crypto.Keccak256(common.LeftPadBytes(addr.Bytes(), 32))), nil
}

// DeriveDesignated returns the designated wallet key for a requester
// index, at path m/0/index.
func (m *MasterHDNode) DeriveDesignated(requesterIndex *big.Int) (*ecdsa.PrivateKey, error) {
	if requesterIndex == nil || requesterIndex.Sign() < 0 || !requesterIndex.IsUint64() {
		return nil, fmt.Errorf("invalid requester index %v", requesterIndex)
	}
	index := requesterIndex.Uint64()
	if index > uint64(hdkeychain.HardenedKeyStart-1) {
		return nil, fmt.Errorf("requester index %d out of derivation range", index)
	}

	child, err := m.key.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account branch: %w", err)
	}
	leaf, err := child.Derive(uint32(index))
	if err != nil {
		return nil, fmt.Errorf("failed to derive designated wallet %d: %w", index, err)
	}

	ecPriv, err := leaf.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract designated wallet key: %w", err)
	}
	return ecPriv.ToECDSA(), nil
}

// DesignatedAddress returns the designated wallet address for a
// requester index.
func (m *MasterHDNode) DesignatedAddress(requesterIndex *big.Int) (common.Address, error) {
	priv, err := m.DeriveDesignated(requesterIndex)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}
