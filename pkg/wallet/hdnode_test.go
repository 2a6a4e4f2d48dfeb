package wallet

import (
	"math/big"
	"strings"
	"testing"
)

// Standard BIP39 test mnemonic; never fund it.
const testMnemonic = "test test test test test test test test test test test junk"

func TestNewMasterHDNode_RejectsInvalidMnemonic(t *testing.T) {
	if _, err := NewMasterHDNode("definitely not a mnemonic"); err == nil {
		t.Fatal("expected an invalid mnemonic to be rejected")
	}
}

func TestDerivation_IsDeterministic(t *testing.T) {
	a, err := NewMasterHDNode(testMnemonic)
	if err != nil {
		t.Fatalf("failed to derive master node: %v", err)
	}
	b, err := NewMasterHDNode(testMnemonic)
	if err != nil {
		t.Fatalf("failed to derive master node: %v", err)
	}

	idA, err := a.ProviderID()
	if err != nil {
		t.Fatalf("failed to derive provider id: %v", err)
	}
	idB, err := b.ProviderID()
	if err != nil {
		t.Fatalf("failed to derive provider id: %v", err)
	}
	if idA != idB {
		t.Fatal("provider id is not deterministic")
	}

	xpubA, err := a.XPub()
	if err != nil {
		t.Fatalf("failed to derive xpub: %v", err)
	}
	xpubB, _ := b.XPub()
	if xpubA != xpubB {
		t.Fatal("xpub is not deterministic")
	}
	if !strings.HasPrefix(xpubA, "xpub") {
		t.Fatalf("got xpub %q, want an xpub-prefixed key", xpubA)
	}
}

func TestDesignatedWallets_DifferPerRequester(t *testing.T) {
	m, err := NewMasterHDNode(testMnemonic)
	if err != nil {
		t.Fatalf("failed to derive master node: %v", err)
	}

	first, err := m.DesignatedAddress(big.NewInt(1))
	if err != nil {
		t.Fatalf("failed to derive designated wallet: %v", err)
	}
	second, err := m.DesignatedAddress(big.NewInt(2))
	if err != nil {
		t.Fatalf("failed to derive designated wallet: %v", err)
	}
	if first == second {
		t.Fatal("distinct requester indices derived the same wallet")
	}

	firstAgain, _ := m.DesignatedAddress(big.NewInt(1))
	if first != firstAgain {
		t.Fatal("designated wallet derivation is not deterministic")
	}

	master, err := m.Address()
	if err != nil {
		t.Fatalf("failed to derive master address: %v", err)
	}
	if first == master {
		t.Fatal("designated wallet must differ from the master wallet")
	}
}

func TestDeriveDesignated_RejectsBadIndices(t *testing.T) {
	m, err := NewMasterHDNode(testMnemonic)
	if err != nil {
		t.Fatalf("failed to derive master node: %v", err)
	}
	if _, err := m.DeriveDesignated(nil); err == nil {
		t.Fatal("expected nil index to be rejected")
	}
	if _, err := m.DeriveDesignated(big.NewInt(-1)); err == nil {
		t.Fatal("expected negative index to be rejected")
	}
}
