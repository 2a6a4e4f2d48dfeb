package fulfillments

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/requests"
)

func actionableCall(id string, status requests.Status, block uint64, index uint) requests.APICall {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fulfillAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	call := requests.APICall{
		ID:                common.HexToHash(id),
		Status:            status,
		RequesterIndex:    big.NewInt(5),
		DesignatedWallet:  &wallet,
		FulfillAddress:    &fulfillAddr,
		FulfillFunctionID: []byte{0xde, 0xad, 0xbe, 0xef},
		Metadata:          requests.Metadata{BlockNumber: block, LogIndex: index},
	}
	if status == requests.StatusPending {
		call.ResponseValue = make([]byte, 32)
	}
	return call
}

func TestGroupActions_StatusFiltering(t *testing.T) {
	grouped := requests.Grouped{
		APICalls: []requests.APICall{
			actionableCall("0x01", requests.StatusPending, 10, 0),
			actionableCall("0x02", requests.StatusErrored, 10, 1),
			actionableCall("0x03", requests.StatusFulfilled, 10, 2),
			actionableCall("0x04", requests.StatusIgnored, 10, 3),
			actionableCall("0x05", requests.StatusBlocked, 10, 4),
		},
	}

	actions := groupActions(grouped)

	got := actions["5"]
	if len(got) != 2 {
		t.Fatalf("got %d actions, want 2 (fulfill + fail)", len(got))
	}
	if got[0].kind != actionFulfill || got[0].apiCall.ID != common.HexToHash("0x01") {
		t.Fatalf("first action: got kind %d for %s", got[0].kind, got[0].apiCall.ID.Hex())
	}
	if got[1].kind != actionFail || got[1].apiCall.ID != common.HexToHash("0x02") {
		t.Fatalf("second action: got kind %d for %s", got[1].kind, got[1].apiCall.ID.Hex())
	}
}

func TestGroupActions_SkipsUnresolvedFulfillmentFields(t *testing.T) {
	errored := actionableCall("0x01", requests.StatusErrored, 10, 0)
	errored.DesignatedWallet = nil

	actions := groupActions(requests.Grouped{APICalls: []requests.APICall{errored}})
	if len(actions) != 0 {
		t.Fatal("request without a designated wallet must not produce a transaction")
	}
}

func TestGroupActions_PendingWithoutResponseValue(t *testing.T) {
	pending := actionableCall("0x01", requests.StatusPending, 10, 0)
	pending.ResponseValue = nil

	actions := groupActions(requests.Grouped{APICalls: []requests.APICall{pending}})
	if len(actions) != 0 {
		t.Fatal("pending request without a response value must not produce a transaction")
	}
}

func TestGroupActions_BlockThenLogOrder(t *testing.T) {
	grouped := requests.Grouped{
		APICalls: []requests.APICall{
			actionableCall("0x03", requests.StatusPending, 12, 0),
			actionableCall("0x01", requests.StatusPending, 10, 5),
			actionableCall("0x02", requests.StatusPending, 10, 9),
		},
		Withdrawals: []requests.Withdrawal{{
			ID:               common.HexToHash("0x04"),
			Status:           requests.StatusPending,
			RequesterIndex:   big.NewInt(5),
			DesignatedWallet: common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Metadata:         requests.Metadata{BlockNumber: 11, LogIndex: 0},
		}},
	}

	actions := groupActions(grouped)["5"]

	wantOrder := []string{"0x01", "0x02", "0x04", "0x03"}
	if len(actions) != len(wantOrder) {
		t.Fatalf("got %d actions, want %d", len(actions), len(wantOrder))
	}
	for i, want := range wantOrder {
		var id common.Hash
		if actions[i].kind == actionWithdraw {
			id = actions[i].withdrawal.ID
		} else {
			id = actions[i].apiCall.ID
		}
		if id != common.HexToHash(want) {
			t.Fatalf("position %d: got %s, want %s", i, id.Hex(), common.HexToHash(want).Hex())
		}
	}
}

func TestGroupActions_SplitsByRequesterIndex(t *testing.T) {
	a := actionableCall("0x01", requests.StatusPending, 10, 0)
	b := actionableCall("0x02", requests.StatusPending, 10, 1)
	b.RequesterIndex = big.NewInt(9)

	actions := groupActions(requests.Grouped{APICalls: []requests.APICall{a, b}})

	if len(actions["5"]) != 1 || len(actions["9"]) != 1 {
		t.Fatalf("got %d/%d actions for requesters 5/9, want 1/1", len(actions["5"]), len(actions["9"]))
	}
}
