package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/airnode/coordinator/pkg/evm/contracts"
)

var (
	testProviderID = common.HexToHash("0x19255a4ec31e89cea54d1f125db7536e874ab4a96b4d4f6438668b6bb10a6adb")
	testRequestID  = common.HexToHash("0xc5f11c3b573a2084dd4abf89216858e8cfa3477b2b739bc395a45b9a4f0c46f1")
)

func packedLog(t *testing.T, eventName string, block uint64, index uint, topics []common.Hash, args ...interface{}) types.Log {
	t.Helper()
	airnode, err := contracts.Airnode()
	if err != nil {
		t.Fatalf("failed to parse Airnode ABI: %v", err)
	}
	data, err := airnode.Events[eventName].Inputs.NonIndexed().Pack(args...)
	if err != nil {
		t.Fatalf("failed to pack %s data: %v", eventName, err)
	}
	return types.Log{
		Topics:      append([]common.Hash{airnode.Events[eventName].ID}, topics...),
		Data:        data,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.HexToHash("0xbeef"),
	}
}

func TestDecode_RequestKindsByTopic(t *testing.T) {
	client := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	fulfillAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	templateID := [32]byte(common.HexToHash("0x03"))
	endpointID := [32]byte(common.HexToHash("0x04"))
	functionID := [4]byte{0xde, 0xad, 0xbe, 0xef}

	rawLogs := []types.Log{
		packedLog(t, "ClientShortRequestCreated", 10, 0, []common.Hash{testProviderID, testRequestID},
			big.NewInt(1), client, templateID, []byte{0x1}),
		packedLog(t, "ClientRequestCreated", 10, 1, []common.Hash{testProviderID, testRequestID},
			big.NewInt(2), client, templateID, big.NewInt(5), wallet, fulfillAddr, functionID, []byte{}),
		packedLog(t, "ClientFullRequestCreated", 11, 0, []common.Hash{testProviderID, testRequestID},
			big.NewInt(3), client, endpointID, big.NewInt(5), wallet, fulfillAddr, functionID, []byte{}),
	}

	logs, batch, err := Decode(rawLogs, Context{CurrentBlock: 20, IgnoreBlockedRequestsAfterBlocks: 20})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("got %d logs, want 0", len(logs))
	}
	if len(batch.Created) != 3 {
		t.Fatalf("got %d creation events, want 3", len(batch.Created))
	}

	wantKinds := []Kind{KindShort, KindRegular, KindFull}
	for i, want := range wantKinds {
		if batch.Created[i].Kind != want {
			t.Errorf("event %d: got kind %q, want %q", i, batch.Created[i].Kind, want)
		}
	}

	short := batch.Created[0]
	if short.TemplateID == nil || *short.TemplateID != common.Hash(templateID) {
		t.Error("short request lost its template id")
	}
	if short.DesignatedWallet != nil {
		t.Error("short request should have no designated wallet before template resolution")
	}

	full := batch.Created[2]
	if full.EndpointID == nil || *full.EndpointID != common.Hash(endpointID) {
		t.Error("full request lost its endpoint id")
	}
	if full.Metadata.CurrentBlock != 20 {
		t.Errorf("got current block %d, want 20", full.Metadata.CurrentBlock)
	}
}

func TestDecode_UnknownTopicIsWarned(t *testing.T) {
	raw := types.Log{
		Topics:      []common.Hash{common.HexToHash("0x1234")},
		BlockNumber: 5,
	}

	logs, batch, err := Decode([]types.Log{raw}, Context{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Level != "WARN" {
		t.Fatalf("expected exactly one WARN log, got %+v", logs)
	}
	if len(batch.Created) != 0 {
		t.Fatal("unknown topic produced an event")
	}
}

func TestDecode_PreservesBlockThenLogOrder(t *testing.T) {
	client := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	templateID := [32]byte(common.HexToHash("0x03"))

	early := packedLog(t, "ClientShortRequestCreated", 9, 3, []common.Hash{testProviderID, common.HexToHash("0x0a")},
		big.NewInt(1), client, templateID, []byte{})
	mid := packedLog(t, "ClientShortRequestCreated", 10, 0, []common.Hash{testProviderID, common.HexToHash("0x0b")},
		big.NewInt(2), client, templateID, []byte{})
	late := packedLog(t, "ClientShortRequestCreated", 10, 4, []common.Hash{testProviderID, common.HexToHash("0x0c")},
		big.NewInt(3), client, templateID, []byte{})

	_, batch, err := Decode([]types.Log{late, early, mid}, Context{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	wantOrder := []common.Hash{common.HexToHash("0x0a"), common.HexToHash("0x0b"), common.HexToHash("0x0c")}
	for i, want := range wantOrder {
		if batch.Created[i].RequestID != want {
			t.Fatalf("position %d: got request %s, want %s", i, batch.Created[i].RequestID.Hex(), want.Hex())
		}
	}
}

func TestDecode_FulfillmentAndWithdrawalEvents(t *testing.T) {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	destination := common.HexToAddress("0x3333333333333333333333333333333333333333")
	requesterTopic := common.BigToHash(big.NewInt(7))
	withdrawalID := common.HexToHash("0x77")

	rawLogs := []types.Log{
		packedLog(t, "ClientRequestFulfilled", 12, 0, []common.Hash{testProviderID, testRequestID},
			big.NewInt(0), [32]byte(common.HexToHash("0x01b9"))),
		packedLog(t, "ClientRequestFailed", 12, 1, []common.Hash{testProviderID, testRequestID}),
		packedLog(t, "WithdrawalRequested", 13, 0, []common.Hash{testProviderID, requesterTopic, withdrawalID},
			wallet, destination),
		packedLog(t, "WithdrawalFulfilled", 14, 0, []common.Hash{testProviderID, requesterTopic, withdrawalID},
			wallet, destination, big.NewInt(1000)),
	}

	_, batch, err := Decode(rawLogs, Context{})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(batch.Fulfilled) != 1 || batch.Fulfilled[0].RequestID != testRequestID {
		t.Fatal("fulfillment event not decoded")
	}
	if len(batch.Failed) != 1 {
		t.Fatal("failure event not decoded")
	}
	if len(batch.WithdrawalsRequested) != 1 {
		t.Fatal("withdrawal request event not decoded")
	}
	w := batch.WithdrawalsRequested[0]
	if w.RequesterIndex.Int64() != 7 || w.DesignatedWallet != wallet || w.Destination != destination {
		t.Fatalf("withdrawal request decoded incorrectly: %+v", w)
	}
	if len(batch.WithdrawalsFulfilled) != 1 || batch.WithdrawalsFulfilled[0].Amount.Int64() != 1000 {
		t.Fatal("withdrawal fulfillment event not decoded")
	}
}
