package authorization

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/requests"
)

var (
	servedEndpointID = common.HexToHash("0x13dea3311fe0d6b84f4daeab831befbc49e19e6494c41e9e065a09c3c68f43b6")
	testClient       = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
)

func authConfig() *config.Config {
	return &config.Config{
		Triggers: config.Triggers{Requests: []config.RequestTrigger{{
			EndpointID:   servedEndpointID.Hex(),
			OISTitle:     "currency-converter",
			EndpointName: "convertToUSD",
		}}},
		OIS: []config.OIS{{
			Title: "currency-converter",
			Endpoints: []config.Endpoint{{
				Name: "convertToUSD",
				ReservedParameters: []config.ReservedParameter{
					{Name: "_type", Fixed: "int256"},
					{Name: "_path", Default: "result"},
				},
				Parameters: []config.EndpointParameter{{
					Name:     "from",
					Required: true,
					OperationParameter: config.OperationParameter{In: "query", Name: "from"},
				}},
			}},
		}},
	}
}

func servedCall() requests.APICall {
	endpointID := servedEndpointID
	return requests.APICall{
		ID:             common.HexToHash("0x01"),
		Status:         requests.StatusPending,
		EndpointID:     &endpointID,
		RequesterIndex: big.NewInt(5),
		ClientAddress:  testClient,
		Parameters:     map[string]string{"from": "ETH"},
	}
}

func endorsing() Endorsements {
	return Endorsements{"5": {testClient.Hex(): true}}
}

func TestApply_PendingStaysPending(t *testing.T) {
	logs, updated := Apply(authConfig(), []requests.APICall{servedCall()}, endorsing())
	if len(logs) != 0 {
		t.Fatalf("got %d logs, want 0", len(logs))
	}
	if updated[0].Status != requests.StatusPending {
		t.Fatalf("got status %s, want Pending", updated[0].Status)
	}
}

func TestApply_UnknownEndpointIsIgnored(t *testing.T) {
	call := servedCall()
	unserved := common.HexToHash("0xffff")
	call.EndpointID = &unserved

	_, updated := Apply(authConfig(), []requests.APICall{call}, endorsing())
	if updated[0].Status != requests.StatusIgnored {
		t.Fatalf("got status %s, want Ignored", updated[0].Status)
	}
}

func TestApply_MissingEndpointID(t *testing.T) {
	call := servedCall()
	call.EndpointID = nil

	_, updated := Apply(authConfig(), []requests.APICall{call}, endorsing())
	if updated[0].Status != requests.StatusIgnored {
		t.Fatalf("got status %s, want Ignored", updated[0].Status)
	}
}

func TestApply_UnknownOIS(t *testing.T) {
	cfg := authConfig()
	cfg.OIS = nil

	_, updated := Apply(cfg, []requests.APICall{servedCall()}, endorsing())
	if updated[0].Status != requests.StatusErrored || updated[0].ErrorCode != requests.ErrUnknownOIS {
		t.Fatalf("got %s/%s, want Errored/UnknownOIS", updated[0].Status, updated[0].ErrorCode)
	}
}

func TestApply_UnknownEndpointName(t *testing.T) {
	cfg := authConfig()
	cfg.OIS[0].Endpoints[0].Name = "somethingElse"

	_, updated := Apply(cfg, []requests.APICall{servedCall()}, endorsing())
	if updated[0].Status != requests.StatusErrored || updated[0].ErrorCode != requests.ErrUnknownEndpointID {
		t.Fatalf("got %s/%s, want Errored/UnknownEndpointId", updated[0].Status, updated[0].ErrorCode)
	}
}

func TestApply_InvalidReservedParameters(t *testing.T) {
	call := servedCall()
	call.Parameters = map[string]string{"from": "ETH", "_times": "not-a-number"}

	_, updated := Apply(authConfig(), []requests.APICall{call}, endorsing())
	if updated[0].Status != requests.StatusErrored || updated[0].ErrorCode != requests.ErrReservedParametersInvalid {
		t.Fatalf("got %s/%s, want Errored/ReservedParametersInvalid", updated[0].Status, updated[0].ErrorCode)
	}
}

func TestApply_MissingRequiredParameter(t *testing.T) {
	call := servedCall()
	call.Parameters = map[string]string{}

	_, updated := Apply(authConfig(), []requests.APICall{call}, endorsing())
	if updated[0].Status != requests.StatusErrored || updated[0].ErrorCode != requests.ErrInsufficientParameters {
		t.Fatalf("got %s/%s, want Errored/InsufficientParameters", updated[0].Status, updated[0].ErrorCode)
	}
}

func TestApply_UnendorsedClient(t *testing.T) {
	_, updated := Apply(authConfig(), []requests.APICall{servedCall()}, Endorsements{})
	if updated[0].Status != requests.StatusErrored || updated[0].ErrorCode != requests.ErrUnauthorizedClient {
		t.Fatalf("got %s/%s, want Errored/UnauthorizedClient", updated[0].Status, updated[0].ErrorCode)
	}
}

func TestApply_SkipsNonPending(t *testing.T) {
	call := servedCall()
	call.Status = requests.StatusFulfilled
	unserved := common.HexToHash("0xffff")
	call.EndpointID = &unserved

	_, updated := Apply(authConfig(), []requests.APICall{call}, endorsing())
	if updated[0].Status != requests.StatusFulfilled {
		t.Fatalf("got status %s, want Fulfilled untouched", updated[0].Status)
	}
}

func TestApply_IsPure(t *testing.T) {
	cfg := authConfig()
	calls := []requests.APICall{servedCall()}
	e := endorsing()

	_, first := Apply(cfg, calls, e)
	_, second := Apply(cfg, calls, e)

	if first[0].Status != second[0].Status || first[0].ErrorCode != second[0].ErrorCode {
		t.Fatal("authorizer is not deterministic")
	}
	if calls[0].Status != requests.StatusPending {
		t.Fatal("authorizer mutated its input")
	}
}
