package api

import (
	"testing"

	"github.com/airnode/coordinator/pkg/config"
)

func authEndpoint() *config.Endpoint {
	return &config.Endpoint{
		Name: "convertToUSD",
		Operation: config.Operation{
			Path:   "/convert/{from}",
			Method: "get",
		},
		FixedOperationParameters: []config.FixedOperationParameter{{
			OperationParameter: config.OperationParameter{In: "query", Name: "to"},
			Value:              "USD",
		}},
		ReservedParameters: []config.ReservedParameter{
			{Name: "_type", Fixed: "int256"},
			{Name: "_path", Default: "result"},
		},
		Parameters: []config.EndpointParameter{
			{
				Name:               "from",
				Required:           true,
				OperationParameter: config.OperationParameter{In: "path", Name: "from"},
			},
			{
				Name:               "amount",
				Default:            "1",
				OperationParameter: config.OperationParameter{In: "query", Name: "amount"},
			},
			{
				Name:               "apiVersion",
				OperationParameter: config.OperationParameter{In: "header", Name: "X-Api-Version"},
			},
		},
	}
}

func testOIS() *config.OIS {
	return &config.OIS{
		Title:             "currency-converter",
		APISpecifications: config.APISpecifications{Servers: []config.Server{{URL: "https://api.example.com/v1/"}}},
		Endpoints:         []config.Endpoint{*authEndpoint()},
	}
}

func TestBuildRequest_MapsParameters(t *testing.T) {
	ois := testOIS()
	req, err := buildRequest(ois, &ois.Endpoints[0], map[string]string{
		"from":       "ETH",
		"apiVersion": "2",
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	if req.Method != "GET" {
		t.Fatalf("got method %s, want GET", req.Method)
	}
	if req.URL.Path != "/v1/convert/ETH" {
		t.Fatalf("got path %s, want /v1/convert/ETH", req.URL.Path)
	}
	query := req.URL.Query()
	if query.Get("to") != "USD" {
		t.Fatal("fixed operation parameter missing")
	}
	if query.Get("amount") != "1" {
		t.Fatal("parameter default not applied")
	}
	if req.Header.Get("X-Api-Version") != "2" {
		t.Fatal("header parameter missing")
	}
}

func TestBuildRequest_FixedParameterWins(t *testing.T) {
	ois := testOIS()
	req, err := buildRequest(ois, &ois.Endpoints[0], map[string]string{
		"from": "ETH",
		"to":   "GBP", // no endpoint parameter named "to", so this is dropped
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if got := req.URL.Query().Get("to"); got != "USD" {
		t.Fatalf("got to=%q, want the fixed USD", got)
	}
}
