// Template resolution.
//
// Short and regular requests reference a stored template instead of
// carrying everything inline. Templates are fetched in one batched
// convenience call per run and applied to the requests that reference
// them: missing fulfillment-side fields are filled in and template
// parameters are merged under the client's parameters.

package templates

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/airnode/coordinator/pkg/evm"
	"github.com/airnode/coordinator/pkg/evm/contracts"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/params"
	"github.com/airnode/coordinator/pkg/requests"
)

// Template is a stored request definition
type Template struct {
	ID                common.Hash
	ProviderID        common.Hash
	EndpointID        common.Hash
	RequesterIndex    *big.Int
	DesignatedWallet  common.Address
	FulfillAddress    common.Address
	FulfillFunctionID []byte
	EncodedParameters []byte
}

// Fetch loads every template referenced by a Pending API call in one
// batched convenience call. Returns an empty map when nothing
// references a template.
func Fetch(ctx context.Context, client *evm.Client, convenienceAddr common.Address, apiCalls []requests.APICall) (map[common.Hash]Template, error) {
	var ids [][32]byte
	seen := map[common.Hash]bool{}
	for _, call := range apiCalls {
		if call.Status != requests.StatusPending || call.TemplateID == nil {
			continue
		}
		if !seen[*call.TemplateID] {
			seen[*call.TemplateID] = true
			ids = append(ids, *call.TemplateID)
		}
	}
	if len(ids) == 0 {
		return map[common.Hash]Template{}, nil
	}

	convenience, err := contracts.Convenience()
	if err != nil {
		return nil, err
	}
	callData, err := convenience.Pack("getTemplates", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getTemplates: %w", err)
	}

	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &convenienceAddr, Data: callData})
	if err != nil {
		return nil, fmt.Errorf("getTemplates call failed: %w", err)
	}

	unpacked, err := convenience.Unpack("getTemplates", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getTemplates result: %w", err)
	}
	if len(unpacked) != 7 {
		return nil, fmt.Errorf("getTemplates returned %d values, want 7", len(unpacked))
	}

	providerIDs, ok1 := unpacked[0].([][32]byte)
	endpointIDs, ok2 := unpacked[1].([][32]byte)
	requesterIndices, ok3 := unpacked[2].([]*big.Int)
	designatedWallets, ok4 := unpacked[3].([]common.Address)
	fulfillAddresses, ok5 := unpacked[4].([]common.Address)
	fulfillFunctionIDs, ok6 := unpacked[5].([][4]byte)
	parameters, ok7 := unpacked[6].([][]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return nil, fmt.Errorf("getTemplates result has unexpected shape")
	}
	if len(providerIDs) != len(ids) {
		return nil, fmt.Errorf("getTemplates returned %d templates for %d ids", len(providerIDs), len(ids))
	}

	out := make(map[common.Hash]Template, len(ids))
	for i, id := range ids {
		out[common.Hash(id)] = Template{
			ID:                common.Hash(id),
			ProviderID:        common.BytesToHash(providerIDs[i][:]),
			EndpointID:        common.BytesToHash(endpointIDs[i][:]),
			RequesterIndex:    requesterIndices[i],
			DesignatedWallet:  designatedWallets[i],
			FulfillAddress:    fulfillAddresses[i],
			FulfillFunctionID: fulfillFunctionIDs[i][:],
			EncodedParameters: parameters[i],
		}
	}
	return out, nil
}

// Apply resolves template references on Pending API calls. A template
// with an all-zero endpoint id is treated as absent (the convenience
// call returns zero entries for unknown ids).
func Apply(apiCalls []requests.APICall, templatesByID map[common.Hash]Template) ([]logger.Log, []requests.APICall) {
	var logs []logger.Log
	out := make([]requests.APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if call.Status != requests.StatusPending || call.TemplateID == nil {
			out = append(out, call)
			continue
		}

		template, found := templatesByID[*call.TemplateID]
		if !found || template.EndpointID == (common.Hash{}) {
			logs = append(logs, logger.Errorf("Request ID:%s: no template found for ID:%s", call.ID.Hex(), call.TemplateID.Hex()))
			call.Status = requests.StatusErrored
			call.ErrorCode = requests.ErrTemplateNotFound
			out = append(out, call)
			continue
		}

		templateParams, err := params.DecodeMap(template.EncodedParameters)
		if err != nil {
			logs = append(logs, logger.Error(
				fmt.Sprintf("Request ID:%s: failed to decode parameters of template ID:%s", call.ID.Hex(), template.ID.Hex()),
				err,
			))
			call.Status = requests.StatusErrored
			call.ErrorCode = requests.ErrTemplateParameterDecodingFailed
			out = append(out, call)
			continue
		}

		out = append(out, merge(call, template, templateParams))
	}
	return logs, out
}

// merge fills the request's missing fields from its template. Client
// supplied values always win over template values.
func merge(call requests.APICall, template Template, templateParams map[string]string) requests.APICall {
	endpointID := template.EndpointID
	call.EndpointID = &endpointID

	if call.RequesterIndex == nil {
		call.RequesterIndex = template.RequesterIndex
	}
	if call.DesignatedWallet == nil {
		wallet := template.DesignatedWallet
		call.DesignatedWallet = &wallet
	}
	if call.FulfillAddress == nil {
		addr := template.FulfillAddress
		call.FulfillAddress = &addr
	}
	if len(call.FulfillFunctionID) == 0 {
		call.FulfillFunctionID = template.FulfillFunctionID
	}

	merged := make(map[string]string, len(templateParams)+len(call.Parameters))
	for k, v := range templateParams {
		merged[k] = v
	}
	for k, v := range call.Parameters {
		merged[k] = v
	}
	call.Parameters = merged
	return call
}
