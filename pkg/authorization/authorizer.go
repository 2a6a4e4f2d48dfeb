// Request authorization.
//
// Each Pending API call passes through an ordered rule list; the first
// rule that matches decides the request. Everything here is pure: the
// endorsement table is fetched by the provider stage beforehand.

package authorization

import (
	"fmt"

	"github.com/airnode/coordinator/pkg/api"
	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/requests"
)

// Endorsements records, per requester index (decimal string), which
// client addresses (hex) the requester endorses.
type Endorsements map[string]map[string]bool

// Endorsed reports whether requesterIndex endorses clientAddress
func (e Endorsements) Endorsed(requesterIndex, clientAddress string) bool {
	clients, ok := e[requesterIndex]
	if !ok {
		return false
	}
	return clients[clientAddress]
}

// Apply classifies each Pending API call. Requests the node does not
// serve become Ignored; requests that fail a rule become Errored with
// the rule's error code; everything else stays Pending.
func Apply(cfg *config.Config, apiCalls []requests.APICall, endorsements Endorsements) ([]logger.Log, []requests.APICall) {
	var logs []logger.Log
	out := make([]requests.APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if call.Status != requests.StatusPending {
			out = append(out, call)
			continue
		}
		callLogs, classified := classify(cfg, call, endorsements)
		logs = append(logs, callLogs...)
		out = append(out, classified)
	}
	return logs, out
}

func classify(cfg *config.Config, call requests.APICall, endorsements Endorsements) ([]logger.Log, requests.APICall) {
	// Rule 1: the endpoint must be one the node agreed to serve
	if call.EndpointID == nil {
		return []logger.Log{logger.Debug("Request ID:%s has no endpoint ID, ignoring", call.ID.Hex())},
			ignored(call)
	}
	trigger, found := cfg.FindTrigger(call.EndpointID.Hex())
	if !found {
		return []logger.Log{logger.Debug("Request ID:%s has no matching trigger for endpoint ID:%s, ignoring", call.ID.Hex(), call.EndpointID.Hex())},
			ignored(call)
	}

	// Rule 2: the trigger must resolve to a configured OIS endpoint
	ois, endpoint, err := cfg.FindEndpoint(trigger.OISTitle, trigger.EndpointName)
	if err != nil || ois == nil {
		if endpointMissing(cfg, trigger.OISTitle) {
			return []logger.Log{logger.Error(fmt.Sprintf("Request ID:%s: unknown endpoint %q in OIS %q", call.ID.Hex(), trigger.EndpointName, trigger.OISTitle), err)},
				errored(call, requests.ErrUnknownEndpointID)
		}
		return []logger.Log{logger.Error(fmt.Sprintf("Request ID:%s: unknown OIS %q", call.ID.Hex(), trigger.OISTitle), err)},
			errored(call, requests.ErrUnknownOIS)
	}

	// Rule 3: reserved parameters must be well formed, and required
	// endpoint parameters present
	if _, err := api.ResolveReserved(endpoint, call.Parameters); err != nil {
		return []logger.Log{logger.Error(fmt.Sprintf("Request ID:%s has invalid reserved parameters", call.ID.Hex()), err)},
			errored(call, requests.ErrReservedParametersInvalid)
	}
	for _, p := range endpoint.Parameters {
		if !p.Required {
			continue
		}
		if _, present := call.Parameters[p.Name]; !present && p.Default == "" {
			return []logger.Log{logger.Errorf("Request ID:%s is missing required parameter %q", call.ID.Hex(), p.Name)},
				errored(call, requests.ErrInsufficientParameters)
		}
	}

	// Rule 4: the client must be endorsed by the requester
	if call.RequesterIndex != nil {
		if !endorsements.Endorsed(call.RequesterIndex.String(), call.ClientAddress.Hex()) {
			return []logger.Log{logger.Errorf("Request ID:%s: client %s is not endorsed by requester %s", call.ID.Hex(), call.ClientAddress.Hex(), call.RequesterIndex.String())},
				errored(call, requests.ErrUnauthorizedClient)
		}
	}

	return nil, call
}

// endpointMissing distinguishes a missing endpoint within a known OIS
// from a missing OIS altogether.
func endpointMissing(cfg *config.Config, oisTitle string) bool {
	for i := range cfg.OIS {
		if cfg.OIS[i].Title == oisTitle {
			return true
		}
	}
	return false
}

func ignored(call requests.APICall) requests.APICall {
	call.Status = requests.StatusIgnored
	return call
}

func errored(call requests.APICall, code requests.ErrorCode) requests.APICall {
	call.Status = requests.StatusErrored
	call.ErrorCode = code
	return call
}
