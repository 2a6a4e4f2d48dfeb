package params

import (
	"encoding/hex"

	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/requests"
)

// Apply decodes each API call's encoded parameter blob. Requests whose
// blob cannot be decoded become Errored with
// RequestParameterDecodingFailed; everything else on the request is left
// intact. Requests with an empty blob pass through with empty
// parameters.
func Apply(apiCalls []requests.APICall) ([]logger.Log, []requests.APICall) {
	var logs []logger.Log
	out := make([]requests.APICall, 0, len(apiCalls))

	for _, call := range apiCalls {
		if call.Status != requests.StatusPending {
			out = append(out, call)
			continue
		}

		if len(call.EncodedParameters) == 0 {
			call.Parameters = map[string]string{}
			out = append(out, call)
			continue
		}

		decoded, err := DecodeMap(call.EncodedParameters)
		if err != nil {
			logs = append(logs, logger.Error(
				"Request ID:"+call.ID.Hex()+" submitted with invalid parameters: 0x"+hex.EncodeToString(call.EncodedParameters),
				err,
			))
			call.Status = requests.StatusErrored
			call.ErrorCode = requests.ErrRequestParameterDecodingFailed
			out = append(out, call)
			continue
		}

		call.Parameters = decoded
		out = append(out, call)
	}
	return logs, out
}
