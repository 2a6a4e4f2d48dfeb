package api

import (
	"fmt"
	"strconv"

	"github.com/airnode/coordinator/pkg/config"
)

// Reserved holds the resolved response-processing parameters of one
// request: how to encode (_type), where to read the value (_path) and
// an optional multiplier (_times).
type Reserved struct {
	Type  string
	Path  string
	Times string
}

// Encodable _type values
const (
	TypeInt256  = "int256"
	TypeBool    = "bool"
	TypeBytes32 = "bytes32"
)

// ResolveReserved extracts _type, _path and _times from merged request
// parameters against the endpoint's reserved parameter declarations. A
// fixed value declared on the endpoint always overrides the requester's
// value; a default fills in when the requester is silent. Malformed
// values are an error.
func ResolveReserved(endpoint *config.Endpoint, parameters map[string]string) (Reserved, error) {
	resolve := func(name string) string {
		declared, ok := endpoint.FindReservedParameter(name)
		if ok && declared.Fixed != "" {
			return declared.Fixed
		}
		if v, ok := parameters[name]; ok {
			return v
		}
		if ok {
			return declared.Default
		}
		return ""
	}

	reserved := Reserved{
		Type:  resolve(config.ReservedType),
		Path:  resolve(config.ReservedPath),
		Times: resolve(config.ReservedTimes),
	}

	switch reserved.Type {
	case TypeInt256, TypeBool, TypeBytes32:
	case "":
		return Reserved{}, fmt.Errorf("reserved parameter _type is missing")
	default:
		return Reserved{}, fmt.Errorf("reserved parameter _type %q is not supported", reserved.Type)
	}

	if reserved.Times != "" {
		n, err := strconv.ParseInt(reserved.Times, 10, 64)
		if err != nil || n <= 0 {
			return Reserved{}, fmt.Errorf("reserved parameter _times %q is not a positive integer", reserved.Times)
		}
	}

	return reserved, nil
}
