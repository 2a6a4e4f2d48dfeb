package api

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/tidwall/gjson"
)

// ExtractAndEncode turns a raw API response body into the 32-byte value
// submitted on-chain: extract the value at _path, multiply numeric
// values by _times, and ABI-encode per _type.
func ExtractAndEncode(body []byte, reserved Reserved) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("API response is not valid JSON")
	}

	value := gjson.ParseBytes(body)
	if reserved.Path != "" {
		value = gjson.GetBytes(body, reserved.Path)
		if !value.Exists() {
			return nil, fmt.Errorf("response has no value at path %q", reserved.Path)
		}
	}

	switch reserved.Type {
	case TypeInt256:
		return encodeInt256(value, reserved.Times)
	case TypeBool:
		return encodeBool(value)
	case TypeBytes32:
		return encodeBytes32(value)
	default:
		return nil, fmt.Errorf("unsupported _type %q", reserved.Type)
	}
}

func encodeInt256(value gjson.Result, times string) ([]byte, error) {
	raw := strings.TrimSpace(value.String())
	f, ok := new(big.Float).SetPrec(256).SetString(raw)
	if !ok {
		return nil, fmt.Errorf("value %q is not numeric", raw)
	}

	if times != "" {
		multiplier, err := strconv.ParseInt(times, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid _times %q: %w", times, err)
		}
		f.Mul(f, new(big.Float).SetInt64(multiplier))
	}

	// Truncate toward zero after multiplication
	n, _ := f.Int(nil)
	return packSingle("int256", n)
}

func encodeBool(value gjson.Result) ([]byte, error) {
	return packSingle("bool", value.Bool())
}

func encodeBytes32(value gjson.Result) ([]byte, error) {
	s := value.String()
	if len(s) > 32 {
		s = s[:32]
	}
	var b [32]byte
	copy(b[:], s)
	return packSingle("bytes32", b)
}

func packSingle(typeTag string, v interface{}) ([]byte, error) {
	t, err := abi.NewType(typeTag, "", nil)
	if err != nil {
		return nil, fmt.Errorf("unsupported type %q", typeTag)
	}
	packed, err := abi.Arguments{{Type: t}}.Pack(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s value: %w", typeTag, err)
	}
	return packed, nil
}
