// Tagged parameter codec.
//
// Request parameters travel on-chain as an ABI-encoded triple of
// parallel arrays: (bytes32[] names, bytes32[] types, bytes[] values),
// one (name, type, value) tuple per parameter. Each value is itself the
// ABI encoding of a single value of the tagged type.

package params

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Parameter is one decoded tagged parameter
type Parameter struct {
	Name  string
	Type  string
	Value string
}

// Supported tagged types
const (
	TypeBytes32 = "bytes32"
	TypeAddress = "address"
	TypeUint256 = "uint256"
	TypeInt256  = "int256"
	TypeBytes   = "bytes"
	TypeString  = "string"
)

var blobArguments = func() abi.Arguments {
	bytes32Arr, _ := abi.NewType("bytes32[]", "", nil)
	bytesArr, _ := abi.NewType("bytes[]", "", nil)
	return abi.Arguments{
		{Name: "names", Type: bytes32Arr},
		{Name: "types", Type: bytes32Arr},
		{Name: "values", Type: bytesArr},
	}
}()

// Encode packs parameters into a tagged blob. The inverse of Decode.
func Encode(parameters []Parameter) ([]byte, error) {
	names := make([][32]byte, 0, len(parameters))
	typeTags := make([][32]byte, 0, len(parameters))
	values := make([][]byte, 0, len(parameters))

	for _, p := range parameters {
		name, err := toBytes32Tag(p.Name)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		tag, err := toBytes32Tag(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q type: %w", p.Name, err)
		}
		value, err := encodeValue(p.Type, p.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		names = append(names, name)
		typeTags = append(typeTags, tag)
		values = append(values, value)
	}

	return blobArguments.Pack(names, typeTags, values)
}

// Decode unpacks a tagged blob into its parameters
func Decode(encoded []byte) ([]Parameter, error) {
	unpacked, err := blobArguments.Unpack(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack parameter blob: %w", err)
	}
	if len(unpacked) != 3 {
		return nil, fmt.Errorf("parameter blob unpacked into %d values, want 3", len(unpacked))
	}

	names, ok1 := unpacked[0].([][32]byte)
	typeTags, ok2 := unpacked[1].([][32]byte)
	values, ok3 := unpacked[2].([][]byte)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("parameter blob has unexpected shape")
	}
	if len(names) != len(typeTags) || len(names) != len(values) {
		return nil, fmt.Errorf("parameter blob arrays disagree: %d names, %d types, %d values", len(names), len(typeTags), len(values))
	}

	parameters := make([]Parameter, 0, len(names))
	for i := range names {
		typeTag := fromBytes32Tag(typeTags[i])
		value, err := decodeValue(typeTag, values[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", fromBytes32Tag(names[i]), err)
		}
		parameters = append(parameters, Parameter{
			Name:  fromBytes32Tag(names[i]),
			Type:  typeTag,
			Value: value,
		})
	}
	return parameters, nil
}

// DecodeMap decodes a blob into a name→value mapping. Later duplicates
// of a name override earlier ones.
func DecodeMap(encoded []byte) (map[string]string, error) {
	parameters, err := Decode(encoded)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(parameters))
	for _, p := range parameters {
		out[p.Name] = p.Value
	}
	return out, nil
}

func toBytes32Tag(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > 32 {
		return out, fmt.Errorf("tag %q longer than 32 bytes", s)
	}
	copy(out[:], s)
	return out, nil
}

func fromBytes32Tag(b [32]byte) string {
	return string(trimRightZeros(b[:]))
}

func trimRightZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

func singleArgument(typeTag string) (abi.Arguments, error) {
	t, err := abi.NewType(typeTag, "", nil)
	if err != nil {
		return nil, fmt.Errorf("unsupported parameter type %q", typeTag)
	}
	return abi.Arguments{{Type: t}}, nil
}

func encodeValue(typeTag, value string) ([]byte, error) {
	args, err := singleArgument(typeTag)
	if err != nil {
		return nil, err
	}

	switch typeTag {
	case TypeBytes32:
		b, err := toFixedBytes32(value)
		if err != nil {
			return nil, err
		}
		return args.Pack(b)
	case TypeAddress:
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid address %q", value)
		}
		return args.Pack(common.HexToAddress(value))
	case TypeUint256, TypeInt256:
		n, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid %s value %q", typeTag, value)
		}
		return args.Pack(n)
	case TypeBytes:
		b, err := fromHex(value)
		if err != nil {
			return nil, err
		}
		return args.Pack(b)
	case TypeString:
		return args.Pack(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", typeTag)
	}
}

func decodeValue(typeTag string, encoded []byte) (string, error) {
	args, err := singleArgument(typeTag)
	if err != nil {
		return "", err
	}
	unpacked, err := args.Unpack(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to unpack %s value: %w", typeTag, err)
	}
	if len(unpacked) != 1 {
		return "", fmt.Errorf("%s value unpacked into %d values, want 1", typeTag, len(unpacked))
	}

	switch typeTag {
	case TypeBytes32:
		b, ok := unpacked[0].([32]byte)
		if !ok {
			return "", fmt.Errorf("bytes32 value has unexpected shape")
		}
		return fromFixedBytes32(b), nil
	case TypeAddress:
		a, ok := unpacked[0].(common.Address)
		if !ok {
			return "", fmt.Errorf("address value has unexpected shape")
		}
		return a.Hex(), nil
	case TypeUint256, TypeInt256:
		n, ok := unpacked[0].(*big.Int)
		if !ok {
			return "", fmt.Errorf("%s value has unexpected shape", typeTag)
		}
		return n.String(), nil
	case TypeBytes:
		b, ok := unpacked[0].([]byte)
		if !ok {
			return "", fmt.Errorf("bytes value has unexpected shape")
		}
		return "0x" + hex.EncodeToString(b), nil
	case TypeString:
		s, ok := unpacked[0].(string)
		if !ok {
			return "", fmt.Errorf("string value has unexpected shape")
		}
		return s, nil
	default:
		return "", fmt.Errorf("unsupported parameter type %q", typeTag)
	}
}

// toFixedBytes32 accepts either a 32-byte 0x hex literal or a short
// UTF-8 string padded with zeros.
func toFixedBytes32(value string) ([32]byte, error) {
	var out [32]byte
	if strings.HasPrefix(value, "0x") {
		b, err := fromHex(value)
		if err != nil {
			return out, err
		}
		if len(b) != 32 {
			return out, fmt.Errorf("bytes32 hex literal has %d bytes, want 32", len(b))
		}
		copy(out[:], b)
		return out, nil
	}
	if len(value) > 32 {
		return out, fmt.Errorf("bytes32 string %q longer than 32 bytes", value)
	}
	copy(out[:], value)
	return out, nil
}

func fromFixedBytes32(b [32]byte) string {
	return string(trimRightZeros(b[:]))
}

func fromHex(value string) ([]byte, error) {
	s := strings.TrimPrefix(value, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", value, err)
	}
	return b, nil
}
