package relayer

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidAddress is returned when the address is not a 0x-prefixed
// 20-byte hex string.
var ErrInvalidAddress = errors.New("relayer: invalid address")

// saltSize is the number of random bytes in a deployment salt.
const saltSize = 32

// addressKeyPrefix is the 12-byte key prefix the address is appended to in
// the last data key.
var addressKeyPrefix = hexutil.MustDecode("0x4b80742de2bf82acb3630000")

// Data keys and values set on the profile right after deployment. The last
// key and the fifth value are filled in with the user address.
var (
	templateKeys = [...]string{
		"0x0cfc51aec37c55a4d0b1a65c6255c4bf2fbdf6277f3cc0730c45b828b6db8b47",
		"0x4b80742de2bf82acb36300007870c5b8bc9572a8001c3f96f7ff59961b23500d",
		"0xdf30dba06db6a30e65354d9a64c609861f089545ca58c6b4dbe31a5f338cb0e3",
		"0xdf30dba06db6a30e65354d9a64c6098600000000000000000000000000000000",
		"0xdf30dba06db6a30e65354d9a64c6098600000000000000000000000000000001",
	}
	templateValues = [...]string{
		"0x7870c5b8bc9572a8001c3f96f7ff59961b23500d",
		"0x0000000000000000000000000000000000000000000000000000000000060080",
		"0x00000000000000000000000000000002",
		"0x7870c5b8bc9572a8001c3f96f7ff59961b23500d",
	}
	templateLastValue = "0x00000000000000000000000000000000000000000000000000000000007f3f06"
)

var calldataArgs = mustArguments("bytes32[]", "bytes[]")

func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("relayer: abi type %s: %v", t, err))
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// Request is the body of a universal profile creation call.
type Request struct {
	Salt                   string `json:"salt"`
	PostDeploymentCallData string `json:"postDeploymentCallData"`
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %q: got %d bytes", ErrInvalidAddress, s, len(b))
	}
	return common.BytesToAddress(b), nil
}

// BuildCalldata returns abi.encode(bytes32[] keys, bytes[] values) for the
// profile template with address spliced in. The result depends only on the
// address bytes.
func BuildCalldata(address string) ([]byte, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	keys := make([][32]byte, 0, len(templateKeys)+1)
	for _, k := range templateKeys {
		var key [32]byte
		copy(key[:], hexutil.MustDecode(k))
		keys = append(keys, key)
	}
	var addrKey [32]byte
	copy(addrKey[:], addressKeyPrefix)
	copy(addrKey[len(addressKeyPrefix):], addr.Bytes())
	keys = append(keys, addrKey)

	values := make([][]byte, 0, len(templateValues)+2)
	for _, v := range templateValues {
		values = append(values, hexutil.MustDecode(v))
	}
	values = append(values, addr.Bytes(), hexutil.MustDecode(templateLastValue))

	data, err := calldataArgs.Pack(keys, values)
	if err != nil {
		return nil, fmt.Errorf("relayer: encode calldata: %w", err)
	}
	return data, nil
}

// NewSalt reads 32 bytes from r and hex-encodes them with a 0x prefix.
// A nil reader uses crypto/rand.
func NewSalt(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, saltSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("relayer: read salt: %w", err)
	}
	return hexutil.Encode(buf), nil
}

// NewRequest builds a creation request for address using salt bytes from r.
func NewRequest(address string, r io.Reader) (Request, error) {
	data, err := BuildCalldata(address)
	if err != nil {
		return Request{}, err
	}
	salt, err := NewSalt(r)
	if err != nil {
		return Request{}, err
	}
	return Request{Salt: salt, PostDeploymentCallData: hexutil.Encode(data)}, nil
}
