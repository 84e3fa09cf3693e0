// Package encode converts application values to and from sequences of
// integers small enough to be RSA blocks.
package encode

import (
	"errors"
	"io"
	"math/big"
	"strings"

	"github.com/samber/oops"
)

type Method uint8

const (
	MethodNaive Method = iota
	MethodOAEP
)

func (m Method) String() string {
	switch m {
	case MethodNaive:
		return "naive"
	case MethodOAEP:
		return "oaep"
	default:
		return "invalid"
	}
}

// ParseMethod accepts the names produced by Method.String, case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "naive":
		return MethodNaive, nil
	case "oaep":
		return MethodOAEP, nil
	default:
		return 0, oops.Wrapf(ErrUnknownMethod, "%q", s)
	}
}

var (
	ErrUnknownMethod = errors.New("encode: unknown method")
	ErrNegative      = errors.New("encode: negative integers cannot be encoded")
	ErrNotByte       = errors.New("encode: block is not a byte value")
	ErrEmpty         = errors.New("encode: no blocks to decode")
	ErrRedundancy    = errors.New("encode: redundancy bits are not zero")
	ErrBlockWidth    = errors.New("encode: block wider than the encoding allows")
)

// Encoder is implemented by Naive and OAEP. Every block it produces is
// strictly below 2^BlockBits().
type Encoder interface {
	EncodeString(s string) ([]*big.Int, error)
	EncodeInt(v *big.Int) ([]*big.Int, error)
	DecodeString(blocks []*big.Int) (string, error)
	DecodeInt(blocks []*big.Int) (*big.Int, error)
	BlockBits() int
	Method() Method
}

// New returns the default encoder for method. random is only used by OAEP.
func New(method Method, random io.Reader) (Encoder, error) {
	switch method {
	case MethodNaive:
		return NewNaive(), nil
	case MethodOAEP:
		return NewOAEP(random), nil
	default:
		return nil, oops.Wrapf(ErrUnknownMethod, "method %d", method)
	}
}
