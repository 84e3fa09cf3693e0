package encode

import (
	"io"
	"math/big"

	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/samber/oops"
	"golang.org/x/crypto/sha3"
)

const (
	DefaultK0          = 128
	DefaultK1          = 120
	DefaultMessageBits = 256
)

var (
	maskG = []byte("wupattack oaep G")
	maskH = []byte("wupattack oaep H")
)

// OAEP is a two-round masking encoding. Each naive chunk of at most
// MessageBits bits is followed by K1 zero bits of redundancy and masked with a
// fresh K0-bit randomizer r:
//
//	X = (chunk << K1) ^ G(r)
//	Y = r ^ H(X)
//	block = X << K0 | Y
//
// G and H are cSHAKE256 with distinct customization strings.
type OAEP struct {
	K0          int
	K1          int
	MessageBits int
	Random      io.Reader
}

func NewOAEP(random io.Reader) *OAEP {
	return &OAEP{
		K0:          DefaultK0,
		K1:          DefaultK1,
		MessageBits: DefaultMessageBits,
		Random:      random,
	}
}

func (o *OAEP) Method() Method { return MethodOAEP }

func (o *OAEP) BlockBits() int {
	return o.MessageBits + o.K1 + o.K0
}

func (o *OAEP) naive() *Naive {
	return &Naive{LimbBits: o.MessageBits}
}

func (o *OAEP) EncodeString(s string) ([]*big.Int, error) {
	chunks, err := o.naive().EncodeString(s)
	if err != nil {
		return nil, err
	}
	return o.mask(chunks)
}

func (o *OAEP) EncodeInt(v *big.Int) ([]*big.Int, error) {
	chunks, err := o.naive().EncodeInt(v)
	if err != nil {
		return nil, err
	}
	return o.mask(chunks)
}

func (o *OAEP) DecodeString(blocks []*big.Int) (string, error) {
	chunks, err := o.unmask(blocks)
	if err != nil {
		return "", err
	}
	return o.naive().DecodeString(chunks)
}

func (o *OAEP) DecodeInt(blocks []*big.Int) (*big.Int, error) {
	chunks, err := o.unmask(blocks)
	if err != nil {
		return nil, err
	}
	return o.naive().DecodeInt(chunks)
}

func (o *OAEP) mask(chunks []*big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(chunks))
	for i, chunk := range chunks {
		block, err := o.EncodeBlock(chunk)
		if err != nil {
			return nil, oops.Wrapf(err, "chunk %d", i)
		}
		out[i] = block
	}
	return out, nil
}

func (o *OAEP) unmask(blocks []*big.Int) ([]*big.Int, error) {
	if len(blocks) == 0 {
		return nil, ErrEmpty
	}
	out := make([]*big.Int, len(blocks))
	for i, block := range blocks {
		chunk, err := o.DecodeBlock(block)
		if err != nil {
			return nil, oops.Wrapf(err, "block %d", i)
		}
		out[i] = chunk
	}
	return out, nil
}

// EncodeBlock masks a single chunk.
func (o *OAEP) EncodeBlock(chunk *big.Int) (*big.Int, error) {
	if chunk.Sign() < 0 {
		return nil, oops.Wrapf(ErrNegative, "chunk %s", chunk)
	}
	if chunk.BitLen() > o.MessageBits {
		return nil, oops.Wrapf(ErrBlockWidth, "chunk has %d bits, limit is %d", chunk.BitLen(), o.MessageBits)
	}
	r, err := rsa.RandomBits(o.Random, o.K0)
	if err != nil {
		return nil, oops.Wrapf(err, "drawing oaep randomizer")
	}

	x := new(big.Int).Lsh(chunk, uint(o.K1))
	x.Xor(x, o.g(r))
	y := new(big.Int).Xor(r, o.h(x))

	block := new(big.Int).Lsh(x, uint(o.K0))
	return block.Or(block, y), nil
}

// DecodeBlock reverses EncodeBlock and rejects blocks whose redundancy bits
// are not zero.
func (o *OAEP) DecodeBlock(block *big.Int) (*big.Int, error) {
	if block.Sign() < 0 || block.BitLen() > o.BlockBits() {
		return nil, oops.Wrapf(ErrBlockWidth, "block has %d bits, limit is %d", block.BitLen(), o.BlockBits())
	}
	y := new(big.Int).And(block, lowMask(o.K0))
	x := new(big.Int).Rsh(block, uint(o.K0))

	r := y.Xor(y, o.h(x))
	padded := x.Xor(x, o.g(r))
	if new(big.Int).And(padded, lowMask(o.K1)).Sign() != 0 {
		return nil, ErrRedundancy
	}
	return padded.Rsh(padded, uint(o.K1)), nil
}

func (o *OAEP) g(r *big.Int) *big.Int {
	return expand(maskG, r, o.K0, o.MessageBits+o.K1)
}

func (o *OAEP) h(x *big.Int) *big.Int {
	return expand(maskH, x, o.MessageBits+o.K1, o.K0)
}

// expand hashes the inBits-wide value v and squeezes outBits of output.
func expand(custom []byte, v *big.Int, inBits, outBits int) *big.Int {
	in := make([]byte, (inBits+7)/8)
	v.FillBytes(in)

	xof := sha3.NewCShake256(nil, custom)
	xof.Write(in)
	out := make([]byte, (outBits+7)/8)
	xof.Read(out)
	if excess := uint(len(out)*8 - outBits); excess > 0 {
		out[0] &= byte(0xff >> excess)
	}
	return new(big.Int).SetBytes(out)
}

func lowMask(bits int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return m.Sub(m, big.NewInt(1))
}
