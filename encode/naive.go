package encode

import (
	"math/big"

	"github.com/samber/oops"
)

// DefaultLimbBits is the limb width used for integers by NewNaive.
const DefaultLimbBits = 256

// Naive is unpadded encoding: one block per byte of a string, one block per
// base-2^LimbBits limb of an integer. Identical input always yields identical
// blocks and decoding accepts any block. LimbBits below 8 is treated as 8.
type Naive struct {
	LimbBits int
}

func NewNaive() *Naive {
	return &Naive{LimbBits: DefaultLimbBits}
}

func (n *Naive) Method() Method { return MethodNaive }

func (n *Naive) BlockBits() int {
	if n.LimbBits < 8 {
		return 8
	}
	return n.LimbBits
}

func (n *Naive) EncodeString(s string) ([]*big.Int, error) {
	b := []byte(s)
	blocks := make([]*big.Int, len(b))
	for i, c := range b {
		blocks[i] = big.NewInt(int64(c))
	}
	return blocks, nil
}

// EncodeInt splits v into limbs, most significant first. Zero encodes as a
// single zero limb.
func (n *Naive) EncodeInt(v *big.Int) ([]*big.Int, error) {
	if v.Sign() < 0 {
		return nil, oops.Wrapf(ErrNegative, "value %s", v)
	}
	if v.Sign() == 0 {
		return []*big.Int{new(big.Int)}, nil
	}
	width := uint(n.BlockBits())
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))

	var limbs []*big.Int
	rest := new(big.Int).Set(v)
	for rest.Sign() > 0 {
		limbs = append(limbs, new(big.Int).And(rest, mask))
		rest.Rsh(rest, width)
	}
	for i, j := 0, len(limbs)-1; i < j; i, j = i+1, j-1 {
		limbs[i], limbs[j] = limbs[j], limbs[i]
	}
	return limbs, nil
}

func (n *Naive) DecodeString(blocks []*big.Int) (string, error) {
	b := make([]byte, len(blocks))
	for i, block := range blocks {
		if block.Sign() < 0 || block.BitLen() > 8 {
			return "", oops.Wrapf(ErrNotByte, "block %d has %d bits", i, block.BitLen())
		}
		b[i] = byte(block.Uint64())
	}
	return string(b), nil
}

// DecodeInt recombines limbs big-endian. Limbs are not range checked: a block
// wider than LimbBits simply overlaps its neighbour.
func (n *Naive) DecodeInt(blocks []*big.Int) (*big.Int, error) {
	if len(blocks) == 0 {
		return nil, ErrEmpty
	}
	v := new(big.Int)
	for _, block := range blocks {
		v.Lsh(v, uint(n.BlockBits()))
		v.Add(v, block)
	}
	return v, nil
}
