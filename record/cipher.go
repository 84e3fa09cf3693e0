package record

import (
	"crypto/aes"
	"crypto/cipher"
	"math/big"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// KeyBits is the width of a session key.
const KeyBits = 128

// Cipher seals and opens whole records. Implementations add no
// authentication beyond the embedded checksum.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// CipherFactory keys a Cipher from a session key.
type CipherFactory func(key *big.Int) (Cipher, error)

// KeyBytes returns the low 128 bits of key as 16 big-endian bytes.
func KeyBytes(key *big.Int) []byte {
	k := new(big.Int).And(key, keyMask)
	out := make([]byte, KeyBits/8)
	return k.FillBytes(out)
}

var keyMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), KeyBits), big.NewInt(1))

// Truncate returns the low 128 bits of v.
func Truncate(v *big.Int) *big.Int {
	return new(big.Int).And(v, keyMask)
}

// AESCipher is AES-128 applied block by block (ECB) to whole records.
// Records are a multiple of the AES block size so no padding is used.
type AESCipher struct {
	block cipher.Block
}

// NewAES is the default CipherFactory.
func NewAES(key *big.Int) (Cipher, error) {
	if key.Sign() < 0 {
		return nil, oops.Errorf("record: negative session key")
	}
	block, err := aes.NewCipher(KeyBytes(key))
	if err != nil {
		return nil, oops.Wrapf(err, "creating AES cipher")
	}
	return &AESCipher{block: block}, nil
}

var _ CipherFactory = NewAES

func (c *AESCipher) Seal(plaintext []byte) ([]byte, error) {
	return c.crypt(plaintext, c.block.Encrypt)
}

func (c *AESCipher) Open(ciphertext []byte) ([]byte, error) {
	return c.crypt(ciphertext, c.block.Decrypt)
}

func (c *AESCipher) crypt(in []byte, fn func(dst, src []byte)) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(in)%bs != 0 {
		logrus.WithField("length", len(in)).Debug("input is not a multiple of the AES block size")
		return nil, oops.Errorf("record: input length %d is not a multiple of %d", len(in), bs)
	}
	out := make([]byte, len(in))
	for i := 0; i < len(in); i += bs {
		fn(out[i:i+bs], in[i:i+bs])
	}
	return out, nil
}
