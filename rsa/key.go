package rsa

import (
	"errors"
	"io"
	"math/big"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

const (
	// MinBits is the smallest modulus GenerateKey accepts.
	MinBits = 512
	// MinTestBits is the floor for GenerateTestKey. Keys this small factor
	// instantly and exist only to exercise edge cases.
	MinTestBits = 16

	defaultExponent  = 65537
	fallbackExponent = 11
)

var (
	ErrKeyTooSmall     = errors.New("rsa: key size too small")
	ErrNoExponent      = errors.New("rsa: no usable public exponent for these primes")
	ErrBlockOutOfRange = errors.New("rsa: block must be in [0, n)")
	ErrInvalidKey      = errors.New("rsa: invalid key")
)

type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PrivateKey holds the modulus and private exponent. Primes keeps p and q so
// the key can be validated and persisted.
type PrivateKey struct {
	PublicKey
	D      *big.Int
	Primes []*big.Int
}

// GenerateKey builds a key pair whose modulus is the product of a bits/2 and
// a bits-bits/2 bit prime.
func GenerateKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < MinBits {
		return nil, oops.Wrapf(ErrKeyTooSmall, "requested %d bits, need at least %d", bits, MinBits)
	}
	return generateKey(random, bits, DefaultRounds)
}

// GenerateKeyRounds is GenerateKey with a configurable Miller-Rabin round count.
func GenerateKeyRounds(random io.Reader, bits, rounds int) (*PrivateKey, error) {
	if bits < MinBits {
		return nil, oops.Wrapf(ErrKeyTooSmall, "requested %d bits, need at least %d", bits, MinBits)
	}
	return generateKey(random, bits, rounds)
}

func GenerateTestKey(random io.Reader, bits int) (*PrivateKey, error) {
	if bits < MinTestBits {
		return nil, oops.Wrapf(ErrKeyTooSmall, "requested %d bits, need at least %d", bits, MinTestBits)
	}
	return generateKey(random, bits, DefaultRounds)
}

func generateKey(random io.Reader, bits, rounds int) (*PrivateKey, error) {
	attempts := 0
	for {
		attempts++
		p, err := SamplePrimeRounds(random, bits/2, rounds)
		if err != nil {
			return nil, err
		}
		q, err := SamplePrimeRounds(random, bits-bits/2, rounds)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		key, err := NewKeyFromPrimes(p, q)
		if errors.Is(err, ErrNoExponent) {
			// tiny moduli can have phi divisible by both 65537 and 11
			logrus.WithFields(logrus.Fields{
				"bits":    bits,
				"attempt": attempts,
			}).Debug("resampling primes, no usable exponent")
			continue
		}
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"bits":     key.N.BitLen(),
			"exponent": key.E,
			"attempts": attempts,
		}).Debug("generated RSA key pair")
		return key, nil
	}
}

// NewKeyFromPrimes derives the key pair for n = p*q. The public exponent is
// 65537 when it is below and coprime to phi(n), otherwise 11 under the same
// conditions.
func NewKeyFromPrimes(p, q *big.Int) (*PrivateKey, error) {
	pm1 := new(big.Int).Sub(p, one)
	qm1 := new(big.Int).Sub(q, one)
	phi := new(big.Int).Mul(pm1, qm1)

	var (
		e, d *big.Int
		err  error
	)
	for _, candidate := range []int64{defaultExponent, fallbackExponent} {
		e = big.NewInt(candidate)
		if e.Cmp(phi) >= 0 {
			continue
		}
		d, err = ModInverse(e, phi)
		if err == nil {
			break
		}
	}
	if d == nil {
		return nil, oops.Wrapf(ErrNoExponent, "phi = %s", phi)
	}

	return &PrivateKey{
		PublicKey: PublicKey{
			N: new(big.Int).Mul(p, q),
			E: e,
		},
		D:      d,
		Primes: []*big.Int{new(big.Int).Set(p), new(big.Int).Set(q)},
	}, nil
}

// Size returns the modulus length in bytes.
func (pub *PublicKey) Size() int {
	return (pub.N.BitLen() + 7) / 8
}

func (pub *PublicKey) checkBlock(v *big.Int) error {
	if v == nil {
		return oops.Wrapf(ErrBlockOutOfRange, "missing block")
	}
	if v.Sign() < 0 || v.Cmp(pub.N) >= 0 {
		return oops.Wrapf(ErrBlockOutOfRange, "block has %d bits, modulus has %d", v.BitLen(), pub.N.BitLen())
	}
	return nil
}

// EncryptBlock returns m^e mod n. There is no padding and no randomization.
func (pub *PublicKey) EncryptBlock(m *big.Int) (*big.Int, error) {
	if err := pub.checkBlock(m); err != nil {
		return nil, err
	}
	return ModPow(m, pub.E, pub.N), nil
}

// DecryptBlock returns c^d mod n.
func (priv *PrivateKey) DecryptBlock(c *big.Int) (*big.Int, error) {
	if err := priv.checkBlock(c); err != nil {
		return nil, err
	}
	return ModPow(c, priv.D, priv.N), nil
}

func (pub *PublicKey) Encrypt(blocks []*big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(blocks))
	for i, m := range blocks {
		c, err := pub.EncryptBlock(m)
		if err != nil {
			return nil, oops.Wrapf(err, "block %d", i)
		}
		out[i] = c
	}
	return out, nil
}

func (priv *PrivateKey) Decrypt(blocks []*big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(blocks))
	for i, c := range blocks {
		m, err := priv.DecryptBlock(c)
		if err != nil {
			return nil, oops.Wrapf(err, "block %d", i)
		}
		out[i] = m
	}
	return out, nil
}

// Public returns the public half of the key pair.
func (priv *PrivateKey) Public() *PublicKey {
	return &priv.PublicKey
}

// Validate checks n = p*q and e*d = 1 (mod phi(n)).
func (priv *PrivateKey) Validate() error {
	if priv.N == nil || priv.E == nil || priv.D == nil {
		return oops.Wrapf(ErrInvalidKey, "missing key component")
	}
	if len(priv.Primes) != 2 {
		return oops.Wrapf(ErrInvalidKey, "expected 2 primes, have %d", len(priv.Primes))
	}
	p, q := priv.Primes[0], priv.Primes[1]
	if new(big.Int).Mul(p, q).Cmp(priv.N) != 0 {
		return oops.Wrapf(ErrInvalidKey, "modulus is not the product of its primes")
	}
	phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
	ed := new(big.Int).Mul(priv.E, priv.D)
	if ed.Mod(ed, phi).Cmp(one) != 0 {
		return oops.Wrapf(ErrInvalidKey, "e*d is not 1 mod phi")
	}
	if priv.D.Sign() < 0 || priv.D.Cmp(phi) >= 0 {
		return oops.Wrapf(ErrInvalidKey, "private exponent not reduced mod phi")
	}
	return nil
}
