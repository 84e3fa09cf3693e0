package rsa

import (
	"errors"
	"io"
	"math/big"

	"github.com/samber/oops"
)

// DefaultRounds is the number of Miller-Rabin rounds used by SamplePrime.
// A composite survives k rounds with probability at most 4^-k.
const DefaultRounds = 128

var ErrInvalidBits = errors.New("rsa: bit length must be at least 2")

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

var smallPrimes = []int64{3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97}

// SamplePrime returns a probable prime of exactly bits bits, drawing all
// randomness from random.
func SamplePrime(random io.Reader, bits int) (*big.Int, error) {
	return SamplePrimeRounds(random, bits, DefaultRounds)
}

func SamplePrimeRounds(random io.Reader, bits, rounds int) (*big.Int, error) {
	if bits < 2 {
		return nil, oops.Wrapf(ErrInvalidBits, "requested %d bits", bits)
	}
	for {
		candidate, err := primeCandidate(random, bits)
		if err != nil {
			return nil, err
		}
		ok, err := IsProbablePrime(random, candidate, rounds)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
	}
}

// primeCandidate draws a random odd number with its top bit set.
func primeCandidate(random io.Reader, bits int) (*big.Int, error) {
	p, err := randomBits(random, bits)
	if err != nil {
		return nil, err
	}
	p.SetBit(p, bits-1, 1)
	p.SetBit(p, 0, 1)
	return p, nil
}

// IsProbablePrime runs the Miller-Rabin test with rounds random witnesses.
func IsProbablePrime(random io.Reader, n *big.Int, rounds int) (bool, error) {
	if n.Cmp(two) == 0 || n.Cmp(three) == 0 {
		return true, nil
	}
	if n.Cmp(one) <= 0 || n.Bit(0) == 0 {
		return false, nil
	}
	for _, sp := range smallPrimes {
		p := big.NewInt(sp)
		if n.Cmp(p) == 0 {
			return true, nil
		}
		if new(big.Int).Mod(n, p).Sign() == 0 {
			return false, nil
		}
	}

	// n - 1 = r * 2^s with r odd
	nm1 := new(big.Int).Sub(n, one)
	s := nm1.TrailingZeroBits()
	r := new(big.Int).Rsh(nm1, s)

	// witnesses are drawn from [2, n-2]
	span := new(big.Int).Sub(n, three)
	for i := 0; i < rounds; i++ {
		a, err := randomBelow(random, span)
		if err != nil {
			return false, err
		}
		a.Add(a, two)

		x := ModPow(a, r, n)
		if x.Cmp(one) == 0 || x.Cmp(nm1) == 0 {
			continue
		}
		composite := true
		for j := uint(1); j < s; j++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(one) == 0 {
				return false, nil
			}
			if x.Cmp(nm1) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false, nil
		}
	}
	return true, nil
}

// randomBits returns a uniform value in [0, 2^bits).
func randomBits(random io.Reader, bits int) (*big.Int, error) {
	if bits <= 0 {
		return new(big.Int), nil
	}
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(random, buf); err != nil {
		return nil, oops.Wrapf(err, "reading %d random bytes", len(buf))
	}
	// clear the excess high bits of the first byte
	if excess := uint(len(buf)*8 - bits); excess > 0 {
		buf[0] &= byte(0xff >> excess)
	}
	return new(big.Int).SetBytes(buf), nil
}

// randomBelow returns a uniform value in [0, max) by rejection sampling.
func randomBelow(random io.Reader, max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, oops.Errorf("rsa: random bound must be positive, got %s", max)
	}
	bits := max.BitLen()
	for {
		v, err := randomBits(random, bits)
		if err != nil {
			return nil, err
		}
		if v.Cmp(max) < 0 {
			return v, nil
		}
	}
}

// RandomBits exposes uniform sampling for callers that draw session keys and
// nonces from the same source as the key material.
func RandomBits(random io.Reader, bits int) (*big.Int, error) {
	return randomBits(random, bits)
}
