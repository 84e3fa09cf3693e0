package rsa

import (
	"errors"
	"math/big"

	"github.com/samber/oops"
)

var ErrNotInvertible = errors.New("rsa: value has no modular inverse")

// ExtendedGCD returns g = gcd(a, b) together with x and y such that
// a*x + b*y = g.
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldX, x := big.NewInt(1), big.NewInt(0)
	oldY, y := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r)

		tmp.Mul(q, r)
		oldR, r = r, new(big.Int).Sub(oldR, tmp)

		tmp.Mul(q, x)
		oldX, x = x, new(big.Int).Sub(oldX, tmp)

		tmp.Mul(q, y)
		oldY, y = y, new(big.Int).Sub(oldY, tmp)
	}
	if oldR.Sign() < 0 {
		oldR.Neg(oldR)
		oldX.Neg(oldX)
		oldY.Neg(oldY)
	}
	return oldR, oldX, oldY
}

// ModInverse returns the inverse of a modulo m, normalized into [0, m).
func ModInverse(a, m *big.Int) (*big.Int, error) {
	g, x, _ := ExtendedGCD(a, m)
	if g.Cmp(one) != 0 {
		return nil, oops.Wrapf(ErrNotInvertible, "gcd(%s, %s) = %s", a, m, g)
	}
	// Mod is Euclidean, so a negative x lands in [0, m)
	return x.Mod(x, m), nil
}

// ModPow computes base^exponent mod modulus by square-and-multiply, walking
// the exponent from its most significant bit.
func ModPow(base, exponent, modulus *big.Int) *big.Int {
	if modulus.Sign() <= 0 {
		panic("rsa: ModPow with non-positive modulus")
	}
	if exponent.Sign() < 0 {
		panic("rsa: ModPow with negative exponent")
	}
	if modulus.Cmp(one) == 0 {
		return new(big.Int)
	}

	b := new(big.Int).Mod(base, modulus)
	result := big.NewInt(1)
	for i := exponent.BitLen() - 1; i >= 0; i-- {
		result.Mul(result, result).Mod(result, modulus)
		if exponent.Bit(i) == 1 {
			result.Mul(result, b).Mod(result, modulus)
		}
	}
	return result
}
