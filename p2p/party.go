package p2p

import (
	"fmt"
	"io"
	"math/big"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/record"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

const defaultKeyBits = 1024

type PartyConfig struct {
	KeyBits int
	// Rounds is the Miller-Rabin round count; zero means rsa.DefaultRounds.
	Rounds int
	Method encode.Method
	// Encoder overrides the default encoder for Method.
	Encoder encode.Encoder
	Random  io.Reader
	Cipher  record.CipherFactory
}

// Party owns an RSA key pair and sends requests whose session key is
// transported under that key.
type Party struct {
	ID       uuid.UUID
	MAC      string
	DeviceID string

	key       *rsa.PrivateKey
	encoder   encode.Encoder
	random    io.Reader
	newCipher record.CipherFactory
}

func NewParty(cfg PartyConfig) (*Party, error) {
	if cfg.Random == nil {
		return nil, oops.Errorf("p2p: party needs a random source")
	}
	if cfg.KeyBits == 0 {
		cfg.KeyBits = defaultKeyBits
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = rsa.DefaultRounds
	}

	id, err := uuid.NewRandomFromReader(cfg.Random)
	if err != nil {
		return nil, oops.Wrapf(err, "generating party id")
	}
	mac, err := randomField(cfg.Random)
	if err != nil {
		return nil, err
	}
	dev, err := randomField(cfg.Random)
	if err != nil {
		return nil, err
	}
	key, err := rsa.GenerateKeyRounds(cfg.Random, cfg.KeyBits, cfg.Rounds)
	if err != nil {
		return nil, err
	}
	enc := cfg.Encoder
	if enc == nil {
		if enc, err = encode.New(cfg.Method, cfg.Random); err != nil {
			return nil, err
		}
	}
	return NewPartyFromKey(id, mac, dev, key, enc, cfg.Random, cfg.Cipher)
}

// NewPartyFromKey assembles a party from existing material, e.g. a loaded
// identity file.
func NewPartyFromKey(id uuid.UUID, mac, deviceID string, key *rsa.PrivateKey, enc encode.Encoder, random io.Reader, newCipher record.CipherFactory) (*Party, error) {
	if enc.BlockBits() >= key.N.BitLen() {
		return nil, oops.Wrapf(rsa.ErrKeyTooSmall, "%s blocks need %d bits, modulus has %d", enc.Method(), enc.BlockBits(), key.N.BitLen())
	}
	if newCipher == nil {
		newCipher = record.NewAES
	}
	p := &Party{
		ID:        id,
		MAC:       mac,
		DeviceID:  deviceID,
		key:       key,
		encoder:   enc,
		random:    random,
		newCipher: newCipher,
	}
	logrus.WithFields(logrus.Fields{
		"party":        id,
		"method":       enc.Method(),
		"modulus_bits": key.N.BitLen(),
	}).Debug("party ready")
	return p, nil
}

// randomField returns a 7 digit decimal string.
func randomField(random io.Reader) (string, error) {
	v, err := rsa.RandomBits(random, 32)
	if err != nil {
		return "", err
	}
	v.Mod(v, big.NewInt(9000000))
	return fmt.Sprintf("%07d", 1000000+v.Int64()), nil
}

func (p *Party) PublicKey() *rsa.PublicKey {
	return p.key.Public()
}

func (p *Party) Method() encode.Method {
	return p.encoder.Method()
}

// SendRequest encrypts content under a fresh 128-bit session key.
func (p *Party) SendRequest(content string) (record.Request, error) {
	key, err := rsa.RandomBits(p.random, record.KeyBits)
	if err != nil {
		return nil, oops.Wrapf(err, "drawing session key")
	}
	return p.SendRequestWithKey(content, key)
}

// SendRequestWithKey is SendRequest with a caller-chosen session key.
func (p *Party) SendRequestWithKey(content string, key *big.Int) (record.Request, error) {
	if key.Sign() < 0 || key.BitLen() > record.KeyBits {
		return nil, oops.Errorf("p2p: session key must fit in %d bits", record.KeyBits)
	}
	blocks, err := p.encoder.EncodeInt(key)
	if err != nil {
		return nil, oops.Wrapf(err, "encoding session key")
	}
	encKey, err := p.key.Encrypt(blocks)
	if err != nil {
		return nil, oops.Wrapf(err, "encrypting session key")
	}

	recs, err := record.Build(content, p.MAC, p.DeviceID)
	if err != nil {
		return nil, err
	}
	ciph, err := p.newCipher(key)
	if err != nil {
		return nil, err
	}
	sealed := make([][]byte, len(recs))
	for i, rec := range recs {
		if sealed[i], err = ciph.Seal(rec); err != nil {
			return nil, oops.Wrapf(err, "sealing record %d", i)
		}
	}

	logrus.WithFields(logrus.Fields{
		"party":   p.ID,
		"records": len(sealed),
		"blocks":  len(encKey),
	}).Debug("request built")
	return record.NewRequest(p.ID, encKey, sealed), nil
}
