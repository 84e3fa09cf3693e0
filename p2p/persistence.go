package p2p

import (
	"encoding/json"
	"errors"
	"math/big"
	"os"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/record"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

var ErrIdentity = errors.New("p2p: malformed identity file")

// IdentitySnapshot is the on-disk form of a party. Integers are hex.
type IdentitySnapshot struct {
	ID       string `yaml:"id"`
	MAC      string `yaml:"mac"`
	DeviceID string `yaml:"device_id"`
	Method   string `yaml:"method"`
	N        string `yaml:"n"`
	E        string `yaml:"e"`
	D        string `yaml:"d,omitempty"`
	P        string `yaml:"p,omitempty"`
	Q        string `yaml:"q,omitempty"`
}

// PublicSnapshot is what a party publishes: enough to encrypt or attack.
type PublicSnapshot struct {
	ID     string `yaml:"id"`
	Method string `yaml:"method"`
	N      string `yaml:"n"`
	E      string `yaml:"e"`
}

func hexInt(v *big.Int) string {
	return v.Text(16)
}

func parseHexInt(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok || v.Sign() < 0 {
		return nil, oops.Wrapf(ErrIdentity, "field %s is not a hex integer", field)
	}
	return v, nil
}

func (p *Party) SaveIdentity(filename string) error {
	snapshot := IdentitySnapshot{
		ID:       p.ID.String(),
		MAC:      p.MAC,
		DeviceID: p.DeviceID,
		Method:   p.Method().String(),
		N:        hexInt(p.key.N),
		E:        hexInt(p.key.E),
		D:        hexInt(p.key.D),
	}
	if len(p.key.Primes) == 2 {
		snapshot.P = hexInt(p.key.Primes[0])
		snapshot.Q = hexInt(p.key.Primes[1])
	}
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	// private key material
	return os.WriteFile(filename, data, 0600)
}

func (p *Party) SavePublicKey(filename string) error {
	data, err := yaml.Marshal(PublicSnapshot{
		ID:     p.ID.String(),
		Method: p.Method().String(),
		N:      hexInt(p.key.N),
		E:      hexInt(p.key.E),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// LoadIdentity rebuilds a party from a file written by SaveIdentity. The
// stored method wins over cfg.Encoder when the two disagree.
func LoadIdentity(filename string, cfg PartyConfig) (*Party, error) {
	if cfg.Random == nil {
		return nil, oops.Errorf("p2p: party needs a random source")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var snapshot IdentitySnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, oops.Wrapf(ErrIdentity, "%s: %s", filename, err)
	}

	id, err := uuid.Parse(snapshot.ID)
	if err != nil {
		return nil, oops.Wrapf(ErrIdentity, "bad id %q", snapshot.ID)
	}
	key, err := snapshot.privateKey()
	if err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, oops.Wrapf(err, "%s", filename)
	}
	method, err := encode.ParseMethod(snapshot.Method)
	if err != nil {
		return nil, err
	}
	enc := cfg.Encoder
	if enc == nil || enc.Method() != method {
		if enc, err = encode.New(method, cfg.Random); err != nil {
			return nil, err
		}
	}
	return NewPartyFromKey(id, snapshot.MAC, snapshot.DeviceID, key, enc, cfg.Random, cfg.Cipher)
}

func (s IdentitySnapshot) privateKey() (*rsa.PrivateKey, error) {
	fields := []struct {
		name, value string
	}{{"n", s.N}, {"e", s.E}, {"d", s.D}, {"p", s.P}, {"q", s.Q}}
	ints := make([]*big.Int, len(fields))
	for i, f := range fields {
		v, err := parseHexInt(f.name, f.value)
		if err != nil {
			return nil, err
		}
		ints[i] = v
	}
	return &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: ints[0], E: ints[1]},
		D:         ints[2],
		Primes:    []*big.Int{ints[3], ints[4]},
	}, nil
}

// LoadPublicKey reads either a public key file or a full identity file.
func LoadPublicKey(filename string) (uuid.UUID, *rsa.PublicKey, encode.Method, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return uuid.Nil, nil, 0, err
	}
	var snapshot PublicSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return uuid.Nil, nil, 0, oops.Wrapf(ErrIdentity, "%s: %s", filename, err)
	}
	id, err := uuid.Parse(snapshot.ID)
	if err != nil {
		return uuid.Nil, nil, 0, oops.Wrapf(ErrIdentity, "bad id %q", snapshot.ID)
	}
	n, err := parseHexInt("n", snapshot.N)
	if err != nil {
		return uuid.Nil, nil, 0, err
	}
	e, err := parseHexInt("e", snapshot.E)
	if err != nil {
		return uuid.Nil, nil, 0, err
	}
	method, err := encode.ParseMethod(snapshot.Method)
	if err != nil {
		return uuid.Nil, nil, 0, err
	}
	return id, &rsa.PublicKey{N: n, E: e}, method, nil
}

// SaveCapture writes a recorded request as indented JSON.
func SaveCapture(filename string, req record.Request) error {
	data, err := json.MarshalIndent(req, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func LoadCapture(filename string) (record.Request, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var req record.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, oops.Wrapf(err, "capture %s", filename)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
