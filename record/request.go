package record

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

var ErrRequest = errors.New("record: malformed request")

// Envelope carries one encrypted record together with the party identifier
// and the RSA-encrypted session key.
type Envelope struct {
	PartyID      uuid.UUID  `json:"party_id"`
	EncryptedKey []*big.Int `json:"encrypted_key"`
	Record       []byte     `json:"record"`
}

// Request is one envelope per record chunk. Every envelope shares the same
// party and key material.
type Request []Envelope

func NewRequest(partyID uuid.UUID, encryptedKey []*big.Int, records [][]byte) Request {
	req := make(Request, len(records))
	for i, rec := range records {
		req[i] = Envelope{
			PartyID:      partyID,
			EncryptedKey: encryptedKey,
			Record:       rec,
		}
	}
	return req
}

func (r Request) PartyID() uuid.UUID {
	if len(r) == 0 {
		return uuid.Nil
	}
	return r[0].PartyID
}

func (r Request) EncryptedKey() []*big.Int {
	if len(r) == 0 {
		return nil
	}
	return r[0].EncryptedKey
}

func (r Request) Records() [][]byte {
	out := make([][]byte, len(r))
	for i, env := range r {
		out[i] = env.Record
	}
	return out
}

// Validate checks the request is non-empty and consistent across envelopes.
func (r Request) Validate() error {
	if len(r) == 0 {
		return oops.Wrapf(ErrRequest, "no envelopes")
	}
	first := r[0]
	if len(first.EncryptedKey) == 0 {
		return oops.Wrapf(ErrRequest, "no key material")
	}
	for i, block := range first.EncryptedKey {
		if block == nil {
			return oops.Wrapf(ErrRequest, "key block %d is null", i)
		}
	}
	for i, env := range r[1:] {
		if env.PartyID != first.PartyID {
			return oops.Wrapf(ErrRequest, "envelope %d names a different party", i+1)
		}
		if !sameBlocks(env.EncryptedKey, first.EncryptedKey) {
			return oops.Wrapf(ErrRequest, "envelope %d carries different key material", i+1)
		}
	}
	return nil
}

func sameBlocks(a, b []*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil || a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}
