package p2p

import (
	"math/big"
	mrand "math/rand"
	"regexp"
	"testing"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/record"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyBits = 512

func seeded(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

func newTestParty(t *testing.T, seed int64, method encode.Method) *Party {
	t.Helper()
	p, err := NewParty(PartyConfig{
		KeyBits: testKeyBits,
		Rounds:  20,
		Method:  method,
		Random:  seeded(seed),
	})
	require.NoError(t, err)
	return p
}

func TestNewParty(t *testing.T) {
	p := newTestParty(t, 1, encode.MethodNaive)

	digits := regexp.MustCompile(`^[0-9]{7}$`)
	assert.Regexp(t, digits, p.MAC)
	assert.Regexp(t, digits, p.DeviceID)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, encode.MethodNaive, p.Method())
	assert.InDelta(t, testKeyBits, p.PublicKey().N.BitLen(), 1)
	require.NoError(t, p.key.Validate())
}

func TestNewPartyNeedsRandom(t *testing.T) {
	_, err := NewParty(PartyConfig{KeyBits: testKeyBits})
	require.Error(t, err)
}

func TestNewPartyRejectsNarrowModulus(t *testing.T) {
	key, err := rsa.GenerateTestKey(seeded(2), 256)
	require.NoError(t, err)

	_, err = NewPartyFromKey(uuid.New(), "1111111", "2222222",
		key, encode.NewOAEP(seeded(4)), seeded(4), nil)
	require.ErrorIs(t, err, rsa.ErrKeyTooSmall)
}

func TestSendRequestShape(t *testing.T) {
	p := newTestParty(t, 5, encode.MethodNaive)

	req, err := p.SendRequest(string(make([]byte, 2*record.ContentSize)))
	require.NoError(t, err)
	require.Len(t, req, 2)
	require.NoError(t, req.Validate())
	assert.Equal(t, p.ID, req.PartyID())
	// a 128-bit key is one naive block
	assert.Len(t, req.EncryptedKey(), 1)
	for _, rec := range req.Records() {
		assert.Len(t, rec, record.Size)
	}
}

func TestSendRequestWithKeyRejectsWideKey(t *testing.T) {
	p := newTestParty(t, 6, encode.MethodNaive)

	wide := new(big.Int).Lsh(big.NewInt(1), record.KeyBits)
	_, err := p.SendRequestWithKey("x", wide)
	require.Error(t, err)

	_, err = p.SendRequestWithKey("x", big.NewInt(-1))
	require.Error(t, err)
}

func TestSendRequestWithKeyIsTextbook(t *testing.T) {
	p := newTestParty(t, 7, encode.MethodNaive)

	key := big.NewInt(0x2a)
	req, err := p.SendRequestWithKey("hello", key)
	require.NoError(t, err)

	want, err := p.PublicKey().EncryptBlock(key)
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(req.EncryptedKey()[0]))
}
