package record

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBytes(t *testing.T) {
	assert.Equal(t, append(make([]byte, 15), 0x2a), KeyBytes(big.NewInt(42)))

	// bits above 128 are dropped
	wide := new(big.Int).Lsh(big.NewInt(1), 200)
	wide.Add(wide, big.NewInt(7))
	assert.Equal(t, append(make([]byte, 15), 0x07), KeyBytes(wide))
	assert.Equal(t, int64(7), Truncate(wide).Int64())
}

func TestAESRoundTrip(t *testing.T) {
	recs, err := Build("secret payload", testMAC, testDevice)
	require.NoError(t, err)

	c, err := NewAES(big.NewInt(0x1234))
	require.NoError(t, err)
	ct, err := c.Seal(recs[0])
	require.NoError(t, err)
	assert.Len(t, ct, Size)
	assert.NotEqual(t, recs[0], ct)

	pt, err := c.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, recs[0], pt)
	require.NoError(t, Validate(pt))
}

func TestAESWrongKeyFailsChecksum(t *testing.T) {
	recs, err := Build("secret payload", testMAC, testDevice)
	require.NoError(t, err)

	right, err := NewAES(big.NewInt(1))
	require.NoError(t, err)
	wrong, err := NewAES(big.NewInt(2))
	require.NoError(t, err)

	ct, err := right.Seal(recs[0])
	require.NoError(t, err)
	pt, err := wrong.Open(ct)
	require.NoError(t, err)
	assert.Error(t, Validate(pt))
}

func TestAESRejectsPartialBlocks(t *testing.T) {
	c, err := NewAES(big.NewInt(1))
	require.NoError(t, err)
	_, err = c.Seal(make([]byte, 17))
	assert.Error(t, err)

	_, err = NewAES(big.NewInt(-1))
	assert.Error(t, err)
}
