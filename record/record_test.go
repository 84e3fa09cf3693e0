package record

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMAC    = "1234567"
	testDevice = "7654321"
)

func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 1040, TextSize)
	assert.Equal(t, 1104, Size)
}

func TestBuildSingleChunk(t *testing.T) {
	recs, err := Build("hello world", testMAC, testDevice)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Len(t, rec, Size)

	want := "hello world" + strings.Repeat(" ", ContentSize-11) + "\t" + testMAC + "\t" + testDevice
	assert.Equal(t, want, string(rec[:TextSize]))
	assert.Equal(t, string(Checksum([]byte(want))), string(rec[TextSize:]))
	assert.Equal(t, strings.ToLower(string(rec[TextSize:])), string(rec[TextSize:]))

	parsed, err := Parse(rec)
	require.NoError(t, err)
	assert.Equal(t, &Record{Content: "hello world", MAC: testMAC, DeviceID: testDevice}, parsed)
}

func TestBuildExactly2048Bytes(t *testing.T) {
	content := strings.Repeat("a", 1024) + strings.Repeat("b", 1024)
	recs, err := Build(content, testMAC, testDevice)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	var parsed []*Record
	for _, rec := range recs {
		assert.Len(t, rec, Size)
		require.NoError(t, Validate(rec))
		r, err := Parse(rec)
		require.NoError(t, err)
		parsed = append(parsed, r)
	}
	assert.Equal(t, strings.Repeat("a", 1024), parsed[0].Content)
	assert.Equal(t, strings.Repeat("b", 1024), parsed[1].Content)
	assert.Equal(t, content, Join(parsed))
}

func TestBuildChunkCounts(t *testing.T) {
	for _, tc := range []struct {
		length, chunks int
	}{
		{0, 1},
		{1, 1},
		{1024, 1},
		{1025, 2},
		{3000, 3},
	} {
		recs, err := Build(strings.Repeat("x", tc.length), testMAC, testDevice)
		require.NoError(t, err)
		assert.Len(t, recs, tc.chunks, "content length %d", tc.length)
	}
}

func TestBuildRejectsBadFields(t *testing.T) {
	for _, f := range []string{"", "123456", "12345678", "123\t567"} {
		_, err := Build("x", f, testDevice)
		assert.ErrorIs(t, err, ErrField)
		_, err = Build("x", testMAC, f)
		assert.ErrorIs(t, err, ErrField)
	}
}

func TestChecksumIntegrity(t *testing.T) {
	recs, err := Build("integrity matters", testMAC, testDevice)
	require.NoError(t, err)
	orig := recs[0]

	// every byte of content, mac and device id is covered
	for i := 0; i < TextSize; i++ {
		mutated := bytes.Clone(orig)
		mutated[i] ^= 0x01
		assert.ErrorIs(t, Validate(mutated), ErrChecksum, "mutation at byte %d went unnoticed", i)
	}
	mutated := bytes.Clone(orig)
	mutated[Size-1] ^= 0x01
	assert.ErrorIs(t, Validate(mutated), ErrChecksum)
}

func TestValidateSize(t *testing.T) {
	recs, err := Build("x", testMAC, testDevice)
	require.NoError(t, err)
	assert.ErrorIs(t, Validate(recs[0][:Size-1]), ErrSize)
	assert.ErrorIs(t, Validate(append(bytes.Clone(recs[0]), ' ')), ErrSize)
}

func TestParseRejectsLayout(t *testing.T) {
	text := []byte(strings.Repeat(" ", ContentSize) + "x" + testMAC + "\t" + testDevice)
	rec := append(text, Checksum(text)...)
	require.NoError(t, Validate(rec))
	_, err := Parse(rec)
	assert.ErrorIs(t, err, ErrLayout)
}

func TestRequest(t *testing.T) {
	id := uuid.New()
	key := []*big.Int{big.NewInt(42)}
	recs, err := Build(strings.Repeat("z", 1500), testMAC, testDevice)
	require.NoError(t, err)

	req := NewRequest(id, key, recs)
	require.Len(t, req, 2)
	require.NoError(t, req.Validate())
	assert.Equal(t, id, req.PartyID())
	assert.Equal(t, key, req.EncryptedKey())
	assert.Equal(t, recs, req.Records())

	mixed := NewRequest(id, key, recs)
	mixed[1].PartyID = uuid.New()
	assert.ErrorIs(t, mixed.Validate(), ErrRequest)

	rekeyed := NewRequest(id, key, recs)
	rekeyed[1].EncryptedKey = []*big.Int{big.NewInt(43)}
	assert.ErrorIs(t, rekeyed.Validate(), ErrRequest)

	assert.ErrorIs(t, Request{}.Validate(), ErrRequest)
	assert.ErrorIs(t, NewRequest(id, nil, recs).Validate(), ErrRequest)
	assert.ErrorIs(t, NewRequest(id, []*big.Int{nil}, recs).Validate(), ErrRequest)
	assert.ErrorIs(t, NewRequest(id, []*big.Int{big.NewInt(1), nil}, recs[:1]).Validate(), ErrRequest)
	assert.Equal(t, uuid.Nil, Request{}.PartyID())
}
