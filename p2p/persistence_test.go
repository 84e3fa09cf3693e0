package p2p

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	for _, method := range []encode.Method{encode.MethodNaive, encode.MethodOAEP} {
		t.Run(method.String(), func(t *testing.T) {
			p := newTestParty(t, 30, method)
			file := filepath.Join(t.TempDir(), "identity.yaml")
			require.NoError(t, p.SaveIdentity(file))

			info, err := os.Stat(file)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := LoadIdentity(file, PartyConfig{Random: seeded(31)})
			require.NoError(t, err)
			assert.Equal(t, p.ID, loaded.ID)
			assert.Equal(t, p.MAC, loaded.MAC)
			assert.Equal(t, p.DeviceID, loaded.DeviceID)
			assert.Equal(t, method, loaded.Method())
			assert.Equal(t, 0, p.key.D.Cmp(loaded.key.D))

			// the restored party is interchangeable with the original
			req, err := loaded.SendRequest("restored")
			require.NoError(t, err)
			assert.True(t, newTestServer(p).ProcessRequest(req))
		})
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	p := newTestParty(t, 32, encode.MethodOAEP)
	dir := t.TempDir()

	pubFile := filepath.Join(dir, "public.yaml")
	require.NoError(t, p.SavePublicKey(pubFile))
	id, pub, method, err := LoadPublicKey(pubFile)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)
	assert.Equal(t, encode.MethodOAEP, method)
	assert.Equal(t, 0, pub.N.Cmp(p.PublicKey().N))
	assert.Equal(t, 0, pub.E.Cmp(p.PublicKey().E))

	data, err := os.ReadFile(pubFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "d:")

	// an identity file also serves as a public key file
	idFile := filepath.Join(dir, "identity.yaml")
	require.NoError(t, p.SaveIdentity(idFile))
	_, pub, _, err = LoadPublicKey(idFile)
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(p.PublicKey().N))
}

func TestLoadIdentityRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"bad-hex.yaml":   "id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8\nmethod: naive\nn: xyz\ne: \"3\"\nd: \"1\"\np: \"1\"\nq: \"1\"\n",
		"bad-id.yaml":    "id: nope\nmethod: naive\nn: \"f\"\n",
		"not-yaml.yaml":  "::: [",
		"wrong-key.yaml": "id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8\nmethod: naive\nn: \"10\"\ne: \"3\"\nd: \"1\"\np: \"3\"\nq: \"5\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(file, []byte(body), 0600))
			_, err := LoadIdentity(file, PartyConfig{Random: seeded(33)})
			require.Error(t, err)
		})
	}
}

func TestCaptureRoundTrip(t *testing.T) {
	p := newTestParty(t, 34, encode.MethodNaive)
	req, err := p.SendRequest("captured traffic")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "capture.json")
	require.NoError(t, SaveCapture(file, req))
	loaded, err := LoadCapture(file)
	require.NoError(t, err)
	require.Len(t, loaded, len(req))
	assert.Equal(t, req.PartyID(), loaded.PartyID())
	assert.Equal(t, 0, req.EncryptedKey()[0].Cmp(loaded.EncryptedKey()[0]))
	assert.Equal(t, req.Records(), loaded.Records())
	assert.True(t, newTestServer(p).ProcessRequest(loaded))
}

func TestLoadCaptureRejectsEmpty(t *testing.T) {
	file := filepath.Join(t.TempDir(), "capture.json")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0644))
	_, err := LoadCapture(file)
	require.Error(t, err)
}
