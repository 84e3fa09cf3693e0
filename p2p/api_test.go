package p2p

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, s *Server) *APIClient {
	t.Helper()
	ts := httptest.NewServer(NewAPIServer("", s).Handler())
	t.Cleanup(ts.Close)
	return NewAPIClient(ts.URL)
}

func TestAPIQueryMatchesServer(t *testing.T) {
	p := newTestParty(t, 20, encode.MethodNaive)
	s := newTestServer(p)
	client := newTestAPI(t, s)
	ctx := context.Background()

	good, err := p.SendRequest("over the wire")
	require.NoError(t, err)
	ok, err := client.Query(ctx, good)
	require.NoError(t, err)
	assert.True(t, ok)

	bad, err := p.SendRequest("tampered")
	require.NoError(t, err)
	bad[0].Record[0] ^= 0xff
	ok, err = client.Query(ctx, bad)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.ProcessRequest(bad))

	assert.Equal(t, int64(3), s.Stats().Queries)
}

func TestAPIHealthAndParties(t *testing.T) {
	p := newTestParty(t, 21, encode.MethodNaive)
	client := newTestAPI(t, newTestServer(p))
	ctx := context.Background()

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Zero(t, health.Stats.Queries)

	parties, err := client.Parties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, parties.TotalParties)
	assert.Equal(t, p.ID, parties.Parties[0])
}

func TestAPIRejectedRequestIsStill200(t *testing.T) {
	ts := httptest.NewServer(NewAPIServer("", newTestServer()).Handler())
	defer ts.Close()

	body := `[{"party_id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","encrypted_key":[42],"record":"AAAA"}]`
	resp, err := http.Post(ts.URL+"/api/request", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPINullKeyBlockIsRejected(t *testing.T) {
	p := newTestParty(t, 22, encode.MethodNaive)
	s := newTestServer(p)
	ts := httptest.NewServer(NewAPIServer("", s).Handler())
	defer ts.Close()

	body := `[{"party_id":"` + p.ID.String() + `","encrypted_key":[null],"record":""}]`
	resp, err := http.Post(ts.URL+"/api/request", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.False(t, got.Accepted)

	// the server keeps answering afterwards
	req, err := p.SendRequest("still here")
	require.NoError(t, err)
	ok, err := NewAPIClient(ts.URL).Query(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPIMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(NewAPIServer("", newTestServer()).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/request", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIClientSurfacesErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusBadRequest, errorResponse{Error: "nope"})
	}))
	defer ts.Close()

	_, err := NewAPIClient(ts.URL).Query(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestNewAPIClientAddsScheme(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", NewAPIClient("localhost:8080/").BaseURL)
	assert.Equal(t, "https://example.org", NewAPIClient("https://example.org").BaseURL)
}
