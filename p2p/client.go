package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RedPaladin7/wupattack/record"
	"github.com/samber/oops"
)

const defaultClientTimeout = 30 * time.Second

// APIClient talks to a remote APIServer. Its Query method makes it an oracle
// for the attack package.
type APIClient struct {
	BaseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

func (c *APIClient) Query(ctx context.Context, req record.Request) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, oops.Wrapf(err, "encoding request")
	}
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/request", body, &resp); err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

func (c *APIClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Parties(ctx context.Context) (*PartiesResponse, error) {
	var resp PartiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/parties", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return oops.Wrapf(err, "building %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return oops.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Wrapf(err, "decoding %s response", path)
	}
	return nil
}

func (c *APIClient) String() string {
	return fmt.Sprintf("APIClient(%s)", c.BaseURL)
}
