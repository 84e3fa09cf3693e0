package p2p

import "github.com/google/uuid"

// QueryResponse is the body of a POST /api/request reply. It deliberately
// carries nothing but the verdict bit.
type QueryResponse struct {
	Accepted bool `json:"accepted"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Stats   Stats  `json:"stats"`
}

type PartiesResponse struct {
	Parties      []uuid.UUID `json:"parties"`
	TotalParties int         `json:"total_parties"`
}

type errorResponse struct {
	Error string `json:"error"`
}
