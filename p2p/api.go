package p2p

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/RedPaladin7/wupattack/record"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxRequestBody bounds a request to a generous number of records.
const maxRequestBody = 16 << 20

type apiFunc func(w http.ResponseWriter, r *http.Request) error

func makeHTTPHandlerFunc(f apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			JSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
	}
}

func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type APIServer struct {
	listenAddr string
	server     *Server
}

func NewAPIServer(listenAddr string, server *Server) *APIServer {
	return &APIServer{
		server:     server,
		listenAddr: listenAddr,
	}
}

// Handler returns the routed API, for mounting under an existing listener.
func (s *APIServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/api/request", makeHTTPHandlerFunc(s.handleRequest)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/parties", makeHTTPHandlerFunc(s.handleGetParties)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/health", makeHTTPHandlerFunc(s.handleHealth)).Methods("GET", "OPTIONS")
	return r
}

func (s *APIServer) Run() error {
	logrus.WithFields(logrus.Fields{
		"addr": s.listenAddr,
	}).Info("API Server starting...")

	return http.ListenAndServe(s.listenAddr, s.Handler())
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return JSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.server.Version,
		Stats:   s.server.Stats(),
	})
}

func (s *APIServer) handleGetParties(w http.ResponseWriter, r *http.Request) error {
	parties := s.server.Parties()
	return JSON(w, http.StatusOK, PartiesResponse{
		Parties:      parties,
		TotalParties: len(parties),
	})
}

// handleRequest answers 200 for every well-formed body, accepted or not, so
// the status code leaks nothing beyond the verdict bit.
func (s *APIServer) handleRequest(w http.ResponseWriter, r *http.Request) error {
	var req record.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	return JSON(w, http.StatusOK, QueryResponse{
		Accepted: s.server.ProcessRequest(req),
	})
}
