package p2p

import (
	"context"
	"sync"

	"github.com/RedPaladin7/wupattack/encode"
	"github.com/RedPaladin7/wupattack/record"
	"github.com/RedPaladin7/wupattack/rsa"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultAPIListenAddr = "localhost:8080"

type ServerConfig struct {
	Version       string
	APIListenAddr string
	// Cipher must match the cipher the parties seal records with.
	Cipher record.CipherFactory
}

type registration struct {
	key     *rsa.PrivateKey
	encoder encode.Encoder
}

// Server keeps the key pairs of registered parties and answers requests with
// a single accept/reject bit.
type Server struct {
	ServerConfig
	partyLock sync.RWMutex
	parties   map[uuid.UUID]*registration
	stats     counters
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.APIListenAddr == "" {
		cfg.APIListenAddr = defaultAPIListenAddr
	}
	if cfg.Cipher == nil {
		cfg.Cipher = record.NewAES
	}
	return &Server{
		ServerConfig: cfg,
		parties:      make(map[uuid.UUID]*registration),
	}
}

// Start serves the HTTP API until it fails.
func (s *Server) Start() error {
	logrus.WithFields(logrus.Fields{
		"api":     s.APIListenAddr,
		"version": s.Version,
		"parties": len(s.Parties()),
	}).Info("starting oracle server...")
	return NewAPIServer(s.APIListenAddr, s).Run()
}

func (s *Server) Register(p *Party) {
	s.RegisterKey(p.ID, p.key, p.encoder)
}

func (s *Server) RegisterKey(id uuid.UUID, key *rsa.PrivateKey, enc encode.Encoder) {
	s.partyLock.Lock()
	defer s.partyLock.Unlock()
	s.parties[id] = &registration{key: key, encoder: enc}
	logrus.WithFields(logrus.Fields{
		"party":  id,
		"method": enc.Method(),
	}).Info("party registered")
}

func (s *Server) Unregister(id uuid.UUID) {
	s.partyLock.Lock()
	defer s.partyLock.Unlock()
	delete(s.parties, id)
	logrus.WithField("party", id).Info("party removed")
}

func (s *Server) getParty(id uuid.UUID) (*registration, bool) {
	s.partyLock.RLock()
	defer s.partyLock.RUnlock()
	reg, ok := s.parties[id]
	return reg, ok
}

func (s *Server) Parties() []uuid.UUID {
	s.partyLock.RLock()
	defer s.partyLock.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.parties))
	for id := range s.parties {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) Stats() Stats {
	return s.stats.snapshot()
}

// ProcessRequest returns true iff the party is registered, the session key
// decrypts and every record's checksum validates.
func (s *Server) ProcessRequest(req record.Request) bool {
	verdict, content := s.evaluate(req)
	s.stats.record(verdict)

	log := logrus.WithFields(logrus.Fields{
		"party":   req.PartyID(),
		"verdict": verdict,
	})
	if verdict != VerdictAccepted {
		log.Debug("request rejected")
		return false
	}
	log.WithField("content", content).Debug("valid request")
	return true
}

// Query lets the server act as an in-process oracle.
func (s *Server) Query(ctx context.Context, req record.Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.ProcessRequest(req), nil
}

func (s *Server) evaluate(req record.Request) (Verdict, string) {
	if err := req.Validate(); err != nil {
		return VerdictMalformed, ""
	}
	reg, ok := s.getParty(req.PartyID())
	if !ok {
		return VerdictUnregistered, ""
	}

	s.stats.decryptions.Inc()
	blocks, err := reg.key.Decrypt(req.EncryptedKey())
	if err != nil {
		return VerdictMalformed, ""
	}
	decoded, err := reg.encoder.DecodeInt(blocks)
	if err != nil {
		return VerdictBadKey, ""
	}
	// only the low 128 bits are used as the session key
	ciph, err := s.Cipher(record.Truncate(decoded))
	if err != nil {
		return VerdictBadKey, ""
	}

	recs := make([]*record.Record, 0, len(req))
	for _, env := range req {
		pt, err := ciph.Open(env.Record)
		if err != nil {
			return VerdictMalformed, ""
		}
		rec, err := record.Parse(pt)
		if err != nil {
			return VerdictChecksum, ""
		}
		recs = append(recs, rec)
	}
	return VerdictAccepted, record.Join(recs)
}
