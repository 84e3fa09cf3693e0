package p2p

import "sync/atomic"

type AtomicInt struct {
	value int64
}

func (a *AtomicInt) Get() int64 { return atomic.LoadInt64(&a.value) }
func (a *AtomicInt) Inc()       { atomic.AddInt64(&a.value, 1) }

// Stats is a snapshot of the server's request counters.
type Stats struct {
	Queries      int64 `json:"queries"`
	Accepted     int64 `json:"accepted"`
	Rejected     int64 `json:"rejected"`
	Unregistered int64 `json:"unregistered"`
	Decryptions  int64 `json:"decryptions"`
}

type counters struct {
	queries      AtomicInt
	accepted     AtomicInt
	rejected     AtomicInt
	unregistered AtomicInt
	decryptions  AtomicInt
}

func (c *counters) record(v Verdict) {
	c.queries.Inc()
	switch v {
	case VerdictAccepted:
		c.accepted.Inc()
	case VerdictUnregistered:
		c.unregistered.Inc()
		c.rejected.Inc()
	default:
		c.rejected.Inc()
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Queries:      c.queries.Get(),
		Accepted:     c.accepted.Get(),
		Rejected:     c.rejected.Get(),
		Unregistered: c.unregistered.Get(),
		Decryptions:  c.decryptions.Get(),
	}
}
