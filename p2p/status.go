package p2p

// Verdict is the server's internal reason for answering a request. Only
// VerdictAccepted is visible to the sender; every other verdict collapses to
// a plain rejection.
type Verdict uint8

const (
	VerdictAccepted Verdict = iota
	VerdictMalformed
	VerdictUnregistered
	VerdictBadKey
	VerdictChecksum
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "ACCEPTED"
	case VerdictMalformed:
		return "MALFORMED"
	case VerdictUnregistered:
		return "UNREGISTERED"
	case VerdictBadKey:
		return "BAD-KEY"
	case VerdictChecksum:
		return "CHECKSUM"
	default:
		return "INVALID"
	}
}
