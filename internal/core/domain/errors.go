package domain

import (
	"errors"
)

// ErrorKind classifies why add_key rejected a key, per the taxonomy a
// reimplementation is expected to expose even though the upstream source
// only carried opaque strings.
type ErrorKind int

const (
	// KindWrongKeyType covers GTK rekey traffic and otherwise
	// unclassifiable frames.
	KindWrongKeyType ErrorKind = iota
	// KindSlotAlreadyFilled means the target message slot is occupied.
	KindSlotAlreadyFilled
	// KindInvariantViolation covers MIC-presence, nonce-zeroness, and
	// PMKID-field violations.
	KindInvariantViolation
	// KindReplayCounterOutOfWindow means the monotonicity/range check failed.
	KindReplayCounterOutOfWindow
	// KindTemporalOutOfWindow means the >2-second gap check failed.
	KindTemporalOutOfWindow
	// KindAnonceMismatch means an M3's ANonce prefix disagreed with the
	// stored ANonce.
	KindAnonceMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case KindWrongKeyType:
		return "wrong_key_type"
	case KindSlotAlreadyFilled:
		return "slot_already_filled"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindReplayCounterOutOfWindow:
		return "replay_counter_out_of_window"
	case KindTemporalOutOfWindow:
		return "temporal_out_of_window"
	case KindAnonceMismatch:
		return "anonce_mismatch"
	default:
		return "unknown"
	}
}

// HandshakeError is the error type returned by HandshakeRecord.AddKey and
// HandshakeStore.Ingest. The Kind lets callers branch on the failure
// category without string matching; Error() keeps the human-readable
// message the upstream tool used.
type HandshakeError struct {
	Kind ErrorKind
	msg  string
}

func (e *HandshakeError) Error() string {
	return e.msg
}

func newErr(kind ErrorKind, msg string) *HandshakeError {
	return &HandshakeError{Kind: kind, msg: msg}
}

// Sentinel reasons, preserved as distinct values so callers can use
// errors.Is against a specific failure rather than only the Kind.
var (
	ErrGTKUpdate          = newErr(KindWrongKeyType, "GTK update ignored")
	ErrUnknownKeyType     = newErr(KindWrongKeyType, "could not classify key as part of the 4-way handshake")
	ErrSlotFilled         = newErr(KindSlotAlreadyFilled, "already present")
	ErrM1HasMIC           = newErr(KindInvariantViolation, "invalid message 1: MIC should not be present")
	ErrM2MissingMIC       = newErr(KindInvariantViolation, "invalid message 2: MIC should be present")
	ErrM2MissingNonce     = newErr(KindInvariantViolation, "invalid message 2: SNonce should be present")
	ErrM3MissingMIC       = newErr(KindInvariantViolation, "invalid message 3: MIC should be present")
	ErrM3MissingNonce     = newErr(KindInvariantViolation, "invalid message 3: ANonce should be present")
	ErrM4MissingMIC       = newErr(KindInvariantViolation, "invalid message 4: MIC should be present")
	ErrM2ReplayOutOfRange = newErr(KindReplayCounterOutOfWindow, "invalid message 2: replay counter out of range")
	ErrM3ReplayOutOfRange = newErr(KindReplayCounterOutOfWindow, "invalid message 3: replay counter out of range")
	ErrM4ReplayOutOfRange = newErr(KindReplayCounterOutOfWindow, "invalid message 4: replay counter out of range")
	ErrM2Stale            = newErr(KindTemporalOutOfWindow, "invalid message 2: time difference too great")
	ErrM3Stale            = newErr(KindTemporalOutOfWindow, "invalid message 3: time difference too great")
	ErrM4Stale            = newErr(KindTemporalOutOfWindow, "invalid message 4: time difference too great")
	ErrAnonceMismatch     = newErr(KindAnonceMismatch, "invalid message 3: ANonce not close enough to message 1 ANonce")
	ErrHandshakeExhausted = newErr(KindSlotAlreadyFilled, "handshake already complete or message already present")
)

// AsHandshakeError unwraps err into its HandshakeError, if any.
func AsHandshakeError(err error) (*HandshakeError, bool) {
	var he *HandshakeError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
