package domain

import (
	"bytes"
	"time"
)

// replayWindow is the width of the acceptable replay-counter range
// between consecutive messages: a later message's counter must lie in
// (prev, prev+replayWindow].
const replayWindow = 3

// staleAfter bounds the wall-clock gap tolerated between consecutive
// messages in the handshake.
const staleAfter = 2 * time.Second

// SlotKey pairs a filled message slot (1..4) with the key observed there.
type SlotKey struct {
	Slot int
	Key  EapolKey
}

// HandshakeRecord is the per-session 4-way-handshake state machine. Its
// message slots and derived fields are mutated only through AddKey, and
// HandshakeStore.Ingest stamps MacAP, MacClient and ESSID; all other
// methods are read-only.
type HandshakeRecord struct {
	Msg1, Msg2, Msg3, Msg4 EapolKey
	LastMsg                EapolKey

	ANonce      *[32]byte
	SNonce      *[32]byte
	MIC         *[16]byte
	EapolClient []byte
	PMKID       *Pmkid

	// Apless is never set by the ingest path; it is exposed for external
	// client-less (PMKID-only) capture logic to set explicitly.
	Apless  bool
	NC      bool
	LEndian bool
	BEndian bool

	MacAP     *MacAddress
	MacClient *MacAddress
	ESSID     *string
}

// NewHandshakeRecord returns an empty record ready to accept its first key.
func NewHandshakeRecord() *HandshakeRecord {
	return &HandshakeRecord{}
}

// Complete reports whether every field the exporter needs for a WPA*02
// line has been collected.
func (r *HandshakeRecord) Complete() bool {
	return r.EapolClient != nil &&
		r.MIC != nil &&
		r.ANonce != nil &&
		r.SNonce != nil &&
		r.MacAP != nil &&
		r.MacClient != nil &&
		r.ESSID != nil
}

// HasM1 reports whether a Message 1 has been observed.
func (r *HandshakeRecord) HasM1() bool {
	return r.Msg1 != nil
}

// HasPMKID reports whether a PMKID was extracted from Message 1.
func (r *HandshakeRecord) HasPMKID() bool {
	return r.PMKID != nil
}

// EapolKeys returns the filled message slots in canonical 1..4 order.
func (r *HandshakeRecord) EapolKeys() []SlotKey {
	var keys []SlotKey
	if r.Msg1 != nil {
		keys = append(keys, SlotKey{1, r.Msg1})
	}
	if r.Msg2 != nil {
		keys = append(keys, SlotKey{2, r.Msg2})
	}
	if r.Msg3 != nil {
		keys = append(keys, SlotKey{3, r.Msg3})
	}
	if r.Msg4 != nil {
		keys = append(keys, SlotKey{4, r.Msg4})
	}
	return keys
}

// AddKey attempts to incorporate key into this record. On failure the
// record is left entirely unchanged.
func (r *HandshakeRecord) AddKey(key EapolKey) error {
	switch key.KeyType() {
	case KeyTypeGTK:
		return ErrGTKUpdate
	case KeyTypeMessage1:
		return r.addMessage1(key)
	case KeyTypeMessage2:
		return r.addMessage2(key)
	case KeyTypeMessage3:
		return r.addMessage3(key)
	case KeyTypeMessage4:
		return r.addMessage4(key)
	default:
		return ErrUnknownKeyType
	}
}

func (r *HandshakeRecord) addMessage1(key EapolKey) error {
	if r.Msg1 != nil {
		return ErrSlotFilled
	}
	if key.KeyMIC() != ([16]byte{}) {
		return ErrM1HasMIC
	}
	if pmkid, ok := key.PMKID(); ok {
		r.PMKID = &pmkid
	}
	nonce := key.KeyNonce()
	r.ANonce = &nonce
	r.Msg1 = key
	r.LastMsg = key
	return nil
}

func (r *HandshakeRecord) addMessage2(key EapolKey) error {
	if r.Msg2 != nil {
		return ErrSlotFilled
	}
	mic := key.KeyMIC()
	if mic == ([16]byte{}) {
		return ErrM2MissingMIC
	}
	nonce := key.KeyNonce()
	if nonce == ([32]byte{}) {
		return ErrM2MissingNonce
	}
	if r.Msg1 != nil {
		if !inReplayWindow(key.ReplayCounter(), r.Msg1.ReplayCounter()) {
			return ErrM2ReplayOutOfRange
		}
		if tooStale(key.Timestamp(), r.Msg1.Timestamp()) {
			return ErrM2Stale
		}
	}
	r.SNonce = &nonce
	r.Msg2 = key
	r.LastMsg = key
	r.EapolClient = key.Bytes()
	r.MIC = &mic
	return nil
}

func (r *HandshakeRecord) addMessage3(key EapolKey) error {
	if r.Msg3 != nil {
		return ErrSlotFilled
	}
	mic := key.KeyMIC()
	if mic == ([16]byte{}) {
		return ErrM3MissingMIC
	}
	nonce := key.KeyNonce()
	if nonce == ([32]byte{}) {
		return ErrM3MissingNonce
	}

	// Stage the nonce-correction flags into locals: any check below this
	// point can still reject the key, and AddKey promises the record is
	// left entirely unchanged on failure.
	var setANonce bool
	nc, lEndian, bEndian := r.NC, r.LEndian, r.BEndian

	if r.ANonce != nil {
		if !bytes.Equal(nonce[:28], r.ANonce[:28]) {
			return ErrAnonceMismatch
		}
		if !bytes.Equal(nonce[28:], r.ANonce[28:]) {
			// Bytes 0..28 match but the trailing 4 bytes differ: the AP
			// incremented its nonce between M1 and M3. Byte 31 takes
			// precedence for the endianness guess.
			if r.ANonce[31] != nonce[31] {
				lEndian = true
			} else if r.ANonce[28] != nonce[28] {
				bEndian = true
			}
			nc = true
		}
		// Else: trailing bytes match too, leave nc/endian flags as-is.
	} else {
		// No M1 seen; trust this M3's nonce as the ANonce.
		setANonce = true
		nc = false
	}

	if r.Msg2 != nil {
		if !inReplayWindow(key.ReplayCounter(), r.Msg2.ReplayCounter()) {
			return ErrM3ReplayOutOfRange
		}
		if tooStale(key.Timestamp(), r.Msg2.Timestamp()) {
			return ErrM3Stale
		}
	}

	if setANonce {
		r.ANonce = &nonce
	}
	r.NC = nc
	r.LEndian = lEndian
	r.BEndian = bEndian
	r.Msg3 = key
	r.LastMsg = key
	// Message 3 is sent by the AP, so it never backs the EAPOL body.
	return nil
}

func (r *HandshakeRecord) addMessage4(key EapolKey) error {
	if r.Msg4 != nil {
		return ErrSlotFilled
	}
	mic := key.KeyMIC()
	if mic == ([16]byte{}) {
		return ErrM4MissingMIC
	}
	if r.Msg3 != nil {
		if !inReplayWindow(key.ReplayCounter(), r.Msg3.ReplayCounter()) {
			return ErrM4ReplayOutOfRange
		}
		if tooStale(key.Timestamp(), r.Msg3.Timestamp()) {
			return ErrM4Stale
		}
	}

	r.Msg4 = key
	r.LastMsg = key

	nonce := key.KeyNonce()
	if r.SNonce == nil && nonce != ([32]byte{}) {
		r.SNonce = &nonce
		// Only an M1+M4 capture (no M2) reaches here with EapolClient
		// unset; adopt M4's MIC/body so the pair is still exportable.
		if r.EapolClient == nil {
			r.MIC = &mic
			r.EapolClient = key.Bytes()
		}
	}
	return nil
}

// inReplayWindow implements the corrected predicate for the replay
// counter window described in spec.md §9: rc must lie in (prev, prev+3].
func inReplayWindow(rc, prev uint64) bool {
	return rc > prev && rc <= prev+replayWindow
}

func tooStale(current, reference time.Time) bool {
	return current.Sub(reference) > staleAfter
}
