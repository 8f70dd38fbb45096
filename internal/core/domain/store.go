package domain

import "sync"

// SessionKey identifies a bucket of handshake attempts between a single
// (AP, client) pair. Both fields are value types, so SessionKey is
// itself comparable and usable directly as a map key — no identity-based
// hashing of the underlying MAC bytes.
type SessionKey struct {
	APMAC     MacAddress
	ClientMAC MacAddress
}

// HandshakeStore maps a SessionKey to the ordered list of HandshakeRecord
// attempts observed for that pair. Multiple records per pair arise
// legitimately: once a record completes (or is otherwise exhausted) it
// refuses further keys, and a fresh record is started for the next
// attempt (e.g. after a deauth-triggered reconnect).
type HandshakeStore struct {
	mu      sync.RWMutex
	buckets map[SessionKey][]*HandshakeRecord
}

// NewHandshakeStore returns an empty store.
func NewHandshakeStore() *HandshakeStore {
	return &HandshakeStore{
		buckets: make(map[SessionKey][]*HandshakeRecord),
	}
}

// Ingest routes key into the bucket for (apMAC, clientMAC): it offers the
// key to each existing record in insertion order, and on the first
// success stamps the endpoint MACs and essid onto that record (essid is
// stamped even when empty, so the three fields are always set together). If no existing record accepts the key, a fresh record is
// created, the key is offered to it, the MACs/essid are stamped
// regardless of outcome, and the record is appended to the bucket — so a
// caller can still inspect why the very first key of a new session was
// rejected.
func (s *HandshakeStore) Ingest(apMAC, clientMAC MacAddress, essid string, key EapolKey) (*HandshakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk := SessionKey{APMAC: apMAC, ClientMAC: clientMAC}
	bucket := s.buckets[sk]

	for _, rec := range bucket {
		if err := rec.AddKey(key); err == nil {
			rec.MacAP = &apMAC
			rec.MacClient = &clientMAC
			rec.ESSID = &essid
			return rec, nil
		}
	}

	rec := NewHandshakeRecord()
	err := rec.AddKey(key)
	rec.MacAP = &apMAC
	rec.MacClient = &clientMAC
	rec.ESSID = &essid
	s.buckets[sk] = append(bucket, rec)
	return rec, err
}

// Count returns the total number of records across all buckets.
func (s *HandshakeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// Records returns every tracked record across every bucket, in
// unspecified order. The table projector imposes its own ordering.
func (s *HandshakeStore) Records() []*HandshakeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*HandshakeRecord, 0, s.countLocked())
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	return out
}

func (s *HandshakeStore) countLocked() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// FindByAP returns, for the given AP MAC, a mapping from client MAC to
// that client's list of records.
func (s *HandshakeStore) FindByAP(apMAC MacAddress) map[MacAddress][]*HandshakeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[MacAddress][]*HandshakeRecord)
	for sk, bucket := range s.buckets {
		if sk.APMAC == apMAC {
			out[sk.ClientMAC] = append(out[sk.ClientMAC], bucket...)
		}
	}
	return out
}

// HasCompleteFor reports whether any client of apMAC has a fully
// collected 4-way handshake.
func (s *HandshakeStore) HasCompleteFor(apMAC MacAddress) bool {
	for _, recs := range s.FindByAP(apMAC) {
		for _, rec := range recs {
			if rec.Complete() {
				return true
			}
		}
	}
	return false
}

// HasM1For reports whether any client of apMAC has at least a Message 1.
func (s *HandshakeStore) HasM1For(apMAC MacAddress) bool {
	for _, recs := range s.FindByAP(apMAC) {
		for _, rec := range recs {
			if rec.HasM1() {
				return true
			}
		}
	}
	return false
}

// Bucket returns the record list for (apMAC, clientMAC), if any.
func (s *HandshakeStore) Bucket(apMAC, clientMAC MacAddress) []*HandshakeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*HandshakeRecord(nil), s.buckets[SessionKey{APMAC: apMAC, ClientMAC: clientMAC}]...)
}
