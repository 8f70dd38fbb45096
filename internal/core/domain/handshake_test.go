package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-sec/fourway22000/internal/core/domain"
)

// fakeKey is a test-only domain.EapolKey implementation. Production
// implementations live in internal/adapters/capture.
type fakeKey struct {
	mic     [16]byte
	nonce   [32]byte
	rc      uint64
	ts      time.Time
	keyType domain.KeyType
	pmkid   *domain.Pmkid
	body    []byte
}

func (k fakeKey) KeyMIC() [16]byte             { return k.mic }
func (k fakeKey) KeyNonce() [32]byte           { return k.nonce }
func (k fakeKey) ReplayCounter() uint64        { return k.rc }
func (k fakeKey) Timestamp() time.Time         { return k.ts }
func (k fakeKey) KeyType() domain.KeyType      { return k.keyType }
func (k fakeKey) Bytes() []byte                { return k.body }
func (k fakeKey) PMKID() (domain.Pmkid, bool) {
	if k.pmkid == nil {
		return domain.Pmkid{}, false
	}
	return *k.pmkid, true
}

var (
	anonce = mkNonce(0x01)
	snonce = mkNonce(0x02)
	micAB  = mkMIC(0xAB)
	body8  = []byte{0xCD, 0xCD, 0xCD, 0xCD, 0xCD, 0xCD, 0xCD, 0xCD}
	t0     = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func mkNonce(last byte) [32]byte {
	var n [32]byte
	n[31] = last
	return n
}

func mkMIC(b byte) [16]byte {
	var m [16]byte
	for i := range m {
		m[i] = b
	}
	return m
}

// stampEndpoints sets the endpoint fields HandshakeStore.Ingest would
// stamp, which Complete() requires alongside the collected key material.
func stampEndpoints(rec *domain.HandshakeRecord) {
	ap, _ := domain.ParseMAC("aa:bb:cc:dd:ee:ff")
	cl, _ := domain.ParseMAC("11:22:33:44:55:66")
	essid := "test"
	rec.MacAP = &ap
	rec.MacClient = &cl
	rec.ESSID = &essid
}

func msg1(rc uint64, ts time.Time, nonce [32]byte, pmkid *domain.Pmkid) fakeKey {
	return fakeKey{nonce: nonce, rc: rc, ts: ts, keyType: domain.KeyTypeMessage1, pmkid: pmkid}
}

func msg2(rc uint64, ts time.Time, nonce [32]byte, mic [16]byte) fakeKey {
	return fakeKey{mic: mic, nonce: nonce, rc: rc, ts: ts, keyType: domain.KeyTypeMessage2, body: body8}
}

func msg3(rc uint64, ts time.Time, nonce [32]byte, mic [16]byte) fakeKey {
	return fakeKey{mic: mic, nonce: nonce, rc: rc, ts: ts, keyType: domain.KeyTypeMessage3, body: body8}
}

func msg4(rc uint64, ts time.Time, nonce [32]byte, mic [16]byte) fakeKey {
	return fakeKey{mic: mic, nonce: nonce, rc: rc, ts: ts, keyType: domain.KeyTypeMessage4, body: body8}
}

// Scenario 1: clean M1+M2+M3+M4.
func TestAddKey_CleanFourWay(t *testing.T) {
	rec := domain.NewHandshakeRecord()

	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	require.NoError(t, rec.AddKey(msg2(2, t0.Add(500*time.Millisecond), snonce, micAB)))
	require.NoError(t, rec.AddKey(msg3(3, t0.Add(900*time.Millisecond), anonce, micAB)))
	require.NoError(t, rec.AddKey(msg4(4, t0.Add(1200*time.Millisecond), snonce, micAB)))
	stampEndpoints(rec)

	assert.True(t, rec.Complete())
	assert.False(t, rec.NC)
	assert.False(t, rec.LEndian)
	assert.False(t, rec.BEndian)
}

// Scenario 2: PMKID-only, no other messages.
func TestAddKey_PMKIDOnly(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	pmkid := domain.Pmkid{0x11, 0x22}

	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, &pmkid)))

	assert.True(t, rec.HasPMKID())
	assert.False(t, rec.Complete())
}

// Scenario 3: nonce-correction, little-endian (byte 31 differs).
func TestAddKey_NonceCorrectionLittleEndian(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	an := mkNonce(0x01)
	m3Nonce := mkNonce(0x05)

	require.NoError(t, rec.AddKey(msg1(1, t0, an, nil)))
	require.NoError(t, rec.AddKey(msg3(2, t0.Add(100*time.Millisecond), m3Nonce, micAB)))

	assert.True(t, rec.NC)
	assert.True(t, rec.LEndian)
	assert.False(t, rec.BEndian)
}

// Scenario 4: nonce-correction, big-endian (byte 28 differs, byte 31 equal).
func TestAddKey_NonceCorrectionBigEndian(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	var an, m3Nonce [32]byte
	an[28] = 0x01
	m3Nonce[28] = 0x05

	require.NoError(t, rec.AddKey(msg1(1, t0, an, nil)))
	require.NoError(t, rec.AddKey(msg3(2, t0.Add(100*time.Millisecond), m3Nonce, micAB)))

	assert.True(t, rec.NC)
	assert.True(t, rec.BEndian)
	assert.False(t, rec.LEndian)
}

// Scenario 5: stale M2, rejected, record keeps only M1.
func TestAddKey_StaleMessage2Rejected(t *testing.T) {
	rec := domain.NewHandshakeRecord()

	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	err := rec.AddKey(msg2(2, t0.Add(3*time.Second), snonce, micAB))

	require.Error(t, err)
	he, ok := domain.AsHandshakeError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindTemporalOutOfWindow, he.Kind)
	assert.True(t, rec.HasM1())
	assert.Nil(t, rec.Msg2)
}

// Scenario 6: M1+M4 fallback, no M2/M3.
func TestAddKey_M1M4Fallback(t *testing.T) {
	rec := domain.NewHandshakeRecord()

	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	require.NoError(t, rec.AddKey(msg4(2, t0.Add(200*time.Millisecond), snonce, micAB)))
	stampEndpoints(rec)

	assert.True(t, rec.Complete())
	require.NotNil(t, rec.SNonce)
	assert.Equal(t, snonce, *rec.SNonce)
	assert.Equal(t, body8, rec.EapolClient)
}

func TestAddKey_GTKRejected(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	err := rec.AddKey(fakeKey{keyType: domain.KeyTypeGTK})
	assert.ErrorIs(t, err, domain.ErrGTKUpdate)
}

func TestAddKey_Message1WithMICRejected(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	bad := msg1(1, t0, anonce, nil)
	bad.mic = micAB
	err := rec.AddKey(bad)
	assert.ErrorIs(t, err, domain.ErrM1HasMIC)
}

func TestAddKey_SlotAlreadyFilled(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	err := rec.AddKey(msg1(2, t0, anonce, nil))
	assert.ErrorIs(t, err, domain.ErrSlotFilled)
}

func TestAddKey_AnonceMismatchRejected(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))

	var unrelated [32]byte
	unrelated[0] = 0xFF
	err := rec.AddKey(msg3(2, t0.Add(10*time.Millisecond), unrelated, micAB))
	assert.ErrorIs(t, err, domain.ErrAnonceMismatch)
}

func TestAddKey_ReplayCounterOutOfWindowRejected(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	err := rec.AddKey(msg2(10, t0.Add(10*time.Millisecond), snonce, micAB))
	he, ok := domain.AsHandshakeError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindReplayCounterOutOfWindow, he.Kind)
}

// R1: a Message 3 that would trigger nonce-correction but fails the
// trailing replay-counter check must leave the record entirely
// unchanged — not just Msg3 unset, but NC/LEndian/BEndian as well.
func TestAddKey_Message3NonceCorrectionRejectedLeavesRecordUnchanged(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	require.NoError(t, rec.AddKey(msg1(1, t0, anonce, nil)))
	require.NoError(t, rec.AddKey(msg2(2, t0.Add(500*time.Millisecond), snonce, micAB)))
	stampEndpoints(rec)
	require.True(t, rec.Complete())

	m3Nonce := mkNonce(0x05) // trailing bytes differ from anonce: would set NC/LEndian
	badRC := msg2(20, t0.Add(600*time.Millisecond), m3Nonce, micAB)
	badRC.keyType = domain.KeyTypeMessage3

	err := rec.AddKey(badRC)
	he, ok := domain.AsHandshakeError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindReplayCounterOutOfWindow, he.Kind)

	assert.Nil(t, rec.Msg3)
	assert.False(t, rec.NC)
	assert.False(t, rec.LEndian)
	assert.False(t, rec.BEndian)
	assert.Equal(t, anonce, *rec.ANonce)
}

// P1: l_endian and b_endian are never both true.
func TestProperty_EndianFlagsMutuallyExclusive(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	var an, m3Nonce [32]byte
	an[31] = 0x01
	m3Nonce[31] = 0x05

	require.NoError(t, rec.AddKey(msg1(1, t0, an, nil)))
	require.NoError(t, rec.AddKey(msg3(2, t0.Add(10*time.Millisecond), m3Nonce, micAB)))

	assert.False(t, rec.LEndian && rec.BEndian)
}

// P3: mac_ap, mac_client, essid are either all unset or all set.
func TestProperty_EndpointFieldsAllOrNothing(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	allSet := rec.MacAP != nil && rec.MacClient != nil && rec.ESSID != nil
	allUnset := rec.MacAP == nil && rec.MacClient == nil && rec.ESSID == nil
	assert.True(t, allSet || allUnset)
}

// P5 / R1, at the single-record level: presenting the same key to a
// record twice fills the slot once and leaves the second attempt's
// target record untouched. (HandshakeStore.Ingest's fresh-record
// fallback means the store as a whole may start a second record for a
// repeated M1 — see DESIGN.md for why P5 is verified at this level
// rather than through Ingest.)
func TestProperty_RepeatedAddKeySingleSlot(t *testing.T) {
	rec := domain.NewHandshakeRecord()
	k := msg1(1, t0, anonce, nil)

	require.NoError(t, rec.AddKey(k))
	err := rec.AddKey(k)

	assert.ErrorIs(t, err, domain.ErrSlotFilled)
	assert.True(t, rec.HasM1())
}

// HandshakeStore.Ingest's documented fallback: once a bucket's only
// record has its M1 slot filled, a repeated M1 is offered to it (and
// rejected), then routed into a freshly created record in the same
// bucket.
func TestStore_IngestFallsBackToFreshRecord(t *testing.T) {
	store := domain.NewHandshakeStore()
	ap, _ := domain.ParseMAC("aa:bb:cc:dd:ee:ff")
	cl, _ := domain.ParseMAC("11:22:33:44:55:66")

	k := msg1(1, t0, anonce, nil)
	_, err1 := store.Ingest(ap, cl, "test", k)
	require.NoError(t, err1)
	_, err2 := store.Ingest(ap, cl, "test", k)
	require.NoError(t, err2)

	bucket := store.Bucket(ap, cl)
	require.Len(t, bucket, 2)
	assert.True(t, bucket[0].HasM1())
	assert.True(t, bucket[1].HasM1())
}
