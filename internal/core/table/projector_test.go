package table_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/table"
)

type fakeKey struct {
	mic     [16]byte
	nonce   [32]byte
	rc      uint64
	ts      time.Time
	keyType domain.KeyType
	body    []byte
}

func (k fakeKey) KeyMIC() [16]byte             { return k.mic }
func (k fakeKey) KeyNonce() [32]byte           { return k.nonce }
func (k fakeKey) ReplayCounter() uint64        { return k.rc }
func (k fakeKey) Timestamp() time.Time         { return k.ts }
func (k fakeKey) KeyType() domain.KeyType      { return k.keyType }
func (k fakeKey) Bytes() []byte                { return k.body }
func (k fakeKey) PMKID() (domain.Pmkid, bool)  { return domain.Pmkid{}, false }

func mac(s string) domain.MacAddress {
	m, err := domain.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestHeaders_ElevenColumns(t *testing.T) {
	h := table.Headers()
	assert.Len(t, h, 11)
	assert.Equal(t, "Timestamp", h[0])
	assert.Equal(t, "RD", h[10])
}

func TestProject_SortsByLastMessageDescending(t *testing.T) {
	store := domain.NewHandshakeStore()
	ap, cl1, cl2 := mac("aa:bb:cc:dd:ee:ff"), mac("11:22:33:44:55:66"), mac("22:22:33:44:55:66")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Ingest(ap, cl1, "older", fakeKey{rc: 1, ts: t0, keyType: domain.KeyTypeMessage1})
	require.NoError(t, err)
	_, err = store.Ingest(ap, cl2, "newer", fakeKey{rc: 1, ts: t0.Add(time.Hour), keyType: domain.KeyTypeMessage1})
	require.NoError(t, err)

	_, rows := table.Project(store, -1, table.SortByTimestamp, true)
	require.Len(t, rows, 2)
	assert.Equal(t, "newer", rows[0].Cells[3])
	assert.Equal(t, "older", rows[1].Cells[3])
}

func TestProject_ExpandSelectedRow(t *testing.T) {
	store := domain.NewHandshakeStore()
	ap, cl := mac("aa:bb:cc:dd:ee:ff"), mac("11:22:33:44:55:66")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Ingest(ap, cl, "test", fakeKey{rc: 1, ts: t0, keyType: domain.KeyTypeMessage1})
	require.NoError(t, err)

	_, rows := table.Project(store, 0, table.SortByTimestamp, true)
	require.Len(t, rows, 1)
	assert.Equal(t, 1+1+1, rows[0].Height)
	assert.True(t, strings.Contains(rows[0].Cells[0], "Relative"))
}

func TestProject_ExpandedRowCarriesPerMessageCheckMarks(t *testing.T) {
	store := domain.NewHandshakeStore()
	ap, cl := mac("aa:bb:cc:dd:ee:ff"), mac("11:22:33:44:55:66")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Ingest(ap, cl, "test", fakeKey{rc: 1, ts: t0, keyType: domain.KeyTypeMessage1})
	require.NoError(t, err)

	_, rows := table.Project(store, 0, table.SortByTimestamp, true)
	require.Len(t, rows, 1)

	// The M1 sub-row carries a check mark in the M1 column...
	assert.Contains(t, rows[0].Cells[4], "✅")
	// ...and a dash in the columns for message types it is not.
	assert.Contains(t, rows[0].Cells[5], "--")
	assert.Contains(t, rows[0].Cells[6], "--")
	assert.Contains(t, rows[0].Cells[7], "--")
	// MC reflects the (zero) MIC and PM the (absent) PMKID.
	assert.Contains(t, rows[0].Cells[8], "--")
	assert.Contains(t, rows[0].Cells[9], "--")
}

func TestProject_CollapsedRowHeightOne(t *testing.T) {
	store := domain.NewHandshakeStore()
	ap, cl := mac("aa:bb:cc:dd:ee:ff"), mac("11:22:33:44:55:66")
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Ingest(ap, cl, "test", fakeKey{rc: 1, ts: t0, keyType: domain.KeyTypeMessage1})
	require.NoError(t, err)

	_, rows := table.Project(store, -1, table.SortByTimestamp, true)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Height)
}
