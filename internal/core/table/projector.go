// Package table projects a HandshakeStore into the headers/rows shape a
// terminal UI renders: one summary row per handshake record, with an
// optional drill-down expansion into a selected row's per-message detail.
package table

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rook-sec/fourway22000/internal/core/domain"
)

const (
	colTimestamp = iota
	colAPMAC
	colClientMAC
	colSSID
	colM1
	colM2
	colM3
	colM4
	colMC
	colPM
	colRD
	numCols
)

const (
	checkMark = "✅"
	dash      = "--"
)

// SortMode selects the ordering project_table uses. Only SortByTimestamp
// is currently honored; other values are accepted for forward
// compatibility with the upstream API but behave identically to it — see
// DESIGN.md for why sort/sortReverse are treated as reserved.
type SortMode int

const (
	SortByTimestamp SortMode = iota
)

// Row is one rendered table row: 11 cells, always, plus the row's total
// height (1 for a collapsed row, 1+1+N for a row expanded with N
// collected messages).
type Row struct {
	Cells  [numCols]string
	Height int
}

// Headers returns the 11 column headers, in display order.
func Headers() [numCols]string {
	return [numCols]string{
		"Timestamp", "AP MAC", "Client MAC", "SSID",
		"M1", "M2", "M3", "M4",
		"MC", "PM", "RD",
	}
}

// Project reduces store to a headers/rows pair. selected is the index
// (within the returned, sorted row slice) of the row to expand with
// drill-down detail; pass -1 for no selection.
func Project(store *domain.HandshakeStore, selected int, sort_ SortMode, sortReverse bool) ([numCols]string, []Row) {
	records := store.Records()
	orderRecords(records)

	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = summaryRow(rec)
		if i == selected {
			expand(&rows[i], rec)
		}
	}
	return Headers(), rows
}

// orderRecords sorts by last_msg.timestamp descending, per spec.md §9:
// the reviewed source always sorts this way regardless of the
// sort/sort_reverse parameters.
func orderRecords(records []*domain.HandshakeRecord) {
	sort.Slice(records, func(i, j int) bool {
		return lastTimestamp(records[i]).After(lastTimestamp(records[j]))
	})
}

func lastTimestamp(rec *domain.HandshakeRecord) time.Time {
	if rec.LastMsg == nil {
		return time.Time{}
	}
	return rec.LastMsg.Timestamp()
}

func summaryRow(rec *domain.HandshakeRecord) Row {
	var cells [numCols]string

	if rec.LastMsg != nil {
		cells[colTimestamp] = rec.LastMsg.Timestamp().UTC().Format(time.RFC3339Nano)
	} else {
		cells[colTimestamp] = dash
	}
	cells[colAPMAC] = macCell(rec.MacAP)
	cells[colClientMAC] = macCell(rec.MacClient)
	cells[colSSID] = essidCell(rec.ESSID)
	cells[colM1] = markCell(rec.Msg1 != nil)
	cells[colM2] = markCell(rec.Msg2 != nil)
	cells[colM3] = markCell(rec.Msg3 != nil)
	cells[colM4] = markCell(rec.Msg4 != nil)
	cells[colMC] = markCell(rec.MIC != nil)
	cells[colPM] = markCell(rec.HasPMKID())
	cells[colRD] = markCell(rec.Complete())

	return Row{Cells: cells, Height: 1}
}

func macCell(m *domain.MacAddress) string {
	if m == nil {
		return dash
	}
	return m.String()
}

func essidCell(s *string) string {
	if s == nil {
		return dash
	}
	return *s
}

func markCell(present bool) string {
	if present {
		return checkMark
	}
	return dash
}

// expand appends the drill-down header sub-row and one message sub-row
// per collected EAPOL key to row, in the column the spec associates each
// label with: Relative stacks into Timestamp, MIC into MC, ReplayCounter
// into the message's own M1..M4 column, and the nonce trail into PM.
// Per spec.md §4.4, every sub-row also carries a per-column check mark in
// M1..M4 (which message type this was), MC (non-zero MIC), and PM (has
// PMKID) alongside its label, mirroring the summary row's own marks.
func expand(row *Row, rec *domain.HandshakeRecord) {
	keys := rec.EapolKeys()
	if len(keys) == 0 {
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Key.Timestamp().Before(keys[j].Key.Timestamp())
	})
	first := keys[0].Key.Timestamp()

	row.Cells[colTimestamp] += "\nRelative"
	row.Cells[colMC] += "\nMIC"
	row.Cells[colPM] += "\nNOnce Trail"
	for _, col := range []int{colM1, colM2, colM3, colM4} {
		row.Cells[col] += "\nReplayCounter"
	}

	for i, sk := range keys {
		prefix := "├" // ├
		if i == len(keys)-1 {
			prefix = "└" // └
		}

		relMs := sk.Key.Timestamp().Sub(first).Round(time.Millisecond).Milliseconds()
		mic := sk.Key.KeyMIC()
		nonce := sk.Key.KeyNonce()
		trail := nonce[len(nonce)-2:]
		_, hasPMKID := sk.Key.PMKID()

		row.Cells[colTimestamp] += fmt.Sprintf("\n%s %sms", prefix, strconv.FormatInt(relMs, 10))
		row.Cells[colMC] += fmt.Sprintf("\n%s %s %s", prefix, markCell(mic != [16]byte{}), hex.EncodeToString(mic[:]))
		row.Cells[colPM] += fmt.Sprintf("\n%s %s [%s]", prefix, markCell(hasPMKID), hex.EncodeToString(trail))

		for _, col := range []int{colM1, colM2, colM3, colM4} {
			if slotColumn(sk.Slot) == col {
				row.Cells[col] += fmt.Sprintf("\n%s %s %d", prefix, checkMark, sk.Key.ReplayCounter())
			} else {
				row.Cells[col] += fmt.Sprintf("\n%s %s", prefix, dash)
			}
		}
	}

	row.Height = 1 + 1 + len(keys)
}

func slotColumn(slot int) int {
	switch slot {
	case 1:
		return colM1
	case 2:
		return colM2
	case 3:
		return colM3
	case 4:
		return colM4
	default:
		return -1
	}
}
