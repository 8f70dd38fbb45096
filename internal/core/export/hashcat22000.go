// Package export serializes completed handshake records into the
// hashcat 22000 line format (WPA*01 PMKID lines and WPA*02 full-EAPOL
// lines). It performs no cryptography — it only formats material the
// handshake engine already extracted.
package export

import (
	"encoding/hex"
	"strings"

	"github.com/rook-sec/fourway22000/internal/core/domain"
)

const (
	flagApless  = 0x10
	flagNC      = 0x80
	flagLEndian = 0x20
	flagBEndian = 0x40

	basicM2M3 = 0x02
	basicM1M2 = 0x00
	basicM1M4 = 0x01
	basicM3M4 = 0x05
)

// MessagePairByte computes the single flags-plus-basic-code byte
// described by the hashcat 22000 format for rec's current state.
func MessagePairByte(rec *domain.HandshakeRecord) byte {
	var b byte
	if rec.Apless {
		b |= flagApless
	}
	if rec.NC {
		b |= flagNC
	}
	if rec.LEndian {
		b |= flagLEndian
	}
	if rec.BEndian {
		b |= flagBEndian
	}

	switch {
	case rec.Msg2 != nil && rec.Msg3 != nil:
		b |= basicM2M3
	case rec.Msg1 != nil && rec.Msg2 != nil:
		b |= basicM1M2
	case rec.Msg1 != nil && rec.Msg4 != nil:
		b |= basicM1M4
	case rec.Msg3 != nil && rec.Msg4 != nil:
		b |= basicM3M4
	default:
		b |= basicM1M2 // 0x00, the otherwise case
	}
	return b
}

// pmkidLine renders the WPA*01 line, or "" if rec is not eligible.
func pmkidLine(rec *domain.HandshakeRecord) (string, bool) {
	if rec.PMKID == nil || rec.MacAP == nil || rec.MacClient == nil || rec.ESSID == nil {
		return "", false
	}
	mp := MessagePairByte(rec)
	line := strings.Join([]string{
		"WPA*01",
		hex.EncodeToString(rec.PMKID[:]),
		rec.MacAP.String(),
		rec.MacClient.String(),
		hex.EncodeToString([]byte(*rec.ESSID)),
		"",
		"",
		hex.EncodeToString([]byte{mp}),
	}, "*")
	return line, true
}

// eapolLine renders the WPA*02 line, or "" if rec is not complete.
func eapolLine(rec *domain.HandshakeRecord) (string, bool) {
	if !rec.Complete() {
		return "", false
	}
	mp := MessagePairByte(rec)
	line := strings.Join([]string{
		"WPA*02",
		hex.EncodeToString(rec.MIC[:]),
		rec.MacAP.String(),
		rec.MacClient.String(),
		hex.EncodeToString([]byte(*rec.ESSID)),
		hex.EncodeToString(rec.ANonce[:]),
		hex.EncodeToString(rec.EapolClient),
		hex.EncodeToString([]byte{mp}),
	}, "*")
	return line, true
}

// Export22000 serializes rec into zero, one, or two hashcat 22000 lines.
// When both a PMKID and an EAPOL line are eligible, the PMKID line comes
// first, separated by a single newline; when only one is eligible, no
// trailing newline is added; when neither is eligible, ok is false.
func Export22000(rec *domain.HandshakeRecord) (out string, ok bool) {
	pLine, pOK := pmkidLine(rec)
	eLine, eOK := eapolLine(rec)

	switch {
	case pOK && eOK:
		return pLine + "\n" + eLine, true
	case pOK:
		return pLine, true
	case eOK:
		return eLine, true
	default:
		return "", false
	}
}
