package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/rook-sec/fourway22000/internal/adapters/capture/ie"
	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/telemetry"
)

// FrameRouter dissects 802.11 frames far enough to resolve the AP MAC,
// client MAC, and ESSID an EAPOL-Key frame belongs to, then hands the
// frame to a HandshakeStore as a domain.EapolKey. It owns no handshake
// state of its own — that lives entirely in the store.
type FrameRouter struct {
	store *domain.HandshakeStore

	mu           sync.RWMutex
	bssidToEssid map[domain.MacAddress]string
}

// NewFrameRouter returns a router that feeds store.
func NewFrameRouter(store *domain.HandshakeStore) *FrameRouter {
	return &FrameRouter{
		store:        store,
		bssidToEssid: make(map[domain.MacAddress]string),
	}
}

// ProcessPacket inspects a single captured packet. Beacon frames update
// the BSSID→ESSID cache; EAPOL-Key frames are resolved to (ap, client)
// and ingested into the store. Non-matching frames are silently
// ignored, mirroring the "frames that fail lower-layer parsing never
// reach the core" contract.
func (r *FrameRouter) ProcessPacket(packet gopacket.Packet) error {
	telemetry.PacketsCaptured.Inc()

	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return nil
	}
	dot11, ok := dot11Layer.(*layers.Dot11)
	if !ok {
		return nil
	}

	if dot11.Type == layers.Dot11TypeMgmtBeacon {
		r.learnESSID(packet, dot11)
		return nil
	}

	if packet.Layer(layers.LayerTypeEAPOL) == nil {
		return nil
	}
	return r.routeEAPOL(packet, dot11)
}

func (r *FrameRouter) learnESSID(packet gopacket.Packet, dot11 *layers.Dot11) {
	beaconLayer := packet.Layer(layers.LayerTypeDot11MgmtBeacon)
	if beaconLayer == nil {
		return
	}
	essid := ie.ParseSSID(beaconLayer.LayerPayload())
	if essid == "" || essid == "<HIDDEN>" {
		return
	}
	bssid, err := domain.MacFromBytes(dot11.Address3)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.bssidToEssid[bssid] = essid
	r.mu.Unlock()
}

func (r *FrameRouter) essidFor(bssid domain.MacAddress) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bssidToEssid[bssid]
}

// routeEAPOL resolves the AP/client MAC pair from the 802.11 DS flags,
// exactly as a capture stack must: EAPOL frames are Data frames, and
// which address field holds the AP vs. the station depends on the
// To-DS/From-DS bits.
func (r *FrameRouter) routeEAPOL(packet gopacket.Packet, dot11 *layers.Dot11) error {
	var bssidBytes, stationBytes []byte
	toDS := dot11.Flags.ToDS()
	fromDS := dot11.Flags.FromDS()

	switch {
	case !toDS && !fromDS:
		// AdHoc / IBSS: Address3 carries the BSSID.
		bssidBytes = dot11.Address3
		if dot11.Address2.String() == dot11.Address3.String() {
			stationBytes = dot11.Address1
		} else {
			stationBytes = dot11.Address2
		}
	case !toDS && fromDS:
		// AP -> station: RA=Addr1 (station), TA=Addr2 (BSSID).
		bssidBytes = dot11.Address2
		stationBytes = dot11.Address1
	case toDS && !fromDS:
		// Station -> AP: RA=Addr1 (BSSID), TA=Addr2 (station).
		bssidBytes = dot11.Address1
		stationBytes = dot11.Address2
	default:
		// WDS (ToDS && FromDS): both addresses are APs, not a station
		// association this engine tracks.
		return nil
	}

	apMAC, err := domain.MacFromBytes(bssidBytes)
	if err != nil {
		return fmt.Errorf("route eapol: ap mac: %w", err)
	}
	clientMAC, err := domain.MacFromBytes(stationBytes)
	if err != nil {
		return fmt.Errorf("route eapol: client mac: %w", err)
	}

	frame, err := ParseEAPOLKey(packet)
	if err != nil {
		return nil // not a key frame we can parse; not an error condition
	}

	ts := packetTimestamp(packet)
	key := NewEapolKeyView(frame, ts)

	if _, ok := key.PMKID(); ok {
		telemetry.PMKIDsCaptured.Inc()
	}

	wasComplete := make(map[*domain.HandshakeRecord]bool)
	for _, b := range r.store.Bucket(apMAC, clientMAC) {
		wasComplete[b] = b.Complete()
	}

	rec, err := r.store.Ingest(apMAC, clientMAC, r.essidFor(apMAC), key)
	if err != nil {
		reason := "unknown"
		if he, ok := domain.AsHandshakeError(err); ok {
			reason = he.Kind.String()
		}
		telemetry.HandshakesRejected.WithLabelValues(reason).Inc()
		return err
	}
	telemetry.HandshakesIngested.Inc()
	if rec.Complete() && !wasComplete[rec] {
		telemetry.HandshakesCompleted.Inc()
	}
	return nil
}

func packetTimestamp(packet gopacket.Packet) time.Time {
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		return meta.Timestamp
	}
	return time.Now()
}
