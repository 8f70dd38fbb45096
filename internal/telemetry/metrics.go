package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsCaptured counts frames handed to the frame router.
	PacketsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fourway22000",
			Name:      "packets_captured_total",
			Help:      "Total number of 802.11 frames handed to the frame router",
		},
	)

	// HandshakesIngested counts successful HandshakeStore.Ingest calls
	// where the key was accepted into some record's slot.
	HandshakesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fourway22000",
			Name:      "handshakes_ingested_total",
			Help:      "Total number of EAPOL-Key frames accepted into a handshake record slot",
		},
	)

	// HandshakesCompleted counts handshake records that transitioned to
	// Complete() == true.
	HandshakesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fourway22000",
			Name:      "handshakes_completed_total",
			Help:      "Total number of handshake records that became complete (exportable as a WPA*02 line)",
		},
	)

	// HandshakesRejected counts AddKey failures by the sentinel error's
	// ErrorKind, labeled with the reason string.
	HandshakesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fourway22000",
			Name:      "handshakes_rejected_total",
			Help:      "Total number of EAPOL-Key frames rejected by a handshake record, by reason",
		},
		[]string{"reason"},
	)

	// PMKIDsCaptured counts message 1 frames carrying a usable PMKID.
	PMKIDsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fourway22000",
			Name:      "pmkids_captured_total",
			Help:      "Total number of message 1 frames observed carrying a PMKID",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is idempotent and safe to call multiple times.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(PacketsCaptured)
		prometheus.DefaultRegisterer.Register(HandshakesIngested)
		prometheus.DefaultRegisterer.Register(HandshakesCompleted)
		prometheus.DefaultRegisterer.Register(HandshakesRejected)
		prometheus.DefaultRegisterer.Register(PMKIDsCaptured)
	})
}
