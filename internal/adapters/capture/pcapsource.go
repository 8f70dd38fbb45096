package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

// PcapSource replays a previously captured .pcap/.pcapng file of 802.11
// frames through a FrameRouter. It performs no live capture and no
// monitor-mode setup — both are out of scope per the core's external
// collaborators.
type PcapSource struct {
	router *FrameRouter
	log    *slog.Logger
}

// NewPcapSource returns a source that routes decoded frames into router.
func NewPcapSource(router *FrameRouter, log *slog.Logger) *PcapSource {
	if log == nil {
		log = slog.Default()
	}
	return &PcapSource{router: router, log: log}
}

// Replay reads every packet in path and feeds it to the router,
// returning the number of frames the router handled without error. Only
// a failure to open the file or read its header is returned as an error;
// the packet loop ends when the packet source closes its channel, and
// read errors met partway through are not returned. Per-frame routing
// errors are logged and do not abort the replay.
func (s *PcapSource) Replay(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pcap %q: %w", path, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("read pcap header %q: %w", path, err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	count := 0
	for packet := range source.Packets() {
		if err := packet.ErrorLayer(); err != nil {
			s.log.Debug("skipping undecodable packet", "error", err.Error())
			continue
		}
		if err := s.router.ProcessPacket(packet); err != nil {
			s.log.Debug("frame rejected", "error", err.Error())
			continue
		}
		count++
	}
	return count, nil
}

// ReplayNG reads a pcapng-format file. The format is auto-detected by
// pcapgo.NewReader for classic pcap; pcapng requires its own reader type.
func (s *PcapSource) ReplayNG(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pcapng %q: %w", path, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return 0, fmt.Errorf("read pcapng header %q: %w", path, err)
	}

	count := 0
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read pcapng packet: %w", err)
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		packet.Metadata().CaptureInfo = ci
		if err := s.router.ProcessPacket(packet); err != nil {
			s.log.Debug("frame rejected", "error", err.Error())
			continue
		}
		count++
	}
	return count, nil
}
