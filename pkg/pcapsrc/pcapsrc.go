// Package pcapsrc wraps the capture library (fako1024/gopacket/pcap) and
// exposes packets as a datalink type, per-packet timestamps,
// captured/original lengths, and a byte buffer, for both live interfaces
// and offline capture files.
package pcapsrc

import (
	"fmt"
	"time"

	"github.com/fako1024/gopacket/layers"
	"github.com/fako1024/gopacket/pcap"

	"github.com/ndpid/ndpid-go/pkg/decode"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
)

// Packet is one captured frame as handed to the decoder.
type Packet struct {
	Timestamp   time.Time
	CapturedLen int
	OriginalLen int
	Data        []byte
}

// Stats mirrors the capture library's interface/kernel drop counters.
type Stats struct {
	PacketsReceived  uint64
	PacketsDropped   uint64
	PacketsIfDropped uint64
}

// Source is a live interface or offline capture file.
type Source struct {
	handle *pcap.Handle
}

const (
	defaultSnapLen = 65535
	defaultBufSize = 2 * 1024 * 1024
)

// OpenLive starts a live capture on iface.
func OpenLive(iface string, promisc bool) (*Source, error) {
	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, fmt.Errorf("pcapsrc: inactive handle for %q: %w", iface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(defaultSnapLen); err != nil {
		return nil, err
	}
	if err := inactive.SetPromisc(promisc); err != nil {
		return nil, err
	}
	if err := inactive.SetTimeout(ndpiconst.LiveReadTimeout); err != nil {
		return nil, err
	}
	if err := inactive.SetBufferSize(defaultBufSize); err != nil {
		return nil, err
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("pcapsrc: activate %q: %w", iface, err)
	}
	return &Source{handle: handle}, nil
}

// OpenOffline replays a capture file instead of a live interface.
func OpenOffline(path string) (*Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("pcapsrc: open offline %q: %w", path, err)
	}
	return &Source{handle: handle}, nil
}

// Datalink translates the capture library's link type into decode.Datalink.
func (s *Source) Datalink() decode.Datalink {
	switch s.handle.LinkType() {
	case layers.LinkTypeNull:
		return decode.DatalinkNull
	case layers.LinkTypeLoop:
		return decode.DatalinkLoop
	case layers.LinkTypeEthernet:
		return decode.DatalinkEN10MB
	default:
		return decode.DatalinkOther
	}
}

// Next blocks (up to the capture library's internal read timeout) for the
// next frame. io.EOF is returned once an offline file is exhausted.
func (s *Source) Next() (Packet, error) {
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	if err != nil {
		return Packet{}, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Packet{
		Timestamp:   ci.Timestamp,
		CapturedLen: ci.CaptureLength,
		OriginalLen: ci.Length,
		Data:        buf,
	}, nil
}

// Stats reports the underlying handle's receive/drop counters.
func (s *Source) Stats() (Stats, error) {
	st, err := s.handle.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		PacketsReceived:  uint64(st.PacketsReceived),
		PacketsDropped:   uint64(st.PacketsDropped),
		PacketsIfDropped: uint64(st.PacketsIfDropped),
	}, nil
}

// Close releases the underlying handle.
func (s *Source) Close() {
	if s.handle != nil {
		s.handle.Close()
	}
}

// BreakLoop requests that a blocked Next call return promptly. Mirrors
// the original's break_pcap_loop; here it simply closes the handle,
// which unblocks ZeroCopyReadPacketData with an error.
func (s *Source) BreakLoop() {
	s.Close()
}
