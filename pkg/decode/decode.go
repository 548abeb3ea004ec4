// Package decode implements the packet decoder: datalink dispatch, L3
// (IPv4/IPv6) and L4 (TCP/UDP/ICMP) parsing down to a canonical flow
// tuple.
package decode

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/ndpid/ndpid-go/pkg/events"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagACK = 0x10
)

// Result is everything the flow layer needs from one decoded packet.
type Result struct {
	Tuple        capturetypes.Tuple
	L4Payload    []byte
	L4PayloadLen int
	IsSYN        bool
	IsFINACK     bool
	IsACK        bool
	ICMPType     byte
}

// Error pairs a decode failure with the basic event it must surface. Extra
// carries the same printf-style key/value tail the basic event itself
// reports on the wire, e.g. the observed ethertype or IP version.
type Error struct {
	Event capturetypes.BasicEventID
	Err   error
	Extra map[string]string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Event, e.Err) }

func fail(ev capturetypes.BasicEventID, format string, args ...interface{}) error {
	return &Error{Event: ev, Err: fmt.Errorf(format, args...)}
}

func failTail(ev capturetypes.BasicEventID, extra map[string]string, format string, args ...interface{}) error {
	return &Error{Event: ev, Err: fmt.Errorf(format, args...), Extra: extra}
}

// Decode runs the full L2->L3->L4 pipeline for one captured frame.
// originalLen is the on-wire length (may exceed len(data) if the capture
// was snapped); data is exactly the bytes captured, starting at the
// datalink header.
func Decode(dl Datalink, data []byte, originalLen int, locator dpi.Detector) (Result, error) {
	ipData, l3, err := decodeL2(dl, data)
	if err != nil {
		return Result{}, err
	}
	return decodeL3L4(l3, ipData, locator)
}

func decodeL2(dl Datalink, data []byte) ([]byte, capturetypes.L3Family, error) {
	switch dl {
	case DatalinkNull, DatalinkLoop:
		if len(data) < nullLoopIPoff {
			return nil, 0, fail(capturetypes.BasicEventEthernetPacketTooShort, "loopback header truncated: %d bytes", len(data))
		}
		family := binary.LittleEndian.Uint32(data[:4])
		if dl == DatalinkLoop {
			family = binary.BigEndian.Uint32(data[:4])
		}
		if family == 2 {
			return data[nullLoopIPoff:], capturetypes.L3IPv4, nil
		}
		return data[nullLoopIPoff:], capturetypes.L3IPv6, nil

	case DatalinkEN10MB:
		if len(data) < ethHeaderLen {
			return nil, 0, fail(capturetypes.BasicEventEthernetPacketTooShort, "ethernet frame truncated: %d bytes", len(data))
		}
		etherType := binary.BigEndian.Uint16(data[12:14])
		switch etherType {
		case ethTypeIPv4:
			return data[ethHeaderLen:], capturetypes.L3IPv4, nil
		case ethTypeIPv6:
			return data[ethHeaderLen:], capturetypes.L3IPv6, nil
		case ethTypeARP:
			// Silently dropped, not an error and not an event.
			return nil, 0, errSilentDrop
		default:
			tail := events.Tail("type", 'u', uint32(etherType))
			return nil, 0, failTail(capturetypes.BasicEventEthernetPacketUnknown, tail, "unhandled ethertype 0x%04x", etherType)
		}

	default:
		tail := events.Tail("datalink", 'u', uint32(dl))
		return nil, 0, failTail(capturetypes.BasicEventUnknownDatalinkLayer, tail, "unsupported datalink type %d", dl)
	}
}

// errSilentDrop signals a packet that must be dropped without emitting
// any basic event (currently: ARP over Ethernet).
var errSilentDrop = fmt.Errorf("silently dropped")

// IsSilentDrop reports whether err indicates a drop that must not surface
// a basic event (e.g. ARP).
func IsSilentDrop(err error) bool { return err == errSilentDrop }

func decodeL3L4(l3 capturetypes.L3Family, ipData []byte, locator dpi.Detector) (Result, error) {
	var res Result
	res.Tuple.L3 = l3

	switch l3 {
	case capturetypes.L3IPv4:
		if len(ipData) < ipv4.HeaderLen {
			return res, fail(capturetypes.BasicEventIP4PacketTooShort, "ipv4 header truncated: %d bytes", len(ipData))
		}
		version := ipData[0] >> 4
		ihl := int(ipData[0]&0x0f) * 4
		if version != 4 {
			tail := events.Tail("version", 'u', uint32(version))
			return res, failTail(capturetypes.BasicEventUnknownL3Protocol, tail, "unexpected ip version %d", version)
		}
		totalLen := int(binary.BigEndian.Uint16(ipData[2:4]))
		if totalLen < ipv4.HeaderLen || ihl < ipv4.HeaderLen {
			return res, fail(capturetypes.BasicEventIP4SizeSmallerThanHeader, "ip4 size %d smaller than header %d", totalLen, ihl)
		}
		if len(ipData) < ihl {
			return res, fail(capturetypes.BasicEventIP4SizeSmallerThanHeader, "captured %d bytes smaller than declared header %d", len(ipData), ihl)
		}

		src, _ := netip.AddrFromSlice(ipData[12:16])
		dst, _ := netip.AddrFromSlice(ipData[16:20])
		res.Tuple.SrcAddr, res.Tuple.DstAddr = src.Unmap(), dst.Unmap()

		proto, payload, ok := locator.LocateL4(l3, ipData)
		if !ok {
			return res, fail(capturetypes.BasicEventIP4L4PayloadDetectionFailed, "l4 locate failed")
		}
		res.Tuple.L4Proto = proto
		res.L4PayloadLen = len(payload)
		return decodeL4(res, proto, payload)

	case capturetypes.L3IPv6:
		if len(ipData) < ipv6.HeaderLen {
			return res, fail(capturetypes.BasicEventIP6PacketTooShort, "ipv6 header truncated: %d bytes", len(ipData))
		}
		version := ipData[0] >> 4
		if version != 6 {
			tail := events.Tail("version", 'u', uint32(version))
			return res, failTail(capturetypes.BasicEventUnknownL3Protocol, tail, "unexpected ip version %d", version)
		}
		payloadLen := int(binary.BigEndian.Uint16(ipData[4:6]))
		if ipv6.HeaderLen+payloadLen < ipv6.HeaderLen {
			return res, fail(capturetypes.BasicEventIP6SizeSmallerThanHeader, "ip6 payload length invalid: %d", payloadLen)
		}

		src, _ := netip.AddrFromSlice(ipData[8:24])
		dst, _ := netip.AddrFromSlice(ipData[24:40])
		res.Tuple.SrcAddr, res.Tuple.DstAddr = src, dst

		proto, payload, ok := locator.LocateL4(l3, ipData)
		if !ok {
			return res, fail(capturetypes.BasicEventIP6L4PayloadDetectionFailed, "l4 locate failed")
		}
		res.Tuple.L4Proto = proto
		res.L4PayloadLen = len(payload)
		return decodeL4(res, proto, payload)

	default:
		tail := events.Tail("family", 'u', uint32(l3))
		return res, failTail(capturetypes.BasicEventUnknownL3Protocol, tail, "neither ipv4 nor ipv6")
	}
}

func decodeL4(res Result, proto byte, payload []byte) (Result, error) {
	switch proto {
	case capturetypes.TCP:
		if len(payload) < 20 {
			return res, fail(capturetypes.BasicEventTCPPacketTooShort, "tcp header truncated: %d bytes", len(payload))
		}
		res.Tuple.SrcPort = binary.BigEndian.Uint16(payload[0:2])
		res.Tuple.DstPort = binary.BigEndian.Uint16(payload[2:4])
		flags := payload[13]
		res.IsSYN = flags&tcpFlagSYN != 0
		res.IsFINACK = flags&tcpFlagFIN != 0 && flags&tcpFlagACK != 0
		res.IsACK = flags&tcpFlagACK != 0
		dataOffset := int(payload[12]>>4) * 4
		if dataOffset > len(payload) {
			dataOffset = len(payload)
		}
		res.L4PayloadLen = len(payload) - dataOffset
		res.L4Payload = payload[dataOffset:]
		return res, nil

	case capturetypes.UDP:
		if len(payload) < 8 {
			return res, fail(capturetypes.BasicEventUDPPacketTooShort, "udp header truncated: %d bytes", len(payload))
		}
		res.Tuple.SrcPort = binary.BigEndian.Uint16(payload[0:2])
		res.Tuple.DstPort = binary.BigEndian.Uint16(payload[2:4])
		res.L4PayloadLen = len(payload) - 8
		res.L4Payload = payload[8:]
		return res, nil

	case capturetypes.ICMP, capturetypes.ICMPv6:
		if len(payload) > 0 {
			res.ICMPType = payload[0]
		}
		res.L4Payload = payload
		return res, nil

	default:
		// Other L4 protocols (ESP, GRE, ...): ports remain 0, payload
		// length is whatever LocateL4 reported.
		res.L4Payload = payload
		return res, nil
	}
}
