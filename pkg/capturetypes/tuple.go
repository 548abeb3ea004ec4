// Package capturetypes holds the shared, dependency-free types that flow
// between the decode, shard, flow and events packages: the canonical
//5-tuple, L3/L4 protocol enums and the basic-event catalog.
package capturetypes

import (
	"net/netip"
	"strconv"
)

// L3Family enumerates the supported network layer families.
type L3Family byte

const (
	// L3Unknown denotes a packet for which no IP family could be determined.
	L3Unknown L3Family = iota
	// L3IPv4 marks a tuple as IPv4.
	L3IPv4
	// L3IPv6 marks a tuple as IPv6.
	L3IPv6
)

// String renders the family the way it appears in emitted JSON (l3_proto).
func (f L3Family) String() string {
	switch f {
	case L3IPv4:
		return "ip4"
	case L3IPv6:
		return "ip6"
	default:
		return "unknown"
	}
}

// Enumeration of the IP protocol numbers this analyzer distinguishes.
const (
	ICMP   = 0x01
	TCP    = 0x06
	UDP    = 0x11
	ICMPv6 = 0x3A
)

// L4ProtoName returns the textual protocol name used in flow events
// (l4_proto), falling back to the decimal protocol number.
func L4ProtoName(proto byte) string {
	switch proto {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case ICMP:
		return "icmp"
	case ICMPv6:
		return "icmp6"
	default:
		return strconv.Itoa(int(proto))
	}
}

// Tuple is the canonical flow identity: (L3 family, L4 protocol, src/dst
// address, src/dst port). Ports are 0 for non-port protocols.
type Tuple struct {
	L3       L3Family
	L4Proto  byte
	SrcAddr  netip.Addr
	DstAddr  netip.Addr
	SrcPort  uint16
	DstPort  uint16
}

// Reversed returns the tuple with source and destination swapped. The
// stored, authoritative tuple is never mutated by a reversed lookup; only
// the lookup key is.
func (t Tuple) Reversed() Tuple {
	r := t
	r.SrcAddr, r.DstAddr = t.DstAddr, t.SrcAddr
	r.SrcPort, r.DstPort = t.DstPort, t.SrcPort
	return r
}

// Less implements the total order over (hashval, l4Protocol, tuple) used
// by the per-shard ordered container. hashval is supplied by the caller
// (pkg/flow) since it is not part of the tuple itself.
func (t Tuple) Less(o Tuple) bool {
	if t.L4Proto != o.L4Proto {
		return t.L4Proto < o.L4Proto
	}
	if c := t.SrcAddr.Compare(o.SrcAddr); c != 0 {
		return c < 0
	}
	if c := t.DstAddr.Compare(o.DstAddr); c != 0 {
		return c < 0
	}
	if t.SrcPort != o.SrcPort {
		return t.SrcPort < o.SrcPort
	}
	return t.DstPort < o.DstPort
}
