package capturetypes

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTupleReversedSwapsAddressesAndPorts(t *testing.T) {
	tup := Tuple{
		L3:      L3IPv4,
		L4Proto: TCP,
		SrcAddr: netip.MustParseAddr("10.0.0.1"),
		DstAddr: netip.MustParseAddr("10.0.0.2"),
		SrcPort: 1234,
		DstPort: 443,
	}

	r := tup.Reversed()
	assert.Equal(t, tup.SrcAddr, r.DstAddr)
	assert.Equal(t, tup.DstAddr, r.SrcAddr)
	assert.Equal(t, tup.SrcPort, r.DstPort)
	assert.Equal(t, tup.DstPort, r.SrcPort)

	// the original is untouched
	assert.Equal(t, uint16(1234), tup.SrcPort)
}

func TestTupleLessOrdersByProtocolThenAddressThenPort(t *testing.T) {
	a := Tuple{L4Proto: TCP, SrcAddr: netip.MustParseAddr("10.0.0.1"), DstAddr: netip.MustParseAddr("10.0.0.2"), SrcPort: 1, DstPort: 2}
	b := Tuple{L4Proto: UDP, SrcAddr: netip.MustParseAddr("10.0.0.1"), DstAddr: netip.MustParseAddr("10.0.0.2"), SrcPort: 1, DstPort: 2}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	c := a
	c.DstPort = 3
	assert.True(t, a.Less(c))
}

func TestL3FamilyString(t *testing.T) {
	assert.Equal(t, "ip4", L3IPv4.String())
	assert.Equal(t, "ip6", L3IPv6.String())
	assert.Equal(t, "unknown", L3Unknown.String())
}

func TestL4ProtoNameKnownAndFallback(t *testing.T) {
	assert.Equal(t, "tcp", L4ProtoName(TCP))
	assert.Equal(t, "udp", L4ProtoName(UDP))
	assert.Equal(t, "icmp", L4ProtoName(ICMP))
	assert.Equal(t, "icmp6", L4ProtoName(ICMPv6))
	assert.Equal(t, "47", L4ProtoName(47))
}
