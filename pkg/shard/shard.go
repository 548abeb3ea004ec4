// Package shard computes which worker owns a packet (thread routing) and
// which shard within a worker's flow table owns a flow (hash bucketing).
package shard

import (
	"encoding/binary"
	"net/netip"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
)

// ThreadIndex computes the worker that owns tuple, out of nWorkers
// readers. For IPv4 it is symmetric under address/port swap: every term is
// built from min()/max() of the two endpoints, never from which side is
// "source". The IPv6 term is not a true min() (see below) and is symmetric
// only for some address pairs.
func ThreadIndex(t capturetypes.Tuple, nWorkers int) int {
	seed := ndpiconst.InitialThreadHash

	switch t.L3 {
	case capturetypes.L3IPv4:
		src := ipv4Word(t.SrcAddr)
		dst := ipv4Word(t.DstAddr)
		minAddr := dst
		if src < dst {
			minAddr = src
		}
		seed += minAddr + uint32(t.L4Proto)

	case capturetypes.L3IPv6:
		srcHi, srcLo := ipv6Halves(t.SrcAddr)
		dstHi, dstLo := ipv6Halves(t.DstAddr)
		// min_addr[1] is assigned the same value as min_addr[0] in both
		// branches (a copy-paste of src[0]/dst[0] where src[1]/dst[1] was
		// meant), and the branch condition AND's the high and low halves
		// instead of doing a full lexicographic compare. Preserved
		// bit-for-bit rather than "fixed". Both directions of a flow reach
		// the same worker when the high halves are equal or when both
		// halves order the two addresses the same way; otherwise each
		// direction keeps its own source's high half and the two
		// directions can be routed to different workers.
		var chosenHi uint64
		if srcHi > dstHi && srcLo > dstLo {
			chosenHi = dstHi
		} else {
			chosenHi = srcHi
		}
		seed += uint32(chosenHi) + uint32(chosenHi) + uint32(t.L4Proto)

	default:
		// Unknown family: still produce a deterministic, symmetric value.
	}

	if t.SrcPort > t.DstPort {
		seed += uint32(t.SrcPort)
	} else {
		seed += uint32(t.DstPort)
	}

	if nWorkers <= 0 {
		return 0
	}
	return int(seed % uint32(nWorkers))
}

func ipv4Word(addr netip.Addr) uint32 {
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ipv6Halves splits a 128-bit address into its two 64-bit halves, mirroring
// u6_addr64[0] / u6_addr64[1] in the original implementation.
func ipv6Halves(addr netip.Addr) (hi, lo uint64) {
	b := addr.As16()
	return binary.BigEndian.Uint64(b[0:8]), binary.BigEndian.Uint64(b[8:16])
}

// Index selects the shard root within a worker's flow table for a given
// flow hash: hashval mod max_active_flows.
func Index(hashval uint64) int {
	return int(hashval % uint64(ndpiconst.MaxFlowRootsPerThread))
}
