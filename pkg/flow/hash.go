package flow

import (
	"encoding/binary"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/zeebo/xxh3"
)

// primaryHash is xxh3.Hash by default; overridable in tests to exercise
// the recover/FallbackHash path below without depending on xxh3 ever
// actually panicking.
var primaryHash = xxh3.Hash

// Hash computes the 64-bit flow hash for a tuple: the DPI collaborator's
// canonical hash in the original system, approximated here with xxh3 over
// the tuple's byte representation, mixed with protocol and ports. Falls
// back to FallbackHash if the hash library panics.
func Hash(t capturetypes.Tuple) (h uint64) {
	defer func() {
		if recover() != nil {
			h = FallbackHash(t)
		}
	}()
	return mix(primaryHash(tupleBytes(t)), t)
}

// FallbackHash is used when the primary hash library is unavailable; it
// sums the address words instead of hashing them.
func FallbackHash(t capturetypes.Tuple) uint64 {
	var sum uint64
	for _, b := range t.SrcAddr.AsSlice() {
		sum += uint64(b)
	}
	for _, b := range t.DstAddr.AsSlice() {
		sum += uint64(b)
	}
	return mix(sum, t)
}

func mix(h uint64, t capturetypes.Tuple) uint64 {
	return h + uint64(t.L4Proto) + uint64(t.SrcPort) + uint64(t.DstPort)
}

func tupleBytes(t capturetypes.Tuple) []byte {
	src := t.SrcAddr.AsSlice()
	dst := t.DstAddr.AsSlice()
	buf := make([]byte, 0, 1+len(src)+len(dst)+4)
	buf = append(buf, t.L4Proto)
	buf = append(buf, src...)
	buf = append(buf, dst...)
	var ports [4]byte
	binary.BigEndian.PutUint16(ports[0:2], t.SrcPort)
	binary.BigEndian.PutUint16(ports[2:4], t.DstPort)
	return append(buf, ports[:]...)
}
