// Package b64 implements the fixed-buffer base64 encoding used for the
// pkt field of packet events.
package b64

import "encoding/base64"

// EncodedLen returns the base64-encoded length of n raw bytes under the
// standard RFC 4648 alphabet.
func EncodedLen(n int) int {
	return base64.StdEncoding.EncodedLen(n)
}

// EncodeInto encodes src into dst using the standard alphabet. It returns
// ok=false without writing anything if dst is too small, the contract
// that upstream turns into pkt_oversize=true and an omitted pkt field.
func EncodeInto(dst, src []byte) (n int, ok bool) {
	need := EncodedLen(len(src))
	if len(dst) < need {
		return 0, false
	}
	base64.StdEncoding.Encode(dst, src)
	return need, true
}

// Encode base64-encodes src into a freshly allocated buffer, bounded to
// maxOutLen bytes. ok=false (with a nil result) models the encoder's
// "insufficient buffer" failure, which callers must treat as
// pkt_oversize.
func Encode(src []byte, maxOutLen int) (out []byte, ok bool) {
	need := EncodedLen(len(src))
	if need > maxOutLen {
		return nil, false
	}
	out = make([]byte, need)
	base64.StdEncoding.Encode(out, src)
	return out, true
}
