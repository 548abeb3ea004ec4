// Package dpi models the DPI collaborator as an external, opaque
// library: per-flow detection state plus Feed/GiveUp/LocateL4
// operations and a JSON projection of whatever protocol pair was
// detected. This package supplies the interface the rest of the pipeline
// programs against, plus a small heuristic Detector good enough to drive
// the pipeline end-to-end without a real nDPI binding.
package dpi

import "github.com/ndpid/ndpid-go/pkg/capturetypes"

// Protocol is a (master, app) protocol pair, mirroring nDPI's
// master_protocol/app_protocol split (e.g. master=TLS, app=HTTP/2-over-TLS
// would both be populated; for most flows app==master).
type Protocol struct {
	Master string `json:"master_protocol"`
	App    string `json:"app_protocol"`
}

// Unknown reports whether neither half of the pair was identified.
func (p Protocol) Unknown() bool {
	return p.Master == "" && p.App == ""
}

// FlowState is the opaque per-flow DPI handle. Callers must not inspect
// its fields; they exist to give Detector implementations somewhere to
// keep state across Feed calls for a given flow.
type FlowState interface {
	// NumProcessedPackets returns how many packets have been fed to this
	// flow's detection state so far (used by the worker to implement the
	// 0xFF/0xFE saturation thresholds).
	NumProcessedPackets() int
}

// EndpointState is the opaque per-endpoint ("ndpi_id") DPI handle.
type EndpointState interface{}

// Detector is the external collaborator boundary. Implementations may be
// backed by a real DPI engine; the default implementation in this package
// is a lightweight port/heuristic classifier.
type Detector interface {
	// NewFlowState allocates per-flow detection state. A nil, non-nil-error
	// return models the collaborator's allocation failure.
	NewFlowState() (FlowState, error)

	// NewEndpointState allocates per-endpoint detection state.
	NewEndpointState() (EndpointState, error)

	// LocateL4 extracts the L4 protocol number and the L4 payload slice
	// from an IP payload. ok=false models "L4 payload detection failed".
	LocateL4(l3 capturetypes.L3Family, ipPayload []byte) (proto byte, payload []byte, ok bool)

	// Feed processes one packet's L4 payload against the flow's detection
	// state, returning the protocol pair once detection completes (both
	// fields are empty until then). src/dst select which endpoint state
	// represents which side, honoring direction_changed.
	Feed(flow FlowState, src, dst EndpointState, tuple capturetypes.Tuple, l4Payload []byte) Protocol

	// GiveUp is called once a flow's packet budget is exhausted without a
	// completed detection; it returns a best-effort guess (possibly
	// Unknown()).
	GiveUp(flow FlowState) Protocol

	// Release frees any resources associated with flow/src/dst. Safe to
	// call with nil arguments.
	Release(flow FlowState, src, dst EndpointState)
}
