package flow

import (
	"sync/atomic"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/dpi"
)

// globalFlowID is the single process-wide atomic counter backing flow_id.
var globalFlowID atomic.Uint32

// NextFlowID hands out the next globally unique flow_id.
func NextFlowID() uint32 {
	return globalFlowID.Add(1)
}

// Key is the ordering key for a shard's container: (hashval, l4_protocol,
// tuple). Entries are compared first by hash, then protocol, then the
// tuple's own canonical order.
type Key struct {
	Hashval uint64
	Tuple   capturetypes.Tuple
}

// Less implements the total order required by the ordered container.
func Less(a, b Key) bool {
	if a.Hashval != b.Hashval {
		return a.Hashval < b.Hashval
	}
	if a.Tuple.L4Proto != b.Tuple.L4Proto {
		return a.Tuple.L4Proto < b.Tuple.L4Proto
	}
	return a.Tuple.Less(b.Tuple)
}

// Entry is one flow table row: identity, counters, timestamps, TCP state
// and DPI state.
type Entry struct {
	Key Key

	FlowID uint32

	PacketsProcessed int64
	TotalL4DataLen   int64
	MinL4DataLen     int64
	MaxL4DataLen     int64

	FirstSeenMs int64
	LastSeenMs  int64

	IsMidstreamFlow bool
	FlowFinAckSeen  bool
	FlowAckSeen     bool

	DPIFlow      dpi.FlowState
	DPISrc       dpi.EndpointState
	DPIDst       dpi.EndpointState
	Detected     dpi.Protocol
	Guessed      dpi.Protocol
	DetectionCompleted bool

	PacketEventsSent int
}

// AvgL4DataLen implements flow_avg_l4_data_len (integer division, 0 when
// no packets have been processed).
func (e *Entry) AvgL4DataLen() int64 {
	if e.PacketsProcessed == 0 {
		return 0
	}
	return e.TotalL4DataLen / e.PacketsProcessed
}

// newEntry builds a fresh flow entry for a first-packet-miss.
func newEntry(key Key, detector dpi.Detector) (*Entry, error) {
	fs, err := detector.NewFlowState()
	if err != nil {
		return nil, errNDPIFlowAlloc
	}
	src, err := detector.NewEndpointState()
	if err != nil {
		return nil, errNDPIIDAlloc
	}
	dst, err := detector.NewEndpointState()
	if err != nil {
		return nil, errNDPIIDAlloc
	}
	return &Entry{
		Key:    key,
		FlowID: NextFlowID(),
		DPIFlow: fs,
		DPISrc:  src,
		DPIDst:  dst,
	}, nil
}
