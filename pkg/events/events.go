// Package events implements the JSON event records emitted by a worker
// and the length-framed wire protocol they travel over.
package events

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/dpi"
)

// PacketEvent is a PACKET_EVENT_PAYLOAD[_FLOW] record.
type PacketEvent struct {
	ThreadID      int                      `json:"thread_id"`
	PacketID      uint64                   `json:"packet_id"`
	PacketEventID capturetypes.PacketEventID `json:"packet_event_id"`
	PacketEventName string                 `json:"packet_event_name"`

	PktTS      int64 `json:"pkt_ts"`
	PktLen     int   `json:"pkt_len"`
	PktCaplen  int   `json:"pkt_caplen"`
	PktOversize bool `json:"pkt_oversize"`
	Pkt        string `json:"pkt,omitempty"`

	FlowID       uint32 `json:"flow_id,omitempty"`
	FlowPacketID int    `json:"flow_packet_id,omitempty"`
	MaxPackets   int    `json:"max_packets,omitempty"`
}

// FlowEvent is a flow-lifecycle record (new/end/idle/guessed/detected/
// not-detected).
type FlowEvent struct {
	ThreadID    int                      `json:"thread_id"`
	PacketID    uint64                   `json:"packet_id"`
	FlowEventID capturetypes.FlowEventID `json:"flow_event_id"`
	FlowEventName string                 `json:"flow_event_name"`

	FlowID           uint32 `json:"flow_id"`
	PacketsProcessed int64  `json:"packets_processed"`
	TotalL4DataLen   int64  `json:"total_l4_data_len"`
	MinL4DataLen     int64  `json:"min_l4_data_len"`
	MaxL4DataLen     int64  `json:"max_l4_data_len"`
	AvgL4DataLen     int64  `json:"flow_avg_l4_data_len"`
	Midstream        bool   `json:"midstream"`

	L3Proto string `json:"l3_proto"`
	SrcIP   string `json:"src_ip"`
	DestIP  string `json:"dest_ip"`
	SrcPort uint16 `json:"src_port,omitempty"`
	DstPort uint16 `json:"dst_port,omitempty"`
	L4Proto string `json:"l4_proto"`

	Detected dpi.Protocol `json:"detected_l7_protocol"`
	Guessed  dpi.Protocol `json:"guessed_l7_protocol,omitempty"`
}

// BasicEvent is a diagnostic/error record with an optional printf-style
// key/value tail.
type BasicEvent struct {
	ThreadID       int                        `json:"thread_id"`
	PacketID       uint64                     `json:"packet_id"`
	BasicEventID   capturetypes.BasicEventID  `json:"basic_event_id"`
	BasicEventName string                     `json:"basic_event_name"`

	Extra map[string]string `json:"-"`
}

// MarshalJSON flattens Extra's key/value pairs (as rendered by Tail) into
// the top-level object alongside the fixed fields.
func (e BasicEvent) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"thread_id":        e.ThreadID,
		"packet_id":        e.PacketID,
		"basic_event_id":   e.BasicEventID,
		"basic_event_name": e.BasicEventName,
	}
	for k, v := range e.Extra {
		m[k] = v
	}
	return jsoniter.Marshal(m)
}

// Tail renders a printf-style key/value pair the way the original's
// variadic basic-event formatter does: alternating string key, then a
// typed value tag (s/d/u/ld/lu/lld/llu/zd/zu/f).
func Tail(key string, tag byte, value interface{}) map[string]string {
	var rendered string
	switch tag {
	case 's':
		rendered = fmt.Sprintf("%s", value)
	case 'd', 'l', 'q': // d, ld, lld share formatting in Go (no fixed-width distinction)
		rendered = fmt.Sprintf("%d", value)
	case 'u', 'U', 'z': // u, lu, llu, zu
		rendered = fmt.Sprintf("%d", value)
	case 'f':
		rendered = strconv.FormatFloat(toFloat(value), 'f', -1, 64)
	default:
		rendered = fmt.Sprintf("%v", value)
	}
	return map[string]string{key: rendered}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Marshal serializes any event record via json-iterator, the library the
// rest of this codebase uses for JSON.
func Marshal(v interface{}) ([]byte, error) {
	return jsoniter.Marshal(v)
}
