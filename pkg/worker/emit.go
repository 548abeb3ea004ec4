package worker

import (
	"github.com/ndpid/ndpid-go/pkg/b64"
	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/events"
	"github.com/ndpid/ndpid-go/pkg/flow"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
	"github.com/ndpid/ndpid-go/pkg/pcapsrc"
)

func (w *Workflow) send(payload []byte) {
	// Failed/in-progress sends never block the capture pipeline and are
	// silently dropped; the error itself isn't actionable here beyond
	// marking the client for reconnect, which Send already did.
	_ = w.client.Send(payload)
}

func (w *Workflow) packetEncoded(data []byte) (encoded string, oversize bool) {
	out, ok := b64.Encode(data, ndpiconst.CollectorScratchSize)
	if !ok {
		return "", true
	}
	return string(out), false
}

// emitRawPacketEvent sends a flow-less PACKET_EVENT_PAYLOAD record, used
// on decode failure before any flow could be resolved.
func (w *Workflow) emitRawPacketEvent(pkt pcapsrc.Packet) {
	encoded, oversize := w.packetEncoded(pkt.Data)
	ev := events.PacketEvent{
		ThreadID:        w.threadID,
		PacketID:        w.packetsCaptured,
		PacketEventID:   capturetypes.PacketEventPacket,
		PacketEventName: capturetypes.PacketEventPacket.String(),
		PktTS:           pkt.Timestamp.UnixMicro(),
		PktLen:          pkt.OriginalLen,
		PktCaplen:       pkt.CapturedLen,
		PktOversize:     oversize,
		Pkt:             encoded,
	}
	b, err := events.Marshal(ev)
	if err != nil {
		return
	}
	w.send(b)
}

// emitFlowPacketEvent sends a PACKET_EVENT_PAYLOAD_FLOW record tied to
// entry, capped by the caller at MAX_PACKETS_PER_FLOW_TO_SEND.
func (w *Workflow) emitFlowPacketEvent(pkt pcapsrc.Packet, entry *flow.Entry) {
	encoded, oversize := w.packetEncoded(pkt.Data)
	ev := events.PacketEvent{
		ThreadID:        w.threadID,
		PacketID:        w.packetsCaptured,
		PacketEventID:   capturetypes.PacketEventPacketFlow,
		PacketEventName: capturetypes.PacketEventPacketFlow.String(),
		PktTS:           pkt.Timestamp.UnixMicro(),
		PktLen:          pkt.OriginalLen,
		PktCaplen:       pkt.CapturedLen,
		PktOversize:     oversize,
		Pkt:             encoded,
		FlowID:          entry.FlowID,
		FlowPacketID:    int(entry.PacketsProcessed),
		MaxPackets:      ndpiconst.MaxPacketsPerFlowToSend,
	}
	b, err := events.Marshal(ev)
	if err != nil {
		return
	}
	w.send(b)
}

// emitFlowEvent sends a full flow-description record for the given
// lifecycle kind (new/end/idle/guessed/detected/not-detected).
func (w *Workflow) emitFlowEvent(entry *flow.Entry, kind capturetypes.FlowEventID) {
	ev := events.FlowEvent{
		ThreadID:         w.threadID,
		PacketID:         w.packetsCaptured,
		FlowEventID:      kind,
		FlowEventName:    kind.String(),
		FlowID:           entry.FlowID,
		PacketsProcessed: entry.PacketsProcessed,
		TotalL4DataLen:   entry.TotalL4DataLen,
		MinL4DataLen:     entry.MinL4DataLen,
		MaxL4DataLen:     entry.MaxL4DataLen,
		AvgL4DataLen:     entry.AvgL4DataLen(),
		Midstream:        entry.IsMidstreamFlow,
		L3Proto:          entry.Key.Tuple.L3.String(),
		SrcIP:            entry.Key.Tuple.SrcAddr.String(),
		DestIP:           entry.Key.Tuple.DstAddr.String(),
		SrcPort:          entry.Key.Tuple.SrcPort,
		DstPort:          entry.Key.Tuple.DstPort,
		L4Proto:          capturetypes.L4ProtoName(entry.Key.Tuple.L4Proto),
		Detected:         entry.Detected,
		Guessed:          entry.Guessed,
	}
	b, err := events.Marshal(ev)
	if err != nil {
		return
	}
	w.send(b)
}

// emitBasicEvent sends a diagnostic/error record, with an optional
// printf-style key/value tail.
func (w *Workflow) emitBasicEvent(id capturetypes.BasicEventID, extra map[string]string) {
	ev := events.BasicEvent{
		ThreadID:       w.threadID,
		PacketID:       w.packetsCaptured,
		BasicEventID:   id,
		BasicEventName: id.String(),
		Extra:          extra,
	}
	b, err := events.Marshal(ev)
	if err != nil {
		return
	}
	w.send(b)
}
