// Package worker implements the per-worker Workflow: owns a capture
// source, a flow table, a collector connection and per-worker counters,
// and drives the per-packet classify-and-emit callback.
package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/els0r/telemetry/tracing"
	"github.com/fako1024/gopacket/pcap"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/collector"
	"github.com/ndpid/ndpid-go/pkg/decode"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/ndpid/ndpid-go/pkg/events"
	"github.com/ndpid/ndpid-go/pkg/flow"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
	"github.com/ndpid/ndpid-go/pkg/pcapsrc"
	"github.com/ndpid/ndpid-go/pkg/shard"
)

// Stats is a snapshot of one worker's counters, used by the status API and
// `ndpid stats`/`ndpid top`.
type Stats struct {
	ThreadID              int
	PacketsCaptured       uint64
	PacketsProcessed      uint64
	TotalL4DataLen        uint64
	DetectedFlowProtocols uint64
	ActiveFlows           int
	ErrorOrEOF            bool
}

// Workflow is the per-worker state bundle: capture handle, flow table,
// serializer (pkg/events), collector socket and counters. Every field
// below is owned exclusively by the goroutine running Run; there is no
// internal locking.
type Workflow struct {
	threadID int
	nWorkers int

	source   *pcapsrc.Source
	table    *flow.FlowTable
	detector dpi.Detector
	client   *collector.Client

	packetsCaptured       uint64
	packetsProcessed      uint64
	totalL4DataLen        uint64
	detectedFlowProtocols uint64

	lastTimeMs        int64
	lastIdleScanTimeMs int64

	errorOrEOF atomic.Bool
}

// New builds a Workflow for worker threadID out of nWorkers, bound to
// source and streaming events to the collector at collectorSocket.
func New(threadID, nWorkers int, source *pcapsrc.Source, detector dpi.Detector, collectorSocket string) *Workflow {
	if detector == nil {
		detector = dpi.NewHeuristicDetector()
	}
	return &Workflow{
		threadID: threadID,
		nWorkers: nWorkers,
		source:   source,
		table:    flow.NewTable(detector),
		detector: detector,
		client:   collector.New(collectorSocket),
	}
}

// Stats returns a point-in-time snapshot of the worker's counters.
func (w *Workflow) Stats() Stats {
	return Stats{
		ThreadID:              w.threadID,
		PacketsCaptured:       w.packetsCaptured,
		PacketsProcessed:      w.packetsProcessed,
		TotalL4DataLen:        w.totalL4DataLen,
		DetectedFlowProtocols: w.detectedFlowProtocols,
		ActiveFlows:           w.table.ActiveFlows(),
		ErrorOrEOF:            w.errorOrEOF.Load(),
	}
}

// Run drives the blocking capture loop until ctx is cancelled or the
// capture source reaches EOF/a fatal error. It is the Go-native
// equivalent of installing a packet callback and calling into the
// capture library's own blocking loop: there is no internal scheduler,
// the call simply blocks on source.Next().
func (w *Workflow) Run(ctx context.Context) {
	defer w.teardown()

	for {
		select {
		case <-ctx.Done():
			w.errorOrEOF.Store(true)
			return
		default:
		}

		pkt, err := w.source.Next()
		if err != nil {
			if errors.Is(err, pcap.NextErrorTimeoutExpired) {
				// Live read timeout: no packet yet, go back and check ctx.
				continue
			}
			w.errorOrEOF.Store(true)
			return
		}

		w.packetsCaptured++
		w.onPacket(ctx, pkt)
	}
}

func (w *Workflow) teardown() {
	w.table.Teardown()
	_ = w.client.Close()
	w.source.Close()
}

// onPacket is the packet callback: decode, shard-own check, find-or-
// insert, per-packet processing, periodic idle sweep.
func (w *Workflow) onPacket(ctx context.Context, pkt pcapsrc.Packet) {
	nowMs := pkt.Timestamp.UnixMilli()
	if nowMs == 0 {
		nowMs = time.Now().UnixMilli()
	}
	w.lastTimeMs = nowMs

	if pkt.CapturedLen < pkt.OriginalLen {
		w.emitBasicEvent(capturetypes.BasicEventCaptureSizeSmallerThanPacketSize, captureSizeTail(pkt.CapturedLen, pkt.OriginalLen))
	}

	res, err := decode.Decode(w.source.Datalink(), pkt.Data, pkt.OriginalLen, w.detector)
	if err != nil {
		if !decode.IsSilentDrop(err) {
			w.emitRawPacketEvent(pkt)
			if derr, ok := asDecodeError(err); ok {
				w.emitBasicEvent(derr.Event, derr.Extra)
			}
		}
		w.maybeIdleSweep(ctx, nowMs)
		return
	}

	if shard.ThreadIndex(res.Tuple, w.nWorkers) != w.threadID {
		// Owned by another worker; drop cheaply, no event at all.
		w.maybeIdleSweep(ctx, nowMs)
		return
	}

	w.packetsProcessed++
	w.processOwnedPacket(pkt, res, nowMs)
	w.maybeIdleSweep(ctx, nowMs)
}

func (w *Workflow) maybeIdleSweep(ctx context.Context, nowMs int64) {
	if !flow.Due(nowMs, w.lastIdleScanTimeMs) {
		return
	}
	_, span := tracing.Start(ctx, "(*worker.Workflow).idleSweep")
	defer span.End()

	evicted := w.table.Sweep(nowMs)
	for _, e := range evicted {
		w.emitFlowEvent(e, capturetypes.FlowEventIdle)
	}
	w.lastIdleScanTimeMs = w.table.LastIdleScanMs()
}

func asDecodeError(err error) (*decode.Error, bool) {
	de, ok := err.(*decode.Error)
	return de, ok
}

// captureSizeTail builds the basic-event tail for
// CAPTURE_SIZE_SMALLER_THAN_PACKET_SIZE: the captured and on-wire lengths.
func captureSizeTail(captured, original int) map[string]string {
	tail := events.Tail("caplen", 'u', uint32(captured))
	for k, v := range events.Tail("len", 'u', uint32(original)) {
		tail[k] = v
	}
	return tail
}

// maxFlowToTrackTail builds the basic-event tail for MAX_FLOW_TO_TRACK: the
// flow table's active-flow count against its budget.
func maxFlowToTrackTail(activeFlows int) map[string]string {
	tail := events.Tail("current_active", 'u', uint32(activeFlows))
	for k, v := range events.Tail("max_active", 'u', uint32(ndpiconst.MaxFlowRootsPerThread)) {
		tail[k] = v
	}
	return tail
}

const (
	ndpiSaturated    = 0xFF
	ndpiAlmostSaturated = 0xFE
)

// processOwnedPacket runs the full classify-update-emit sequence for a
// packet this worker owns: flow lookup/insert, DPI feed, counter
// updates, and new/end flow event emission.
func (w *Workflow) processOwnedPacket(pkt pcapsrc.Packet, res decode.Result, nowMs int64) {
	entry, isNew, directionChanged, err := w.table.FindOrInsert(res.Tuple)
	if err != nil {
		var tail map[string]string
		if errors.Is(err, flow.ErrMaxFlowToTrack) {
			tail = maxFlowToTrackTail(w.table.ActiveFlows())
		}
		w.emitBasicEvent(flow.BasicEventForError(err), tail)
		return
	}

	l4Len := int64(res.L4PayloadLen)

	// Steps 1-3: counters, timestamps, min/max.
	entry.PacketsProcessed++
	entry.TotalL4DataLen += l4Len
	if entry.FirstSeenMs == 0 {
		entry.FirstSeenMs = nowMs
	}
	entry.LastSeenMs = nowMs
	entry.FlowAckSeen = res.IsACK
	if isNew {
		entry.MinL4DataLen, entry.MaxL4DataLen = l4Len, l4Len
		entry.IsMidstreamFlow = !res.IsSYN && res.Tuple.L4Proto == capturetypes.TCP
	} else {
		if l4Len < entry.MinL4DataLen {
			entry.MinL4DataLen = l4Len
		}
		if l4Len > entry.MaxL4DataLen {
			entry.MaxL4DataLen = l4Len
		}
	}

	// Step 4: per-flow packet event, capped at MAX_PACKETS_PER_FLOW_TO_SEND.
	if entry.PacketsProcessed <= ndpiconst.MaxPacketsPerFlowToSend {
		w.emitFlowPacketEvent(pkt, entry)
	}

	// Step 5.
	if isNew {
		w.emitFlowEvent(entry, capturetypes.FlowEventNew)
	}

	// Step 6: FIN+ACK terminates DPI feeding for this flow.
	if res.IsFINACK && !entry.FlowFinAckSeen {
		entry.FlowFinAckSeen = true
		w.emitFlowEvent(entry, capturetypes.FlowEventEnd)
		return
	}
	if entry.FlowFinAckSeen {
		return
	}

	// Steps 7-9: DPI saturation / give-up / feed.
	processed := entry.DPIFlow.NumProcessedPackets()
	switch {
	case processed >= ndpiSaturated:
		return
	case processed == ndpiAlmostSaturated:
		w.giveUpOrDetected(entry)
		w.feed(entry, res, directionChanged)
	default:
		w.feed(entry, res, directionChanged)
	}
}

func (w *Workflow) giveUpOrDetected(entry *flow.Entry) {
	if entry.DetectionCompleted {
		w.emitFlowEvent(entry, capturetypes.FlowEventDetected)
		return
	}
	guess := w.detector.GiveUp(entry.DPIFlow)
	entry.Guessed = guess
	if !guess.Unknown() {
		w.emitFlowEvent(entry, capturetypes.FlowEventGuessed)
	} else {
		w.emitFlowEvent(entry, capturetypes.FlowEventNotDetected)
	}
}

func (w *Workflow) feed(entry *flow.Entry, res decode.Result, directionChanged bool) {
	src, dst := entry.DPISrc, entry.DPIDst
	if directionChanged {
		src, dst = dst, src
	}
	protocol := w.detector.Feed(entry.DPIFlow, src, dst, res.Tuple, res.L4Payload)
	if !entry.DetectionCompleted && !protocol.Unknown() {
		entry.DetectionCompleted = true
		entry.Detected = protocol
		w.detectedFlowProtocols++
		w.emitFlowEvent(entry, capturetypes.FlowEventDetected)
	}
}
