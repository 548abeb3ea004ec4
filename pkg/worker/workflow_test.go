package worker

import (
	"bufio"
	"encoding/json"
	"net"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/decode"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/ndpid/ndpid-go/pkg/events"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
	"github.com/ndpid/ndpid-go/pkg/pcapsrc"
)

func tcpTuple(srcPort, dstPort uint16) capturetypes.Tuple {
	return capturetypes.Tuple{
		L3:      capturetypes.L3IPv4,
		L4Proto: capturetypes.TCP,
		SrcAddr: netip.MustParseAddr("10.0.0.1"),
		DstAddr: netip.MustParseAddr("10.0.0.2"),
		SrcPort: srcPort,
		DstPort: dstPort,
	}
}

func testPacket() pcapsrc.Packet {
	return pcapsrc.Packet{
		Timestamp:   time.Unix(0, 1),
		CapturedLen: 64,
		OriginalLen: 64,
		Data:        make([]byte, 64),
	}
}

func newTestWorkflow(t *testing.T) (*Workflow, chan []byte) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "ndpid-collector.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	frames := make(chan []byte, 256)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			f, err := events.ReadFrame(r)
			if err != nil {
				return
			}
			frames <- f
		}
	}()

	w := New(0, 1, nil, dpi.NewHeuristicDetector(), sockPath)
	return w, frames
}

// readFlowEvent reads frames until it finds a flow-lifecycle record,
// skipping any interleaved packet-flow-event frames (emitFlowPacketEvent
// and emitFlowEvent both fire for a flow's first few packets).
func readFlowEvent(t *testing.T, frames chan []byte) events.FlowEvent {
	t.Helper()
	for {
		select {
		case f := <-frames:
			var ev events.FlowEvent
			require.NoError(t, json.Unmarshal(f, &ev))
			if ev.FlowEventName != "" {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a flow event")
			return events.FlowEvent{}
		}
	}
}

func drainHandshake(t *testing.T, frames chan []byte) {
	t.Helper()
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}

func TestProcessOwnedPacketEmitsNewThenEnd(t *testing.T) {
	w, frames := newTestWorkflow(t)
	pkt := testPacket()

	syn := decode.Result{Tuple: tcpTuple(1000, 80), IsSYN: true}
	w.processOwnedPacket(pkt, syn, 1000)
	drainHandshake(t, frames)

	newEv := readFlowEvent(t, frames)
	assert.Equal(t, "new", newEv.FlowEventName)

	finAck := decode.Result{Tuple: tcpTuple(1000, 80), IsFINACK: true, IsACK: true}
	w.processOwnedPacket(pkt, finAck, 1001)

	endEv := readFlowEvent(t, frames)
	assert.Equal(t, "end", endEv.FlowEventName)
	assert.EqualValues(t, 2, endEv.PacketsProcessed)
}

func TestProcessOwnedPacketStopsDPIFeedingAfterEnd(t *testing.T) {
	w, frames := newTestWorkflow(t)
	pkt := testPacket()

	syn := decode.Result{Tuple: tcpTuple(1000, 80), IsSYN: true}
	w.processOwnedPacket(pkt, syn, 1000)
	drainHandshake(t, frames)
	readFlowEvent(t, frames) // new

	finAck := decode.Result{Tuple: tcpTuple(1000, 80), IsFINACK: true, IsACK: true}
	w.processOwnedPacket(pkt, finAck, 1001)
	readFlowEvent(t, frames) // end

	// A further packet for the same (now-ended) flow still updates
	// counters and may emit a packet-flow event but must not re-trigger
	// DPI feeding or emit a second "end".
	late := decode.Result{Tuple: tcpTuple(1000, 80), IsACK: true}
	w.processOwnedPacket(pkt, late, 1002)

	for {
		select {
		case f := <-frames:
			var ev events.FlowEvent
			if json.Unmarshal(f, &ev) == nil && ev.FlowEventName != "" {
				t.Fatalf("unexpected flow event after end: %s", ev.FlowEventName)
			}
		case <-time.After(200 * time.Millisecond):
			return
		}
	}
}

func TestPacketsBeyondPacketFlowCapStillUpdateCounters(t *testing.T) {
	w, _ := newTestWorkflow(t)
	pkt := testPacket()

	tup := tcpTuple(2000, 53)
	res := decode.Result{Tuple: tup, IsSYN: true}

	for i := 0; i < 20; i++ {
		w.processOwnedPacket(pkt, res, int64(1000+i))
		res = decode.Result{Tuple: tup, IsACK: true}
	}

	entry, _, _, err := w.table.FindOrInsert(tup)
	require.NoError(t, err)
	assert.EqualValues(t, 20, entry.PacketsProcessed)
}

func TestCaptureSizeTailCarriesCaplenAndLen(t *testing.T) {
	tail := captureSizeTail(40, 1500)
	assert.Equal(t, "40", tail["caplen"])
	assert.Equal(t, "1500", tail["len"])
}

func TestMaxFlowToTrackTailCarriesActiveAgainstBudget(t *testing.T) {
	tail := maxFlowToTrackTail(2048)
	assert.Equal(t, "2048", tail["current_active"])
	assert.Equal(t, "2048", tail["max_active"])
}

func TestFindOrInsertErrorEmitsBasicEventWithTail(t *testing.T) {
	w, frames := newTestWorkflow(t)
	pkt := testPacket()

	for i := 0; i < ndpiconst.MaxFlowRootsPerThread; i++ {
		res := decode.Result{Tuple: tcpTuple(uint16(3000+i), 80), IsSYN: true}
		w.processOwnedPacket(pkt, res, int64(1000+i))
	}
	drainHandshake(t, frames)
	for i := 0; i < ndpiconst.MaxFlowRootsPerThread; i++ {
		readFlowEvent(t, frames) // "new"
	}

	res := decode.Result{Tuple: tcpTuple(9999, 80), IsSYN: true}
	w.processOwnedPacket(pkt, res, int64(2000))

	select {
	case f := <-frames:
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(f, &raw))
		assert.Equal(t, "2048", raw["current_active"])
		assert.Equal(t, "2048", raw["max_active"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the max-flow-to-track basic event")
	}
}
