package decode

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ethFrame(etherType uint16, payload []byte) []byte {
	frame := make([]byte, ethHeaderLen+len(payload))
	binary.BigEndian.PutUint16(frame[12:14], etherType)
	copy(frame[ethHeaderLen:], payload)
	return frame
}

func ipv4Packet(proto byte, src, dst net.IP, l4 []byte) []byte {
	hdr := make([]byte, 20)
	hdr[0] = 0x45
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(hdr)+len(l4)))
	hdr[9] = proto
	copy(hdr[12:16], src.To4())
	copy(hdr[16:20], dst.To4())
	return append(hdr, l4...)
}

func tcpSegment(srcPort, dstPort uint16, flags byte) []byte {
	seg := make([]byte, 20)
	binary.BigEndian.PutUint16(seg[0:2], srcPort)
	binary.BigEndian.PutUint16(seg[2:4], dstPort)
	seg[12] = 5 << 4
	seg[13] = flags
	return seg
}

func TestDecodeEthernetIPv4TCPSyn(t *testing.T) {
	tcp := tcpSegment(51000, 443, tcpFlagSYN)
	ip := ipv4Packet(capturetypes.TCP, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), tcp)
	frame := ethFrame(ethTypeIPv4, ip)

	res, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.NoError(t, err)
	assert.Equal(t, capturetypes.L3IPv4, res.Tuple.L3)
	assert.Equal(t, byte(capturetypes.TCP), res.Tuple.L4Proto)
	assert.EqualValues(t, 51000, res.Tuple.SrcPort)
	assert.EqualValues(t, 443, res.Tuple.DstPort)
	assert.True(t, res.IsSYN)
	assert.False(t, res.IsFINACK)
}

func TestDecodeMidstreamTCP(t *testing.T) {
	tcp := tcpSegment(1, 2, tcpFlagACK)
	ip := ipv4Packet(capturetypes.TCP, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), tcp)
	frame := ethFrame(ethTypeIPv4, ip)

	res, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.NoError(t, err)
	assert.False(t, res.IsSYN)
	assert.True(t, res.IsACK)
}

func TestDecodeFinAck(t *testing.T) {
	tcp := tcpSegment(1, 2, tcpFlagFIN|tcpFlagACK)
	ip := ipv4Packet(capturetypes.TCP, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), tcp)
	frame := ethFrame(ethTypeIPv4, ip)

	res, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.NoError(t, err)
	assert.True(t, res.IsFINACK)
}

func TestDecodeArpSilentlyDropped(t *testing.T) {
	frame := ethFrame(ethTypeARP, make([]byte, 28))
	_, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.Error(t, err)
	assert.True(t, IsSilentDrop(err))
}

func TestDecodeUnknownEtherType(t *testing.T) {
	frame := ethFrame(0x1234, make([]byte, 10))
	_, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, capturetypes.BasicEventEthernetPacketUnknown, derr.Event)
	assert.Equal(t, "4660", derr.Extra["type"])
}

func TestDecodeUnexpectedIPVersionCarriesObservedVersion(t *testing.T) {
	ip := ipv4Packet(capturetypes.TCP, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), tcpSegment(1, 2, tcpFlagSYN))
	ip[0] = 0x55 // version 5, not 4
	frame := ethFrame(ethTypeIPv4, ip)

	_, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, capturetypes.BasicEventUnknownL3Protocol, derr.Event)
	assert.Equal(t, "5", derr.Extra["version"])
}

func TestDecodeEthernetTooShort(t *testing.T) {
	_, err := Decode(DatalinkEN10MB, make([]byte, 10), 10, dpi.NewHeuristicDetector())
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, capturetypes.BasicEventEthernetPacketTooShort, derr.Event)
}

func TestDecodeUnknownDatalink(t *testing.T) {
	_, err := Decode(DatalinkOther, make([]byte, 40), 40, dpi.NewHeuristicDetector())
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, capturetypes.BasicEventUnknownDatalinkLayer, derr.Event)
	assert.Equal(t, "3", derr.Extra["datalink"])
}

func TestDecodeUDP(t *testing.T) {
	udp := make([]byte, 8+4)
	binary.BigEndian.PutUint16(udp[0:2], 5353)
	binary.BigEndian.PutUint16(udp[2:4], 53)
	ip := ipv4Packet(capturetypes.UDP, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), udp)
	frame := ethFrame(ethTypeIPv4, ip)

	res, err := Decode(DatalinkEN10MB, frame, len(frame), dpi.NewHeuristicDetector())
	require.NoError(t, err)
	assert.EqualValues(t, 5353, res.Tuple.SrcPort)
	assert.EqualValues(t, 53, res.Tuple.DstPort)
	assert.Equal(t, 4, res.L4PayloadLen)
}

func TestDecodeLoopbackIPv4(t *testing.T) {
	tcp := tcpSegment(1, 2, tcpFlagSYN)
	ip := ipv4Packet(capturetypes.TCP, net.ParseIP("127.0.0.1"), net.ParseIP("127.0.0.1"), tcp)
	frame := make([]byte, 4+len(ip))
	binary.LittleEndian.PutUint32(frame[:4], 2)
	copy(frame[4:], ip)

	res, err := Decode(DatalinkNull, frame, len(frame), dpi.NewHeuristicDetector())
	require.NoError(t, err)
	assert.Equal(t, capturetypes.L3IPv4, res.Tuple.L3)
}
