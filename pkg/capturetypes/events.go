package capturetypes

// PacketEventID enumerates the packet-level event kinds.
type PacketEventID byte

const (
	// PacketEventInvalid is the zero value / unset sentinel.
	PacketEventInvalid PacketEventID = iota
	// PacketEventPacket denotes a raw, flow-less packet record (e.g. on
	// decode failure, before a flow could be resolved).
	PacketEventPacket
	// PacketEventPacketFlow denotes a packet record tied to a resolved flow.
	PacketEventPacketFlow
)

// String renders the packet_event_name field.
func (e PacketEventID) String() string {
	switch e {
	case PacketEventPacket:
		return "packet"
	case PacketEventPacketFlow:
		return "packet-flow"
	default:
		return "invalid"
	}
}

// FlowEventID enumerates the flow-level event kinds.
type FlowEventID byte

const (
	// FlowEventInvalid is the zero value / unset sentinel.
	FlowEventInvalid FlowEventID = iota
	// FlowEventNew is emitted exactly once, on flow creation.
	FlowEventNew
	// FlowEventEnd is emitted when a TCP FIN+ACK closes a flow.
	FlowEventEnd
	// FlowEventIdle is emitted when the idle sweep evicts a flow.
	FlowEventIdle
	// FlowEventGuessed is emitted when give-up produces a guessed protocol.
	FlowEventGuessed
	// FlowEventDetected is emitted when DPI completes detection.
	FlowEventDetected
	// FlowEventNotDetected is emitted when give-up fails to guess anything.
	FlowEventNotDetected
)

// String renders the flow_event_name field.
func (e FlowEventID) String() string {
	switch e {
	case FlowEventNew:
		return "new"
	case FlowEventEnd:
		return "end"
	case FlowEventIdle:
		return "idle"
	case FlowEventGuessed:
		return "guessed"
	case FlowEventDetected:
		return "detected"
	case FlowEventNotDetected:
		return "not-detected"
	default:
		return "invalid"
	}
}

// BasicEventID enumerates the diagnostic / error event kinds. The
// numbering is part of the wire contract: NonIPPacket is declared but
// deliberately never emitted, kept only so later IDs don't shift.
type BasicEventID byte

const (
	// BasicEventInvalid is the zero value / unset sentinel.
	BasicEventInvalid BasicEventID = iota
	// BasicEventUnknownDatalinkLayer fires for a datalink type the decoder
	// does not understand.
	BasicEventUnknownDatalinkLayer
	// BasicEventUnknownL3Protocol fires when neither IPv4 nor IPv6 could be
	// identified.
	BasicEventUnknownL3Protocol
	// BasicEventNonIPPacket is reserved for numbering stability; never
	// emitted by this implementation.
	BasicEventNonIPPacket
	// BasicEventEthernetPacketTooShort fires when an Ethernet frame is
	// shorter than its header.
	BasicEventEthernetPacketTooShort
	// BasicEventEthernetPacketUnknown fires for an EtherType this decoder
	// does not classify (other than ARP, which is silently dropped).
	BasicEventEthernetPacketUnknown
	// BasicEventIP4PacketTooShort fires when an IPv4 packet is shorter
	// than the minimum header size.
	BasicEventIP4PacketTooShort
	// BasicEventIP4SizeSmallerThanHeader fires when the declared IPv4
	// header size exceeds the captured bytes.
	BasicEventIP4SizeSmallerThanHeader
	// BasicEventIP4L4PayloadDetectionFailed fires when the L4 payload
	// locator fails for an IPv4 packet.
	BasicEventIP4L4PayloadDetectionFailed
	// BasicEventIP6PacketTooShort fires when an IPv6 packet is shorter
	// than the minimum header size.
	BasicEventIP6PacketTooShort
	// BasicEventIP6SizeSmallerThanHeader fires when the declared IPv6
	// header size exceeds the captured bytes.
	BasicEventIP6SizeSmallerThanHeader
	// BasicEventIP6L4PayloadDetectionFailed fires when the L4 payload
	// locator fails for an IPv6 packet.
	BasicEventIP6L4PayloadDetectionFailed
	// BasicEventTCPPacketTooShort fires when a TCP header does not fit.
	BasicEventTCPPacketTooShort
	// BasicEventUDPPacketTooShort fires when a UDP header does not fit.
	BasicEventUDPPacketTooShort
	// BasicEventCaptureSizeSmallerThanPacketSize fires when caplen < len.
	BasicEventCaptureSizeSmallerThanPacketSize
	// BasicEventMaxFlowToTrack fires when a worker's flow table is full.
	BasicEventMaxFlowToTrack
	// BasicEventFlowMemoryAllocationFailed fires when a new flow entry
	// could not be allocated.
	BasicEventFlowMemoryAllocationFailed
	// BasicEventNDPIFlowMemoryAllocationFailed fires when the DPI
	// collaborator's per-flow handle could not be allocated.
	BasicEventNDPIFlowMemoryAllocationFailed
	// BasicEventNDPIIDMemoryAllocationFailed fires when the DPI
	// collaborator's per-endpoint handle could not be allocated.
	BasicEventNDPIIDMemoryAllocationFailed
)

var basicEventNames = [...]string{
	BasicEventInvalid:                           "INVALID",
	BasicEventUnknownDatalinkLayer:               "UNKNOWN_DATALINK_LAYER",
	BasicEventUnknownL3Protocol:                  "UNKNOWN_L3_PROTOCOL",
	BasicEventNonIPPacket:                        "NON_IP_PACKET",
	BasicEventEthernetPacketTooShort:             "ETHERNET_PACKET_TOO_SHORT",
	BasicEventEthernetPacketUnknown:              "ETHERNET_PACKET_UNKNOWN",
	BasicEventIP4PacketTooShort:                  "IP4_PACKET_TOO_SHORT",
	BasicEventIP4SizeSmallerThanHeader:           "IP4_SIZE_SMALLER_THAN_HEADER",
	BasicEventIP4L4PayloadDetectionFailed:        "IP4_L4_PAYLOAD_DETECTION_FAILED",
	BasicEventIP6PacketTooShort:                  "IP6_PACKET_TOO_SHORT",
	BasicEventIP6SizeSmallerThanHeader:           "IP6_SIZE_SMALLER_THAN_HEADER",
	BasicEventIP6L4PayloadDetectionFailed:        "IP6_L4_PAYLOAD_DETECTION_FAILED",
	BasicEventTCPPacketTooShort:                  "TCP_PACKET_TOO_SHORT",
	BasicEventUDPPacketTooShort:                  "UDP_PACKET_TOO_SHORT",
	BasicEventCaptureSizeSmallerThanPacketSize:    "CAPTURE_SIZE_SMALLER_THAN_PACKET_SIZE",
	BasicEventMaxFlowToTrack:                      "MAX_FLOW_TO_TRACK",
	BasicEventFlowMemoryAllocationFailed:          "FLOW_MEMORY_ALLOCATION_FAILED",
	BasicEventNDPIFlowMemoryAllocationFailed:      "NDPI_FLOW_MEMORY_ALLOCATION_FAILED",
	BasicEventNDPIIDMemoryAllocationFailed:        "NDPI_ID_MEMORY_ALLOCATION_FAILED",
}

// String renders the basic_event_name field.
func (e BasicEventID) String() string {
	if int(e) < len(basicEventNames) {
		return basicEventNames[e]
	}
	return "UNKNOWN"
}
