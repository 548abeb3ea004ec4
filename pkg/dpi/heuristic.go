package dpi

import (
	"fmt"

	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// wellKnownPorts maps a handful of common server ports to a protocol
// name, the same kind of port table nDPI itself falls back on when no
// payload signature matches (and the one a give-up/guess call ultimately
// consults).
var wellKnownPorts = map[uint16]string{
	20:    "FTP_DATA",
	21:    "FTP_CONTROL",
	22:    "SSH",
	23:    "TELNET",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	143:   "IMAP",
	443:   "TLS",
	465:   "SMTPS",
	587:   "SMTP",
	993:   "IMAPS",
	995:   "POP3S",
	3306:  "MYSQL",
	5432:  "POSTGRES",
	6379:  "REDIS",
	8080:  "HTTP_PROXY",
	27017: "MONGODB",
}

// minPacketsBeforeDetect mirrors nDPI's behaviour of requiring a small
// number of packets before committing to a classification, to avoid
// flagging a flow from a single ambiguous SYN.
const minPacketsBeforeDetect = 2

type heuristicFlowState struct {
	numProcessed int
	detected     Protocol
}

func (f *heuristicFlowState) NumProcessedPackets() int { return f.numProcessed }

type heuristicEndpointState struct{}

// HeuristicDetector is a small, self-contained stand-in for a real DPI
// engine: it classifies flows by well-known port, the same fallback path
// nDPI itself uses once payload-signature matching is exhausted. It is
// the default Detector wired into the worker when no other is supplied.
type HeuristicDetector struct{}

// NewHeuristicDetector constructs the default detector.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{}
}

// NewFlowState implements Detector.
func (d *HeuristicDetector) NewFlowState() (FlowState, error) {
	return &heuristicFlowState{}, nil
}

// NewEndpointState implements Detector.
func (d *HeuristicDetector) NewEndpointState() (EndpointState, error) {
	return &heuristicEndpointState{}, nil
}

// LocateL4 implements Detector.LocateL4 by reading the protocol field and
// slicing the payload directly out of the IP header, mirroring nDPI's
// ndpi_detection_get_l4 helper.
func (d *HeuristicDetector) LocateL4(l3 capturetypes.L3Family, ipPayload []byte) (proto byte, payload []byte, ok bool) {
	switch l3 {
	case capturetypes.L3IPv4:
		if len(ipPayload) < ipv4.HeaderLen {
			return 0, nil, false
		}
		ihl := int(ipPayload[0]&0x0f) * 4
		if ihl < ipv4.HeaderLen || len(ipPayload) < ihl {
			return 0, nil, false
		}
		return ipPayload[9], ipPayload[ihl:], true
	case capturetypes.L3IPv6:
		if len(ipPayload) < ipv6.HeaderLen {
			return 0, nil, false
		}
		return ipPayload[6], ipPayload[ipv6.HeaderLen:], true
	default:
		return 0, nil, false
	}
}

// Feed implements Detector.Feed.
func (d *HeuristicDetector) Feed(flow FlowState, _, _ EndpointState, tuple capturetypes.Tuple, _ []byte) Protocol {
	fs, ok := flow.(*heuristicFlowState)
	if !ok {
		return Protocol{}
	}
	fs.numProcessed++

	if !fs.detected.Unknown() {
		return fs.detected
	}
	if fs.numProcessed < minPacketsBeforeDetect {
		return Protocol{}
	}

	if name, matched := classifyByPort(tuple.SrcPort, tuple.DstPort); matched {
		fs.detected = Protocol{Master: name, App: name}
	}
	return fs.detected
}

// GiveUp implements Detector.GiveUp.
func (d *HeuristicDetector) GiveUp(flow FlowState) Protocol {
	fs, ok := flow.(*heuristicFlowState)
	if !ok || fs == nil {
		return Protocol{}
	}
	return fs.detected
}

// Release implements Detector.Release; the heuristic detector holds no
// external resources so this is a no-op.
func (d *HeuristicDetector) Release(FlowState, EndpointState, EndpointState) {}

func classifyByPort(srcPort, dstPort uint16) (string, bool) {
	if name, ok := wellKnownPorts[dstPort]; ok {
		return name, true
	}
	if name, ok := wellKnownPorts[srcPort]; ok {
		return name, true
	}
	return "", false
}

// String implements fmt.Stringer for Protocol, convenient for logging.
func (p Protocol) String() string {
	if p.Unknown() {
		return "unknown"
	}
	if p.Master == p.App {
		return p.Master
	}
	return fmt.Sprintf("%s.%s", p.Master, p.App)
}
