package decode

// Datalink enumerates the capture-source link layer types this decoder
// understands (a subset of libpcap's DLT_* values).
type Datalink int

const (
	// DatalinkNull is BSD loopback framing (DLT_NULL): a 4-byte family word
	// followed by the IP packet.
	DatalinkNull Datalink = iota
	// DatalinkLoop is Linux loopback framing (DLT_LOOP); same layout as
	// DatalinkNull but big-endian family word.
	DatalinkLoop
	// DatalinkEN10MB is Ethernet framing (DLT_EN10MB).
	DatalinkEN10MB
	// DatalinkOther denotes any datalink type this decoder does not
	// otherwise classify.
	DatalinkOther
)

const (
	ethHeaderLen  = 14
	ethTypeIPv4   = 0x0800
	ethTypeIPv6   = 0x86DD
	ethTypeARP    = 0x0806
	nullLoopIPoff = 4
)
