// Package ndpiconst holds the compile-time tunables of the capture and
// flow-tracking pipeline. Kept in one place because several packages
// (flow, worker, shard) need to agree on the same numbers.
package ndpiconst

import "time"

const (
	// MaxFlowRootsPerThread is the number of shards (ordered flow
	// containers) each worker owns.
	MaxFlowRootsPerThread = 2048

	// MaxIdleFlowsPerThread bounds the scratch space used during one
	// idle-eviction sweep.
	MaxIdleFlowsPerThread = 64

	// TickResolutionHz defines the time unit used throughout (1 = 1ms).
	TickResolutionHz = 1000

	// MaxReaderThreads is the default number of capture worker goroutines.
	MaxReaderThreads = 4

	// IdleScanPeriod is the minimum interval between idle-eviction sweeps.
	IdleScanPeriod = 10 * time.Second

	// MaxIdleTime is how long a flow may go unseen before it becomes an
	// idle-eviction candidate.
	MaxIdleTime = 300 * time.Second

	// InitialThreadHash seeds the shard-routing hash.
	InitialThreadHash uint32 = 0x03dd018b

	// MaxPacketsPerFlowToSend bounds how many packet-flow events are
	// emitted per flow before per-flow packet records are suppressed.
	MaxPacketsPerFlowToSend = 15

	// CollectorScratchSize is the size of the reusable base64 scratch
	// buffer used to encode captured packet bytes into a pkt field.
	CollectorScratchSize = 8 * 1024

	// DefaultCollectorSocket is the default AF_UNIX path the collector
	// listens on.
	DefaultCollectorSocket = "/tmp/ndpid-collector.sock"

	// ErrorThreshold is a count of consecutive decode failures. No worker
	// code reads it: decode failures never stop a worker.
	ErrorThreshold = 10000

	// LiveReadTimeout bounds how long a live capture read blocks before
	// returning control to the worker loop (e.g. to check shutdown).
	LiveReadTimeout = 250 * time.Millisecond
)
