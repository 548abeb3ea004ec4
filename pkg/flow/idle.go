package flow

import "github.com/ndpid/ndpid-go/pkg/ndpiconst"

// Due reports whether an idle sweep must run at this packet's arrival
// time, given the timestamp of the last completed sweep.
func Due(lastTimeMs, lastIdleScanMs int64) bool {
	return lastTimeMs-lastIdleScanMs > ndpiconst.IdleScanPeriod.Milliseconds()
}

func isIdleCandidate(e *Entry, nowMs int64) bool {
	if e.FlowFinAckSeen && e.FlowAckSeen {
		return true
	}
	return e.LastSeenMs+ndpiconst.MaxIdleTime.Milliseconds() < nowMs
}

// Sweep walks every shard in order. Within each shard it collects up to
// ndpiconst.MaxIdleFlowsPerThread eviction candidates (stopping the
// ascend early once that shard's budget is full), then drains that
// shard's candidates in LIFO order before moving on to the next shard -
// every shard gets its own independent budget, and the walk never skips
// a shard regardless of how many evictions earlier shards produced.
// The returned slice is in the order shards were visited, LIFO within
// each shard; callers emit one FLOW_EVENT_IDLE per entry, in that order.
func (t *FlowTable) Sweep(nowMs int64) []*Entry {
	var evicted []*Entry
	candidates := make([]*Entry, 0, ndpiconst.MaxIdleFlowsPerThread)

	for _, tree := range t.shards {
		if tree == nil {
			continue
		}

		candidates = candidates[:0]
		tree.Ascend(func(e *Entry) bool {
			if len(candidates) >= ndpiconst.MaxIdleFlowsPerThread {
				return false
			}
			if isIdleCandidate(e, nowMs) {
				candidates = append(candidates, e)
			}
			return true
		})

		for i := len(candidates) - 1; i >= 0; i-- {
			e := candidates[i]
			t.Remove(e)
			evicted = append(evicted, e)
		}
	}

	t.lastIdleScanMs = nowMs
	return evicted
}

// LastIdleScanMs returns the timestamp of the most recently completed
// sweep.
func (t *FlowTable) LastIdleScanMs() int64 { return t.lastIdleScanMs }
