// Package flow implements the per-worker flow table: sharded ordered
// containers keyed by flow hash, bidirectional lookup, insertion,
// lifecycle bookkeeping and the idle-eviction sweep.
package flow

import (
	"errors"

	"github.com/google/btree"
	"github.com/ndpid/ndpid-go/pkg/capturetypes"
	"github.com/ndpid/ndpid-go/pkg/dpi"
	"github.com/ndpid/ndpid-go/pkg/ndpiconst"
	"github.com/ndpid/ndpid-go/pkg/shard"
)

// Sentinel errors surfaced by FlowTable methods; the worker maps each to the
// matching basic event (see BasicEventForError).
var (
	ErrMaxFlowToTrack = errors.New("flow: table at capacity")
	errNDPIFlowAlloc   = errors.New("flow: dpi flow state allocation failed")
	errNDPIIDAlloc     = errors.New("flow: dpi endpoint state allocation failed")
)

// BasicEventForError maps a FlowTable error to the basic event it must
// surface on the wire.
func BasicEventForError(err error) capturetypes.BasicEventID {
	switch {
	case errors.Is(err, ErrMaxFlowToTrack):
		return capturetypes.BasicEventMaxFlowToTrack
	case errors.Is(err, errNDPIFlowAlloc):
		return capturetypes.BasicEventNDPIFlowMemoryAllocationFailed
	case errors.Is(err, errNDPIIDAlloc):
		return capturetypes.BasicEventNDPIIDMemoryAllocationFailed
	default:
		return capturetypes.BasicEventInvalid
	}
}

const btreeDegree = 32

func lessEntry(a, b *Entry) bool { return Less(a.Key, b.Key) }

// FlowTable is the per-worker flow table: one ordered container per shard,
// created lazily since most shards stay empty for the life of a worker.
type FlowTable struct {
	detector dpi.Detector

	shards      [ndpiconst.MaxFlowRootsPerThread]*btree.BTreeG[*Entry]
	activeFlows int

	lastIdleScanMs int64
}

// NewTable constructs an empty flow table bound to detector.
func NewTable(detector dpi.Detector) *FlowTable {
	return &FlowTable{detector: detector}
}

// ActiveFlows returns the number of live entries across all shards.
func (t *FlowTable) ActiveFlows() int { return t.activeFlows }

func (t *FlowTable) treeFor(idx int) *btree.BTreeG[*Entry] {
	if t.shards[idx] == nil {
		t.shards[idx] = btree.NewG(btreeDegree, lessEntry)
	}
	return t.shards[idx]
}

func (t *FlowTable) lookupIn(tuple capturetypes.Tuple) *Entry {
	hv := Hash(tuple)
	idx := shard.Index(hv)
	tree := t.shards[idx]
	if tree == nil {
		return nil
	}
	probe := &Entry{Key: Key{Hashval: hv, Tuple: tuple}}
	if e, ok := tree.Get(probe); ok {
		return e
	}
	return nil
}

// FindOrInsert resolves tuple to a flow entry, creating one on a double
// miss. directionChanged reports whether the hit came from the reversed
// lookup; isNew reports whether a fresh entry was created.
func (t *FlowTable) FindOrInsert(tuple capturetypes.Tuple) (entry *Entry, isNew bool, directionChanged bool, err error) {
	if e := t.lookupIn(tuple); e != nil {
		return e, false, false, nil
	}
	reversed := tuple.Reversed()
	if e := t.lookupIn(reversed); e != nil {
		return e, false, true, nil
	}

	if t.activeFlows >= ndpiconst.MaxFlowRootsPerThread {
		return nil, false, false, ErrMaxFlowToTrack
	}

	hv := Hash(tuple)
	key := Key{Hashval: hv, Tuple: tuple}
	e, allocErr := newEntry(key, t.detector)
	if allocErr != nil {
		return nil, false, false, allocErr
	}

	idx := shard.Index(hv)
	t.treeFor(idx).ReplaceOrInsert(e)
	t.activeFlows++
	return e, true, false, nil
}

// Remove deletes entry from its shard, releasing its DPI handles.
func (t *FlowTable) Remove(entry *Entry) {
	idx := shard.Index(entry.Key.Hashval)
	tree := t.shards[idx]
	if tree == nil {
		return
	}
	if _, ok := tree.Delete(entry); ok {
		t.activeFlows--
	}
	t.detector.Release(entry.DPIFlow, entry.DPISrc, entry.DPIDst)
}

// Teardown releases every remaining entry's DPI handles and drops all
// shard containers, mirroring Workflow's own shutdown sequence.
func (t *FlowTable) Teardown() {
	for i := range t.shards {
		tree := t.shards[i]
		if tree == nil {
			continue
		}
		tree.Ascend(func(e *Entry) bool {
			t.detector.Release(e.DPIFlow, e.DPISrc, e.DPIDst)
			return true
		})
		t.shards[i] = nil
	}
	t.activeFlows = 0
}
