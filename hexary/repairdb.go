package hexary

import (
	"bytes"
	"fmt"
)

// RepairDB is a single-owner mapping from NodeHandle to RepairNode. All
// operations are synchronous and non-suspending (§5: a RepairDB is never
// shared across goroutines; a worker pool hands each batch its own
// instance).
type RepairDB struct {
	nodes map[NodeHandle]*RepairNode
	next  uint64 // monotonic counter backing allocSynthetic
	log   Logger
}

// NewRepairDB returns an empty RepairDB.
func NewRepairDB() *RepairDB {
	return &RepairDB{nodes: make(map[NodeHandle]*RepairNode), log: NoopLogger{}}
}

// SetLogger installs a non-default logger (production callers wire NewLogger()).
func (db *RepairDB) SetLogger(l Logger) { db.log = l }

// Lookup returns the node stored at handle, or nil if absent.
func (db *RepairDB) Lookup(handle NodeHandle) *RepairNode {
	return db.nodes[handle]
}

// Contains reports whether handle is present in the database.
func (db *RepairDB) Contains(handle NodeHandle) bool {
	_, ok := db.nodes[handle]
	return ok
}

// Insert stores node at handle. Re-inserting a content-addressed handle
// whose stored node's RLP encoding differs from node's fails with
// ErrDifferentNodeValueExists (invariant I1/I3); an identical re-insert is a
// no-op and succeeds (P3: idempotent import).
func (db *RepairDB) Insert(handle NodeHandle, node *RepairNode) error {
	if existing, ok := db.nodes[handle]; ok {
		if handle.IsContentAddressed() {
			existingRLP, err := existing.encodeRLP(db.resolve)
			if err != nil {
				return err
			}
			newRLP, err := node.encodeRLP(db.resolve)
			if err != nil {
				return err
			}
			if !bytes.Equal(existingRLP, newRLP) {
				return fmt.Errorf("%w: handle %s", ErrDifferentNodeValueExists, handle)
			}
			return nil
		}
		return fmt.Errorf("%w: handle %s", ErrDifferentNodeValueExists, handle)
	}
	if db.log.IsTrace() {
		db.log.Trace("repairdb: insert", "handle", handle.String(), "kind", node.Kind)
	}
	db.nodes[handle] = node
	return nil
}

// Replace unconditionally overwrites the node at handle. Only ever used on
// Mutable/TmpRoot handles during interpolation; callers must never replace a
// Static or Locked node in place (invariant I2).
func (db *RepairDB) Replace(handle NodeHandle, node *RepairNode) {
	db.nodes[handle] = node
}

// AllocSynthetic mints a fresh synthetic handle for a provisional node whose
// final bytes (and therefore NodeKey) are not yet known.
func (db *RepairDB) AllocSynthetic() NodeHandle {
	db.next++
	return NodeHandle{kind: handleKindSynthetic, synth: db.next}
}

// Iter calls fn for every (handle, node) pair currently stored. Iteration
// order is unspecified.
func (db *RepairDB) Iter(fn func(NodeHandle, *RepairNode) bool) {
	for h, n := range db.nodes {
		if !fn(h, n) {
			return
		}
	}
}

// Len returns the number of nodes currently stored.
func (db *RepairDB) Len() int { return len(db.nodes) }

// Snapshot returns a copy of every (handle, node) pair currently stored,
// for handing off to a Persister once interpolation has finished.
func (db *RepairDB) Snapshot() map[NodeHandle]*RepairNode {
	out := make(map[NodeHandle]*RepairNode, len(db.nodes))
	for h, n := range db.nodes {
		out[h] = n
	}
	return out
}

// resolve satisfies the resolver signature used by RepairNode.encodeRLP. It
// resolves content-addressed handles only; a synthetic handle is always
// unresolved here. Interpolator's bottom-up finalize pass resolves synthetic
// children through its own map and rewrites parent slots to content-addressed
// handles (see interpolator.go finalizeNode).
func (db *RepairDB) resolve(h NodeHandle) (NodeKey, bool) {
	if key, ok := h.Key(); ok {
		return key, true
	}
	return NodeKey{}, false
}
