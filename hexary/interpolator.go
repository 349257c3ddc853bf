package hexary

import (
	"bytes"
	"fmt"
)

// LeafSpec is one leaf to splice into the trie: a full 64-nibble path plus
// its payload. A LeafSpec with an empty payload is administrative: it marks
// a lower/upper boundary placeholder for range validation and is never
// inserted as trie data.
type LeafSpec struct {
	Path    NodePath
	Payload []byte
}

// IsAdministrative reports whether spec is a boundary placeholder rather
// than real leaf data.
func (spec LeafSpec) IsAdministrative() bool { return len(spec.Payload) == 0 }

// InterpolateResult is returned by Interpolate on success.
type InterpolateResult struct {
	// Root is the (possibly newly computed, for bootstrap) NodeKey of the
	// finalized trie.
	Root NodeKey
	// RootHandle is the content-addressed handle for Root, now present in
	// the RepairDB.
	RootHandle NodeHandle
	// Dangling lists the interior edges still missing after all leaves were
	// installed, restricted to those whose 64-nibble envelope falls
	// strictly outside the closed interval [firstLeaf.Path, lastLeaf.Path] -- the permitted
	// "inner gaps"/outer dangling frontier a caller fetches next.
	Dangling []DanglingEntry
}

// Interpolate is the central algorithm (§4.6): given a RepairDB pre-loaded
// with boundary proofs for root (via Importer) plus a sorted, strictly
// ascending batch of leaves, it splices the leaves into the trie, verifies
// the result against root (or computes it, in bootstrap mode), and reports
// the dangling frontier left over.
func Interpolate(db *RepairDB, root NodeHandle, leaves []LeafSpec, bootstrap bool) (*InterpolateResult, error) {
	if err := checkStrictlyIncreasing(leaves); err != nil {
		return nil, err
	}

	currentRoot := root
	if bootstrap {
		currentRoot = NodeHandle{} // empty trie; the first insertion creates the root outright.
	} else if len(leaves) > 0 {
		if !db.Contains(root) {
			return nil, ErrRootNodeMissing
		}
	}

	for _, leaf := range leaves {
		if leaf.IsAdministrative() {
			continue
		}
		newRoot, err := insertAt(db, currentRoot, leaf.Path, leaf.Payload)
		if err != nil {
			return nil, err
		}
		currentRoot = newRoot
	}

	if bootstrap {
		if node := db.Lookup(currentRoot); node != nil && node.State == Mutable {
			node.State = TmpRoot
			db.Replace(currentRoot, node)
		}
	}

	rootKey, rootHandle, err := finalizeTree(db, currentRoot)
	if err != nil {
		return nil, err
	}
	if !bootstrap {
		declared, _ := root.Key()
		if rootKey != declared {
			return nil, ErrRootNodeMismatch
		}
	}

	result := &InterpolateResult{Root: rootKey, RootHandle: rootHandle}
	if len(leaves) == 0 {
		return result, nil
	}

	first, last := leaves[0].Path, leaves[len(leaves)-1].Path
	report := Inspect(db, rootHandle, nil, fullPathLen+1)
	for _, d := range report.Dangling {
		if envelopeIntersects(d.RawTrail, first, last) {
			return nil, ErrRightBoundaryProofFailed
		}
		result.Dangling = append(result.Dangling, d)
	}
	return result, nil
}

func checkStrictlyIncreasing(leaves []LeafSpec) error {
	for i := 1; i < len(leaves); i++ {
		if bytes.Compare(leaves[i-1].Path, leaves[i].Path) >= 0 {
			return ErrAccountsNotStrictlyIncreasing
		}
	}
	return nil
}

// envelopeIntersects reports whether the set of all 64-nibble paths sharing
// trail as a prefix overlaps the closed interval [first, last].
func envelopeIntersects(trail NibbleSequence, first, last NodePath) bool {
	lo := padTrail(trail, 0x0)
	hi := padTrail(trail, 0xf)
	return bytes.Compare(lo, last) <= 0 && bytes.Compare(hi, first) >= 0
}

func padTrail(trail NibbleSequence, fill byte) NodePath {
	out := make(NodePath, fullPathLen)
	copy(out, trail)
	for i := len(trail); i < fullPathLen; i++ {
		out[i] = fill
	}
	return out
}

// insertAt returns the (possibly new) handle for the subtree currently at
// handle after splicing in payload at path. It implements the three
// situations of §4.6 step 3 by the standard copy-on-write Patricia-trie
// insert: absent slots get a fresh Leaf, colliding Leaf/Extension nodes get
// split at their point of divergence, and Static/Locked nodes along the path
// are never mutated -- a fresh Mutable copy is threaded back up to the
// caller instead (invariant I2).
func insertAt(db *RepairDB, handle NodeHandle, path NodePath, payload []byte) (NodeHandle, error) {
	if handle.IsEmpty() {
		h := db.AllocSynthetic()
		if err := db.Insert(h, NewLeaf(path, payload, Mutable)); err != nil {
			return NodeHandle{}, err
		}
		return h, nil
	}

	node := db.Lookup(handle)
	if node == nil {
		ok, err := tryAcceptProvenLeaf(db, handle, path, payload)
		if err != nil {
			return NodeHandle{}, err
		}
		if ok {
			return handle, nil
		}
		// Known only by hash (proof boundary) -- the caller must fetch more data.
		return NodeHandle{}, ErrAccountRepairBlocked
	}

	switch node.Kind {
	case KindLeaf:
		return insertIntoLeaf(db, handle, node, path, payload)
	case KindExtension:
		return insertIntoExtension(db, handle, node, path, payload)
	case KindBranch:
		return insertIntoBranch(db, handle, node, path, payload)
	default:
		return NodeHandle{}, fmt.Errorf("%w: unknown node kind %d", ErrInternalDbInconsistency, node.Kind)
	}
}

// tryAcceptProvenLeaf handles a slot known only by hash, the shape an
// imported boundary proof leaves behind for an interior child it never
// fetched a node for. If the leaf the caller wants installed there hashes to
// exactly handle's declared key, the slot is cryptographically proven to
// already hold that leaf: the node is materialized as Static and the
// insertion is accepted as a no-op, mirroring the idempotent-reinsert check
// in insertIntoLeaf below. Returns false (no error) when the hash does not
// match, leaving the caller to report ErrAccountRepairBlocked.
func tryAcceptProvenLeaf(db *RepairDB, handle NodeHandle, path NodePath, payload []byte) (bool, error) {
	declared, ok := handle.Key()
	if !ok {
		return false, nil
	}
	candidate := NewLeaf(path, payload, Static)
	blob, err := candidate.EncodeFinal()
	if err != nil {
		return false, nil
	}
	if HashNode(blob) != declared {
		return false, nil
	}
	if err := db.Insert(handle, candidate); err != nil {
		return false, err
	}
	return true, nil
}

func insertIntoLeaf(db *RepairDB, handle NodeHandle, node *RepairNode, path NodePath, payload []byte) (NodeHandle, error) {
	if bytes.Equal(node.Suffix, path) {
		if bytes.Equal(node.Payload, payload) {
			// Same leaf reinstalled across a resumed repair batch: idempotent.
			return handle, nil
		}
		return NodeHandle{}, ErrInternalDbInconsistency
	}
	p := commonPrefixLen(node.Suffix, path)

	branch := NewBranch(Mutable)
	existingHandle := db.AllocSynthetic()
	if err := db.Insert(existingHandle, NewLeaf(node.Suffix[p+1:], node.Payload, Mutable)); err != nil {
		return NodeHandle{}, err
	}
	branch.Children[node.Suffix[p]] = existingHandle

	newHandle := db.AllocSynthetic()
	if err := db.Insert(newHandle, NewLeaf(path[p+1:], payload, Mutable)); err != nil {
		return NodeHandle{}, err
	}
	branch.Children[path[p]] = newHandle

	branchHandle := db.AllocSynthetic()
	if err := db.Insert(branchHandle, branch); err != nil {
		return NodeHandle{}, err
	}
	return wrapWithExtension(db, path[:p], branchHandle)
}

func insertIntoExtension(db *RepairDB, handle NodeHandle, node *RepairNode, path NodePath, payload []byte) (NodeHandle, error) {
	suf := node.Suffix
	if len(suf) <= len(path) && bytes.Equal(suf, path[:len(suf)]) {
		newChild, err := insertAt(db, node.Child, path[len(suf):], payload)
		if err != nil {
			return NodeHandle{}, err
		}
		if newChild == node.Child {
			return handle, nil
		}
		return replaceExtensionChild(db, handle, node, newChild)
	}

	// Divergent extension: split at the common prefix.
	p := commonPrefixLen(suf, path)
	branch := NewBranch(Mutable)

	var existingHandle NodeHandle
	if p+1 == len(suf) {
		existingHandle = node.Child
	} else {
		h := db.AllocSynthetic()
		if err := db.Insert(h, NewExtension(suf[p+1:], node.Child, Mutable)); err != nil {
			return NodeHandle{}, err
		}
		existingHandle = h
	}
	branch.Children[suf[p]] = existingHandle

	newHandle := db.AllocSynthetic()
	if err := db.Insert(newHandle, NewLeaf(path[p+1:], payload, Mutable)); err != nil {
		return NodeHandle{}, err
	}
	branch.Children[path[p]] = newHandle

	branchHandle := db.AllocSynthetic()
	if err := db.Insert(branchHandle, branch); err != nil {
		return NodeHandle{}, err
	}
	return wrapWithExtension(db, path[:p], branchHandle)
}

func insertIntoBranch(db *RepairDB, handle NodeHandle, node *RepairNode, path NodePath, payload []byte) (NodeHandle, error) {
	if len(path) == 0 {
		return NodeHandle{}, fmt.Errorf("%w: branch reached with exhausted path", ErrInternalDbInconsistency)
	}
	nib := path[0]
	child := node.Children[nib]
	newChild, err := insertAt(db, child, path[1:], payload)
	if err != nil {
		return NodeHandle{}, err
	}
	if newChild == child {
		return handle, nil
	}

	if node.State == Mutable || node.State == TmpRoot {
		node.Children[nib] = newChild
		db.Replace(handle, node)
		return handle, nil
	}

	// Static/Locked: never mutate in place (invariant I2). Materialize a
	// fresh Mutable copy and let the caller rewire its own parent slot.
	cp := node.copy()
	cp.State = Mutable
	cp.Children[nib] = newChild
	h := db.AllocSynthetic()
	if err := db.Insert(h, cp); err != nil {
		return NodeHandle{}, err
	}
	return h, nil
}

func replaceExtensionChild(db *RepairDB, handle NodeHandle, node *RepairNode, newChild NodeHandle) (NodeHandle, error) {
	if node.State == Mutable || node.State == TmpRoot {
		node.Child = newChild
		db.Replace(handle, node)
		return handle, nil
	}
	cp := node.copy()
	cp.State = Mutable
	cp.Child = newChild
	h := db.AllocSynthetic()
	if err := db.Insert(h, cp); err != nil {
		return NodeHandle{}, err
	}
	return h, nil
}

// wrapWithExtension returns child directly if prefix is empty (no extension
// needed), otherwise wraps it behind a fresh Extension node.
func wrapWithExtension(db *RepairDB, prefix NibbleSequence, child NodeHandle) (NodeHandle, error) {
	if len(prefix) == 0 {
		return child, nil
	}
	h := db.AllocSynthetic()
	if err := db.Insert(h, NewExtension(prefix, child, Mutable)); err != nil {
		return NodeHandle{}, err
	}
	return h, nil
}

// finalizeTree recomputes RLP/hashes bottom-up along every node reachable
// from root, rewriting each formerly-synthetic node's own handle (and its
// children's handles) to their resolved, content-addressed form, and
// marking them Locked. Static/Locked subtrees that were never touched by
// insertAt keep their original, already-content-addressed handles.
func finalizeTree(db *RepairDB, root NodeHandle) (NodeKey, NodeHandle, error) {
	resolved := make(map[NodeHandle]NodeKey)
	rootKey, err := finalizeNode(db, root, resolved)
	if err != nil {
		return NodeKey{}, NodeHandle{}, err
	}
	for handle, key := range resolved {
		if !handle.IsSynthetic() {
			continue
		}
		node := db.Lookup(handle)
		if node == nil {
			continue
		}
		rewritten := rewriteChildren(node, resolved)
		if err := db.Insert(HandleFromKey(key), rewritten); err != nil {
			return NodeKey{}, NodeHandle{}, err
		}
	}
	return rootKey, HandleFromKey(rootKey), nil
}

// finalizeNode computes the NodeKey of handle, recursing into children first
// so every resolveHandle lookup inside encodeRLP succeeds. resolved
// accumulates handle -> computed key for every node touched, keyed by the
// handle the node was stored under at the time (synthetic or not).
func finalizeNode(db *RepairDB, handle NodeHandle, resolved map[NodeHandle]NodeKey) (NodeKey, error) {
	if key, ok := resolved[handle]; ok {
		return key, nil
	}
	if key, ok := handle.Key(); ok && !handle.IsSynthetic() {
		return key, nil
	}

	node := db.Lookup(handle)
	if node == nil {
		return NodeKey{}, fmt.Errorf("%w: missing node for handle %s", ErrInternalDbInconsistency, handle)
	}

	switch node.Kind {
	case KindExtension:
		childKey, err := finalizeNode(db, node.Child, resolved)
		if err != nil {
			return NodeKey{}, err
		}
		resolved[node.Child] = childKey
	case KindBranch:
		for _, c := range node.Children {
			if c.IsEmpty() {
				continue
			}
			childKey, err := finalizeNode(db, c, resolved)
			if err != nil {
				return NodeKey{}, err
			}
			resolved[c] = childKey
		}
	}

	blob, err := node.encodeRLP(func(h NodeHandle) (NodeKey, bool) {
		key, ok := resolved[h]
		return key, ok
	})
	if err != nil {
		return NodeKey{}, err
	}
	key := HashNode(blob)
	resolved[handle] = key
	return key, nil
}

func rewriteChildren(node *RepairNode, resolved map[NodeHandle]NodeKey) *RepairNode {
	cp := node.copy()
	switch cp.Kind {
	case KindExtension:
		if key, ok := resolved[cp.Child]; ok {
			cp.Child = HandleFromKey(key)
		}
	case KindBranch:
		for i, c := range cp.Children {
			if key, ok := resolved[c]; ok {
				cp.Children[i] = HandleFromKey(key)
			}
		}
	}
	cp.State = Locked
	return cp
}
