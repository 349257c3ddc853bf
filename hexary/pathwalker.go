package hexary

import "bytes"

// Getter retrieves the RLP-encoded proof-node blob stored under a 32-byte
// node key from some persistent trie. An empty result means absent; a
// non-nil error means the lookup itself failed (I/O, not "not found").
type Getter func(key []byte) ([]byte, error)

// walkNode is the shape PathWalker needs from whatever it is currently
// looking at, whether that came from a RepairDB (*RepairNode) or was decoded
// on the fly from a getter (*ProofNode).
type walkNode interface {
	kind() NodeKind
	suffix() NibbleSequence
	childAt(nibble int) NodeHandle
	extChild() NodeHandle
}

func (n *RepairNode) kind() NodeKind             { return n.Kind }
func (n *RepairNode) suffix() NibbleSequence     { return n.Suffix }
func (n *RepairNode) childAt(i int) NodeHandle   { return n.Children[i] }
func (n *RepairNode) extChild() NodeHandle       { return n.Child }

func (n *ProofNode) kind() NodeKind           { return n.Kind }
func (n *ProofNode) suffix() NibbleSequence   { return n.Suffix }
func (n *ProofNode) childAt(i int) NodeHandle { return n.Children[i] }
func (n *ProofNode) extChild() NodeHandle     { return n.Child }

// Source is where PathWalker and friends resolve a NodeHandle from: either a
// RepairDB (handles may be synthetic) or an external Getter (handles are
// always content-addressed NodeKeys, and blobs are decoded to read-only
// ProofNodes on demand).
type Source struct {
	db     *RepairDB
	getter Getter
}

// FromRepairDB walks against an in-memory, single-owner RepairDB.
func FromRepairDB(db *RepairDB) Source { return Source{db: db} }

// FromGetter walks against a persistent trie via an external key→blob getter.
func FromGetter(g Getter) Source { return Source{getter: g} }

func (s Source) lookup(handle NodeHandle) (walkNode, error) {
	if s.db != nil {
		n := s.db.Lookup(handle)
		if n == nil {
			return nil, nil
		}
		return n, nil
	}
	key, ok := handle.Key()
	if !ok || key == (NodeKey{}) {
		return nil, nil
	}
	blob, err := s.getter(key.Bytes())
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	pn, decErr := DecodeProofNode(blob)
	if decErr != nil {
		// A node that fails to decode terminates the walk without error;
		// the caller sees the remaining tail instead (§4.4).
		return nil, nil
	}
	return pn, nil
}

// WalkStep records one hop of a trie walk: the handle visited, the repair
// node found there (nil when walking via getter), the proof node found
// there (nil when walking a RepairDB), and the branch nibble consumed at
// that hop (-1 for Leaf/Extension steps).
type WalkStep struct {
	Handle     NodeHandle
	RepairNode *RepairNode
	ProofNode  *ProofNode
	Nibble     int
	// Trail is the nibble path from the walk's root up to and including
	// whatever this step consumed (one nibble for a Branch hop, the whole
	// suffix for an Extension hop, nothing for a terminal Leaf). It lets a
	// caller reconstruct the path to any handle on the walk without
	// re-deriving prefix lengths from scratch, which the Neighbor Walker
	// needs when it backtracks to an ancestor Branch.
	Trail NibbleSequence
}

// Walk descends from root along path, consuming nibbles one hop at a time,
// and returns the sequence of steps taken plus whatever suffix of path was
// not consumed. An empty tail means the whole path was consumed: either the
// walk reached a Leaf whose stored suffix matched the remainder exactly, or
// the path ran out at a Branch, an Extension or a Leaf before that.
func Walk(root NodeHandle, path NodePath, src Source) ([]WalkStep, NibbleSequence, error) {
	var steps []WalkStep
	handle := root
	remaining := NibbleSequence(path)
	consumed := NibbleSequence(nil)

	for {
		wn, err := src.lookup(handle)
		if err != nil {
			return steps, remaining, err
		}
		if wn == nil {
			return steps, remaining, nil
		}
		step := WalkStep{Handle: handle, Nibble: -1}
		switch rn := wn.(type) {
		case *RepairNode:
			step.RepairNode = rn
		case *ProofNode:
			step.ProofNode = rn
		}

		switch wn.kind() {
		case KindLeaf:
			step.Trail = consumed
			steps = append(steps, step)
			if bytes.Equal(wn.suffix(), remaining) {
				return steps, nil, nil
			}
			return steps, remaining, nil

		case KindExtension:
			suf := wn.suffix()
			if len(suf) <= len(remaining) && bytes.Equal(suf, remaining[:len(suf)]) {
				consumed = joinNibbles(consumed, suf)
				step.Trail = consumed
				steps = append(steps, step)
				handle = wn.extChild()
				remaining = remaining[len(suf):]
				continue
			}
			step.Trail = consumed
			steps = append(steps, step)
			return steps, remaining, nil

		case KindBranch:
			if len(remaining) == 0 {
				step.Trail = consumed
				steps = append(steps, step)
				return steps, remaining, nil
			}
			nib := int(remaining[0])
			step.Nibble = nib
			consumed = appendNibble(consumed, byte(nib))
			step.Trail = consumed
			steps = append(steps, step)
			child := wn.childAt(nib)
			if child.IsEmpty() {
				return steps, remaining, nil
			}
			handle = child
			remaining = remaining[1:]
			continue
		}
	}
}

// WalkNodeKey walks from root along path and returns the NodeKey of the node
// reached, failing with ErrNodeNotFound unless the walk consumed the whole
// path (empty tail) and the final handle is content-addressed.
func WalkNodeKey(root NodeHandle, path NodePath, src Source) (NodeKey, error) {
	steps, tail, err := Walk(root, path, src)
	if err != nil {
		return NodeKey{}, err
	}
	if len(tail) != 0 || len(steps) == 0 {
		return NodeKey{}, ErrNodeNotFound
	}
	key, ok := steps[len(steps)-1].Handle.Key()
	if !ok {
		return NodeKey{}, ErrNodeNotFound
	}
	return key, nil
}
