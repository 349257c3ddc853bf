package hexary

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// NodeKey is the Keccak-256 hash of a node's RLP encoding. The zero value
// denotes "absent". Reusing go-ethereum's common.Hash keeps NodeKey
// interchangeable with the rest of the ecosystem's hashing and hex-printing
// helpers.
type NodeKey = common.Hash

// HashNode computes the NodeKey of an RLP-encoded node blob.
func HashNode(blob []byte) NodeKey {
	return crypto.Keccak256Hash(blob)
}

// handleKind tags which of the two NodeHandle flavors is populated.
type handleKind uint8

const (
	handleKindKey handleKind = iota
	handleKindSynthetic
)

// NodeHandle is either a content-addressed NodeKey (bytes known, hash fixed)
// or a synthetic opaque identifier allocated for a provisional node whose
// bytes are not yet fixed. The zero value is the content-addressed handle
// for the all-zero NodeKey, i.e. "absent" (invariant I3: the tag bit keeps
// synthetic handles from ever colliding with a content-addressed one).
type NodeHandle struct {
	kind  handleKind
	key   NodeKey
	synth uint64
}

// HandleFromKey wraps a NodeKey as a content-addressed handle.
func HandleFromKey(key NodeKey) NodeHandle {
	return NodeHandle{kind: handleKindKey, key: key}
}

// IsEmpty reports whether h is the absent handle (zero NodeKey).
func (h NodeHandle) IsEmpty() bool {
	return h.kind == handleKindKey && h.key == (NodeKey{})
}

// IsContentAddressed reports whether h carries a fixed NodeKey.
func (h NodeHandle) IsContentAddressed() bool { return h.kind == handleKindKey }

// IsSynthetic reports whether h is a provisional, not-yet-hashed handle.
func (h NodeHandle) IsSynthetic() bool { return h.kind == handleKindSynthetic }

// Key returns the NodeKey and true if h is content-addressed.
func (h NodeHandle) Key() (NodeKey, bool) {
	if h.kind != handleKindKey {
		return NodeKey{}, false
	}
	return h.key, true
}

// Synthetic returns the synthetic counter value and true if h is synthetic.
func (h NodeHandle) Synthetic() (uint64, bool) {
	if h.kind != handleKindSynthetic {
		return 0, false
	}
	return h.synth, true
}

func (h NodeHandle) String() string {
	if h.kind == handleKindKey {
		return h.key.Hex()
	}
	return fmt.Sprintf("synth(%d)", h.synth)
}

// NodeKind tags the three shapes a TrieNode can take.
type NodeKind uint8

const (
	KindLeaf NodeKind = iota
	KindExtension
	KindBranch
)

// StateMarker records where a repair node came from and whether it may still
// be modified during interpolation.
type StateMarker uint8

const (
	// Static nodes were installed verbatim from original proof bytes; their
	// hash is fixed and they are never mutated in place (invariant I2).
	Static StateMarker = iota
	// Locked nodes were added later but are likewise immutable.
	Locked
	// Mutable nodes are open to modification while interpolation runs.
	Mutable
	// TmpRoot is a Mutable root placeholder created for a bootstrap batch
	// that has no boundary proof to anchor against.
	TmpRoot
)

// RepairNode is the in-memory working representation of a trie node. Child
// references are by NodeHandle (value-typed), never by pointer, which keeps
// a RepairDB owner-exclusive and trivially serializable (Design Notes,
// "Shared references").
type RepairNode struct {
	Kind  NodeKind
	State StateMarker

	// Leaf and Extension share Suffix: the remaining path nibbles below the
	// parent that reach this node.
	Suffix NibbleSequence

	// Leaf-only: the value stored at this path.
	Payload []byte

	// Extension-only: the single child this node points to.
	Child NodeHandle

	// Branch-only: one handle per nibble. The 17th slot of the encoded form
	// is always empty (invariant I4); a secure trie never stores a value at
	// an interior branch.
	Children [16]NodeHandle
}

// NewLeaf builds a Leaf repair node.
func NewLeaf(suffix NibbleSequence, payload []byte, state StateMarker) *RepairNode {
	return &RepairNode{Kind: KindLeaf, State: state, Suffix: suffix, Payload: payload}
}

// NewExtension builds an Extension repair node.
func NewExtension(suffix NibbleSequence, child NodeHandle, state StateMarker) *RepairNode {
	return &RepairNode{Kind: KindExtension, State: state, Suffix: suffix, Child: child}
}

// NewBranch builds a Branch repair node with all children absent.
func NewBranch(state StateMarker) *RepairNode {
	return &RepairNode{Kind: KindBranch, State: state}
}

// copy returns a shallow copy suitable for turning a Static/Locked node into
// a Mutable one without touching the original (invariant I2: replacement is
// by substitution of the parent's handle, never in-place mutation).
func (n *RepairNode) copy() *RepairNode {
	cp := *n
	return &cp
}

// resolver looks up the NodeKey a (possibly still-synthetic) handle has been
// finalized to. Interpolator's bottom-up finalize pass supplies one backed by
// its own handle-to-key map.
type resolver func(NodeHandle) (NodeKey, bool)

// encodeRLP produces the canonical RLP encoding of n, per §4.6's node
// encoding rules. Every child handle must already be content-addressed or
// resolvable via resolve; an unresolved synthetic child means the caller
// must finalize that child first.
func (n *RepairNode) encodeRLP(resolve resolver) ([]byte, error) {
	switch n.Kind {
	case KindLeaf:
		return rlp.EncodeToBytes(rlpItems{hexPrefixEncode(n.Suffix, true), n.Payload})
	case KindExtension:
		childKey, ok := resolveHandle(n.Child, resolve)
		if !ok {
			return nil, fmt.Errorf("%w: unresolved extension child", ErrInternalDbInconsistency)
		}
		return rlp.EncodeToBytes(rlpItems{hexPrefixEncode(n.Suffix, false), childKey.Bytes()})
	case KindBranch:
		items := make(rlpItems, 17)
		for i := 0; i < 16; i++ {
			if n.Children[i].IsEmpty() {
				items[i] = nil
				continue
			}
			key, ok := resolveHandle(n.Children[i], resolve)
			if !ok {
				return nil, fmt.Errorf("%w: unresolved branch child %d", ErrInternalDbInconsistency, i)
			}
			items[i] = key.Bytes()
		}
		items[16] = nil
		return rlp.EncodeToBytes(items)
	default:
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrInternalDbInconsistency, n.Kind)
	}
}

// EncodeFinal returns n's canonical RLP once every child handle is
// content-addressed, which the Persister requires before writing a node to
// disk. It fails with ErrUnresolvedRepairNode if any child is still a
// synthetic, unresolved handle.
func (n *RepairNode) EncodeFinal() ([]byte, error) {
	blob, err := n.encodeRLP(func(NodeHandle) (NodeKey, bool) { return NodeKey{}, false })
	if err != nil {
		return nil, ErrUnresolvedRepairNode
	}
	return blob, nil
}

// rlpItems is a plain list of byte strings; each branch/leaf/extension slot
// RLP-encodes as either an empty string or a byte string, never a nested
// list, because every child reference in this secure trie is a fixed
// 32-byte hash (see DESIGN.md: "fixed key-size enforcement" rules out
// embedded sub-RLP nodes entirely).
type rlpItems [][]byte

func resolveHandle(h NodeHandle, resolve resolver) (NodeKey, bool) {
	if key, ok := h.Key(); ok {
		return key, true
	}
	return resolve(h)
}
