package hexary

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ProofNode is a read-only view of a node decoded straight from proof-blob
// RLP: children are raw NodeKeys (or absent), never resolved against any
// database. Importer turns a ProofNode into a Static RepairNode; PathWalker
// decodes ProofNodes on the fly when walking against an external getter.
type ProofNode struct {
	Kind    NodeKind
	Suffix  NibbleSequence // leaf/extension remaining-path nibbles (no terminator)
	Payload []byte         // leaf value
	Child   NodeHandle     // extension child
	Children [16]NodeHandle // branch children

	// branchValue is the raw bytes found in a decoded branch's 17th slot.
	// A secure trie never populates it; non-empty values are kept here for
	// debugging only and are never surfaced as a leaf payload (Design Notes
	// open question: the codec must not silently accept it as data).
	branchValue []byte
}

// HasBranchValue reports whether the decoded branch carried a non-empty 17th
// slot, which would violate the secure-trie invariant I4.
func (n *ProofNode) HasBranchValue() bool { return len(n.branchValue) > 0 }

// DecodeProofNode RLP-decodes a single proof-node blob, dispatching on list
// length per §4.1: exactly 2 entries (leaf/extension) or 17 (branch).
func DecodeProofNode(blob []byte) (*ProofNode, error) {
	elems, _, err := rlp.SplitList(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRlpEncoding, err)
	}
	count, _, err := rlp.CountValues(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRlpEncoding, err)
	}
	switch count {
	case 2:
		return decodeShortProofNode(elems)
	case 17:
		return decodeFullProofNode(elems)
	default:
		return nil, ErrRlp2Or17ListEntries
	}
}

func decodeShortProofNode(elems []byte) (*ProofNode, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRlpBlobExpected, err)
	}
	isLeaf, suffix, err := hexPrefixDecode(kbuf)
	if err != nil {
		return nil, err
	}
	if isLeaf {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRlpBlobExpected, err)
		}
		return &ProofNode{Kind: KindLeaf, Suffix: suffix, Payload: val}, nil
	}
	child, _, err := decodeChildRef(rest)
	if err != nil {
		return nil, err
	}
	if !child.IsContentAddressed() || child.IsEmpty() {
		return nil, ErrRlpBranchLinkExpected
	}
	return &ProofNode{Kind: KindExtension, Suffix: suffix, Child: child}, nil
}

func decodeFullProofNode(elems []byte) (*ProofNode, error) {
	n := &ProofNode{Kind: KindBranch}
	for i := 0; i < 16; i++ {
		child, rest, err := decodeChildRef(elems)
		if err != nil {
			return nil, err
		}
		n.Children[i], elems = child, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRlpBlobExpected, err)
	}
	n.branchValue = val
	return n, nil
}

// decodeChildRef decodes one branch/extension child slot: either the empty
// blob (absent) or a 32-byte hash. No other shape is valid because every
// leaf in this module keys by a full 32-byte Keccak hash, so a secure trie
// never needs to embed a sub-node smaller than a hash inline (see
// DESIGN.md).
func decodeChildRef(buf []byte) (NodeHandle, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return NodeHandle{}, buf, fmt.Errorf("%w: %v", ErrRlpBlobExpected, err)
	}
	if kind != rlp.String {
		return NodeHandle{}, buf, ErrRlpBranchLinkExpected
	}
	switch len(val) {
	case 0:
		return NodeHandle{}, rest, nil
	case 32:
		return HandleFromKey(common.BytesToHash(val)), rest, nil
	default:
		return NodeHandle{}, buf, ErrRlpBranchLinkExpected
	}
}
