package hexary

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNodeHandleZeroValueIsEmpty(t *testing.T) {
	var h NodeHandle
	if !h.IsEmpty() {
		t.Fatal("zero-value NodeHandle should be empty")
	}
	if !h.IsContentAddressed() {
		t.Fatal("zero-value NodeHandle should be content-addressed")
	}
	if h.IsSynthetic() {
		t.Fatal("zero-value NodeHandle should not be synthetic")
	}
}

func TestHandleFromKeyNotEmptyForNonZeroKey(t *testing.T) {
	key := common.HexToHash("0x01")
	h := HandleFromKey(key)
	if h.IsEmpty() {
		t.Fatal("a non-zero key should not produce an empty handle")
	}
	got, ok := h.Key()
	if !ok || got != key {
		t.Fatalf("Key() = %v, %v, want %v, true", got, ok, key)
	}
}

func TestSyntheticHandlesNeverCollideWithKeyHandles(t *testing.T) {
	db := NewRepairDB()
	synth := db.AllocSynthetic()
	if synth.IsContentAddressed() {
		t.Fatal("a synthetic handle must not report as content-addressed")
	}
	if synth == (NodeHandle{}) {
		t.Fatal("a synthetic handle must never equal the empty handle")
	}
}

func TestEncodeRLPLeaf(t *testing.T) {
	n := NewLeaf(NibbleSequence{1, 2, 3}, []byte("value"), Static)
	blob, err := n.encodeRLP(nil)
	if err != nil {
		t.Fatalf("encodeRLP: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected non-empty RLP encoding")
	}
}

func TestEncodeRLPBranchRejectsUnresolvedChild(t *testing.T) {
	n := NewBranch(Mutable)
	db := NewRepairDB()
	n.Children[0] = db.AllocSynthetic()
	if _, err := n.encodeRLP(db.resolve); err == nil {
		t.Fatal("expected an error encoding a branch with an unresolved synthetic child")
	}
}

func TestEncodeFinalRejectsSynthetic(t *testing.T) {
	db := NewRepairDB()
	n := NewExtension(NibbleSequence{1}, db.AllocSynthetic(), Mutable)
	if _, err := n.EncodeFinal(); err != ErrUnresolvedRepairNode {
		t.Fatalf("EncodeFinal() err = %v, want %v", err, ErrUnresolvedRepairNode)
	}
}
