package hexarydb

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"

	"github.com/status-im/nimbus-eth1-sub001/hexary"
)

func testRoot(b byte) hexary.NodeKey {
	var k hexary.NodeKey
	k[31] = b
	return k
}

func TestStateRootRegistryAppendAndLookup(t *testing.T) {
	reg := NewStateRootRegistry(memorydb.New())
	root := testRoot(1)

	if err := reg.Append(root, []byte("payload")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec, err := reg.Lookup(root)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !bytes.Equal(rec.Data, []byte("payload")) {
		t.Fatalf("Data = %q, want %q", rec.Data, "payload")
	}
}

func TestStateRootRegistryChainsThroughHead(t *testing.T) {
	reg := NewStateRootRegistry(memorydb.New())
	rootA := testRoot(1)
	rootB := testRoot(2)

	if err := reg.Append(rootA, []byte("a")); err != nil {
		t.Fatalf("Append rootA: %v", err)
	}
	if err := reg.Append(rootB, []byte("b")); err != nil {
		t.Fatalf("Append rootB: %v", err)
	}

	latest, err := reg.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != rootB {
		t.Fatalf("Latest() = %v, want %v", latest, rootB)
	}

	recB, err := reg.Lookup(rootB)
	if err != nil {
		t.Fatalf("Lookup rootB: %v", err)
	}
	if !bytes.Equal(recB.BackKey, rootA.Bytes()) {
		t.Fatalf("rootB.BackKey = %x, want %x", recB.BackKey, rootA.Bytes())
	}
}

func TestStateRootRegistryUpdatePreservesChain(t *testing.T) {
	reg := NewStateRootRegistry(memorydb.New())
	rootA := testRoot(1)
	rootB := testRoot(2)

	if err := reg.Append(rootA, []byte("a")); err != nil {
		t.Fatalf("Append rootA: %v", err)
	}
	if err := reg.Append(rootB, []byte("b")); err != nil {
		t.Fatalf("Append rootB: %v", err)
	}
	if err := reg.Update(rootB, []byte("b2")); err != nil {
		t.Fatalf("Update rootB: %v", err)
	}

	rec, err := reg.Lookup(rootB)
	if err != nil {
		t.Fatalf("Lookup rootB: %v", err)
	}
	if !bytes.Equal(rec.Data, []byte("b2")) {
		t.Fatalf("Data = %q, want %q", rec.Data, "b2")
	}
	if !bytes.Equal(rec.BackKey, rootA.Bytes()) {
		t.Fatal("Update must not touch the chain's BackKey")
	}
}

func TestStateRootRegistryLookupMissing(t *testing.T) {
	reg := NewStateRootRegistry(memorydb.New())
	if _, err := reg.Lookup(testRoot(9)); err != hexary.ErrStateRootNotFound {
		t.Fatalf("err = %v, want ErrStateRootNotFound", err)
	}
}
