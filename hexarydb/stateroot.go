package hexarydb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/status-im/nimbus-eth1-sub001/hexary"
)

// stateRootRecord is the RLP shape of one registry entry (§6): a
// back-pointer to the previously-appended top entry plus opaque caller
// data. The head record (keyed by the all-zero key) carries BackKey
// pointing at the most recent top entry and an empty Data.
type stateRootRecord struct {
	BackKey []byte
	Data    []byte
}

var zeroRegistryKey = make([]byte, 32)

// StateRootRegistry is the small linked-list record §6 describes: one entry
// per known state root, chained through BackKey pointers, with a head
// pointer at the all-zero key naming the most recently appended entry.
type StateRootRegistry struct {
	store ethdb.KeyValueStore
}

// NewStateRootRegistry wraps store for state-root bookkeeping.
func NewStateRootRegistry(store ethdb.KeyValueStore) *StateRootRegistry {
	return &StateRootRegistry{store: store}
}

// Append chains root in front of the current top entry and advances the
// head pointer. No transaction is used: at worst a crash between the two
// writes below leaves a detached top entry, which is harmless to later
// readers that only ever follow the chain from the head (§4.8).
func (r *StateRootRegistry) Append(root hexary.NodeKey, data []byte) error {
	head, err := r.readHead()
	if err != nil && err != hexary.ErrStateRootNotFound {
		return err
	}
	blob, err := rlp.EncodeToBytes(stateRootRecord{BackKey: head, Data: data})
	if err != nil {
		return err
	}
	if err := r.store.Put(prefixedKey(SubspaceStateRoot, root.Bytes()), blob); err != nil {
		return err
	}
	headBlob, err := rlp.EncodeToBytes(stateRootRecord{BackKey: root.Bytes()})
	if err != nil {
		return err
	}
	return r.store.Put(prefixedKey(SubspaceStateRoot, zeroRegistryKey), headBlob)
}

// Update rewrites root's own entry without touching the chain around it
// (§4.8: "updating an existing root rewrites only its entry").
func (r *StateRootRegistry) Update(root hexary.NodeKey, data []byte) error {
	existing, err := r.Lookup(root)
	if err != nil {
		return err
	}
	blob, err := rlp.EncodeToBytes(stateRootRecord{BackKey: existing.BackKey, Data: data})
	if err != nil {
		return err
	}
	return r.store.Put(prefixedKey(SubspaceStateRoot, root.Bytes()), blob)
}

// Lookup returns the raw record stored for root.
func (r *StateRootRegistry) Lookup(root hexary.NodeKey) (*stateRootRecord, error) {
	blob, err := r.store.Get(prefixedKey(SubspaceStateRoot, root.Bytes()))
	if err != nil || len(blob) == 0 {
		return nil, hexary.ErrStateRootNotFound
	}
	var rec stateRootRecord
	if err := rlp.DecodeBytes(blob, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Latest returns the most recently appended top entry's key.
func (r *StateRootRegistry) Latest() (hexary.NodeKey, error) {
	head, err := r.readHead()
	if err != nil {
		return hexary.NodeKey{}, err
	}
	return common.BytesToHash(head), nil
}

func (r *StateRootRegistry) readHead() ([]byte, error) {
	blob, err := r.store.Get(prefixedKey(SubspaceStateRoot, zeroRegistryKey))
	if err != nil || len(blob) == 0 {
		return nil, hexary.ErrStateRootNotFound
	}
	var rec stateRootRecord
	if err := rlp.DecodeBytes(blob, &rec); err != nil {
		return nil, err
	}
	return rec.BackKey, nil
}
