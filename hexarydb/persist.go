package hexarydb

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"

	"github.com/status-im/nimbus-eth1-sub001/hexary"
)

// Persister is the transactional mode of §4.8: one atomic batch write per
// call, built over go-ethereum's ethdb.KeyValueStore rather than the
// RocksDB transaction handle the spec's collaborator interface names, since
// an open-source stand-in store is needed for this to run against anything
// at all.
type Persister struct {
	store ethdb.KeyValueStore
	log   log.Logger
}

// NewPersister wraps store for use by the hexary engine's output.
func NewPersister(store ethdb.KeyValueStore) *Persister {
	return &Persister{store: store, log: log.Root()}
}

// SetLogger installs a non-default logger (production callers already have
// one wired through go-ethereum's log.Root()).
func (p *Persister) SetLogger(l log.Logger) { p.log = l }

// PersistNodes writes every (handle, node) pair under space as one atomic
// batch. Any handle that is still synthetic aborts before a single byte is
// written, with ErrUnresolvedRepairNode -- a RepairDB must be fully
// finalized (Interpolator's bottom-up pass) before it reaches a Persister.
func (p *Persister) PersistNodes(space Subspace, nodes map[hexary.NodeHandle]*hexary.RepairNode) (int, error) {
	batch := p.store.NewBatch()
	count := 0
	for handle, node := range nodes {
		key, ok := handle.Key()
		if !ok {
			return 0, hexary.ErrUnresolvedRepairNode
		}
		blob, err := node.EncodeFinal()
		if err != nil {
			return 0, err
		}
		if err := batch.Put(prefixedKey(space, key.Bytes()), blob); err != nil {
			return 0, fmt.Errorf("hexarydb: batch put: %w", err)
		}
		count++
	}
	if err := batch.Write(); err != nil {
		return 0, fmt.Errorf("hexarydb: batch commit: %w", err)
	}
	if p.log != nil {
		p.log.Trace("hexarydb: persisted node batch", "subspace", space, "count", count)
	}
	return count, nil
}

// Get reads back the blob stored for key in space.
func (p *Persister) Get(space Subspace, key hexary.NodeKey) ([]byte, error) {
	return p.store.Get(prefixedKey(space, key.Bytes()))
}

// Has reports whether key is present in space without fetching its value.
func (p *Persister) Has(space Subspace, key hexary.NodeKey) (bool, error) {
	return p.store.Has(prefixedKey(space, key.Bytes()))
}
