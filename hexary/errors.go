package hexary

import "errors"

// Consolidated error taxonomy. The nimbus-eth1 original carries two
// independent enumerations of nearly identical names across its hexary
// database and range-tracker modules; this package folds them into one set
// of sentinels so callers can compare with errors.Is regardless of which
// stage produced the failure.
var (
	// Input-decoding.
	ErrRlpEncoding             = errors.New("hexary: rlp encoding error")
	ErrRlpBlobExpected         = errors.New("hexary: rlp blob expected")
	ErrRlpBranchLinkExpected   = errors.New("hexary: rlp branch link expected")
	ErrRlpNonEmptyBlobExpected = errors.New("hexary: rlp non-empty blob expected")
	ErrRlpExtPathEncoding      = errors.New("hexary: invalid extension path encoding")
	ErrRlp2Or17ListEntries     = errors.New("hexary: rlp list must have 2 or 17 entries")
	ErrExpectedNodeKeyDiffers  = errors.New("hexary: computed node key differs from declared key")
	ErrNonSecureBranchValue    = errors.New("hexary: branch node carries a non-empty 17th slot")

	// Semantic / trie-consistency.
	ErrRootNodeMissing          = errors.New("hexary: root node missing")
	ErrRootNodeMismatch         = errors.New("hexary: root node hash mismatch")
	ErrDifferentNodeValueExists = errors.New("hexary: different node value exists at handle")
	ErrInternalDbInconsistency  = errors.New("hexary: internal repair db inconsistency")
	ErrAccountRepairBlocked     = errors.New("hexary: repair blocked by missing proof node")
	ErrAccountNotFound          = errors.New("hexary: account not found")

	// Boundary / ordering.
	ErrAccountsNotStrictlyIncreasing = errors.New("hexary: leaves not strictly increasing")
	ErrAccountSmallerThanBase        = errors.New("hexary: leaf smaller than base")
	ErrSlotsNotStrictlyIncreasing    = errors.New("hexary: slots not strictly increasing")
	ErrAccountRangesOverlap          = errors.New("hexary: account ranges overlap")
	ErrLowerBoundAfterFirstEntry     = errors.New("hexary: lower bound after first entry")
	ErrLowerBoundProofError          = errors.New("hexary: lower boundary proof error")
	ErrRightBoundaryProofFailed      = errors.New("hexary: right boundary proof failed")

	// Traversal.
	ErrTrieLoopAlert   = errors.New("hexary: trie loop detected")
	ErrTrieIsEmpty     = errors.New("hexary: trie is empty")
	ErrGarbledNextLeaf = errors.New("hexary: garbled next leaf")
	ErrLeafMaxExceeded = errors.New("hexary: leaf maximum exceeded")
	ErrNodeNotFound    = errors.New("hexary: node not found")

	// Persistence.
	ErrUnresolvedRepairNode  = errors.New("hexary: unresolved (synthetic) repair node")
	ErrNoBulkBackend         = errors.New("hexary: no backend configured for bulk session")
	ErrCannotOpenBulkSession = errors.New("hexary: cannot open bulk session")
	ErrAddBulkItemFailed     = errors.New("hexary: add bulk item failed")
	ErrCommitBulkItemsFailed = errors.New("hexary: commit bulk items failed")
	ErrStateRootNotFound     = errors.New("hexary: state root not found")
	ErrOSError               = errors.New("hexary: os error")
)
