package hexary

import "testing"

// fullPath returns a 64-nibble path whose first nibble is first and every
// remaining nibble is fill.
func fullPath(first, fill byte) NodePath {
	p := make(NodePath, fullPathLen)
	p[0] = first
	for i := 1; i < fullPathLen; i++ {
		p[i] = fill
	}
	return p
}

func TestInterpolateBootstrapSingleLeaf(t *testing.T) {
	db := NewRepairDB()
	path := fullPath(3, 7)
	res, err := Interpolate(db, NodeHandle{}, []LeafSpec{{Path: path, Payload: []byte("v")}}, true)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	node := db.Lookup(res.RootHandle)
	if node == nil {
		t.Fatal("expected the finalized root to be present in the database")
	}
	if node.Kind != KindLeaf {
		t.Fatalf("Kind = %v, want KindLeaf for a single-leaf bootstrap", node.Kind)
	}
	if node.State != Locked {
		t.Fatalf("State = %v, want Locked after finalize", node.State)
	}
	if len(res.Dangling) != 0 {
		t.Fatalf("Dangling = %v, want none", res.Dangling)
	}
}

func TestInterpolateBootstrapTwoDivergentLeaves(t *testing.T) {
	db := NewRepairDB()
	pathA := fullPath(0, 1)
	pathB := fullPath(1, 2)
	res, err := Interpolate(db, NodeHandle{}, []LeafSpec{
		{Path: pathA, Payload: []byte("A")},
		{Path: pathB, Payload: []byte("B")},
	}, true)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	root := db.Lookup(res.RootHandle)
	if root == nil || root.Kind != KindBranch {
		t.Fatalf("expected a branch root for two leaves diverging at nibble 0, got %#v", root)
	}
	if root.Children[0].IsEmpty() || root.Children[1].IsEmpty() {
		t.Fatal("expected both branch slots 0 and 1 to be populated")
	}
}

func TestInterpolateRejectsUnsortedLeaves(t *testing.T) {
	db := NewRepairDB()
	pathA := fullPath(2, 0)
	pathB := fullPath(1, 0)
	_, err := Interpolate(db, NodeHandle{}, []LeafSpec{
		{Path: pathA, Payload: []byte("A")},
		{Path: pathB, Payload: []byte("B")},
	}, true)
	if err != ErrAccountsNotStrictlyIncreasing {
		t.Fatalf("err = %v, want ErrAccountsNotStrictlyIncreasing", err)
	}
}

func TestInterpolateRejectsDuplicatePaths(t *testing.T) {
	db := NewRepairDB()
	path := fullPath(4, 0)
	_, err := Interpolate(db, NodeHandle{}, []LeafSpec{
		{Path: path, Payload: []byte("A")},
		{Path: path, Payload: []byte("B")},
	}, true)
	if err != ErrAccountsNotStrictlyIncreasing {
		t.Fatalf("err = %v, want ErrAccountsNotStrictlyIncreasing", err)
	}
}

func TestInterpolateVerifiesExistingRoot(t *testing.T) {
	db := NewRepairDB()
	path := fullPath(5, 9)
	leaf := NewLeaf(path, []byte("v"), Static)
	blob, err := leaf.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal: %v", err)
	}
	key := HashNode(blob)
	handle := HandleFromKey(key)
	if err := db.Insert(handle, leaf); err != nil {
		t.Fatal(err)
	}

	res, err := Interpolate(db, handle, nil, false)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if res.Root != key {
		t.Fatalf("Root = %v, want %v", res.Root, key)
	}
}

func TestInterpolateDetectsRootMismatchAfterUnauthorizedInsert(t *testing.T) {
	db := NewRepairDB()
	pathA := fullPath(0, 1)
	pathB := fullPath(1, 2)

	leafA := NewLeaf(pathA[1:], []byte("A"), Static)
	blobA, _ := leafA.EncodeFinal()
	handleA := HandleFromKey(HashNode(blobA))
	if err := db.Insert(handleA, leafA); err != nil {
		t.Fatal(err)
	}

	leafB := NewLeaf(pathB[1:], []byte("B"), Static)
	blobB, _ := leafB.EncodeFinal()
	handleB := HandleFromKey(HashNode(blobB))
	if err := db.Insert(handleB, leafB); err != nil {
		t.Fatal(err)
	}

	branch := NewBranch(Static)
	branch.Children[0] = handleA
	branch.Children[1] = handleB
	branchBlob, err := branch.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal: %v", err)
	}
	rootHandle := HandleFromKey(HashNode(branchBlob))
	if err := db.Insert(rootHandle, branch); err != nil {
		t.Fatal(err)
	}

	pathC := fullPath(2, 3)
	_, err = Interpolate(db, rootHandle, []LeafSpec{{Path: pathC, Payload: []byte("C")}}, false)
	if err != ErrRootNodeMismatch {
		t.Fatalf("err = %v, want ErrRootNodeMismatch", err)
	}
}

// TestInterpolateAcceptsProvenLeavesWithinProofGuardedRange mirrors the
// proof-guarded partial range scenario: a branch with four leaves at nibbles
// 3, 7, b, d, proven only by the root branch itself (none of the four leaves
// were ever fetched into the database). The caller supplies leaf data for
// just 7... and b..., which hash to exactly the handles the branch already
// declares, so both install as no-ops; 3 and d are left dangling, outside
// the supplied range, and interpolation still succeeds.
func TestInterpolateAcceptsProvenLeavesWithinProofGuardedRange(t *testing.T) {
	db := NewRepairDB()

	leaf3 := NewLeaf(fullPath(0x3, 1)[1:], []byte("L3"), Static)
	blob3, err := leaf3.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal leaf3: %v", err)
	}
	handle3 := HandleFromKey(HashNode(blob3))

	path7 := fullPath(0x7, 2)
	leaf7 := NewLeaf(path7[1:], []byte("L7"), Static)
	blob7, err := leaf7.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal leaf7: %v", err)
	}
	handle7 := HandleFromKey(HashNode(blob7))

	pathB := fullPath(0xb, 3)
	leafB := NewLeaf(pathB[1:], []byte("LB"), Static)
	blobB, err := leafB.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal leafB: %v", err)
	}
	handleB := HandleFromKey(HashNode(blobB))

	leafD := NewLeaf(fullPath(0xd, 4)[1:], []byte("LD"), Static)
	blobD, err := leafD.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal leafD: %v", err)
	}
	handleD := HandleFromKey(HashNode(blobD))

	branch := NewBranch(Static)
	branch.Children[0x3] = handle3
	branch.Children[0x7] = handle7
	branch.Children[0xb] = handleB
	branch.Children[0xd] = handleD
	branchBlob, err := branch.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal branch: %v", err)
	}
	rootKey := HashNode(branchBlob)
	rootHandle := HandleFromKey(rootKey)
	if err := db.Insert(rootHandle, branch); err != nil {
		t.Fatal(err)
	}

	res, err := Interpolate(db, rootHandle, []LeafSpec{
		{Path: path7, Payload: []byte("L7")},
		{Path: pathB, Payload: []byte("LB")},
	}, false)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if res.Root != rootKey {
		t.Fatalf("Root = %v, want the unchanged branch key %v", res.Root, rootKey)
	}
	if len(res.Dangling) != 2 {
		t.Fatalf("len(Dangling) = %d, want 2 (nibbles 3 and d)", len(res.Dangling))
	}
	seen := map[byte]bool{}
	for _, d := range res.Dangling {
		if len(d.RawTrail) == 0 {
			t.Fatalf("unexpected empty dangling trail: %+v", d)
		}
		seen[d.RawTrail[0]] = true
	}
	if !seen[0x3] || !seen[0xd] {
		t.Fatalf("expected dangling entries at nibbles 3 and d, got %+v", res.Dangling)
	}
	if !db.Contains(handle7) || !db.Contains(handleB) {
		t.Fatal("expected the proven leaves at 7 and b to have been materialized into the database")
	}
}

func TestInterpolateBlockedOnUnknownSubtree(t *testing.T) {
	db := NewRepairDB()
	// A branch whose slot 0 is known only by hash (a boundary-proof child
	// never actually fetched into the database).
	unknown := HandleFromKey(testKey(0x42))
	branch := NewBranch(Static)
	branch.Children[0] = unknown
	branchBlob, err := branch.EncodeFinal()
	if err != nil {
		t.Fatalf("EncodeFinal: %v", err)
	}
	rootHandle := HandleFromKey(HashNode(branchBlob))
	if err := db.Insert(rootHandle, branch); err != nil {
		t.Fatal(err)
	}

	path := fullPath(0, 9)
	_, err = Interpolate(db, rootHandle, []LeafSpec{{Path: path, Payload: []byte("x")}}, false)
	if err != ErrAccountRepairBlocked {
		t.Fatalf("err = %v, want ErrAccountRepairBlocked", err)
	}
}

func TestInterpolateSkipsAdministrativeLeaves(t *testing.T) {
	db := NewRepairDB()
	path := fullPath(6, 0)
	res, err := Interpolate(db, NodeHandle{}, []LeafSpec{
		{Path: fullPath(0, 0), Payload: nil}, // administrative lower-bound marker
		{Path: path, Payload: []byte("v")},
	}, true)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	node := db.Lookup(res.RootHandle)
	if node == nil || node.Kind != KindLeaf {
		t.Fatalf("expected the administrative leaf to be skipped, leaving a bare leaf root, got %#v", node)
	}
}
