package hexary

import "testing"

func TestInspectFindsDanglingBranchChild(t *testing.T) {
	db := NewRepairDB()
	missing := HandleFromKey(testKey(0xaa))

	branch := NewBranch(Static)
	branch.Children[3] = missing
	root := db.AllocSynthetic()
	if err := db.Insert(root, branch); err != nil {
		t.Fatal(err)
	}

	report := Inspect(db, root, nil, 0)
	if len(report.Dangling) != 1 {
		t.Fatalf("len(Dangling) = %d, want 1", len(report.Dangling))
	}
	if report.Dangling[0].Handle != missing {
		t.Fatalf("dangling handle = %v, want %v", report.Dangling[0].Handle, missing)
	}
}

func TestInspectSkipsEmptyBranchSlots(t *testing.T) {
	db := NewRepairDB()
	branch := NewBranch(Static)
	root := db.AllocSynthetic()
	if err := db.Insert(root, branch); err != nil {
		t.Fatal(err)
	}

	report := Inspect(db, root, nil, 0)
	if len(report.Dangling) != 0 {
		t.Fatalf("len(Dangling) = %d, want 0 for an all-empty branch", len(report.Dangling))
	}
}

func TestInspectDescendsThroughPresentChildren(t *testing.T) {
	db, root, _, _ := buildSimpleTrie(t)
	report := Inspect(db, root, nil, 0)
	if len(report.Dangling) != 0 {
		t.Fatalf("len(Dangling) = %d, want 0 for a fully-populated trie", len(report.Dangling))
	}
}

func TestInspectRespectsStopAtLevel(t *testing.T) {
	db := NewRepairDB()
	missing := HandleFromKey(testKey(0xbb))

	inner := NewBranch(Static)
	inner.Children[0] = missing
	innerHandle := contentHandle(t, inner)
	if err := db.Insert(innerHandle, inner); err != nil {
		t.Fatal(err)
	}

	outer := NewExtension(NibbleSequence{7}, innerHandle, Static)
	root := db.AllocSynthetic()
	if err := db.Insert(root, outer); err != nil {
		t.Fatal(err)
	}

	report := Inspect(db, root, nil, 1)
	if !report.Stopped {
		t.Fatal("expected the scan to report it was stopped before reaching the dangling child")
	}
	if len(report.Dangling) != 0 {
		t.Fatalf("len(Dangling) = %d, want 0 when the scan is cut off first", len(report.Dangling))
	}
}

func TestInspectResumesFromStartPaths(t *testing.T) {
	db, root, _, pathB := buildSimpleTrie(t)
	// Start the scan from the branch slot leading to the extension, skipping
	// slot 1 entirely.
	report := Inspect(db, root, []NodePath{pathB[:1]}, 0)
	if len(report.Dangling) != 0 {
		t.Fatalf("len(Dangling) = %d, want 0", len(report.Dangling))
	}
}
