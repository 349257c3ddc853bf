package hexary

// NextLeaf returns the path of the least leaf strictly after path in the
// trie rooted at root, or a nil path if none exists (§4.7). minDepth bounds
// how deep the search must descend past the branch where it turns before it
// is willing to stop early on a branch rather than continuing to a leaf;
// pass 0 to use the full 64-nibble depth.
func NextLeaf(root NodeHandle, path NodePath, src Source, minDepth int) (NodePath, error) {
	return neighbor(root, path, src, minDepth, true)
}

// PrevLeaf is the mirror of NextLeaf: the greatest leaf strictly before path.
func PrevLeaf(root NodeHandle, path NodePath, src Source, minDepth int) (NodePath, error) {
	return neighbor(root, path, src, minDepth, false)
}

func neighbor(root NodeHandle, path NodePath, src Source, minDepth int, forward bool) (NodePath, error) {
	if minDepth <= 0 {
		minDepth = fullPathLen
	}
	steps, _, err := Walk(root, path, src)
	if err != nil {
		return nil, err
	}

	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.Nibble < 0 {
			// Not a Branch hop (a Leaf, an Extension, or a Branch reached
			// with an exhausted path): nothing to pick a sibling of here.
			// A Leaf at this position mid-ascent would mean the walk
			// recursion itself is broken -- Leaves never appear except as
			// the final step -- so this is purely "keep ascending".
			continue
		}
		children := stepChildren(step)
		prefix := step.Trail[:len(step.Trail)-1]

		candidate := -1
		if forward {
			for n := step.Nibble + 1; n < 16; n++ {
				if !children[n].IsEmpty() {
					candidate = n
					break
				}
			}
		} else {
			for n := step.Nibble - 1; n >= 0; n-- {
				if !children[n].IsEmpty() {
					candidate = n
					break
				}
			}
		}
		if candidate < 0 {
			continue
		}

		childHandle := children[candidate]
		childPrefix := appendNibble(prefix, byte(candidate))
		return descendExtreme(src, childHandle, childPrefix, minDepth, forward)
	}
	return nil, nil
}

func stepChildren(step WalkStep) [16]NodeHandle {
	if step.RepairNode != nil {
		return step.RepairNode.Children
	}
	return step.ProofNode.Children
}

// descendExtreme walks from handle always taking the least-index
// (forward=true, i.e. pathLeast) or greatest-index (forward=false,
// pathMost) available child, stopping at a Leaf or once it has descended to
// at least minDepth nibbles.
func descendExtreme(src Source, handle NodeHandle, prefix NibbleSequence, minDepth int, forward bool) (NodePath, error) {
	for {
		wn, err := src.lookup(handle)
		if err != nil {
			return nil, err
		}
		if wn == nil {
			return nil, ErrNodeNotFound
		}
		switch wn.kind() {
		case KindLeaf:
			return joinNibbles(prefix, wn.suffix()), nil
		case KindExtension:
			prefix = joinNibbles(prefix, wn.suffix())
			handle = wn.extChild()
			continue
		case KindBranch:
			if len(prefix) >= minDepth {
				return prefix, nil
			}
			candidate := -1
			if forward {
				for n := 0; n < 16; n++ {
					if !wn.childAt(n).IsEmpty() {
						candidate = n
						break
					}
				}
			} else {
				for n := 15; n >= 0; n-- {
					if !wn.childAt(n).IsEmpty() {
						candidate = n
						break
					}
				}
			}
			if candidate < 0 {
				return nil, ErrTrieIsEmpty
			}
			prefix = appendNibble(prefix, byte(candidate))
			handle = wn.childAt(candidate)
			continue
		}
	}
}

// FillResult reports the outcome of mirroring a persistent subtree into a
// RepairDB via repeated Neighbor Walker steps.
type FillResult struct {
	Count int
	Last  NodePath
}

// FillFromLeftOrRight drives NextLeaf repeatedly starting just before the
// leftmost possible path, importing every node it walks through into db,
// until no further leaf exists (§4.7). If a further leaf still remains once
// maxLeaves leaves have been mirrored, it fails with ErrLeafMaxExceeded.
// Consecutive terminal NodeKeys that repeat signal a back-and-forth
// loop and fail with ErrGarbledNextLeaf rather than spinning forever.
func FillFromLeftOrRight(db *RepairDB, root NodeHandle, getter Getter, maxLeaves int) (*FillResult, error) {
	src := FromGetter(getter)
	result := &FillResult{}

	leafPath, err := descendExtreme(src, root, nil, fullPathLen, true)
	if err != nil {
		return nil, err
	}
	var lastKey NodeKey
	haveLastKey := false

	for leafPath != nil && result.Count < maxLeaves {
		steps, tail, err := Walk(root, leafPath, src)
		if err != nil {
			return nil, err
		}
		if len(tail) != 0 || len(steps) == 0 {
			return nil, ErrNodeNotFound
		}
		leafKey, ok := steps[len(steps)-1].Handle.Key()
		if !ok {
			return nil, ErrNodeNotFound
		}
		if haveLastKey && leafKey == lastKey {
			return nil, ErrGarbledNextLeaf
		}
		lastKey, haveLastKey = leafKey, true

		importStepsIntoDB(db, steps)
		result.Count++
		result.Last = leafPath

		leafPath, err = NextLeaf(root, leafPath, src, fullPathLen)
		if err != nil {
			return nil, err
		}
	}
	if leafPath != nil {
		return nil, ErrLeafMaxExceeded
	}
	return result, nil
}

// importStepsIntoDB copies every node touched by one walk into db as a
// Static node, the same state an Importer would have given it.
func importStepsIntoDB(db *RepairDB, steps []WalkStep) {
	for _, step := range steps {
		if step.ProofNode == nil {
			continue // already a RepairDB-backed step; nothing to copy.
		}
		node := repairNodeFromProof(step.ProofNode, Static)
		_ = db.Insert(step.Handle, node)
	}
}
