package hexary

// DanglingEntry records one interior edge whose target is not present in
// the RepairDB: either it is still a provisional synthetic handle (repair
// in progress) or a content-addressed handle the database has never seen.
type DanglingEntry struct {
	// Trail is the hex-prefix-encoded (isLeaf=false) nibble path from the
	// scan's root to this edge, per §4.5.
	Trail NibbleSequence
	// RawTrail is the same path before hex-prefix encoding, useful for
	// range/interval comparisons (used by Interpolator's boundary check).
	RawTrail NibbleSequence
	Handle   NodeHandle
}

// InspectReport is the result of one breadth-first dangling-edge scan.
type InspectReport struct {
	Dangling []DanglingEntry
	MaxDepth int
	Stopped  bool
}

type frontierItem struct {
	handle NodeHandle
	trail  NibbleSequence
	depth  int
}

const defaultStopAtLevel = 32

// Inspect performs a level-synchronous BFS over db starting at root (or, if
// startPaths is non-empty, at the nodes reached by walking each of those
// paths from root) and enumerates every dangling child reference found,
// bounded by stopAtLevel hops.
func Inspect(db *RepairDB, root NodeHandle, startPaths []NodePath, stopAtLevel int) *InspectReport {
	if stopAtLevel <= 0 {
		stopAtLevel = defaultStopAtLevel
	}
	report := &InspectReport{}

	var queue []frontierItem
	if len(startPaths) == 0 {
		queue = append(queue, frontierItem{handle: root, trail: nil})
	} else {
		for _, p := range startPaths {
			steps, tail, err := Walk(root, p, FromRepairDB(db))
			if err != nil || len(steps) == 0 {
				continue
			}
			consumed := NibbleSequence(p[:len(p)-len(tail)])
			queue = append(queue, frontierItem{handle: steps[len(steps)-1].Handle, trail: consumed})
		}
	}

	depth := 0
	for len(queue) > 0 {
		if depth >= stopAtLevel {
			report.Stopped = true
			report.MaxDepth = depth
			return report
		}
		var next []frontierItem
		for _, item := range queue {
			node := db.Lookup(item.handle)
			if node == nil {
				continue
			}
			switch node.Kind {
			case KindBranch:
				for nib := 0; nib < 16; nib++ {
					child := node.Children[nib]
					if child.IsEmpty() {
						continue
					}
					trail := appendNibble(item.trail, byte(nib))
					report.enqueueOrMarkDangling(db, child, trail, item.depth+1, &next)
				}
			case KindExtension:
				if node.Child.IsEmpty() {
					continue
				}
				trail := joinNibbles(item.trail, node.Suffix)
				report.enqueueOrMarkDangling(db, node.Child, trail, item.depth+1, &next)
			case KindLeaf:
				// Leaves have no outgoing references.
			}
		}
		queue = next
		depth++
	}
	report.MaxDepth = depth
	return report
}

func (report *InspectReport) enqueueOrMarkDangling(db *RepairDB, child NodeHandle, trail NibbleSequence, depth int, next *[]frontierItem) {
	if !child.IsContentAddressed() || !db.Contains(child) {
		report.Dangling = append(report.Dangling, DanglingEntry{
			Trail:    hexPrefixEncode(trail, false),
			RawTrail: trail,
			Handle:   child,
		})
		return
	}
	*next = append(*next, frontierItem{handle: child, trail: trail, depth: depth})
}

func appendNibble(trail NibbleSequence, nib byte) NibbleSequence {
	out := make(NibbleSequence, len(trail)+1)
	copy(out, trail)
	out[len(trail)] = nib
	return out
}

func joinNibbles(a, b NibbleSequence) NibbleSequence {
	out := make(NibbleSequence, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}
