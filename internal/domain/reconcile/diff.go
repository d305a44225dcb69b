package reconcile

// Diff partitions node ids across two consecutive snapshots.
type Diff struct {
	Added    []string // in next only
	Removed  []string // in prev only
	Retained []string // in both
	Restored []string // subset of Added that was still exiting and came back
}

// Compute returns the set difference between prev and next.
// Added and Retained follow next's order, Removed follows prev's.
func Compute(prev, next []string) Diff {
	inPrev := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		inPrev[id] = struct{}{}
	}
	inNext := make(map[string]struct{}, len(next))

	var d Diff
	for _, id := range next {
		if _, dup := inNext[id]; dup {
			continue
		}
		inNext[id] = struct{}{}
		if _, ok := inPrev[id]; ok {
			d.Retained = append(d.Retained, id)
		} else {
			d.Added = append(d.Added, id)
		}
	}
	for _, id := range prev {
		if _, ok := inNext[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	return d
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
