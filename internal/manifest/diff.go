package manifest

import "slices"

// Diff lists the outputs that differ between two builds.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the builds produced the same outputs.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare returns the outputs added, removed and changed going from old to
// cur. A nil old manifest counts as empty. All lists are sorted.
func Compare(old, cur *Manifest) Diff {
	var d Diff
	if old == nil {
		old = New()
	}
	for p, h := range cur.entries {
		prev, ok := old.entries[p]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case prev != h:
			d.Changed = append(d.Changed, p)
		}
	}
	for p := range old.entries {
		if _, ok := cur.entries[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	slices.Sort(d.Changed)
	return d
}
