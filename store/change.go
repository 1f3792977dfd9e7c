package store

import "github.com/jesspatton/lazyexplorer/testobject"

// ChangeKind says what happened to a batch of entries.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one non-empty batch of entries, keyed by identity.
type Change[T Entry] struct {
	Kind  ChangeKind
	Batch map[testobject.ID]T
}
