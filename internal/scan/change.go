package scan

import (
	"github.com/hflor/livedex/internal/store"
)

// Change classifies what a scan should do with a candidate file
type Change int

const (
	// Unchanged means the persisted fingerprint matches exactly; no re-parse
	Unchanged Change = iota
	// New means the path has never been indexed
	New
	// Modified means size or modification time differ from the fingerprint
	Modified
	// ForcedRescan means the caller asked for a re-parse regardless of state
	ForcedRescan
)

func (c Change) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case New:
		return "new"
	case Modified:
		return "modified"
	case ForcedRescan:
		return "forced"
	default:
		return "unknown"
	}
}

// DetectChange decides whether a re-parse is required. The check is
// metadata-only: warm scans touch file content only for paths this gate
// lets through, which is what makes them fast.
func DetectChange(current store.Fingerprint, prev *store.Fingerprint, force bool) Change {
	if force {
		return ForcedRescan
	}
	if prev == nil {
		return New
	}
	if current.SizeBytes != prev.SizeBytes || current.MtimeUnix != prev.MtimeUnix {
		return Modified
	}
	return Unchanged
}
