package als

import "errors"

// Decode failures are classified so the scan pipeline can decide what to
// surface: files that are not Live sets at all are silently skipped, broken
// archives and broken documents are recorded per file.
var (
	// ErrNotProjectFile means the bytes do not carry the gzip envelope a
	// Live set always has
	ErrNotProjectFile = errors.New("not a live set file")

	// ErrCorruptArchive means the gzip stream could not be decompressed
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrMalformedDocument means the decompressed XML document is
	// structurally broken
	ErrMalformedDocument = errors.New("malformed document")
)
