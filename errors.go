package bibtex

import "errors"

// Lookup failures are ordinary conditions the directive and
// citation-reference layers translate into build warnings; only
// duplicate directive registration is a fatal caller-contract
// violation (see Cache.RegisterBibliography).
var (
	ErrBibliographyNotFound = errors.New("bibliography directive not found")
	ErrKeyNotFound          = errors.New("bibtex key not found")
	ErrNoCounter            = errors.New("no enumeration counter for document")
	ErrSnapshotVersion      = errors.New("snapshot schema version mismatch")
)
