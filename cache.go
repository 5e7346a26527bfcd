// Package bibtex keeps the cross-document citation bookkeeping for a
// documentation build pipeline: parsed bibliography file snapshots,
// per-directive configuration and label state, cited-key tracking and
// enumeration counters. The whole Cache survives incremental rebuilds
// through snapshot.go, so every stored field is plain data.
package bibtex

import (
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/drammock/sphinxcontrib-bibtex/bibfile"
	"github.com/drammock/sphinxcontrib-bibtex/parser"
	"github.com/drammock/sphinxcontrib-bibtex/util"
)

// ListType how a bibliography directive renders its entry list.
type ListType string

const (
	ListCitation   ListType = "citation"
	ListBullet     ListType = "bullet"
	ListEnumerated ListType = "enumerated"

	// DefaultEnumType the ordinal style for enumerated lists
	DefaultEnumType = "arabic"
)

type (
	// BibfileCache snapshot of one parsed bibliography source file.
	// A zero Mtime means never parsed, so any real file timestamp
	// compares newer and forces the first parse.
	BibfileCache struct {
		Mtime time.Time
		Data  *bibfile.Data
	}

	// BibliographyCache configuration and resolved label state of one
	// bibliography directive occurrence within one document.
	BibliographyCache struct {
		// BibFiles bibliography source identifiers, project-relative,
		// in directive order
		BibFiles []string

		Style    string
		ListType ListType
		EnumType string
		Start    int

		// Labels final display label per citation key, filled by the
		// resolve pass
		Labels map[string]string

		// LabelPrefix disambiguates generated labels and ids between
		// directives sharing a document or project
		LabelPrefix string

		// Filter entry selection predicate, evaluated lazily at
		// render time; nil selects everything
		Filter parser.Expr

		Encoding          string
		CurlyBracketStrip bool
	}

	// docDirectives directive registry of one document, keeping
	// registration order for deterministic global iteration
	docDirectives struct {
		Order []string
		ByID  map[string]*BibliographyCache
	}

	// Cache build-scoped registry over every document's bibliography
	// state. Not safe for concurrent use: the host pipeline mutates it
	// only inside its per-document and consolidation phases.
	Cache struct {
		bibfiles       map[string]*BibfileCache
		bibliographies map[string]*docDirectives
		cited          map[string]*util.OrderedSet
		citationRefs   map[string]map[string][]string
		enumCounters   map[string]int

		// first-writer-wins reverse label index, see labels.go
		labelIndex map[string]string

		// derived cited-key posting index, rebuilt on snapshot load
		keyIDs    map[string]uint64
		citedBits map[string]*roaring64.Bitmap
	}

	// BibOption configures a new BibliographyCache
	BibOption func(*BibliographyCache)
)

func NewCache() *Cache {
	return &Cache{
		bibfiles:       make(map[string]*BibfileCache),
		bibliographies: make(map[string]*docDirectives),
		cited:          make(map[string]*util.OrderedSet),
		citationRefs:   make(map[string]map[string][]string),
		enumCounters:   make(map[string]int),
		labelIndex:     make(map[string]string),
		keyIDs:         make(map[string]uint64),
		citedBits:      make(map[string]*roaring64.Bitmap),
	}
}

func NewBibfileCache() *BibfileCache {
	return &BibfileCache{
		Data: bibfile.NewData(),
	}
}

func WithBibFiles(files ...string) BibOption {
	return func(bc *BibliographyCache) {
		bc.BibFiles = append(bc.BibFiles, files...)
	}
}

func WithStyle(style string) BibOption {
	return func(bc *BibliographyCache) {
		bc.Style = style
	}
}

func WithListType(lt ListType) BibOption {
	return func(bc *BibliographyCache) {
		bc.ListType = lt
	}
}

func WithEnumeration(enumType string, start int) BibOption {
	return func(bc *BibliographyCache) {
		bc.ListType = ListEnumerated
		bc.EnumType = enumType
		bc.Start = start
	}
}

func WithLabelPrefix(prefix string) BibOption {
	return func(bc *BibliographyCache) {
		bc.LabelPrefix = prefix
	}
}

func WithFilter(filter parser.Expr) BibOption {
	return func(bc *BibliographyCache) {
		bc.Filter = filter
	}
}

func WithEncoding(encoding string) BibOption {
	return func(bc *BibliographyCache) {
		bc.Encoding = encoding
	}
}

func WithCurlyBracketStrip(strip bool) BibOption {
	return func(bc *BibliographyCache) {
		bc.CurlyBracketStrip = strip
	}
}

func NewBibliographyCache(opts ...BibOption) *BibliographyCache {
	bc := &BibliographyCache{
		ListType:          ListCitation,
		EnumType:          DefaultEnumType,
		Start:             1,
		Labels:            make(map[string]string),
		CurlyBracketStrip: true,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// Purge drop every piece of state recorded for docname: directives,
// cited keys, citation refs and enumeration counter. Idempotent.
// Bibfile snapshots are keyed by file, not document, and stay.
func (c *Cache) Purge(docname string) {
	delete(c.bibliographies, docname)
	delete(c.cited, docname)
	delete(c.citationRefs, docname)
	delete(c.enumCounters, docname)
	delete(c.citedBits, docname)
	// label index entries may refer to purged directives; rebuilt on
	// the next resolve pass
	c.labelIndex = make(map[string]string)
}

// BibfileStale report whether the bibliography file needs re-parsing:
// unknown files and files newer than the cached parse are stale. The
// caller stats the file; the cache never touches the filesystem.
func (c *Cache) BibfileStale(name string, mtime time.Time) bool {
	bf, ok := c.bibfiles[name]
	if !ok {
		return true
	}
	return mtime.After(bf.Mtime)
}

// UpdateBibfile replace the parse snapshot for name wholesale
func (c *Cache) UpdateBibfile(name string, mtime time.Time, data *bibfile.Data) {
	c.bibfiles[name] = &BibfileCache{
		Mtime: mtime,
		Data:  data,
	}
}

func (c *Cache) Bibfile(name string) (*BibfileCache, bool) {
	bf, ok := c.bibfiles[name]
	return bf, ok
}

// RegisterBibliography record the directive registered as id within
// docname. Directive ids are unique per document by construction of
// the directive layer; a duplicate here is a bug in the caller, not a
// recoverable condition.
func (c *Cache) RegisterBibliography(docname, id string, bc *BibliographyCache) {
	dd, ok := c.bibliographies[docname]
	if !ok {
		dd = &docDirectives{ByID: make(map[string]*BibliographyCache)}
		c.bibliographies[docname] = dd
	}
	_, dup := dd.ByID[id]
	util.PanicIf(dup, "bibliography directive %s already registered for document %s", id, docname)
	dd.Order = append(dd.Order, id)
	dd.ByID[id] = bc
}

func (c *Cache) GetBibliography(docname, id string) (*BibliographyCache, error) {
	if dd, ok := c.bibliographies[docname]; ok {
		if bc, ok := dd.ByID[id]; ok {
			return bc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in document %s", ErrBibliographyNotFound, id, docname)
}

// VisitBibliographies walk every registered directive, documents in
// ascending name order and directives in registration order. Return
// false from fn to stop early.
func (c *Cache) VisitBibliographies(fn func(docname, id string, bc *BibliographyCache) bool) {
	docnames := make([]string, 0, len(c.bibliographies))
	for docname := range c.bibliographies {
		docnames = append(docnames, docname)
	}
	sort.Strings(docnames)
	for _, docname := range docnames {
		dd := c.bibliographies[docname]
		for _, id := range dd.Order {
			if !fn(docname, id, dd.ByID[id]) {
				return
			}
		}
	}
}

// SetEnumCounter initialize or overwrite the ordinal cursor of a
// document's enumerated citation lists
func (c *Cache) SetEnumCounter(docname string, value int) {
	c.enumCounters[docname] = value
}

// GetEnumCounter a missing counter is a logic error distinct from a
// stored zero; callers must SetEnumCounter first
func (c *Cache) GetEnumCounter(docname string) (int, error) {
	v, ok := c.enumCounters[docname]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoCounter, docname)
	}
	return v, nil
}

// IncEnumCounter advance the cursor and return the new value
func (c *Cache) IncEnumCounter(docname string) (int, error) {
	v, ok := c.enumCounters[docname]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoCounter, docname)
	}
	v++
	c.enumCounters[docname] = v
	return v, nil
}
