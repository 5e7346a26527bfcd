package bibtex

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/drammock/sphinxcontrib-bibtex/util"
)

// SnapshotSchemaVersion bump on any incompatible change to the
// persisted layout; loads of a mismatched snapshot fail with
// ErrSnapshotVersion and the host starts cold instead of silently
// reading stale state.
const SnapshotSchemaVersion = 1

type (
	snapshotHeader struct {
		Magic   string
		Version int
	}

	directiveSnapshot struct {
		ID  string
		Bib *BibliographyCache
	}

	// snapshotModel plain-data mirror of Cache. The roaring posting
	// index and the intern table are derived and rebuilt on load;
	// ordered sets persist as plain slices.
	snapshotModel struct {
		Bibfiles     map[string]*BibfileCache
		Directives   map[string][]directiveSnapshot
		Cited        map[string][]string
		CitationRefs map[string]map[string][]string
		EnumCounters map[string]int
		LabelIndex   map[string]string
	}
)

const snapshotMagic = "bibtex-cache"

// SaveSnapshot serialize the whole cache so the host can persist it
// across incremental build invocations
func (c *Cache) SaveSnapshot(w io.Writer) error {
	model := snapshotModel{
		Bibfiles:     c.bibfiles,
		Directives:   make(map[string][]directiveSnapshot, len(c.bibliographies)),
		Cited:        make(map[string][]string, len(c.cited)),
		CitationRefs: c.citationRefs,
		EnumCounters: c.enumCounters,
		LabelIndex:   c.labelIndex,
	}
	for docname, dd := range c.bibliographies {
		dss := make([]directiveSnapshot, 0, len(dd.Order))
		for _, id := range dd.Order {
			dss = append(dss, directiveSnapshot{ID: id, Bib: dd.ByID[id]})
		}
		model.Directives[docname] = dss
	}
	for docname, set := range c.cited {
		model.Cited[docname] = set.Values()
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(snapshotHeader{Magic: snapshotMagic, Version: SnapshotSchemaVersion}); err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	if err := enc.Encode(model); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot rebuild a cache persisted by SaveSnapshot. Version
// mismatches surface ErrSnapshotVersion so the host can fall back to
// a cold start.
func LoadSnapshot(r io.Reader) (*Cache, error) {
	dec := gob.NewDecoder(r)

	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("decode snapshot header: %w", err)
	}
	if header.Magic != snapshotMagic {
		return nil, fmt.Errorf("not a bibtex cache snapshot (magic %q)", header.Magic)
	}
	if header.Version != SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: snapshot v%d, supported v%d",
			ErrSnapshotVersion, header.Version, SnapshotSchemaVersion)
	}

	var model snapshotModel
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	c := NewCache()
	if model.Bibfiles != nil {
		c.bibfiles = model.Bibfiles
	}
	if model.CitationRefs != nil {
		c.citationRefs = model.CitationRefs
	}
	if model.EnumCounters != nil {
		c.enumCounters = model.EnumCounters
	}
	if model.LabelIndex != nil {
		c.labelIndex = model.LabelIndex
	}
	for docname, dss := range model.Directives {
		for _, ds := range dss {
			c.RegisterBibliography(docname, ds.ID, ds.Bib)
		}
	}
	for docname, keys := range model.Cited {
		c.cited[docname] = util.NewOrderedSet(keys...)
	}
	c.rebuildCitedIndex()
	return c, nil
}
