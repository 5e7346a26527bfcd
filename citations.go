package bibtex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/drammock/sphinxcontrib-bibtex/util"
)

// Cited-key tracking. Each document keeps an insertion-ordered set of
// the keys it references; on top of that the cache interns every key
// to a dense id and maintains a per-document roaring posting set, so
// the cross-document IsCited check never walks the ordered sets.

// internKey allocate or look up the dense id of a citation key
func (c *Cache) internKey(key string) uint64 {
	if id, ok := c.keyIDs[key]; ok {
		return id
	}
	id := uint64(len(c.keyIDs))
	c.keyIDs[key] = id
	return id
}

// AddCited record that key is referenced in docname. Idempotent.
func (c *Cache) AddCited(key, docname string) {
	set, ok := c.cited[docname]
	if !ok {
		set = util.NewOrderedSet()
		c.cited[docname] = set
	}
	set.Add(key)

	bits, ok := c.citedBits[docname]
	if !ok {
		bits = roaring64.NewBitmap()
		c.citedBits[docname] = bits
	}
	bits.Add(c.internKey(key))
}

// IsCited report whether key is referenced by any tracked document
func (c *Cache) IsCited(key string) bool {
	id, ok := c.keyIDs[key]
	if !ok {
		return false
	}
	for _, bits := range c.citedBits {
		if bits.Contains(id) {
			return true
		}
	}
	return false
}

// AllCitedKeys every cited key, grouped by document in ascending
// document-name order and within a document in first-cited order.
// Label assignment depends on this order being reproducible across
// builds regardless of document processing order.
func (c *Cache) AllCitedKeys() []string {
	docnames := make([]string, 0, len(c.cited))
	for docname := range c.cited {
		docnames = append(docnames, docname)
	}
	sort.Strings(docnames)

	var keys []string
	for _, docname := range docnames {
		keys = append(keys, c.cited[docname].Values()...)
	}
	return keys
}

// AddCitationRef record the target id of one citation reference so
// rendered bibliography entries can link back to their citations
func (c *Cache) AddCitationRef(docname, key, refid string) {
	refs, ok := c.citationRefs[docname]
	if !ok {
		refs = make(map[string][]string)
		c.citationRefs[docname] = refs
	}
	refs[key] = append(refs[key], refid)
}

// BackRefs reference ids pointing at key, documents in ascending name
// order, refs in recorded order within a document
func (c *Cache) BackRefs(key string) []string {
	docnames := make([]string, 0, len(c.citationRefs))
	for docname := range c.citationRefs {
		docnames = append(docnames, docname)
	}
	sort.Strings(docnames)

	var refids []string
	for _, docname := range docnames {
		refids = append(refids, c.citationRefs[docname][key]...)
	}
	return refids
}

// rebuildCitedIndex recompute the intern table and posting sets from
// the ordered sets, used after a snapshot load where only plain data
// is persisted
func (c *Cache) rebuildCitedIndex() {
	c.keyIDs = make(map[string]uint64)
	c.citedBits = make(map[string]*roaring64.Bitmap)

	docnames := make([]string, 0, len(c.cited))
	for docname := range c.cited {
		docnames = append(docnames, docname)
	}
	sort.Strings(docnames)

	for _, docname := range docnames {
		bits := roaring64.NewBitmap()
		for _, key := range c.cited[docname].Values() {
			bits.Add(c.internKey(key))
		}
		c.citedBits[docname] = bits
	}
}
