package bibtex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/drammock/sphinxcontrib-bibtex/bibfile"
	"github.com/drammock/sphinxcontrib-bibtex/keyscan"
	"github.com/drammock/sphinxcontrib-bibtex/util"
)

type (
	// Domain the explicit per-build context the host pipeline passes
	// through its phase hooks; owns the Cache, no ambient singleton.
	// Lifecycle: create (or load) at build start, PurgeDoc on every
	// document rebuild, Resolve in the consolidation phase, snapshot
	// at build end.
	Domain struct {
		cache *Cache
	}

	DomainOption func(*Domain)
)

// WithCache reuse a cache loaded from a previous build's snapshot
func WithCache(c *Cache) DomainOption {
	return func(d *Domain) {
		d.cache = c
	}
}

func NewDomain(opts ...DomainOption) *Domain {
	d := &Domain{}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = NewCache()
	}
	return d
}

func (d *Domain) Cache() *Cache {
	return d.cache
}

// PurgeDoc host hook: a document is about to be re-processed, drop
// everything recorded for it
func (d *Domain) PurgeDoc(docname string) {
	d.cache.Purge(docname)
}

// LoadBibfile stat name under root and re-parse it only when the
// cached snapshot is stale. This is the only place the extension
// touches the filesystem; the cache itself never does.
func (d *Domain) LoadBibfile(root, name string, strip bool) error {
	path := filepath.Join(root, name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat bibliography %s: %w", name, err)
	}
	if !d.cache.BibfileStale(name, info.ModTime()) {
		LogDebug("bibliography %s up to date", name)
		return nil
	}

	data, err := bibfile.ParseFile(path, strip)
	if err != nil {
		return err
	}
	d.cache.UpdateBibfile(name, info.ModTime(), data)
	LogInfo("parsed bibliography %s (%d entries)", name, data.Len())
	return nil
}

// RegisterBibliography host hook for each bibliography directive
// encountered while parsing docname
func (d *Domain) RegisterBibliography(docname, id string, bc *BibliographyCache) {
	d.cache.RegisterBibliography(docname, id, bc)
}

// ProcessCitations host hook for a parsed document: scan its source
// for references to any known citation key and record them, assigning
// each occurrence a back-reference target id.
func (d *Domain) ProcessCitations(docname, source string) error {
	scanner, err := keyscan.NewScanner(d.knownKeys())
	if err != nil {
		return err
	}
	for i, occ := range scanner.Scan(source) {
		d.cache.AddCited(occ.Key, docname)
		d.cache.AddCitationRef(docname, occ.Key, fmt.Sprintf("cite-%s-%d", docname, i))
	}
	return nil
}

// Resolve consolidation-phase hook: assign labels to every registered
// directive in deterministic order and emit the build warnings the
// original users rely on (duplicate citations, duplicate labels,
// unresolvable keys).
func (d *Domain) Resolve() {
	d.cache.VisitBibliographies(func(docname, id string, bc *BibliographyCache) bool {
		for _, key := range d.cache.AssignLabels(docname, id, bc) {
			LogWarn("duplicate citation for key %s", key)
		}
		LogDebug("directive %s/%s labels: %s", docname, id, util.JSONString(bc.Labels))
		return true
	})

	for label, keys := range d.cache.DuplicateLabels() {
		joined := keys[0]
		for _, k := range keys[1:] {
			joined += "," + k
		}
		LogWarn("duplicate label %s for keys %s", label, joined)
	}

	for _, key := range d.cache.AllCitedKeys() {
		if _, err := d.cache.GetLabelForKey(key); err != nil {
			LogWarn("could not find bibtex key %s", key)
		}
	}
}

// UnusedKeys bibliography entries never cited by any document, sorted;
// hosts use this to warn about or omit unused entries
func (d *Domain) UnusedKeys() []string {
	var unused []string
	for _, key := range d.knownKeys() {
		if !d.cache.IsCited(key) {
			unused = append(unused, key)
		}
	}
	sort.Strings(unused)
	return unused
}

// SaveTo persist the cache for the next incremental build
func (d *Domain) SaveTo(w io.Writer) error {
	return d.cache.SaveSnapshot(w)
}

// knownKeys union of the keys of every parsed bibliography file
func (d *Domain) knownKeys() []string {
	var keys []string
	names := make([]string, 0, len(d.cache.bibfiles))
	for name := range d.cache.bibfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if data := d.cache.bibfiles[name].Data; data != nil {
			keys = append(keys, data.Keys...)
		}
	}
	return util.DistinctString(keys)
}
