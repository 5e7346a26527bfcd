package bibtex

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/drammock/sphinxcontrib-bibtex/bibfile"
	"github.com/drammock/sphinxcontrib-bibtex/parser"
)

// Label assignment. The resolve pass walks directives in
// VisitBibliographies order and entries in global citation order, so
// ordinals and alpha suffixes come out identical on every build.
// The reverse key->label index is filled incrementally with
// first-writer-wins: when two directives label the same key, the first
// registered directive's label is the one GetLabelForKey reports.

// noteLabel record key's label in the reverse index; the first writer
// wins and later writers report false
func (c *Cache) noteLabel(key, label string) bool {
	if _, ok := c.labelIndex[key]; ok {
		return false
	}
	c.labelIndex[key] = label
	return true
}

// GetLabelForKey the display label assigned to key by the first
// directive that labeled it; ErrKeyNotFound when no directive did
func (c *Cache) GetLabelForKey(key string) (string, error) {
	if label, ok := c.labelIndex[key]; ok {
		return label, nil
	}
	// index may be cold after a load; fall back to the directive scan
	var label string
	found := false
	c.VisitBibliographies(func(_, _ string, bc *BibliographyCache) bool {
		if l, ok := bc.Labels[key]; ok {
			label = l
			found = true
			return false
		}
		return true
	})
	if !found {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	c.noteLabel(key, label)
	return label, nil
}

// entryContext the filter evaluation scope for one entry
func (c *Cache) entryContext(docname string, e bibfile.Entry) *parser.Context {
	return &parser.Context{
		Key:       e.Key,
		EntryType: e.Type,
		Docname:   docname,
		Cited:     c.IsCited(e.Key),
		Fields:    e.Fields,
		Authors:   e.Authors(),
		Keywords:  splitKeywords(e.Field("keywords")),
	}
}

// SelectEntries the entries of bc's bibliography files that pass its
// filter, cited keys first in global citation order, then the
// remaining selected entries in file order. Filter evaluation errors
// become build warnings, the offending entry is skipped.
func (c *Cache) SelectEntries(docname string, bc *BibliographyCache) []bibfile.Entry {
	selected := make(map[string]bibfile.Entry)
	var fileOrder []string

	for _, name := range bc.BibFiles {
		bf, ok := c.bibfiles[name]
		if !ok || bf.Data == nil {
			LogWarn("bibliography file %s not parsed yet", name)
			continue
		}
		for _, key := range bf.Data.Keys {
			if _, dup := selected[key]; dup {
				continue
			}
			entry, _ := bf.Data.Get(key)
			ok, err := parser.Match(bc.Filter, c.entryContext(docname, entry))
			if err != nil {
				LogWarn("filter error for key %s: %v", key, err)
				continue
			}
			if ok {
				selected[key] = entry
				fileOrder = append(fileOrder, key)
			}
		}
	}

	entries := make([]bibfile.Entry, 0, len(fileOrder))
	emitted := make(map[string]bool, len(fileOrder))
	for _, key := range c.AllCitedKeys() {
		if e, ok := selected[key]; ok && !emitted[key] {
			entries = append(entries, e)
			emitted[key] = true
		}
	}
	for _, key := range fileOrder {
		if !emitted[key] {
			entries = append(entries, selected[key])
		}
	}
	return entries
}

// AssignLabels fill bc.Labels for its selected entries and update the
// reverse index. Enumerated lists consume the document's enumeration
// counter so ordinals keep incrementing across multiple lists in one
// document; other list types get alpha labels with duplicate-suffix
// disambiguation. Returns the keys labeled here that already carried a
// label from an earlier directive (rendered twice in the build).
func (c *Cache) AssignLabels(docname, id string, bc *BibliographyCache) (duplicates []string) {
	entries := c.SelectEntries(docname, bc)

	if bc.ListType == ListEnumerated {
		ordinal, err := c.GetEnumCounter(docname)
		if err != nil {
			// first enumerated list of this document
			ordinal = bc.Start
		}
		for _, e := range entries {
			label := bc.LabelPrefix + strconv.Itoa(ordinal)
			bc.Labels[e.Key] = label
			if !c.noteLabel(e.Key, label) {
				duplicates = append(duplicates, e.Key)
			}
			ordinal++
		}
		c.SetEnumCounter(docname, ordinal)
		return duplicates
	}

	baseCount := make(map[string]int, len(entries))
	for _, e := range entries {
		baseCount[bc.LabelPrefix+alphaLabel(e)]++
	}
	suffixed := make(map[string]int)
	for _, e := range entries {
		label := bc.LabelPrefix + alphaLabel(e)
		if baseCount[label] > 1 {
			// nearly identical entries render as xyz19a, xyz19b
			n := suffixed[label]
			suffixed[label] = n + 1
			label += string(rune('a' + n))
		}
		bc.Labels[e.Key] = label
		if !c.noteLabel(e.Key, label) {
			duplicates = append(duplicates, e.Key)
		}
	}
	return duplicates
}

// DuplicateLabels labels shared by more than one citation key across
// all directives, each with the keys that carry it sorted
// lexicographically; used for the duplicate-label build warning
func (c *Cache) DuplicateLabels() map[string][]string {
	keysByLabel := make(map[string]map[string]struct{})
	c.VisitBibliographies(func(_, _ string, bc *BibliographyCache) bool {
		for key, label := range bc.Labels {
			if keysByLabel[label] == nil {
				keysByLabel[label] = make(map[string]struct{})
			}
			keysByLabel[label][key] = struct{}{}
		}
		return true
	})

	dups := make(map[string][]string)
	for label, keySet := range keysByLabel {
		if len(keySet) < 2 {
			continue
		}
		keys := make([]string, 0, len(keySet))
		for key := range keySet {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		dups[label] = keys
	}
	return dups
}

// alphaLabel author-year style label: first three letters of the first
// author's surname plus the last two digits of the year; falls back to
// the citation key when the entry has no usable author
func alphaLabel(e bibfile.Entry) string {
	base := e.Key
	if authors := e.Authors(); len(authors) > 0 {
		if surname := authorSurname(authors[0]); surname != "" {
			base = surname
		}
	}
	runes := []rune(base)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	label := string(runes)

	year := e.Year()
	if len(year) >= 2 {
		label += year[len(year)-2:]
	}
	return label
}

// authorSurname BibTeX author names come as either "Surname, Given"
// or "Given Surname"
func authorSurname(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.IndexRune(name, ','); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	parts := strings.Fields(name)
	return parts[len(parts)-1]
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	keywords := make([]string, 0, len(split))
	for _, kw := range split {
		kw = strings.TrimFunc(kw, unicode.IsSpace)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
