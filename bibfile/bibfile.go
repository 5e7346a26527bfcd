// Package bibfile loads bibliography source files into plain entry
// records. The BibTeX grammar itself is delegated to nickng/bibtex;
// this package only converts parse results into data the cache layer
// can own, snapshot and filter.
package bibfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickng/bibtex"
)

type (
	// Entry one bibliography record, keyed by its citation key.
	// Fields hold raw BibTeX field values, lower-cased field names.
	Entry struct {
		Key    string
		Type   string
		Fields map[string]string
	}

	// Data an ordered mapping from citation key to entry, owned by a
	// single bibliography-file snapshot. Replaced wholesale on
	// re-parse, never partially mutated.
	Data struct {
		Keys    []string
		Entries map[string]Entry
	}
)

func NewData() *Data {
	return &Data{
		Entries: make(map[string]Entry),
	}
}

// Add append entry keeping file order; duplicated keys keep the first
// occurrence and report false
func (d *Data) Add(e Entry) bool {
	if _, ok := d.Entries[e.Key]; ok {
		return false
	}
	d.Keys = append(d.Keys, e.Key)
	d.Entries[e.Key] = e
	return true
}

func (d *Data) Get(key string) (Entry, bool) {
	e, ok := d.Entries[key]
	return e, ok
}

func (d *Data) Len() int {
	return len(d.Keys)
}

func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Authors the author field split on the BibTeX "and" separator
func (e Entry) Authors() []string {
	raw := e.Field("author")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, " and ")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

func (e Entry) Year() string {
	return e.Field("year")
}

// Parse read one .bib source and convert it into Data. When strip is
// true, curly brackets are removed from field values (the directive's
// curly_bracket_strip option, applied at parse time so the cached
// data is ready for rendering).
func Parse(r io.Reader, strip bool) (*Data, error) {
	bib, err := bibtex.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse bibliography: %w", err)
	}

	data := NewData()
	for _, be := range bib.Entries {
		entry := Entry{
			Key:    be.CiteName,
			Type:   be.Type,
			Fields: make(map[string]string, len(be.Fields)),
		}
		for name, value := range be.Fields {
			v := value.String()
			if strip {
				v = StripCurlyBrackets(v)
			}
			entry.Fields[strings.ToLower(name)] = v
		}
		data.Add(entry)
	}
	return data, nil
}

// ParseFile Parse convenience over a file path.
func ParseFile(path string, strip bool) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bibliography %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, strip)
}

// StripCurlyBrackets remove brace characters BibTeX uses to protect
// capitalization, leaving the protected text itself
func StripCurlyBrackets(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '{' || r == '}' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
