// Package keyscan locates citation-key references in raw document
// source. The reference-processing layer feeds the occurrences into
// the cache (AddCited / AddCitationRef) and uses the absence of any
// occurrence to report unused bibliography entries.
package keyscan

import (
	"fmt"
	"unicode"

	aho "github.com/anknown/ahocorasick"
	"github.com/drammock/sphinxcontrib-bibtex/util"
)

type (
	// Occurrence one citation-key reference found in a document
	Occurrence struct {
		Key string
		// Pos rune offset of the key within the scanned source
		Pos int
	}

	// Scanner a multi-pattern matcher over the known citation keys.
	// Build once per key set; Scan is read-only afterwards.
	Scanner struct {
		machine *aho.Machine
		ready   bool
	}
)

// NewScanner compile the match machine for keys. An empty key set
// yields a scanner that matches nothing.
func NewScanner(keys []string) (*Scanner, error) {
	s := &Scanner{
		machine: new(aho.Machine),
	}
	keys = util.DistinctString(keys)
	if len(keys) == 0 {
		return s, nil
	}

	patterns := make([][]rune, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		patterns = append(patterns, []rune(key))
	}
	if err := s.machine.Build(patterns); err != nil {
		return nil, fmt.Errorf("build key scanner: %w", err)
	}
	s.ready = true
	return s, nil
}

// Scan every key occurrence in source, in document order. Matches
// embedded in a longer identifier are dropped: Smith19 must not fire
// inside Smith1999.
func (s *Scanner) Scan(source string) []Occurrence {
	if !s.ready || source == "" {
		return nil
	}

	runes := []rune(source)
	terms := s.machine.MultiPatternSearch(runes, false)

	occurrences := make([]Occurrence, 0, len(terms))
	for _, term := range terms {
		if !isolated(runes, term.Pos, len(term.Word)) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			Key: string(util.RunesToBytes(term.Word)),
			Pos: term.Pos,
		})
	}
	return occurrences
}

// isolated report whether the match at pos has no identifier
// characters adjacent on either side
func isolated(runes []rune, pos, length int) bool {
	if pos > 0 && isKeyRune(runes[pos-1]) {
		return false
	}
	if end := pos + length; end < len(runes) && isKeyRune(runes[end]) {
		return false
	}
	return true
}

func isKeyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
