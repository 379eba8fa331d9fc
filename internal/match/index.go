package match

import (
	"sort"
	"strings"

	"github.com/maalaph/voicematch/internal/catalog"
)

// Index is the catalog-derived vocabulary: the distinct normalized accent,
// tag and tone values actually present in a candidate set. It serves two
// purposes: accent values widen the extractor's recognition set (the
// vocabulary is dynamic, derived from whatever the catalog holds at
// runtime), and [Index.SatisfiesAccent] backs the up-front short-circuit
// that guarantees the engine never invents a match for an attribute no
// candidate can satisfy.
//
// An Index is immutable after construction and safe for unlimited
// concurrent reads. Building is O(catalog); hot callers should reuse one
// index per catalog snapshot ([Matcher] memoises this keyed on the
// snapshot version).
type Index struct {
	accents map[string]bool
	tags    map[string]bool
	tones   map[string]bool

	// accentList is the accent set sorted longest-first, the order the
	// extractor needs for greedy phrase matching.
	accentList []string
}

// NewIndex scans the candidates once and collects their normalized accent,
// tag and tone values.
func NewIndex(voices []catalog.Voice, graph *AccentGraph) *Index {
	idx := &Index{
		accents: make(map[string]bool),
		tags:    make(map[string]bool),
		tones:   make(map[string]bool),
	}
	for _, v := range voices {
		if v.Accent != "" {
			idx.accents[graph.Normalize(v.Accent)] = true
		}
		for _, t := range v.TimbreTags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				idx.tags[t] = true
			}
		}
		for _, t := range v.ToneWords {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				idx.tones[t] = true
			}
		}
	}

	idx.accentList = make([]string, 0, len(idx.accents))
	for a := range idx.accents {
		idx.accentList = append(idx.accentList, a)
	}
	sort.Slice(idx.accentList, func(i, j int) bool {
		if len(idx.accentList[i]) != len(idx.accentList[j]) {
			return len(idx.accentList[i]) > len(idx.accentList[j])
		}
		return idx.accentList[i] < idx.accentList[j]
	})

	return idx
}

// HasAccent reports whether the exact normalized accent is present in the
// catalog.
func (idx *Index) HasAccent(label string) bool {
	return idx != nil && idx.accents[label]
}

// SatisfiesAccent reports whether any present accent could satisfy the
// query label, exactly, as a compound, or regionally per graph. When this
// returns false the engine short-circuits to an empty result without
// scoring: no candidate could ever match.
func (idx *Index) SatisfiesAccent(label string, graph *AccentGraph) bool {
	if idx == nil {
		return false
	}
	q := graph.Normalize(label)
	if idx.accents[q] {
		return true
	}
	for present := range idx.accents {
		if graph.Similar(q, present) {
			return true
		}
	}
	return false
}

// Accents returns the present accent values, longest label first. The
// returned slice is shared; callers must not modify it.
func (idx *Index) Accents() []string {
	if idx == nil {
		return nil
	}
	return idx.accentList
}

// HasTag reports whether any candidate carries the (lower-cased) timbre tag.
func (idx *Index) HasTag(tag string) bool {
	return idx != nil && idx.tags[tag]
}

// HasTone reports whether any candidate carries the (lower-cased) tone word.
func (idx *Index) HasTone(tone string) bool {
	return idx != nil && idx.tones[tone]
}
