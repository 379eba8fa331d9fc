package match

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maalaph/voicematch/internal/catalog"
)

// ageNumberRe matches explicit "N-year(s)-old" mentions in any spacing or
// hyphenation.
var ageNumberRe = regexp.MustCompile(`\b(\d{1,3})[\s-]?years?[\s-]?old\b`)

// Extractor parses free-text voice descriptions into [ParsedAttributes]
// using a [Vocabulary]. It is read-only after construction and safe for
// concurrent use.
type Extractor struct {
	vocab *Vocabulary
	graph *AccentGraph

	stop          map[string]bool
	genderByTerm  map[string]catalog.Gender
	characters    map[string]bool
	charAliases   []aliasEntry
	timbres       map[string]bool
	timbreAliases map[string]string
	tones         map[string]bool
	compoundable  map[string]bool
	cues          map[string]bool

	// accentTerms is the static accent vocabulary, longest label first so
	// "southern american" wins over "american".
	accentTerms []string
}

type aliasEntry struct {
	phrase    string
	canonical string
}

// NewExtractor compiles the vocabulary into lookup form.
func NewExtractor(vocab *Vocabulary, graph *AccentGraph) *Extractor {
	e := &Extractor{
		vocab:         vocab,
		graph:         graph,
		stop:          toSet(vocab.StopWords),
		genderByTerm:  make(map[string]catalog.Gender, len(vocab.GenderTerms)),
		characters:    toSet(vocab.Characters),
		timbres:       toSet(vocab.TimbreWords),
		timbreAliases: make(map[string]string, len(vocab.TimbreAliases)),
		tones:         toSet(vocab.ToneWords),
		compoundable:  toSet(vocab.CompoundDemonyms),
		cues:          toSet(vocab.AmericanCues),
	}

	for _, gt := range vocab.GenderTerms {
		e.genderByTerm[strings.ToLower(gt.Term)] = gt.Gender
	}
	for phrase, canonical := range vocab.CharacterAliases {
		e.charAliases = append(e.charAliases, aliasEntry{
			phrase:    strings.ToLower(phrase),
			canonical: strings.ToLower(canonical),
		})
	}
	sort.Slice(e.charAliases, func(i, j int) bool {
		if len(e.charAliases[i].phrase) != len(e.charAliases[j].phrase) {
			return len(e.charAliases[i].phrase) > len(e.charAliases[j].phrase)
		}
		return e.charAliases[i].phrase < e.charAliases[j].phrase
	})
	for from, to := range vocab.TimbreAliases {
		e.timbreAliases[strings.ToLower(from)] = strings.ToLower(to)
	}

	e.accentTerms = make([]string, 0, len(vocab.Accents)+len(vocab.Graph.Variants))
	for _, a := range vocab.Accents {
		e.accentTerms = append(e.accentTerms, strings.ToLower(a))
	}
	// Variant spellings are recognised too ("us southern", "aussie"), except
	// the two-letter ones ("us", "uk") that collide with ordinary words.
	for from := range vocab.Graph.Variants {
		if from = strings.ToLower(from); len(from) >= 3 {
			e.accentTerms = append(e.accentTerms, from)
		}
	}
	sort.Slice(e.accentTerms, func(i, j int) bool {
		if len(e.accentTerms[i]) != len(e.accentTerms[j]) {
			return len(e.accentTerms[i]) > len(e.accentTerms[j])
		}
		return e.accentTerms[i] < e.accentTerms[j]
	})

	return e
}

// Extract parses description into structured attributes. idx may be nil;
// when present, catalog-derived accent values widen the recognition set.
// Extraction never fails: a signal that is not found leaves its field
// unset.
func (e *Extractor) Extract(description string, idx *Index) ParsedAttributes {
	attrs := ParsedAttributes{AllowNeutral: true}

	text := normalizeText(description)
	if text == "" {
		return attrs
	}
	tokens := strings.Fields(text)

	attrs.Keywords = e.keywords(tokens)
	attrs.Phrases = e.phrases(tokens)
	attrs.Age = e.extractAge(text)
	attrs.Gender = e.extractGender(tokens)
	attrs.Accent = e.extractAccent(text, tokens, idx)
	attrs.Character = e.extractCharacter(text, tokens)
	attrs.Timbres, attrs.Tones = e.extractTimbreTone(tokens)

	return attrs
}

// keywords returns the stop-word-filtered tokens, unique, in order of
// first appearance.
func (e *Extractor) keywords(tokens []string) []string {
	var out []string
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = trimTokenEdges(t)
		if t == "" || e.stop[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// phrases returns the 2- and 3-word n-grams of the token stream, skipping
// phrases made of stop words only.
func (e *Extractor) phrases(tokens []string) []string {
	var out []string
	add := func(parts []string) {
		allStop := true
		for _, p := range parts {
			if !e.stop[p] {
				allStop = false
				break
			}
		}
		if !allStop {
			out = append(out, strings.Join(parts, " "))
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		add(tokens[i : i+2])
	}
	for i := 0; i+2 < len(tokens); i++ {
		add(tokens[i : i+3])
	}
	return out
}

// extractAge buckets an explicit "N-year-old" mention numerically, falling
// back to the ordered age-phrase table.
func (e *Extractor) extractAge(text string) catalog.AgeBracket {
	return ageFromText(text, e.vocab.AgePhrases)
}

// ageFromText is shared with the scorer, which uses it to infer an age
// bucket from candidate descriptions. An explicit "N-year-old" wins; the
// phrase table is consulted in order otherwise.
func ageFromText(text string, phrases []AgePhrase) catalog.AgeBracket {
	if m := ageNumberRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return bucketAge(n)
		}
	}
	for _, ap := range phrases {
		if containsWord(text, strings.ToLower(ap.Phrase)) {
			return ap.Bracket
		}
	}
	return ""
}

// bucketAge maps a numeric age to a bracket. Young-adult ages fold into
// young.
func bucketAge(n int) catalog.AgeBracket {
	switch {
	case n >= 60:
		return catalog.AgeOlder
	case n >= 40:
		return catalog.AgeMiddle
	default:
		return catalog.AgeYoung
	}
}

// extractGender returns the gender of the first explicit gendered noun, or
// empty when the text names none. It never produces neutral: neutral is a
// candidate property, not a query constraint.
func (e *Extractor) extractGender(tokens []string) catalog.Gender {
	for _, t := range tokens {
		if g, ok := e.genderByTerm[trimPossessive(t)]; ok {
			return g
		}
	}
	return ""
}

// extractAccent finds the longest known accent mention, widened by the
// catalog-derived index, then applies American-context compounding: a bare
// demonym like "african" next to an American cue becomes
// "african-american" before any filtering or scoring sees it.
func (e *Extractor) extractAccent(text string, tokens []string, idx *Index) string {
	found := e.findAccentTerm(text, idx)
	if found == "" {
		return ""
	}
	accent := e.graph.Normalize(found)

	if e.compoundable[accent] && e.hasAmericanCue(text, tokens, accent) {
		return accent + "-american"
	}
	if accent == "american" {
		for _, d := range e.vocab.CompoundDemonyms {
			if containsWord(text, strings.ToLower(d)) {
				return e.graph.Normalize(d) + "-american"
			}
		}
	}
	return accent
}

// findAccentTerm scans catalog accents first (they are what the catalog
// can actually satisfy), then the static vocabulary, both longest label
// first. Hyphenated terms also match their space-joined spelling.
func (e *Extractor) findAccentTerm(text string, idx *Index) string {
	match := func(term string) bool {
		if containsWord(text, term) {
			return true
		}
		if strings.Contains(term, "-") {
			return containsWord(text, strings.ReplaceAll(term, "-", " "))
		}
		return false
	}
	for _, term := range idx.Accents() {
		if match(term) {
			return term
		}
	}
	for _, term := range e.accentTerms {
		if match(term) {
			return term
		}
	}
	return ""
}

// hasAmericanCue reports whether an American context word accompanies the
// demonym. The bare cue "us" only counts within two tokens of the demonym,
// since it doubles as a pronoun.
func (e *Extractor) hasAmericanCue(text string, tokens []string, demonym string) bool {
	for cue := range e.cues {
		if cue == "us" {
			continue
		}
		if containsWord(text, cue) {
			return true
		}
	}
	if !e.cues["us"] {
		return false
	}
	pos := -1
	for i, t := range tokens {
		if trimTokenEdges(t) == demonym {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	for i := max(0, pos-2); i < len(tokens) && i <= pos+2; i++ {
		if trimTokenEdges(tokens[i]) == "us" {
			return true
		}
	}
	return false
}

// extractCharacter resolves multi-word aliases first ("jazz musician" ->
// "musician"), then scans tokens against the roster, tolerating a plural
// "s".
func (e *Extractor) extractCharacter(text string, tokens []string) string {
	for _, alias := range e.charAliases {
		if containsWord(text, alias.phrase) {
			return alias.canonical
		}
	}
	for _, t := range tokens {
		t = trimPossessive(t)
		if e.characters[t] {
			return t
		}
		if s, ok := strings.CutSuffix(t, "s"); ok && e.characters[s] {
			return s
		}
	}
	return ""
}

// extractTimbreTone collects canonical timbre and tone words, keeping the
// two vocabularies strictly apart.
func (e *Extractor) extractTimbreTone(tokens []string) (timbres, tones []string) {
	seenTimbre := make(map[string]bool)
	seenTone := make(map[string]bool)
	for _, t := range tokens {
		t = e.canonTimbre(t)
		if e.timbres[t] && !seenTimbre[t] {
			seenTimbre[t] = true
			timbres = append(timbres, t)
			continue
		}
		if e.tones[t] && !seenTone[t] {
			seenTone[t] = true
			tones = append(tones, t)
		}
	}
	return timbres, tones
}

// canonTimbre resolves timbre aliases. Aliases are tried on the raw token
// first so possessive forms like "smoker's" keep their alias entry.
func (e *Extractor) canonTimbre(t string) string {
	t = trimTokenEdges(t)
	if canon, ok := e.timbreAliases[t]; ok {
		return canon
	}
	t = strings.TrimSuffix(t, "'s")
	if canon, ok := e.timbreAliases[t]; ok {
		return canon
	}
	return t
}

// ── text helpers ──────────────────────────────────────────────────────────

// normalizeText lower-cases and replaces punctuation with spaces, keeping
// in-word hyphens and apostrophes ("indian-american", "smoker's").
func normalizeText(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// trimTokenEdges strips hyphens and apostrophes left at token edges by
// punctuation like quotes or dashes.
func trimTokenEdges(t string) string {
	return strings.Trim(t, "-'")
}

// trimPossessive removes a trailing "'s" and token-edge punctuation.
func trimPossessive(t string) string {
	t = trimTokenEdges(t)
	t = strings.TrimSuffix(t, "'s")
	return t
}

// containsWord reports whether phrase occurs in text on word boundaries.
// Hyphens count as boundaries, so "indian" is found in "indian-american";
// callers that care scan longer terms first.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	from := 0
	for {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		from = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
