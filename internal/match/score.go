package match

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/maalaph/voicematch/internal/catalog"
)

// Fuzzy thresholds for the character bonus tier. A phonetic (Double
// Metaphone) hit accepts a lower Jaro-Winkler score than a purely fuzzy one.
const (
	phoneticCharThreshold = 0.70
	fuzzyCharThreshold    = 0.85
)

// Weights holds every penalty and bonus magnitude the scorer applies.
// The absolute numbers are tunable; the relative ordering is the contract:
// gender mismatch dominates everything, age mismatch outweighs accent
// mismatch, exact accents beat regional beat compound, and structured
// labels (boosted by StructuredBoost) dominate free-text heuristics.
// Penalties are negative.
type Weights struct {
	// GenderMismatch applies when a specific gender was requested and the
	// candidate's is specific and different. It must dominate all bonuses:
	// an opposite-gender candidate never outranks a same-gender one.
	GenderMismatch float64

	// AgeMismatch applies when both query and candidate brackets are set
	// and differ.
	AgeMismatch float64

	// AccentMismatch applies when the candidate's accent is neither exact
	// nor regionally similar.
	AccentMismatch float64

	// AccentMissing applies when an accent was requested and the candidate
	// has none.
	AccentMissing float64

	// AccentExact, AccentRegional and AccentCompound reward accent matches
	// in strictly descending order.
	AccentExact    float64
	AccentRegional float64
	AccentCompound float64

	// GenderExact rewards an exact gender label match.
	GenderExact float64

	// AgeExact rewards an exact bracket match; AgeFromText is the reduced
	// reward when the bracket is only inferred from the candidate's
	// description.
	AgeExact    float64
	AgeFromText float64

	// StructuredBoost re-applies the structured subtotal (accent, gender,
	// age) this many more times, so curated labels dominate free text.
	StructuredBoost float64

	// TagOverlap rewards a query keyword hitting a candidate timbre tag;
	// TimbreBoost is added on top for the strong perceptual timbre words.
	TagOverlap  float64
	TimbreBoost float64

	// ToneMatch rewards a direct tone-word overlap; ToneSynonym the
	// semantic-but-not-literal table hit.
	ToneMatch   float64
	ToneSynonym float64

	// CharacterTag, CharacterDescription and CharacterFuzzy are the tiered
	// character bonus: exact tag, description/name mention, fuzzy match.
	CharacterTag         float64
	CharacterDescription float64
	CharacterFuzzy       float64

	// UseCase rewards each overlapping use-case term.
	UseCase float64

	// NameWord, DescriptionWord and Phrase reward free-text hits, each
	// multiplied by FreeTextDiscount because unstructured text is less
	// trustworthy than curated labels.
	NameWord         float64
	DescriptionWord  float64
	Phrase           float64
	FreeTextDiscount float64

	// QualityBonus nudges high-tier voices, mainly to influence ties.
	QualityBonus float64
}

// DefaultWeights returns the standard magnitudes.
func DefaultWeights() Weights {
	return Weights{
		GenderMismatch: -1000,
		AgeMismatch:    -200,
		AccentMismatch: -60,
		AccentMissing:  -40,

		AccentExact:     60,
		AccentRegional:  35,
		AccentCompound:  25,
		GenderExact:     40,
		AgeExact:        40,
		AgeFromText:     15,
		StructuredBoost: 2,

		TagOverlap:  12,
		TimbreBoost: 10,
		ToneMatch:   10,
		ToneSynonym: 5,

		CharacterTag:         80,
		CharacterDescription: 50,
		CharacterFuzzy:       20,

		UseCase:          6,
		NameWord:         10,
		DescriptionWord:  8,
		Phrase:           14,
		FreeTextDiscount: 0.5,

		QualityBonus: 5,
	}
}

// Thresholds are the confidence gate levels: the top score must reach
// Character for queries naming a character/profession (narrow queries
// demand higher certainty) and Default otherwise, or the whole result set
// is suppressed.
type Thresholds struct {
	Default   float64
	Character float64
}

// DefaultThresholds returns the standard gate levels.
func DefaultThresholds() Thresholds {
	return Thresholds{Default: 25, Character: 50}
}

// scorer computes the signed relevance score of one candidate against one
// parsed query. Read-only after construction.
type scorer struct {
	w     Weights
	graph *AccentGraph

	agePhrases []AgePhrase
	boosted    map[string]bool
	toneSyn    map[string]map[string]bool
	generic    map[string]bool
}

func newScorer(vocab *Vocabulary, graph *AccentGraph, w Weights) *scorer {
	s := &scorer{
		w:          w,
		graph:      graph,
		agePhrases: vocab.AgePhrases,
		boosted:    toSet(vocab.BoostedTimbres),
		toneSyn:    make(map[string]map[string]bool),
		generic:    toSet(vocab.GenericNouns),
	}
	// Symmetric closure: a synonym entry works in both directions.
	addSyn := func(a, b string) {
		if s.toneSyn[a] == nil {
			s.toneSyn[a] = make(map[string]bool)
		}
		s.toneSyn[a][b] = true
	}
	for word, syns := range vocab.ToneSynonyms {
		word = strings.ToLower(word)
		for _, syn := range syns {
			syn = strings.ToLower(syn)
			addSyn(word, syn)
			addSyn(syn, word)
		}
	}
	return s
}

// score applies penalties first, then bonuses, so keyword overlap can never
// outweigh a hard mismatch that slipped past a relaxed filter.
func (s *scorer) score(attrs ParsedAttributes, v catalog.Voice) (float64, Details) {
	var (
		det      Details
		total    float64
		nameNorm = normalizeText(v.DisplayName)
		descNorm = normalizeText(v.Description)
	)

	// ── mismatch penalties ────────────────────────────────────────────
	if attrs.HasAge() && v.Age != "" && v.Age != attrs.Age {
		total += s.w.AgeMismatch
	}
	if attrs.HasGender() && v.Gender != "" && v.Gender != catalog.GenderNeutral && v.Gender != attrs.Gender {
		total += s.w.GenderMismatch
	}
	if attrs.HasAccent() {
		if v.Accent == "" {
			total += s.w.AccentMissing
		} else if s.graph.Classify(attrs.Accent, v.Accent) == AccentNone {
			total += s.w.AccentMismatch
		}
	}

	// ── structured-label bonuses ──────────────────────────────────────
	var structured float64
	if attrs.HasAccent() && v.Accent != "" {
		switch s.graph.Classify(attrs.Accent, v.Accent) {
		case AccentExact:
			structured += s.w.AccentExact
			det.AccentMatch = true
		case AccentCompound:
			structured += s.w.AccentCompound
			det.AccentMatch = true
		case AccentRegional:
			structured += s.w.AccentRegional
			det.AccentRegional = true
		}
	}
	if attrs.HasGender() && v.Gender == attrs.Gender {
		structured += s.w.GenderExact
		det.GenderMatch = true
	}
	if attrs.HasAge() {
		switch {
		case v.Age == attrs.Age:
			structured += s.w.AgeExact
			det.AgeMatch = true
		case v.Age == "" && ageFromText(descNorm, s.agePhrases) == attrs.Age:
			structured += s.w.AgeFromText
			det.AgeMatch = true
		}
	}
	// Re-apply the subtotal so curated labels dominate free-text credit.
	total += structured + structured*s.w.StructuredBoost

	// ── tag/timbre bonuses ────────────────────────────────────────────
	queryWords := toSet(attrs.Keywords)
	for _, t := range attrs.Timbres {
		queryWords[t] = true
	}
	for _, tag := range v.TimbreTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || !queryWords[tag] {
			continue
		}
		total += s.w.TagOverlap
		if s.boosted[tag] {
			total += s.w.TimbreBoost
		}
		det.MatchedTags = append(det.MatchedTags, tag)
	}

	// ── tone bonuses ──────────────────────────────────────────────────
	for _, vt := range v.ToneWords {
		vt = strings.ToLower(strings.TrimSpace(vt))
		if vt == "" {
			continue
		}
		credited := false
		for _, qt := range attrs.Tones {
			if qt == vt {
				total += s.w.ToneMatch
				credited = true
				break
			}
		}
		if !credited {
			for _, qt := range attrs.Tones {
				if s.toneSyn[qt][vt] {
					total += s.w.ToneSynonym
					credited = true
					break
				}
			}
		}
		if credited {
			det.MatchedTones = append(det.MatchedTones, vt)
		}
	}

	// ── character bonus, tiered ───────────────────────────────────────
	if attrs.HasCharacter() {
		switch {
		case characterInTags(v, attrs.Character):
			total += s.w.CharacterTag
			det.CharacterMatch = true
		case characterInText(nameNorm, descNorm, attrs.Character):
			total += s.w.CharacterDescription
			det.CharacterMatch = true
		case characterFuzzy(v, attrs.Character):
			total += s.w.CharacterFuzzy
			det.CharacterMatch = true
		}
	}

	// ── use-case bonus ────────────────────────────────────────────────
	for _, u := range v.UseCases {
		for _, field := range strings.Fields(strings.ToLower(u)) {
			if queryWords[field] {
				total += s.w.UseCase
				det.MatchedKeywords = appendUnique(det.MatchedKeywords, field)
				break
			}
		}
	}

	// ── discounted free-text bonuses ──────────────────────────────────
	ageConflict := attrs.HasAge() && conflictsWithAge(descNorm, attrs.Age, s.agePhrases)
	for _, k := range attrs.Keywords {
		if s.generic[k] && ageConflict {
			continue
		}
		if containsWord(nameNorm, k) {
			total += s.w.NameWord * s.w.FreeTextDiscount
			det.MatchedKeywords = appendUnique(det.MatchedKeywords, k)
		}
		if containsWord(descNorm, k) {
			total += s.w.DescriptionWord * s.w.FreeTextDiscount
			det.MatchedKeywords = appendUnique(det.MatchedKeywords, k)
		}
	}
	for _, p := range attrs.Phrases {
		if strings.Contains(descNorm, p) || strings.Contains(nameNorm, p) {
			total += s.w.Phrase * s.w.FreeTextDiscount
		}
	}

	// ── quality tie-bonus ─────────────────────────────────────────────
	if v.Quality == catalog.QualityHigh {
		total += s.w.QualityBonus
	}

	return total, det
}

// conflictsWithAge reports whether the candidate's description implies an
// age bucket different from the queried one. Generic person nouns are
// denied free-text credit in that case, so "man" never pulls an elderly
// candidate toward a young query.
func conflictsWithAge(descNorm string, want catalog.AgeBracket, phrases []AgePhrase) bool {
	got := ageFromText(descNorm, phrases)
	return got != "" && got != want
}

// characterInTags reports an exact (or plural) character hit among the
// candidate's tags and use cases.
func characterInTags(v catalog.Voice, character string) bool {
	plural := character + "s"
	eq := func(s string) bool {
		s = strings.ToLower(strings.TrimSpace(s))
		return s == character || s == plural
	}
	for _, t := range v.TimbreTags {
		if eq(t) {
			return true
		}
	}
	for _, u := range v.UseCases {
		if eq(u) {
			return true
		}
	}
	return false
}

// characterInText reports a whole-word character mention in the display
// name or description.
func characterInText(nameNorm, descNorm, character string) bool {
	plural := character + "s"
	return containsWord(nameNorm, character) || containsWord(nameNorm, plural) ||
		containsWord(descNorm, character) || containsWord(descNorm, plural)
}

// characterFuzzy runs the two-stage fuzzy tier over the candidate's tags,
// use cases and name tokens: Double Metaphone code overlap accepts a lower
// Jaro-Winkler score; otherwise pure Jaro-Winkler needs the higher one.
func characterFuzzy(v catalog.Voice, character string) bool {
	var tokens []string
	for _, t := range v.TimbreTags {
		tokens = append(tokens, strings.Fields(strings.ToLower(t))...)
	}
	for _, u := range v.UseCases {
		tokens = append(tokens, strings.Fields(strings.ToLower(u))...)
	}
	tokens = append(tokens, strings.Fields(normalizeText(v.DisplayName))...)

	p1, s1 := matchr.DoubleMetaphone(character)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		p2, s2 := matchr.DoubleMetaphone(tok)
		phonetic := codeOverlap(p1, s1, p2, s2)
		jw := matchr.JaroWinkler(character, tok, false)
		if phonetic && jw >= phoneticCharThreshold {
			return true
		}
		if jw >= fuzzyCharThreshold {
			return true
		}
	}
	return false
}

// codeOverlap reports whether the two Double Metaphone code pairs share a
// non-empty code.
func codeOverlap(p1, s1, p2, s2 string) bool {
	match := func(a, b string) bool { return a != "" && a == b }
	return match(p1, p2) || match(p1, s2) || match(s1, p2) || match(s1, s2)
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
