// Package match implements the voice attribute matching and ranking engine.
//
// Given a free-text description of a desired voice ("old Indian-American
// man, deep raspy voice") and a slice of catalog candidates, [Matcher.Match]
// returns a ranked, confidence-gated list of the best matches, or an empty
// slice when no candidate is trustworthy enough. "No match" is a result,
// never an error.
//
// The pipeline is: vocabulary [Index] -> [Extractor] -> pre-filter ->
// scorer -> ranker + confidence gate. The engine performs no I/O and holds
// no mutable shared state beyond per-snapshot index memoisation, so any
// number of Match calls may run in parallel.
package match

import "github.com/maalaph/voicematch/internal/catalog"

// ParsedAttributes is the structured form of a query description. It is
// recomputed per call and never persisted. Unset fields mean the query does
// not constrain that attribute.
type ParsedAttributes struct {
	// Accent is the normalized accent constraint, compounded where the text
	// implied it ("indian" + "american" -> "indian-american").
	Accent string

	// Gender is the gender constraint. Extraction only ever produces
	// male/female; neutral is a candidate property, not a query value.
	Gender catalog.Gender

	// Age is the age-bracket constraint.
	Age catalog.AgeBracket

	// Character is the profession/archetype constraint ("pirate",
	// "detective"), normalized to its canonical roster form.
	Character string

	// AllowNeutral reports whether neutral-gender candidates may satisfy a
	// specific gender constraint. Set from the matcher's strictness mode.
	AllowNeutral bool

	// Timbres are the voice-quality words found in the text ("deep",
	// "raspy"), in canonical form.
	Timbres []string

	// Tones are the delivery-character words found in the text
	// ("confident", "warm"), in canonical form.
	Tones []string

	// Keywords are the significant tokens of the text, lower-cased,
	// stop-words removed, unique, in order of first appearance.
	Keywords []string

	// Phrases are the 2- and 3-word n-grams of the text, reused by the
	// scorer so it never reparses the description.
	Phrases []string
}

// HasAccent reports whether the query constrains the accent.
func (p ParsedAttributes) HasAccent() bool { return p.Accent != "" }

// HasGender reports whether the query constrains the gender.
func (p ParsedAttributes) HasGender() bool { return p.Gender != "" }

// HasAge reports whether the query constrains the age bracket.
func (p ParsedAttributes) HasAge() bool { return p.Age != "" }

// HasCharacter reports whether the query names a character or profession.
func (p ParsedAttributes) HasCharacter() bool { return p.Character != "" }

// Result is one ranked match.
type Result struct {
	// Voice is the matched candidate.
	Voice catalog.Voice

	// Score is the signed relevance score. Scores are comparable only
	// within one Match call; the absolute scale is not part of the API.
	Score float64

	// Details records which attribute categories matched, for
	// explainability and tests.
	Details Details
}

// Details explains a [Result].
type Details struct {
	// AccentMatch is true when the candidate's accent satisfied the query
	// exactly or as a compound all-parts match.
	AccentMatch bool `json:"accent_match"`

	// AccentRegional is true when the accent matched only through the
	// regional similarity graph.
	AccentRegional bool `json:"accent_regional"`

	// GenderMatch is true when the candidate's gender equalled the query's.
	GenderMatch bool `json:"gender_match"`

	// AgeMatch is true when the candidate's age bracket equalled the
	// query's.
	AgeMatch bool `json:"age_match"`

	// CharacterMatch is true when the queried character term was found in
	// the candidate's tags, name or description.
	CharacterMatch bool `json:"character_match"`

	// MatchedTags lists candidate timbre tags that query keywords hit.
	MatchedTags []string `json:"matched_tags,omitempty"`

	// MatchedTones lists candidate tone words that query tones hit,
	// directly or via a synonym.
	MatchedTones []string `json:"matched_tones,omitempty"`

	// MatchedKeywords lists query keywords found in the candidate's name,
	// description or use cases.
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}
