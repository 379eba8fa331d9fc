package match

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maalaph/voicematch/internal/catalog"
)

// Vocabulary is the data-driven word table set the engine parses and scores
// with. The built-in tables from [DefaultVocabulary] cover English voice
// descriptions; deployments can override any table with a versioned YAML
// pack via [LoadVocabularyFile]. Tables left empty in a pack keep their
// built-in contents.
type Vocabulary struct {
	// Version identifies the vocabulary revision, logged at startup.
	Version string `yaml:"version"`

	// StopWords are tokens dropped from the keyword set.
	StopWords []string `yaml:"stop_words"`

	// AgePhrases maps description phrases to age brackets. Checked in
	// order, so more specific phrases must precede generic ones
	// ("middle-aged" before "aged").
	AgePhrases []AgePhrase `yaml:"age_phrases"`

	// Accents are the accent labels the extractor recognises in text,
	// longest first at match time. Catalog-derived values widen this set at
	// runtime.
	Accents []string `yaml:"accents"`

	// CompoundDemonyms are bare demonyms that combine with an American
	// context cue into a hyphenated compound accent ("indian" ->
	// "indian-american").
	CompoundDemonyms []string `yaml:"compound_demonyms"`

	// AmericanCues are the context words that trigger compounding.
	AmericanCues []string `yaml:"american_cues"`

	// GenderTerms maps explicit gendered nouns to a gender constraint.
	GenderTerms []GenderTerm `yaml:"gender_terms"`

	// Characters is the roster of profession/archetype nouns.
	Characters []string `yaml:"characters"`

	// CharacterAliases normalises compound mentions to their roster form
	// ("jazz musician" -> "musician").
	CharacterAliases map[string]string `yaml:"character_aliases"`

	// TimbreWords describe the physical sound of a voice.
	TimbreWords []string `yaml:"timbre_words"`

	// TimbreAliases normalises timbre spellings ("smoker's" -> "smoky").
	TimbreAliases map[string]string `yaml:"timbre_aliases"`

	// BoostedTimbres are the strong perceptual signals that earn an extra
	// tag bonus.
	BoostedTimbres []string `yaml:"boosted_timbres"`

	// ToneWords describe delivery character, kept strictly separate from
	// timbre.
	ToneWords []string `yaml:"tone_words"`

	// ToneSynonyms grants reduced credit for semantically close tone words.
	// Applied symmetrically.
	ToneSynonyms map[string][]string `yaml:"tone_synonyms"`

	// GenericNouns are person words excluded from free-text credit when
	// they would contradict an already-matched age signal.
	GenericNouns []string `yaml:"generic_nouns"`

	// Graph configures the regional accent graph.
	Graph GraphConfig `yaml:"accent_graph"`
}

// AgePhrase maps one description phrase to an age bracket.
type AgePhrase struct {
	Phrase  string             `yaml:"phrase"`
	Bracket catalog.AgeBracket `yaml:"bracket"`
}

// GenderTerm maps one gendered noun to a gender constraint.
type GenderTerm struct {
	Term   string         `yaml:"term"`
	Gender catalog.Gender `yaml:"gender"`
}

// DefaultVocabulary returns the built-in English tables.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Version: "builtin-1",

		StopWords: []string{
			"a", "an", "the", "and", "or", "but", "with", "for", "of", "to",
			"in", "on", "at", "is", "are", "was", "be", "has", "have", "had",
			"that", "this", "it", "as", "by", "from", "like", "who", "very",
			"really", "quite", "some", "please", "would", "should", "could",
			"want", "need", "needs", "looking", "sounds", "sound", "sounding",
			"voice", "voices", "accent", "accented", "speaking", "speaks",
			"speaker", "style", "i", "me", "my", "im", "id",
		},

		AgePhrases: []AgePhrase{
			{Phrase: "middle-aged", Bracket: catalog.AgeMiddle},
			{Phrase: "middle aged", Bracket: catalog.AgeMiddle},
			{Phrase: "young adult", Bracket: catalog.AgeYoung},
			{Phrase: "elderly", Bracket: catalog.AgeOlder},
			{Phrase: "older", Bracket: catalog.AgeOlder},
			{Phrase: "old", Bracket: catalog.AgeOlder},
			{Phrase: "senior", Bracket: catalog.AgeOlder},
			{Phrase: "aged", Bracket: catalog.AgeOlder},
			{Phrase: "grandfather", Bracket: catalog.AgeOlder},
			{Phrase: "grandmother", Bracket: catalog.AgeOlder},
			{Phrase: "grandpa", Bracket: catalog.AgeOlder},
			{Phrase: "grandma", Bracket: catalog.AgeOlder},
			{Phrase: "granny", Bracket: catalog.AgeOlder},
			{Phrase: "young", Bracket: catalog.AgeYoung},
			{Phrase: "youthful", Bracket: catalog.AgeYoung},
			{Phrase: "teenage", Bracket: catalog.AgeYoung},
			{Phrase: "teenager", Bracket: catalog.AgeYoung},
			{Phrase: "teen", Bracket: catalog.AgeYoung},
			{Phrase: "child", Bracket: catalog.AgeYoung},
			{Phrase: "kid", Bracket: catalog.AgeYoung},
			{Phrase: "boy", Bracket: catalog.AgeYoung},
			{Phrase: "girl", Bracket: catalog.AgeYoung},
		},

		Accents: []string{
			"american", "british", "scottish", "irish", "welsh", "cockney",
			"australian", "new zealand", "canadian",
			"southern american", "new york", "boston", "midwestern",
			"californian", "texan",
			"indian", "pakistani", "bangladeshi", "sri lankan", "nepali",
			"chinese", "japanese", "korean", "taiwanese",
			"filipino", "vietnamese", "thai", "indonesian", "malaysian",
			"russian", "ukrainian", "polish", "czech", "slovak", "romanian",
			"bulgarian", "hungarian", "serbian", "croatian",
			"german", "french", "italian", "spanish", "portuguese", "dutch",
			"greek", "swedish", "norwegian", "danish", "finnish", "icelandic",
			"mexican", "colombian", "argentinian", "chilean", "peruvian",
			"brazilian", "cuban", "latin american", "caribbean", "west indian",
			"jamaican",
			"nigerian", "kenyan", "ghanaian", "south african",
			"egyptian", "moroccan", "arabic", "lebanese", "israeli",
			"turkish", "persian",
			"african", "asian",
			"african-american", "indian-american", "mexican-american",
			"asian-american", "italian-american",
		},

		CompoundDemonyms: []string{
			"african", "indian", "mexican", "asian", "italian", "irish",
			"korean", "chinese", "cuban", "vietnamese",
		},

		AmericanCues: []string{"american", "america", "us", "usa"},

		GenderTerms: []GenderTerm{
			{Term: "man", Gender: catalog.GenderMale},
			{Term: "men", Gender: catalog.GenderMale},
			{Term: "male", Gender: catalog.GenderMale},
			{Term: "guy", Gender: catalog.GenderMale},
			{Term: "gentleman", Gender: catalog.GenderMale},
			{Term: "dude", Gender: catalog.GenderMale},
			{Term: "boy", Gender: catalog.GenderMale},
			{Term: "grandpa", Gender: catalog.GenderMale},
			{Term: "grandfather", Gender: catalog.GenderMale},
			{Term: "father", Gender: catalog.GenderMale},
			{Term: "dad", Gender: catalog.GenderMale},
			{Term: "uncle", Gender: catalog.GenderMale},
			{Term: "king", Gender: catalog.GenderMale},
			{Term: "prince", Gender: catalog.GenderMale},
			{Term: "sir", Gender: catalog.GenderMale},
			{Term: "mister", Gender: catalog.GenderMale},
			{Term: "husband", Gender: catalog.GenderMale},
			{Term: "brother", Gender: catalog.GenderMale},
			{Term: "woman", Gender: catalog.GenderFemale},
			{Term: "women", Gender: catalog.GenderFemale},
			{Term: "female", Gender: catalog.GenderFemale},
			{Term: "lady", Gender: catalog.GenderFemale},
			{Term: "ladies", Gender: catalog.GenderFemale},
			{Term: "girl", Gender: catalog.GenderFemale},
			{Term: "gal", Gender: catalog.GenderFemale},
			{Term: "grandma", Gender: catalog.GenderFemale},
			{Term: "grandmother", Gender: catalog.GenderFemale},
			{Term: "granny", Gender: catalog.GenderFemale},
			{Term: "mother", Gender: catalog.GenderFemale},
			{Term: "mom", Gender: catalog.GenderFemale},
			{Term: "aunt", Gender: catalog.GenderFemale},
			{Term: "queen", Gender: catalog.GenderFemale},
			{Term: "princess", Gender: catalog.GenderFemale},
			{Term: "madam", Gender: catalog.GenderFemale},
			{Term: "miss", Gender: catalog.GenderFemale},
			{Term: "wife", Gender: catalog.GenderFemale},
			{Term: "sister", Gender: catalog.GenderFemale},
		},

		Characters: []string{
			"pirate", "detective", "wizard", "witch", "vampire", "robot",
			"alien", "monster", "villain", "hero", "knight", "soldier",
			"captain", "sailor", "cowboy", "sheriff", "butler", "maid",
			"chef", "bartender", "farmer", "doctor", "nurse", "surgeon",
			"teacher", "professor", "scientist", "lawyer", "judge", "priest",
			"monk", "nun", "narrator", "announcer", "newscaster", "reporter",
			"journalist", "host", "podcaster", "dj", "musician", "singer",
			"rapper", "poet", "comedian", "clown", "magician", "librarian",
			"waiter", "waitress", "police", "officer", "firefighter",
			"astronaut", "zombie", "ghost", "santa", "elf",
		},

		CharacterAliases: map[string]string{
			"jazz musician":     "musician",
			"rock musician":     "musician",
			"opera singer":      "singer",
			"police officer":    "police",
			"news anchor":       "newscaster",
			"radio host":        "host",
			"talk show host":    "host",
			"stand-up comedian": "comedian",
			"standup comedian":  "comedian",
			"mad scientist":     "scientist",
		},

		TimbreWords: []string{
			"deep", "low", "raspy", "gravelly", "smoky", "hoarse", "husky",
			"breathy", "nasal", "soft", "smooth", "silky", "velvety", "rich",
			"booming", "resonant", "gruff", "growly", "throaty", "airy",
			"light", "bright", "crisp", "squeaky", "high-pitched", "shrill",
			"thin",
		},

		TimbreAliases: map[string]string{
			"smoker's":    "smoky",
			"smokers":     "smoky",
			"smokey":      "smoky",
			"gravely":     "gravelly",
			"rasping":     "raspy",
			"low-pitched": "low",
		},

		BoostedTimbres: []string{
			"deep", "raspy", "gravelly", "smoky", "hoarse", "husky",
		},

		ToneWords: []string{
			"confident", "authoritative", "assertive", "commanding",
			"warm", "friendly", "kind", "caring", "gentle",
			"calm", "soothing", "relaxed",
			"cheerful", "upbeat", "energetic", "lively", "enthusiastic",
			"playful", "sassy", "witty",
			"serious", "stern", "solemn",
			"professional", "formal", "polished", "casual", "conversational",
			"dramatic", "mysterious", "sinister", "menacing",
			"wise", "thoughtful",
		},

		ToneSynonyms: map[string][]string{
			"confident":    {"authoritative", "assertive", "commanding"},
			"warm":         {"friendly", "kind", "caring"},
			"calm":         {"soothing", "relaxed", "gentle"},
			"energetic":    {"lively", "upbeat", "enthusiastic"},
			"professional": {"formal", "polished"},
			"playful":      {"witty", "sassy"},
			"serious":      {"stern", "solemn"},
			"mysterious":   {"sinister", "menacing"},
			"wise":         {"thoughtful"},
		},

		GenericNouns: []string{
			"man", "woman", "person", "guy", "lady", "gentleman",
		},

		Graph: DefaultGraphConfig(),
	}
}

// LoadVocabularyFile reads a vocabulary pack from disk and overlays it on
// the built-in tables. Returns a descriptive error if the file cannot be
// opened, parsed or validated.
func LoadVocabularyFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("match: open vocabulary pack %q: %w", path, err)
	}
	defer f.Close()

	v, err := LoadVocabularyFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("match: parse vocabulary pack %q: %w", path, err)
	}
	return v, nil
}

// LoadVocabularyFromReader parses a vocabulary pack from an [io.Reader] and
// overlays it on [DefaultVocabulary]. Tables the pack leaves empty keep
// their built-in contents.
func LoadVocabularyFromReader(r io.Reader) (*Vocabulary, error) {
	var pack Vocabulary
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&pack); err != nil {
		return nil, fmt.Errorf("match: decode vocabulary yaml: %w", err)
	}

	v := DefaultVocabulary()
	v.overlay(&pack)
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("match: invalid vocabulary pack: %w", err)
	}
	return v, nil
}

// overlay replaces every table that pack sets, keeping defaults elsewhere.
func (v *Vocabulary) overlay(pack *Vocabulary) {
	if pack.Version != "" {
		v.Version = pack.Version
	}
	if len(pack.StopWords) > 0 {
		v.StopWords = pack.StopWords
	}
	if len(pack.AgePhrases) > 0 {
		v.AgePhrases = pack.AgePhrases
	}
	if len(pack.Accents) > 0 {
		v.Accents = pack.Accents
	}
	if len(pack.CompoundDemonyms) > 0 {
		v.CompoundDemonyms = pack.CompoundDemonyms
	}
	if len(pack.AmericanCues) > 0 {
		v.AmericanCues = pack.AmericanCues
	}
	if len(pack.GenderTerms) > 0 {
		v.GenderTerms = pack.GenderTerms
	}
	if len(pack.Characters) > 0 {
		v.Characters = pack.Characters
	}
	if len(pack.CharacterAliases) > 0 {
		v.CharacterAliases = pack.CharacterAliases
	}
	if len(pack.TimbreWords) > 0 {
		v.TimbreWords = pack.TimbreWords
	}
	if len(pack.TimbreAliases) > 0 {
		v.TimbreAliases = pack.TimbreAliases
	}
	if len(pack.BoostedTimbres) > 0 {
		v.BoostedTimbres = pack.BoostedTimbres
	}
	if len(pack.ToneWords) > 0 {
		v.ToneWords = pack.ToneWords
	}
	if len(pack.ToneSynonyms) > 0 {
		v.ToneSynonyms = pack.ToneSynonyms
	}
	if len(pack.GenericNouns) > 0 {
		v.GenericNouns = pack.GenericNouns
	}
	if len(pack.Graph.Clusters) > 0 {
		v.Graph.Clusters = pack.Graph.Clusters
	}
	if len(pack.Graph.Variants) > 0 {
		v.Graph.Variants = pack.Graph.Variants
	}
	if len(pack.Graph.Exclusions) > 0 {
		v.Graph.Exclusions = pack.Graph.Exclusions
	}
}

// Validate checks the vocabulary for malformed table entries.
//
// Rules:
//   - Every age phrase needs a non-empty phrase and a recognised bracket.
//   - Every gender term needs a non-empty term and male/female gender.
//   - Cluster and exclusion entries must not contain empty labels.
func (v *Vocabulary) Validate() error {
	var errs []error

	for i, ap := range v.AgePhrases {
		if ap.Phrase == "" {
			errs = append(errs, fmt.Errorf("age_phrases[%d]: phrase must not be empty", i))
		}
		if ap.Bracket == "" || !ap.Bracket.IsValid() {
			errs = append(errs, fmt.Errorf("age_phrases[%d] %q: bracket %q is not a recognised bracket", i, ap.Phrase, ap.Bracket))
		}
	}

	for i, gt := range v.GenderTerms {
		if gt.Term == "" {
			errs = append(errs, fmt.Errorf("gender_terms[%d]: term must not be empty", i))
		}
		if gt.Gender != catalog.GenderMale && gt.Gender != catalog.GenderFemale {
			errs = append(errs, fmt.Errorf("gender_terms[%d] %q: gender must be male or female, got %q", i, gt.Term, gt.Gender))
		}
	}

	for name, members := range v.Graph.Clusters {
		if name == "" {
			errs = append(errs, errors.New("accent_graph.clusters: cluster name must not be empty"))
		}
		for _, m := range members {
			if m == "" {
				errs = append(errs, fmt.Errorf("accent_graph.clusters[%s]: member must not be empty", name))
			}
		}
	}
	for label, excluded := range v.Graph.Exclusions {
		if label == "" {
			errs = append(errs, errors.New("accent_graph.exclusions: label must not be empty"))
		}
		for _, e := range excluded {
			if e == "" {
				errs = append(errs, fmt.Errorf("accent_graph.exclusions[%s]: excluded label must not be empty", label))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
