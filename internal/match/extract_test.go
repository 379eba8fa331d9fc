package match

import (
	"slices"
	"testing"

	"github.com/maalaph/voicematch/internal/catalog"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(DefaultVocabulary(), NewAccentGraph())
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	tests := []struct {
		name      string
		desc      string
		accent    string
		gender    catalog.Gender
		age       catalog.AgeBracket
		character string
		timbres   []string
		tones     []string
	}{
		{
			name:    "compound accent with structured signals",
			desc:    "old Indian-American man, deep raspy voice",
			accent:  "indian-american",
			gender:  catalog.GenderMale,
			age:     catalog.AgeOlder,
			timbres: []string{"deep", "raspy"},
		},
		{
			name:   "numeric age wins over phrases",
			desc:   "A 70-year-old British woman",
			accent: "british",
			gender: catalog.GenderFemale,
			age:    catalog.AgeOlder,
		},
		{
			name:   "numeric age with spaces",
			desc:   "45 years old French man",
			accent: "french",
			gender: catalog.GenderMale,
			age:    catalog.AgeMiddle,
		},
		{
			name:      "young podcaster",
			desc:      "young energetic female podcaster",
			gender:    catalog.GenderFemale,
			age:       catalog.AgeYoung,
			character: "podcaster",
			tones:     []string{"energetic"},
		},
		{
			name:   "demonym compounds next to america",
			desc:   "African guy living in America",
			accent: "african-american",
			gender: catalog.GenderMale,
		},
		{
			name:   "demonym compounds next to adjacent us",
			desc:   "US Indian man",
			accent: "indian-american",
			gender: catalog.GenderMale,
		},
		{
			name:   "distant us is a pronoun, not a cue",
			desc:   "Indian accent, speaks for us",
			accent: "indian",
		},
		{
			name:    "timbre alias via possessive",
			desc:    "deep voice like a smoker's",
			timbres: []string{"deep", "smoky"},
		},
		{
			name:      "character alias",
			desc:      "a jazz musician vibe",
			character: "musician",
		},
		{
			name:      "plural character",
			desc:      "voices for pirates",
			character: "pirate",
		},
		{
			name:   "variant accent spelling",
			desc:   "US Southern drawl",
			accent: "southern american",
		},
		{
			name:   "first gendered noun wins",
			desc:   "a woman interviewing a man",
			gender: catalog.GenderFemale,
		},
		{
			name: "no signals",
			desc: "something completely unrelated",
		},
		{
			name: "empty",
			desc: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.desc, nil)
			if got.Accent != tt.accent {
				t.Errorf("Extract(%q).Accent = %q, want %q", tt.desc, got.Accent, tt.accent)
			}
			if got.Gender != tt.gender {
				t.Errorf("Extract(%q).Gender = %q, want %q", tt.desc, got.Gender, tt.gender)
			}
			if got.Age != tt.age {
				t.Errorf("Extract(%q).Age = %q, want %q", tt.desc, got.Age, tt.age)
			}
			if got.Character != tt.character {
				t.Errorf("Extract(%q).Character = %q, want %q", tt.desc, got.Character, tt.character)
			}
			if !slices.Equal(got.Timbres, tt.timbres) {
				t.Errorf("Extract(%q).Timbres = %v, want %v", tt.desc, got.Timbres, tt.timbres)
			}
			if !slices.Equal(got.Tones, tt.tones) {
				t.Errorf("Extract(%q).Tones = %v, want %v", tt.desc, got.Tones, tt.tones)
			}
		})
	}
}

func TestExtractor_KeywordsAndPhrases(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)

	got := e.Extract("a very deep raspy voice for the deep narration", nil)

	wantKeywords := []string{"deep", "raspy", "narration"}
	if !slices.Equal(got.Keywords, wantKeywords) {
		t.Errorf("Keywords = %v, want %v (stop words dropped, duplicates folded, order kept)", got.Keywords, wantKeywords)
	}

	for _, phrase := range []string{"deep raspy", "raspy voice", "deep raspy voice"} {
		if !slices.Contains(got.Phrases, phrase) {
			t.Errorf("Phrases = %v, missing %q", got.Phrases, phrase)
		}
	}
	for _, phrase := range []string{"a very", "for the"} {
		if slices.Contains(got.Phrases, phrase) {
			t.Errorf("Phrases = %v, stop-word-only phrase %q should be dropped", got.Phrases, phrase)
		}
	}
}

func TestExtractor_CatalogWidensAccents(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	idx := NewIndex([]catalog.Voice{
		{ID: "v1", Accent: "Geordie"},
	}, NewAccentGraph())

	// "geordie" is not in the static vocabulary, but the catalog carries it.
	got := e.Extract("a geordie narrator", idx)
	if got.Accent != "geordie" {
		t.Errorf("Extract with catalog index: Accent = %q, want %q", got.Accent, "geordie")
	}

	without := e.Extract("a geordie narrator", nil)
	if without.Accent != "" {
		t.Errorf("Extract without catalog index: Accent = %q, want empty", without.Accent)
	}
}

func TestAgeFromText_TableOrder(t *testing.T) {
	t.Parallel()

	phrases := DefaultVocabulary().AgePhrases

	tests := []struct {
		text string
		want catalog.AgeBracket
	}{
		// "middle-aged" must win before the generic "aged" entry, which
		// would otherwise match across the hyphen boundary.
		{"a middle-aged man", catalog.AgeMiddle},
		{"an aged king", catalog.AgeOlder},
		{"a young adult gamer", catalog.AgeYoung},
		{"elderly and wise", catalog.AgeOlder},
		{"8-year-old kid", catalog.AgeYoung},
		{"39 years old", catalog.AgeYoung},
		{"40 years old", catalog.AgeMiddle},
		{"59 years old", catalog.AgeMiddle},
		{"60 years old", catalog.AgeOlder},
		{"no age here", ""},
	}
	for _, tt := range tests {
		if got := ageFromText(tt.text, phrases); got != tt.want {
			t.Errorf("ageFromText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestContainsWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"an american voice", "american", true},
		{"panamerican games", "american", false},
		{"indian-american", "indian", true},
		{"indian-american", "american", true},
		{"indian-american", "indian-american", true},
		{"living in america", "american", false},
		{"a southern american man", "southern american", true},
		{"text", "", false},
	}
	for _, tt := range tests {
		if got := containsWord(tt.text, tt.phrase); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"An Indian-American man!", "an indian-american man"},
		{"smoker's   cough,   raspy", "smoker's cough raspy"},
		{"(whisper)...quiet", "whisper quiet"},
		{"", ""},
		{"  \t \n ", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
