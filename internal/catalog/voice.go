// Package catalog holds the voice catalog for voicematch.
//
// A catalog is an immutable snapshot of [Voice] candidates fetched from an
// upstream provider (or loaded from a YAML seed file). The matching engine
// (internal/match) treats a snapshot as read-only input; refreshes install a
// new snapshot atomically via [Store.Swap] so an in-flight match always sees
// a consistent catalog.
//
// All store operations are safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"
)

// Voice is one candidate in the catalog. Fields mirror the labels the
// upstream provider attaches to a voice; the matching engine treats
// Accent/Gender/Age as authoritative and does not revalidate them.
type Voice struct {
	// ID uniquely identifies the voice at its provider. Must be non-empty;
	// records without an ID are skipped during loading and matching.
	ID string `yaml:"id" json:"id"`

	// DisplayName is the human-readable voice name (e.g. "Priya", "Old Sam").
	DisplayName string `yaml:"display_name" json:"display_name"`

	// SourceProvider records where the voice came from. It is used only for
	// the quality tie-break, never for filtering.
	SourceProvider Source `yaml:"source_provider" json:"source_provider"`

	// Accent is the voice's accent label from a controlled-but-open
	// vocabulary ("british", "indian-american", "southern american", ...).
	// Empty means unconstrained: the voice matches no accent requirement
	// and fails queries that demand one.
	Accent string `yaml:"accent,omitempty" json:"accent,omitempty"`

	// Gender is the voice's gender label. Empty means unlabelled.
	Gender Gender `yaml:"gender,omitempty" json:"gender,omitempty"`

	// Age is the voice's age bracket. Empty means unlabelled.
	Age AgeBracket `yaml:"age,omitempty" json:"age,omitempty"`

	// TimbreTags describe the physical sound of the voice ("deep", "raspy").
	TimbreTags []string `yaml:"timbre_tags,omitempty" json:"timbre_tags,omitempty"`

	// ToneWords describe the voice's delivery character ("confident",
	// "warm"). Kept separate from TimbreTags because the scorer weights
	// the two categories differently.
	ToneWords []string `yaml:"tone_words,omitempty" json:"tone_words,omitempty"`

	// Description is the provider's free-text description of the voice.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// UseCases lists suggested applications ("narration", "characters").
	UseCases []string `yaml:"use_cases,omitempty" json:"use_cases,omitempty"`

	// Quality is the provider's quality tier for this voice.
	Quality QualityTier `yaml:"quality,omitempty" json:"quality,omitempty"`
}

// Gender is a voice gender label.
type Gender string

const (
	// GenderMale labels a male-presenting voice.
	GenderMale Gender = "male"

	// GenderFemale labels a female-presenting voice.
	GenderFemale Gender = "female"

	// GenderNeutral labels a voice the provider considers gender-neutral.
	// Neutral is only ever a candidate property; queries never extract it
	// as a constraint.
	GenderNeutral Gender = "neutral"
)

// IsValid reports whether g is a recognised gender label.
// The empty string is valid and means "unlabelled".
func (g Gender) IsValid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderNeutral:
		return true
	}
	return false
}

// AgeBracket is a coarse voice age label.
type AgeBracket string

const (
	// AgeYoung covers voices up to roughly forty.
	AgeYoung AgeBracket = "young"

	// AgeMiddle covers voices from roughly forty to sixty.
	AgeMiddle AgeBracket = "middle-aged"

	// AgeOlder covers voices from roughly sixty up.
	AgeOlder AgeBracket = "older"
)

// IsValid reports whether a is a recognised age bracket.
// The empty string is valid and means "unlabelled".
func (a AgeBracket) IsValid() bool {
	switch a {
	case "", AgeYoung, AgeMiddle, AgeOlder:
		return true
	}
	return false
}

// QualityTier ranks a voice's production quality. Used as a small scoring
// bonus and as the tie-break between equally scored candidates.
type QualityTier string

const (
	// QualityHigh marks professionally produced or premium voices.
	QualityHigh QualityTier = "high"

	// QualityStandard marks everything else.
	QualityStandard QualityTier = "standard"
)

// IsValid reports whether q is a recognised quality tier.
// The empty string is valid and is treated as [QualityStandard].
func (q QualityTier) IsValid() bool {
	switch q {
	case "", QualityHigh, QualityStandard:
		return true
	}
	return false
}

// Source identifies the upstream origin of a voice.
type Source string

const (
	// SourceElevenLabs marks voices fetched from the ElevenLabs API.
	SourceElevenLabs Source = "elevenlabs"

	// SourceSeed marks voices loaded from a local YAML seed file.
	SourceSeed Source = "seed"
)

// Validate checks a [Voice] for required fields and valid labels.
//
// Rules:
//   - ID must be non-empty.
//   - Gender, Age and Quality must be recognised labels when set.
func (v Voice) Validate() error {
	var errs []error

	if v.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if !v.Gender.IsValid() {
		errs = append(errs, fmt.Errorf("gender %q is not a recognised label", v.Gender))
	}
	if !v.Age.IsValid() {
		errs = append(errs, fmt.Errorf("age %q is not a recognised bracket", v.Age))
	}
	if !v.Quality.IsValid() {
		errs = append(errs, fmt.Errorf("quality %q is not a recognised tier", v.Quality))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
