package match

import (
	"log/slog"

	"github.com/maalaph/voicematch/internal/catalog"
)

// filterCandidates drops candidates that cannot satisfy the query's hard
// constraints, before any scoring happens. It is pure apart from the
// diagnostic for malformed records. Rules, all of which must pass:
//
//   - Age: a queried bracket must equal the candidate's exactly; an
//     unlabelled candidate is unconstrained and passes.
//   - Gender: a queried gender must equal the candidate's; neutral
//     candidates pass only when the query allows neutral fallback.
//   - Accent: a queried accent needs an exact or regionally similar
//     candidate accent; candidates without any accent fail.
//   - Character: the queried character term, a normalized equivalent or a
//     close fuzzy form of it must appear in the candidate's tags, use
//     cases, name or description. Enforced even though age/gender are not
//     strict here, because character queries are semantically narrow.
func filterCandidates(attrs ParsedAttributes, voices []catalog.Voice, graph *AccentGraph, log *slog.Logger) []catalog.Voice {
	out := make([]catalog.Voice, 0, len(voices))
	for _, v := range voices {
		if v.ID == "" {
			log.Warn("match: skipping voice with empty id",
				slog.String("name", v.DisplayName))
			continue
		}

		if attrs.HasAge() && v.Age != "" && v.Age != attrs.Age {
			continue
		}

		if attrs.HasGender() {
			switch v.Gender {
			case attrs.Gender, "":
			case catalog.GenderNeutral:
				if !attrs.AllowNeutral {
					continue
				}
			default:
				continue
			}
		}

		if attrs.HasAccent() {
			if v.Accent == "" || !graph.Similar(attrs.Accent, v.Accent) {
				continue
			}
		}

		if attrs.HasCharacter() && !voiceHasCharacter(v, attrs.Character) {
			continue
		}

		out = append(out, v)
	}
	return out
}

// voiceHasCharacter mirrors the scorer's character tiers: exact tag,
// name/description mention, then fuzzy. A candidate passing only the fuzzy
// tier still has to clear the raised character confidence threshold later.
func voiceHasCharacter(v catalog.Voice, character string) bool {
	if characterInTags(v, character) {
		return true
	}
	if characterInText(normalizeText(v.DisplayName), normalizeText(v.Description), character) {
		return true
	}
	return characterFuzzy(v, character)
}
