package match

import "strings"

// GraphConfig is the data behind the regional accent graph: spelling/
// ordering variants, named similarity clusters, and the exclusion table.
// Exclusions always win over similarity.
type GraphConfig struct {
	// Variants maps alternative spellings to the canonical label
	// ("us southern" -> "southern american").
	Variants map[string]string `yaml:"variants"`

	// Clusters groups regionally similar labels under a cluster name.
	// Any two members of one cluster are similar.
	Clusters map[string][]string `yaml:"clusters"`

	// Exclusions lists labels that must never be considered similar,
	// regardless of clusters or word overlap. Entries are made symmetric
	// when the graph is built.
	Exclusions map[string][]string `yaml:"exclusions"`
}

// DefaultGraphConfig returns the built-in accent graph data.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		Variants: map[string]string{
			"us southern":       "southern american",
			"southern us":       "southern american",
			"american southern": "southern american",
			"southern":          "southern american",
			"deep south":        "southern american",
			"english":           "british",
			"england":           "british",
			"uk":                "british",
			"united kingdom":    "british",
			"british english":   "british",
			"us":                "american",
			"usa":               "american",
			"united states":     "american",
			"american english":  "american",
			"general american":  "american",
			"kiwi":              "new zealand",
			"aussie":            "australian",
			"hindi":             "indian",
			"latino":            "latin american",
			"hispanic":          "latin american",
			"arab":              "arabic",
			"iranian":           "persian",
			"farsi":             "persian",
			"brooklyn":          "new york",
			"texas":             "texan",
			"african american":  "african-american",
			"indian american":   "indian-american",
			"mexican american":  "mexican-american",
			"asian american":    "asian-american",
			"italian american":  "italian-american",
		},
		Clusters: map[string][]string{
			"british isles": {
				"british", "scottish", "irish", "welsh", "cockney",
			},
			"north american": {
				"american", "canadian", "midwestern", "californian",
				"boston", "new york", "texan", "southern american",
			},
			"oceania": {
				"australian", "new zealand",
			},
			"south asian": {
				"indian", "pakistani", "bangladeshi", "sri lankan", "nepali",
			},
			"east asian": {
				"chinese", "japanese", "korean", "taiwanese",
			},
			"southeast asian": {
				"filipino", "vietnamese", "thai", "indonesian", "malaysian",
			},
			"eastern european": {
				"russian", "ukrainian", "polish", "czech", "slovak",
				"romanian", "bulgarian", "hungarian", "serbian", "croatian",
			},
			"western european": {
				"german", "french", "dutch",
			},
			"southern european": {
				"italian", "spanish", "portuguese", "greek",
			},
			"scandinavian": {
				"swedish", "norwegian", "danish", "finnish", "icelandic",
			},
			"latin american": {
				"mexican", "colombian", "argentinian", "chilean", "peruvian",
				"brazilian", "cuban", "latin american",
			},
			"caribbean": {
				"caribbean", "west indian", "jamaican", "cuban",
			},
			"african": {
				"african", "nigerian", "kenyan", "ghanaian", "south african",
			},
			"middle eastern": {
				"arabic", "egyptian", "moroccan", "lebanese", "israeli",
				"turkish", "persian",
			},
		},
		Exclusions: map[string][]string{
			// Shared words must never imply similarity across regions:
			// "south", "new" and "indian" all collide below.
			"southern american": {"south african"},
			"new york":          {"new zealand"},
			"indian":            {"west indian"},
		},
	}
}

// AccentRelation classifies how a candidate accent satisfies a query accent.
type AccentRelation int

const (
	// AccentNone means the labels are unrelated or explicitly excluded.
	AccentNone AccentRelation = iota

	// AccentExact means the normalized labels are equal.
	AccentExact

	// AccentCompound means a hyphenated compound label matched through the
	// all-constituent-parts rule.
	AccentCompound

	// AccentRegional means the labels matched only through a similarity
	// cluster.
	AccentRegional
)

// AccentGraph answers similarity questions over accent labels. It is
// read-only after construction and safe for unlimited concurrent use.
type AccentGraph struct {
	variants map[string]string
	similar  map[string]map[string]bool
	excluded map[string]map[string]bool
}

// NewAccentGraph builds the graph from the built-in data.
func NewAccentGraph() *AccentGraph {
	return NewAccentGraphFromConfig(DefaultGraphConfig())
}

// NewAccentGraphFromConfig builds the graph from cfg. Cluster membership is
// expanded to pairwise similarity; the exclusion table is made symmetric.
func NewAccentGraphFromConfig(cfg GraphConfig) *AccentGraph {
	g := &AccentGraph{
		variants: make(map[string]string, len(cfg.Variants)),
		similar:  make(map[string]map[string]bool),
		excluded: make(map[string]map[string]bool),
	}

	for from, to := range cfg.Variants {
		g.variants[normalizeLabel(from)] = normalizeLabel(to)
	}

	for _, members := range cfg.Clusters {
		for _, a := range members {
			na := g.Normalize(a)
			for _, b := range members {
				nb := g.Normalize(b)
				if na == nb {
					continue
				}
				if g.similar[na] == nil {
					g.similar[na] = make(map[string]bool)
				}
				g.similar[na][nb] = true
			}
		}
	}

	addExclusion := func(a, b string) {
		if g.excluded[a] == nil {
			g.excluded[a] = make(map[string]bool)
		}
		g.excluded[a][b] = true
	}
	for label, others := range cfg.Exclusions {
		nl := g.Normalize(label)
		for _, o := range others {
			no := g.Normalize(o)
			addExclusion(nl, no)
			addExclusion(no, nl)
		}
	}

	return g
}

// Normalize lower-cases, trims, collapses whitespace, drops a trailing
// "accent" word, and resolves known variants ("US Southern" becomes
// "southern american"). Hyphenated labels that only differ from a known
// variant by their hyphens are resolved too ("us-southern").
func (g *AccentGraph) Normalize(label string) string {
	n := normalizeLabel(label)
	if n == "" {
		return ""
	}
	if to, ok := g.variants[n]; ok {
		return to
	}
	if strings.Contains(n, "-") {
		if to, ok := g.variants[strings.ReplaceAll(n, "-", " ")]; ok {
			return to
		}
	}
	return n
}

// Similar reports whether candidate satisfies the query accent, exactly,
// as a compound, or regionally. Argument order matters for compound labels;
// see [AccentGraph.Classify].
func (g *AccentGraph) Similar(query, candidate string) bool {
	return g.Classify(query, candidate) != AccentNone
}

// Classify decides how candidate relates to the query accent:
//
//  1. Both labels are normalized.
//  2. The exclusion table is consulted first, unconditionally and in both
//     directions. An excluded pair never matches, whatever the remaining
//     rules would say.
//  3. Equal normalized labels are [AccentExact].
//  4. A hyphenated query ("indian-american") requires every constituent
//     word to match the candidate by part equality or substring; partial
//     compound matches are rejected, so "indian-american" never matches a
//     candidate tagged merely "american". A hyphenated candidate matches a
//     plain query when the query equals one of its parts. Either case is
//     [AccentCompound].
//  5. Cluster co-membership is [AccentRegional].
//  6. Anything else is [AccentNone].
func (g *AccentGraph) Classify(query, candidate string) AccentRelation {
	q := g.Normalize(query)
	c := g.Normalize(candidate)
	if q == "" || c == "" {
		return AccentNone
	}

	if g.excluded[q][c] || g.excluded[c][q] {
		return AccentNone
	}

	if q == c {
		return AccentExact
	}

	if isCompound(q) {
		if compoundCovers(q, c) {
			return AccentCompound
		}
		return AccentNone
	}
	if isCompound(c) {
		for _, part := range compoundParts(c) {
			if part == q {
				return AccentCompound
			}
		}
		return AccentNone
	}

	if g.similar[q][c] || g.similar[c][q] {
		return AccentRegional
	}
	return AccentNone
}

// isCompound reports whether a normalized label is a hyphenated compound.
// Canonical multi-word labels ("southern american") are space-joined, so a
// hyphen is the compound marker.
func isCompound(label string) bool {
	return strings.Contains(label, "-")
}

// compoundParts splits a compound label into its constituent words.
func compoundParts(label string) []string {
	return strings.FieldsFunc(label, func(r rune) bool {
		return r == '-' || r == ' '
	})
}

// compoundCovers reports whether every constituent part of the compound
// query matches the candidate, by part equality or substring.
func compoundCovers(query, candidate string) bool {
	candParts := compoundParts(candidate)
	for _, part := range compoundParts(query) {
		found := false
		for _, cp := range candParts {
			if cp == part {
				found = true
				break
			}
		}
		if !found && strings.Contains(candidate, part) {
			found = true
		}
		if !found {
			return false
		}
	}
	return true
}

// normalizeLabel is the variant-free part of [AccentGraph.Normalize].
func normalizeLabel(label string) string {
	n := strings.ToLower(strings.TrimSpace(label))
	n = strings.Join(strings.Fields(n), " ")
	n = strings.TrimSuffix(n, " accent")
	return n
}
