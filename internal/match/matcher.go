package match

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/maalaph/voicematch/internal/catalog"
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithVocabulary replaces the built-in vocabulary tables, including the
// accent graph data they carry.
func WithVocabulary(v *Vocabulary) Option {
	return func(m *Matcher) {
		m.vocab = v
	}
}

// WithWeights replaces the default scoring weights. Callers are responsible
// for preserving the documented relative ordering.
func WithWeights(w Weights) Option {
	return func(m *Matcher) {
		m.weights = w
	}
}

// WithThresholds replaces the default confidence gate levels.
func WithThresholds(t Thresholds) Option {
	return func(m *Matcher) {
		m.thresholds = t
	}
}

// WithStrictGender controls the gender strictness mode: when strict,
// neutral-gender candidates no longer satisfy an explicit gender
// constraint. Default is relaxed.
func WithStrictGender(strict bool) Option {
	return func(m *Matcher) {
		m.strictGender = strict
	}
}

// WithLogger sets the logger for skip diagnostics and debug traces.
// Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		m.log = l
	}
}

// Matcher is the voice matching engine. It is read-only after construction
// apart from the per-snapshot index memo, and safe for concurrent use; any
// number of Match calls may run in parallel.
type Matcher struct {
	vocab        *Vocabulary
	graph        *AccentGraph
	extractor    *Extractor
	scorer       *scorer
	weights      Weights
	thresholds   Thresholds
	strictGender bool
	log          *slog.Logger

	mu         sync.Mutex
	idx        *Index
	idxVersion int64
}

// New returns a matcher with the built-in vocabulary, default weights and
// default thresholds, adjusted by opts.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		vocab:      DefaultVocabulary(),
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	m.graph = NewAccentGraphFromConfig(m.vocab.Graph)
	m.extractor = NewExtractor(m.vocab, m.graph)
	m.scorer = newScorer(m.vocab, m.graph, m.weights)
	return m
}

// Match ranks candidates against the description and returns the top
// maxResults of them, or nil when no candidate clears the confidence gate.
// An empty or whitespace-only description and an empty candidate slice
// both yield nil immediately; "no match" is never an error. maxResults
// bounds output length only; values below one mean unbounded.
func (m *Matcher) Match(description string, candidates []catalog.Voice, maxResults int) []Result {
	if strings.TrimSpace(description) == "" || len(candidates) == 0 {
		return nil
	}
	return m.matchIndexed(description, candidates, NewIndex(candidates, m.graph), maxResults)
}

// MatchSnapshot is [Matcher.Match] against a catalog snapshot, reusing the
// memoised vocabulary index while the snapshot version is unchanged. This
// is the entry point for hot callers.
func (m *Matcher) MatchSnapshot(snap *catalog.Snapshot, description string, maxResults int) []Result {
	if snap == nil || strings.TrimSpace(description) == "" || len(snap.Voices) == 0 {
		return nil
	}
	return m.matchIndexed(description, snap.Voices, m.indexFor(snap), maxResults)
}

// Graph exposes the accent graph, mainly so callers can normalize labels
// consistently with the engine.
func (m *Matcher) Graph() *AccentGraph { return m.graph }

func (m *Matcher) matchIndexed(description string, candidates []catalog.Voice, idx *Index, maxResults int) []Result {
	attrs := m.extractor.Extract(description, idx)
	attrs.AllowNeutral = !m.strictGender

	// Short-circuit: an accent that no present candidate could satisfy,
	// even regionally, can never produce a trustworthy match.
	if attrs.HasAccent() && !idx.SatisfiesAccent(attrs.Accent, m.graph) {
		m.log.Debug("match: requested accent absent from catalog",
			slog.String("accent", attrs.Accent))
		return nil
	}

	pool := filterCandidates(attrs, candidates, m.graph, m.log)
	if len(pool) == 0 {
		return nil
	}

	results := make([]Result, 0, len(pool))
	for _, v := range pool {
		score, det := m.scorer.score(attrs, v)
		results = append(results, Result{Voice: v, Score: score, Details: det})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		qi, qj := qualityRank(results[i].Voice.Quality), qualityRank(results[j].Voice.Quality)
		if qi != qj {
			return qi < qj
		}
		return results[i].Voice.ID < results[j].Voice.ID
	})

	threshold := m.thresholds.Default
	if attrs.HasCharacter() {
		threshold = m.thresholds.Character
	}
	if results[0].Score < threshold {
		m.log.Debug("match: top score below confidence threshold",
			slog.Float64("top_score", results[0].Score),
			slog.Float64("threshold", threshold),
			slog.Bool("character_query", attrs.HasCharacter()))
		return nil
	}

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// indexFor returns the memoised index for the snapshot, rebuilding it when
// the snapshot version changed.
func (m *Matcher) indexFor(snap *catalog.Snapshot) *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx != nil && m.idxVersion == snap.Version {
		return m.idx
	}
	idx := NewIndex(snap.Voices, m.graph)
	m.idx = idx
	m.idxVersion = snap.Version
	return idx
}

// qualityRank orders quality tiers for tie-breaking: high first.
func qualityRank(q catalog.QualityTier) int {
	if q == catalog.QualityHigh {
		return 0
	}
	return 1
}
