// Package mcptool exposes the matching engine as a Model Context Protocol
// server so LLM agents can search the voice catalog through a tool call.
//
// One tool is exported:
//   - "search_voices" — matches a free-text voice description against the
//     current catalog snapshot and returns ranked matches with
//     per-attribute details.
//
// The server speaks the streamable HTTP transport; [Server.Handler] returns
// an http.Handler ready to mount under /mcp on the service mux.
package mcptool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/maalaph/voicematch/internal/catalog"
	"github.com/maalaph/voicematch/internal/match"
	"github.com/maalaph/voicematch/internal/observe"
)

// serverName and serverVersion identify this MCP server to clients during
// initialization.
const (
	serverName    = "voicematch"
	serverVersion = "1.0.0"
)

const toolSearchVoices = "search_voices"

// Engine is the matching surface the tool calls into. *match.Matcher
// satisfies it; the service hands in a wrapper that survives config
// hot-reloads.
type Engine interface {
	MatchSnapshot(snap *catalog.Snapshot, description string, maxResults int) []match.Result
}

// Source hands out the current catalog snapshot. *catalog.Store satisfies it.
type Source interface {
	Snapshot() *catalog.Snapshot
}

// Config assembles a [Server].
type Config struct {
	// Engine runs the matches. Required.
	Engine Engine

	// Source provides catalog snapshots. Required.
	Source Source

	// DefaultMaxResults bounds the result list when a call does not set
	// max_results. Zero means unbounded.
	DefaultMaxResults int

	// Logger defaults to [slog.Default].
	Logger *slog.Logger

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Server owns the MCP server and its tool registrations.
type Server struct {
	engine     Engine
	source     Source
	defaultMax atomic.Int64
	log        *slog.Logger
	metrics    *observe.Metrics
	srv        *mcp.Server
}

// New builds the MCP server and registers the search_voices tool.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("mcptool: config needs an Engine")
	}
	if cfg.Source == nil {
		return nil, errors.New("mcptool: config needs a Source")
	}

	s := &Server{
		engine:  cfg.Engine,
		source:  cfg.Source,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
	s.SetDefaultMaxResults(cfg.DefaultMaxResults)
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.srv = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(s.srv, &mcp.Tool{
		Name: toolSearchVoices,
		Description: "Match a free-text voice description against the voice catalog and " +
			"return the best candidates ranked by relevance. Structured attributes " +
			"(accent, gender, age, profession) count far more than incidental word " +
			"overlap. An empty matches list means no candidate was trustworthy enough; " +
			"treat it as 'no suitable voice' rather than retrying the same description.",
	}, s.searchVoices)

	return s, nil
}

// Handler returns the streamable HTTP handler serving the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

// SetDefaultMaxResults replaces the result bound applied when a call does
// not set max_results. Negative values clamp to zero (unbounded). Config
// reloads use this to retune a running server.
func (s *Server) SetDefaultMaxResults(n int) {
	if n < 0 {
		n = 0
	}
	s.defaultMax.Store(int64(n))
}

// searchArgs is the JSON-decoded input of the search_voices tool.
type searchArgs struct {
	// Description is the voice description to match.
	Description string `json:"description" jsonschema:"free-text description of the desired voice, e.g. 'an old indian-american man with a deep raspy voice'"`

	// MaxResults caps the number of matches. Zero uses the server default.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of matches to return; zero uses the server default"`
}

// VoiceMatch is one ranked match as returned to the MCP caller.
type VoiceMatch struct {
	// ID is the provider's voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Score is the signed relevance score. Scores are comparable within one
	// call only.
	Score float64 `json:"score"`

	Accent  string `json:"accent,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Age     string `json:"age,omitempty"`
	Quality string `json:"quality,omitempty"`

	// Details records which attribute categories matched.
	Details match.Details `json:"details"`
}

// searchResult is the JSON-encoded output of the search_voices tool.
type searchResult struct {
	// Matches holds the ranked matches, best first. Empty when no candidate
	// cleared the confidence gate.
	Matches []VoiceMatch `json:"matches"`

	// CatalogVersion identifies the snapshot the search ran against.
	CatalogVersion int64 `json:"catalog_version"`
}

// searchVoices implements the search_voices tool.
func (s *Server) searchVoices(ctx context.Context, _ *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, searchResult, error) {
	ctx, span := observe.StartSpan(ctx, "mcptool.search_voices")
	defer span.End()

	start := time.Now()
	status := "ok"
	defer func() {
		s.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("tool", toolSearchVoices)))
		s.metrics.RecordToolCall(ctx, toolSearchVoices, status)
	}()

	if strings.TrimSpace(args.Description) == "" {
		status = "error"
		s.metrics.RecordMatchRequest(ctx, "empty_query")
		return nil, searchResult{}, errors.New("mcptool: description must not be empty")
	}
	if args.MaxResults < 0 {
		status = "error"
		return nil, searchResult{}, fmt.Errorf("mcptool: max_results must not be negative, got %d", args.MaxResults)
	}

	snap := s.source.Snapshot()
	if snap == nil {
		status = "error"
		return nil, searchResult{}, errors.New("mcptool: voice catalog is not loaded yet, retry shortly")
	}

	maxResults := args.MaxResults
	if maxResults == 0 {
		maxResults = int(s.defaultMax.Load())
	}

	matchStart := time.Now()
	results := s.engine.MatchSnapshot(snap, args.Description, maxResults)
	s.metrics.MatchDuration.Record(ctx, time.Since(matchStart).Seconds())

	outcome := "matched"
	if len(results) == 0 {
		outcome = "no_match"
	}
	s.metrics.RecordMatchRequest(ctx, outcome)

	observe.LoggerWith(ctx, s.log).Info("search_voices completed",
		slog.String("description", clip(args.Description, 80)),
		slog.Int("results", len(results)),
		slog.Int64("catalog_version", snap.Version),
		slog.Duration("took", time.Since(start)))

	out := searchResult{
		Matches:        make([]VoiceMatch, 0, len(results)),
		CatalogVersion: snap.Version,
	}
	for _, r := range results {
		out.Matches = append(out.Matches, VoiceMatch{
			ID:      r.Voice.ID,
			Name:    r.Voice.DisplayName,
			Score:   r.Score,
			Accent:  r.Voice.Accent,
			Gender:  string(r.Voice.Gender),
			Age:     string(r.Voice.Age),
			Quality: string(r.Voice.Quality),
			Details: r.Details,
		})
	}
	return nil, out, nil
}

// clip shortens s to at most n runes for log lines.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
