package mcptool

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maalaph/voicematch/internal/catalog"
	"github.com/maalaph/voicematch/internal/match"
)

func testVoices() []catalog.Voice {
	return []catalog.Voice{
		{
			ID:          "v-ravi",
			DisplayName: "Ravi",
			Accent:      "indian-american",
			Gender:      catalog.GenderMale,
			Age:         catalog.AgeOlder,
			TimbreTags:  []string{"deep", "raspy"},
			Description: "A commanding elder statesman voice.",
			Quality:     catalog.QualityHigh,
		},
		{
			ID:          "v-tilly",
			DisplayName: "Tilly",
			Accent:      "british",
			Gender:      catalog.GenderFemale,
			Age:         catalog.AgeYoung,
			TimbreTags:  []string{"bright"},
			Description: "A cheerful young narrator.",
		},
	}
}

func newTestServer(t *testing.T, voices []catalog.Voice, defaultMax int) (*Server, *catalog.Store) {
	t.Helper()
	store := catalog.NewStore()
	if len(voices) > 0 {
		store.Swap(voices)
	}
	s, err := New(Config{
		Engine:            match.New(),
		Source:            store,
		DefaultMaxResults: defaultMax,
		Logger:            slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, store
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Source: catalog.NewStore()}); err == nil {
		t.Error("expected error for missing Engine, got nil")
	}
	if _, err := New(Config{Engine: match.New()}); err == nil {
		t.Error("expected error for missing Source, got nil")
	}
}

func TestSearchVoices_RanksBestCandidate(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, testVoices(), 5)

	_, out, err := s.searchVoices(context.Background(), nil, searchArgs{
		Description: "an old indian-american man with a deep raspy voice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Matches) != 1 {
		t.Fatalf("got %d matches, want 1 (only Ravi passes the pre-filter)", len(out.Matches))
	}
	m := out.Matches[0]
	if m.ID != "v-ravi" {
		t.Errorf("top match = %q, want v-ravi", m.ID)
	}
	if !m.Details.AccentMatch {
		t.Error("Details.AccentMatch should be true for an exact accent")
	}
	if m.Score <= 0 {
		t.Errorf("score = %v, want positive", m.Score)
	}
	if out.CatalogVersion != 1 {
		t.Errorf("catalog_version = %d, want 1", out.CatalogVersion)
	}
}

func TestSearchVoices_EmptyDescription(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, testVoices(), 5)

	for _, desc := range []string{"", "   \t"} {
		_, _, err := s.searchVoices(context.Background(), nil, searchArgs{Description: desc})
		if err == nil {
			t.Fatalf("description %q: expected error, got nil", desc)
		}
		if !strings.Contains(err.Error(), "description") {
			t.Errorf("error should mention description, got: %v", err)
		}
	}
}

func TestSearchVoices_NegativeMaxResults(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, testVoices(), 5)

	_, _, err := s.searchVoices(context.Background(), nil, searchArgs{
		Description: "a deep male voice",
		MaxResults:  -2,
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "max_results") {
		t.Errorf("error should mention max_results, got: %v", err)
	}
}

func TestSearchVoices_CatalogNotLoaded(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil, 5)

	_, _, err := s.searchVoices(context.Background(), nil, searchArgs{
		Description: "a deep male voice",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not loaded") {
		t.Errorf("error should mention the catalog not being loaded, got: %v", err)
	}
}

func TestSearchVoices_NoMatchIsEmptyNotError(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, testVoices(), 5)

	// No candidate carries a french accent, so the engine short-circuits.
	_, out, err := s.searchVoices(context.Background(), nil, searchArgs{
		Description: "a french woman",
	})
	if err != nil {
		t.Fatalf("no match must not be an error, got: %v", err)
	}
	if len(out.Matches) != 0 {
		t.Errorf("got %d matches, want 0", len(out.Matches))
	}
	if out.CatalogVersion != 1 {
		t.Errorf("catalog_version = %d, want 1 even without matches", out.CatalogVersion)
	}
}

func TestSearchVoices_MaxResultsBounds(t *testing.T) {
	t.Parallel()
	voices := []catalog.Voice{
		{ID: "v-a", DisplayName: "Alder", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep"}},
		{ID: "v-b", DisplayName: "Bram", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep", "gravelly"}},
		{ID: "v-c", DisplayName: "Cole", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep", "warm"}},
	}
	s, _ := newTestServer(t, voices, 2)

	// Omitted max_results falls back to the server default.
	_, out, err := s.searchVoices(context.Background(), nil, searchArgs{
		Description: "an old man with a deep voice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 2 {
		t.Fatalf("default bound: got %d matches, want 2", len(out.Matches))
	}

	// An explicit value overrides it.
	_, out, err = s.searchVoices(context.Background(), nil, searchArgs{
		Description: "an old man with a deep voice",
		MaxResults:  1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 1 {
		t.Fatalf("explicit bound: got %d matches, want 1", len(out.Matches))
	}
}

func TestSetDefaultMaxResults_RetunesRunningServer(t *testing.T) {
	t.Parallel()
	voices := []catalog.Voice{
		{ID: "v-a", DisplayName: "Alder", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep"}},
		{ID: "v-b", DisplayName: "Bram", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep", "gravelly"}},
		{ID: "v-c", DisplayName: "Cole", Gender: catalog.GenderMale, Age: catalog.AgeOlder, TimbreTags: []string{"deep", "warm"}},
	}
	s, _ := newTestServer(t, voices, 1)

	args := searchArgs{Description: "an old man with a deep voice"}
	_, out, err := s.searchVoices(context.Background(), nil, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 1 {
		t.Fatalf("before retune: got %d matches, want 1", len(out.Matches))
	}

	s.SetDefaultMaxResults(2)
	_, out, err = s.searchVoices(context.Background(), nil, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 2 {
		t.Fatalf("after retune: got %d matches, want 2", len(out.Matches))
	}

	// Negative values clamp to unbounded.
	s.SetDefaultMaxResults(-5)
	_, out, err = s.searchVoices(context.Background(), nil, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Matches) != 3 {
		t.Fatalf("unbounded: got %d matches, want 3", len(out.Matches))
	}
}

func TestServer_EndToEnd(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, testVoices(), 5)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "mcptool-test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cs.Close()

	list, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	found := false
	for _, tool := range list.Tools {
		if tool.Name == "search_voices" {
			found = true
		}
	}
	if !found {
		t.Fatal("search_voices tool not listed")
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: "search_voices",
		Arguments: map[string]any{
			"description": "an old indian-american man with a deep raspy voice",
		},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool call failed: %+v", res.Content)
	}

	var out searchResult
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), &out); err != nil {
				t.Fatalf("decode result: %v", err)
			}
		}
	}
	if len(out.Matches) != 1 || out.Matches[0].ID != "v-ravi" {
		t.Errorf("unexpected matches over the wire: %+v", out.Matches)
	}

	// Tool-level validation failures surface as tool errors, not protocol
	// errors.
	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search_voices",
		Arguments: map[string]any{"description": ""},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if !res.IsError {
		t.Error("empty description should produce a tool error")
	}
}

func TestClip(t *testing.T) {
	t.Parallel()
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip(short) = %q", got)
	}
	long := strings.Repeat("a", 100)
	if got := clip(long, 10); len([]rune(got)) != 11 {
		t.Errorf("clip should cut to 10 runes plus ellipsis, got %d", len([]rune(got)))
	}
}
