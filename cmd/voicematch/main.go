// Command voicematch is the voice attribute matching server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/maalaph/voicematch/internal/catalog"
	"github.com/maalaph/voicematch/internal/config"
	"github.com/maalaph/voicematch/internal/match"
	"github.com/maalaph/voicematch/internal/observe"
	"github.com/maalaph/voicematch/internal/service"
)

// version is reported in telemetry.
const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	query := flag.String("query", "", "match one voice description against a seed catalog and exit")
	catalogPath := flag.String("catalog", "", "YAML seed catalog for -query mode")
	vocabPath := flag.String("vocabulary", "", "YAML vocabulary pack for -query mode")
	strictGender := flag.Bool("strict-gender", false, "exclude neutral voices from gendered queries in -query mode")
	maxResults := flag.Int("max-results", 5, "result cap for -query mode, 0 means unbounded")
	flag.Parse()

	// ── One-shot query mode ────────────────────────────────────────────────────
	if *query != "" {
		return runQuery(*query, *catalogPath, *vocabPath, *strictGender, *maxResults)
	}

	// ── Load configuration ─────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voicematch: config file %q not found, copy config.example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voicematch: %v\n", err)
		}
		return 1
	}
	if *logLevel != "" {
		lv := config.LogLevel(*logLevel)
		if !lv.IsValid() {
			fmt.Fprintf(os.Stderr, "voicematch: -log-level %q is invalid, valid values: debug, info, warn, error\n", *logLevel)
			return 2
		}
		cfg.Server.LogLevel = lv
	}

	// ── Logger ─────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("voicematch starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ──────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voicematch",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Startup summary ────────────────────────────────────────────────────────
	printStartupSummary(cfg)

	svc, err := service.New(ctx, cfg,
		service.WithLogger(logger),
		service.WithLogLevelVar(level),
		service.WithConfigFile(*configPath),
	)
	if err != nil {
		slog.Error("failed to initialise service", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")

	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── One-shot query ────────────────────────────────────────────────────────────

// runQuery loads a seed catalog, runs a single match, and prints the ranked
// results. Exit codes: 0 with matches, 1 with none or on load errors, 2 on
// usage errors.
func runQuery(description, seedPath, vocabPath string, strictGender bool, maxResults int) int {
	if seedPath == "" {
		fmt.Fprintln(os.Stderr, "voicematch: -query needs -catalog pointing at a YAML seed file")
		return 2
	}

	// Keep stdout parseable; diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	voices, err := catalog.NewFileProvider(seedPath).FetchVoices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicematch: %v\n", err)
		return 1
	}

	opts := []match.Option{
		match.WithStrictGender(strictGender),
		match.WithLogger(logger),
	}
	if vocabPath != "" {
		vocab, err := match.LoadVocabularyFile(vocabPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voicematch: %v\n", err)
			return 1
		}
		opts = append(opts, match.WithVocabulary(vocab))
	}

	results := match.New(opts...).Match(description, voices, maxResults)
	if len(results) == 0 {
		fmt.Println("no voice matched the description with enough confidence")
		return 1
	}

	for i, r := range results {
		fmt.Printf("%2d. %-24s %8.1f  accent=%s gender=%s age=%s quality=%s\n",
			i+1, r.Voice.DisplayName, r.Score,
			orDash(r.Voice.Accent),
			orDash(string(r.Voice.Gender)),
			orDash(string(r.Voice.Age)),
			orDash(string(r.Voice.Quality)))
		if line := detailLine(r.Details); line != "" {
			fmt.Printf("    %s\n", line)
		}
	}
	return 0
}

// detailLine renders which attribute categories matched for one result.
func detailLine(d match.Details) string {
	var parts []string
	switch {
	case d.AccentMatch:
		parts = append(parts, "accent exact")
	case d.AccentRegional:
		parts = append(parts, "accent regional")
	}
	if d.GenderMatch {
		parts = append(parts, "gender")
	}
	if d.AgeMatch {
		parts = append(parts, "age")
	}
	if d.CharacterMatch {
		parts = append(parts, "character")
	}
	if len(d.MatchedTags) > 0 {
		parts = append(parts, "tags: "+strings.Join(d.MatchedTags, " "))
	}
	if len(d.MatchedTones) > 0 {
		parts = append(parts, "tones: "+strings.Join(d.MatchedTones, " "))
	}
	if len(d.MatchedKeywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(d.MatchedKeywords, " "))
	}
	return strings.Join(parts, ", ")
}

// orDash substitutes a dash for empty attribute values in CLI output.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║           voicematch startup           ║")
	fmt.Println("╠════════════════════════════════════════╣")
	printRow("Provider", string(cfg.Catalog.Provider))
	refresh := cfg.Catalog.RefreshInterval
	if refresh == "" {
		refresh = "(default)"
	}
	printRow("Refresh every", refresh)
	if cfg.Catalog.PostgresDSN != "" {
		printRow("Postgres cache", "enabled")
	} else {
		printRow("Postgres cache", "(disabled)")
	}
	if cfg.Matcher.StrictGender {
		printRow("Strict gender", "on")
	} else {
		printRow("Strict gender", "off")
	}
	if cfg.Matcher.MaxResults == 0 {
		printRow("Max results", "unbounded")
	} else {
		printRow("Max results", strconv.Itoa(cfg.Matcher.MaxResults))
	}
	if cfg.Matcher.VocabularyFile != "" {
		printRow("Vocabulary", filepath.Base(cfg.Matcher.VocabularyFile))
	} else {
		printRow("Vocabulary", "(built-in)")
	}
	if cfg.Server.TLS != nil {
		printRow("TLS", "enabled")
	} else {
		printRow("TLS", "(plain http)")
	}
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚════════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}
