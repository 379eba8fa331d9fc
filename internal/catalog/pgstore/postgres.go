// Package pgstore persists catalog snapshots to PostgreSQL.
//
// The voices table is a fallback cache, not a source of truth: the refresher
// writes every successfully fetched catalog through to it, and on startup the
// service restores the most recent cached catalog when the upstream provider
// is unreachable.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/maalaph/voicematch/internal/catalog"
)

// Schema is the SQL DDL for the voices table. Execute it via [Store.Migrate]
// or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS voices (
    id              TEXT PRIMARY KEY,
    display_name    TEXT NOT NULL DEFAULT '',
    source_provider TEXT NOT NULL DEFAULT '',
    accent          TEXT NOT NULL DEFAULT '',
    gender          TEXT NOT NULL DEFAULT '',
    age             TEXT NOT NULL DEFAULT '',
    timbre_tags     JSONB NOT NULL DEFAULT '[]',
    tone_words      JSONB NOT NULL DEFAULT '[]',
    description     TEXT NOT NULL DEFAULT '',
    use_cases       JSONB NOT NULL DEFAULT '[]',
    quality         TEXT NOT NULL DEFAULT '',
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_voices_source ON voices(source_provider);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [catalog.Cache] backed by a PostgreSQL database. It serialises
// the list-valued voice fields (timbre tags, tone words, use cases) as JSONB.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ catalog.Cache = (*Store)(nil)

// New creates a [Store] that uses the given database connection or pool. The
// caller is responsible for calling [Store.Migrate] to ensure the schema
// exists before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// voices table and index if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// ReplaceAll makes the cached catalog equal to the given voice set: every
// voice is upserted and rows absent from the set are pruned. Each voice is
// validated before persistence; the first invalid voice aborts the replace.
//
// An empty set prunes every cached row.
func (s *Store) ReplaceAll(ctx context.Context, voices []catalog.Voice) error {
	ids := make([]string, 0, len(voices))
	for _, v := range voices {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("pgstore: voice %q: %w", v.ID, err)
		}
	}
	for _, v := range voices {
		if err := s.upsert(ctx, v); err != nil {
			return err
		}
		ids = append(ids, v.ID)
	}

	const prune = `DELETE FROM voices WHERE NOT (id = ANY($1))`
	if _, err := s.db.Exec(ctx, prune, ids); err != nil {
		return fmt.Errorf("pgstore: prune: %w", err)
	}
	return nil
}

// LoadAll returns all cached voices ordered by ID, together with the time of
// the most recent write. Callers use the timestamp to judge cache staleness;
// it is the zero [time.Time] when the cache is empty.
func (s *Store) LoadAll(ctx context.Context) ([]catalog.Voice, time.Time, error) {
	const query = `
		SELECT id, display_name, source_provider, accent, gender, age,
		       timbre_tags, tone_words, description, use_cases, quality,
		       updated_at
		FROM voices
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("pgstore: load: %w", err)
	}
	defer rows.Close()

	var (
		voices []catalog.Voice
		latest time.Time
	)
	for rows.Next() {
		var (
			v                             catalog.Voice
			source, gender, age, quality  string
			timbreJSON, toneJSON, useJSON []byte
			updatedAt                     time.Time
		)
		if err := rows.Scan(
			&v.ID, &v.DisplayName, &source, &v.Accent, &gender, &age,
			&timbreJSON, &toneJSON, &v.Description, &useJSON, &quality,
			&updatedAt,
		); err != nil {
			return nil, time.Time{}, fmt.Errorf("pgstore: load scan: %w", err)
		}

		if err := json.Unmarshal(timbreJSON, &v.TimbreTags); err != nil {
			return nil, time.Time{}, fmt.Errorf("pgstore: unmarshal timbre_tags: %w", err)
		}
		if err := json.Unmarshal(toneJSON, &v.ToneWords); err != nil {
			return nil, time.Time{}, fmt.Errorf("pgstore: unmarshal tone_words: %w", err)
		}
		if err := json.Unmarshal(useJSON, &v.UseCases); err != nil {
			return nil, time.Time{}, fmt.Errorf("pgstore: unmarshal use_cases: %w", err)
		}

		v.SourceProvider = catalog.Source(source)
		v.Gender = catalog.Gender(gender)
		v.Age = catalog.AgeBracket(age)
		v.Quality = catalog.QualityTier(quality)

		if updatedAt.After(latest) {
			latest = updatedAt
		}
		voices = append(voices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("pgstore: load: %w", err)
	}
	return voices, latest, nil
}

// upsert inserts or replaces a single voice row.
func (s *Store) upsert(ctx context.Context, v catalog.Voice) error {
	timbreJSON, err := json.Marshal(emptySlice(v.TimbreTags))
	if err != nil {
		return fmt.Errorf("pgstore: marshal timbre_tags: %w", err)
	}
	toneJSON, err := json.Marshal(emptySlice(v.ToneWords))
	if err != nil {
		return fmt.Errorf("pgstore: marshal tone_words: %w", err)
	}
	useJSON, err := json.Marshal(emptySlice(v.UseCases))
	if err != nil {
		return fmt.Errorf("pgstore: marshal use_cases: %w", err)
	}

	const query = `
		INSERT INTO voices (
			id, display_name, source_provider, accent, gender, age,
			timbre_tags, tone_words, description, use_cases, quality
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			source_provider = EXCLUDED.source_provider,
			accent = EXCLUDED.accent,
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			timbre_tags = EXCLUDED.timbre_tags,
			tone_words = EXCLUDED.tone_words,
			description = EXCLUDED.description,
			use_cases = EXCLUDED.use_cases,
			quality = EXCLUDED.quality,
			updated_at = now()`

	_, err = s.db.Exec(ctx, query,
		v.ID, v.DisplayName, string(v.SourceProvider), v.Accent,
		string(v.Gender), string(v.Age),
		timbreJSON, toneJSON, v.Description, useJSON, string(v.Quality),
	)
	if err != nil {
		return fmt.Errorf("pgstore: upsert %q: %w", v.ID, err)
	}
	return nil
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice. This
// ensures JSON marshalling produces "[]" instead of "null".
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
