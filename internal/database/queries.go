package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"VitalSage_V0.1/internal/advisory"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

/* =================================================================================
							QUERIES
	Hand-written persistence for the advisory engine: the analysis history
	feeding trend analytics, and the durable copy of each user's tier-3
	fallback entry. Requests and results are stored as jsonb payloads.
=================================================================================*/

// Queries bundles all database operations over one connection pool.
// It implements advisory.HistoryStore and advisory.FallbackStore.
type Queries struct {
	pool *pgxpool.Pool
}

// NewQueries wraps a connection pool.
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// EnsureSchema creates the engine's tables when they do not exist yet.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS analysis_history (
	history_id  uuid PRIMARY KEY,
	user_id     text NOT NULL,
	request     jsonb NOT NULL,
	result      jsonb NOT NULL,
	created_at  timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_history_user_created_idx
	ON analysis_history (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fallback_cache (
	user_id     text PRIMARY KEY,
	entry       jsonb NOT NULL,
	updated_at  timestamptz NOT NULL
);`
	if _, err := q.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

/* =================================================================================
							ANALYSIS HISTORY
=================================================================================*/

// SaveAnalysis archives one terminal result.
func (q *Queries) SaveAnalysis(ctx context.Context, rec advisory.HistoryRecord) error {
	reqJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = q.pool.Exec(ctx,
		`INSERT INTO analysis_history (history_id, user_id, request, result, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), rec.UserID, reqJSON, resJSON,
		pgtype.Timestamptz{Time: rec.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert analysis history: %w", err)
	}
	return nil
}

// ListAnalysesSince returns a user's archived analyses newest-last.
func (q *Queries) ListAnalysesSince(ctx context.Context, userID string, since time.Time) ([]advisory.HistoryRecord, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT user_id, request, result, created_at
		 FROM analysis_history
		 WHERE user_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC`,
		userID, pgtype.Timestamptz{Time: since, Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("query analysis history: %w", err)
	}
	defer rows.Close()

	var records []advisory.HistoryRecord
	for rows.Next() {
		var (
			rec     advisory.HistoryRecord
			reqJSON []byte
			resJSON []byte
			created pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.UserID, &reqJSON, &resJSON, &created); err != nil {
			return nil, fmt.Errorf("scan analysis history: %w", err)
		}
		if err := json.Unmarshal(reqJSON, &rec.Request); err != nil {
			return nil, fmt.Errorf("unmarshal archived request: %w", err)
		}
		if err := json.Unmarshal(resJSON, &rec.Result); err != nil {
			return nil, fmt.Errorf("unmarshal archived result: %w", err)
		}
		rec.CreatedAt = created.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

/* =================================================================================
							FALLBACK CACHE
=================================================================================*/

// SaveFallback overwrites the user's durable tier-3 entry.
func (q *Queries) SaveFallback(ctx context.Context, userID string, entry advisory.CacheEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal fallback entry: %w", err)
	}

	_, err = q.pool.Exec(ctx,
		`INSERT INTO fallback_cache (user_id, entry, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET entry = EXCLUDED.entry, updated_at = now()`,
		userID, entryJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert fallback entry: %w", err)
	}
	return nil
}

// LoadFallback fetches the user's durable tier-3 entry, if any.
func (q *Queries) LoadFallback(ctx context.Context, userID string) (advisory.CacheEntry, bool, error) {
	var entryJSON []byte
	err := q.pool.QueryRow(ctx,
		`SELECT entry FROM fallback_cache WHERE user_id = $1`, userID,
	).Scan(&entryJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return advisory.CacheEntry{}, false, nil
	}
	if err != nil {
		return advisory.CacheEntry{}, false, fmt.Errorf("query fallback entry: %w", err)
	}

	var entry advisory.CacheEntry
	if err := json.Unmarshal(entryJSON, &entry); err != nil {
		return advisory.CacheEntry{}, false, fmt.Errorf("unmarshal fallback entry: %w", err)
	}
	return entry, true, nil
}
