package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/database"
	"github.com/sellsignal/intent-engine/pkg/models"
)

// DedupRepository provides access to the dedup index. Reservation is a
// single conditional upsert, so two concurrent submissions of the same key
// can never both win: the database admits exactly one.
type DedupRepository interface {
	// CheckAndReserve claims the entry's dedup key. It returns true when the
	// key was fresh (no live window) and the reservation was written, false
	// when a live window already covers it.
	CheckAndReserve(ctx context.Context, entry *models.DedupEntry) (bool, error)

	// RecordDuplicate bumps the duplicate-observation counter on an existing
	// entry and returns the new count.
	RecordDuplicate(ctx context.Context, dedupKey string) (int, error)

	// Release frees a reservation whose signal was never appended, so the
	// tuple can be resubmitted. Releasing an absent key is a no-op.
	Release(ctx context.Context, dedupKey string) error

	// Get returns the entry for a dedup key, or apperrors.ErrNotFound.
	Get(ctx context.Context, dedupKey string) (*models.DedupEntry, error)
}

type dedupRepository struct {
	db *database.DB
}

// NewDedupRepository creates a new DedupRepository.
func NewDedupRepository(db *database.DB) DedupRepository {
	return &dedupRepository{db: db}
}

var _ DedupRepository = (*dedupRepository)(nil)

func (r *dedupRepository) CheckAndReserve(ctx context.Context, entry *models.DedupEntry) (bool, error) {
	// The WHERE clause on the conflict arm makes the whole operation a
	// conditional atomic update: the row is (re)written only when no window
	// is live, and RETURNING tells us whether we won.
	query := `
		INSERT INTO dedup_entries (
			dedup_key, entity_id, signal_type, first_seen_at, window_expires_at, duplicate_count
		) VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (dedup_key) DO UPDATE
		SET first_seen_at = EXCLUDED.first_seen_at,
		    window_expires_at = EXCLUDED.window_expires_at,
		    duplicate_count = 0
		WHERE dedup_entries.window_expires_at <= EXCLUDED.first_seen_at
		RETURNING dedup_key`

	var key string
	err := r.db.QueryRow(ctx, query,
		entry.DedupKey,
		entry.EntityID,
		entry.SignalType,
		entry.FirstSeenAt,
		entry.WindowExpiresAt,
	).Scan(&key)
	if err == pgx.ErrNoRows {
		// Conflict with a live window: duplicate.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reserve dedup key: %w", err)
	}

	return true, nil
}

func (r *dedupRepository) RecordDuplicate(ctx context.Context, dedupKey string) (int, error) {
	query := `
		UPDATE dedup_entries
		SET duplicate_count = duplicate_count + 1
		WHERE dedup_key = $1
		RETURNING duplicate_count`

	var count int
	if err := r.db.QueryRow(ctx, query, dedupKey).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to record duplicate: %w", err)
	}

	return count, nil
}

func (r *dedupRepository) Release(ctx context.Context, dedupKey string) error {
	query := `DELETE FROM dedup_entries WHERE dedup_key = $1`

	if _, err := r.db.Exec(ctx, query, dedupKey); err != nil {
		return fmt.Errorf("failed to release dedup key: %w", err)
	}

	return nil
}

func (r *dedupRepository) Get(ctx context.Context, dedupKey string) (*models.DedupEntry, error) {
	query := `
		SELECT dedup_key, entity_id, signal_type, first_seen_at, window_expires_at, duplicate_count
		FROM dedup_entries
		WHERE dedup_key = $1`

	var entry models.DedupEntry
	err := r.db.QueryRow(ctx, query, dedupKey).Scan(
		&entry.DedupKey,
		&entry.EntityID,
		&entry.SignalType,
		&entry.FirstSeenAt,
		&entry.WindowExpiresAt,
		&entry.DuplicateCount,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("dedup entry %s: %w", dedupKey, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dedup entry: %w", err)
	}

	return &entry, nil
}
