package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/database"
	"github.com/sellsignal/intent-engine/pkg/models"
)

// ScoreRepository provides access to the current-score table. Upsert is a
// single statement, so a failed recompute can never leave a partially
// written record behind.
type ScoreRepository interface {
	// Get returns the current score record, or apperrors.ErrNotFound for an
	// entity that has never been scored.
	Get(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error)

	// Upsert replaces the entity's score record wholesale.
	Upsert(ctx context.Context, record *models.ScoreRecord) error

	// ListByTier returns up to limit entity IDs currently in the tier,
	// highest score first.
	ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error)

	// TierDistribution returns the count of entities per tier. Tiers with no
	// entities are present with a zero count.
	TierDistribution(ctx context.Context) (map[models.Tier]int, error)
}

type scoreRepository struct {
	db *database.DB
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(db *database.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

var _ ScoreRepository = (*scoreRepository)(nil)

func (r *scoreRepository) Get(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	query := `
		SELECT entity_id, score, tier, sub_scores, signal_count, last_signal_at, last_scored_at
		FROM score_records
		WHERE entity_id = $1`

	var record models.ScoreRecord
	var subScoresJSON []byte

	err := r.db.QueryRow(ctx, query, entityID).Scan(
		&record.EntityID,
		&record.Score,
		&record.Tier,
		&subScoresJSON,
		&record.SignalCount,
		&record.LastSignalAt,
		&record.LastScoredAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("score record for entity %s: %w", entityID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score record: %w", err)
	}

	if len(subScoresJSON) > 0 && string(subScoresJSON) != "null" {
		if err := json.Unmarshal(subScoresJSON, &record.SubScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sub_scores: %w", err)
		}
	}

	return &record, nil
}

func (r *scoreRepository) Upsert(ctx context.Context, record *models.ScoreRecord) error {
	subScoresJSON, err := json.Marshal(record.SubScores)
	if err != nil {
		return fmt.Errorf("failed to marshal sub_scores: %w", err)
	}

	query := `
		INSERT INTO score_records (
			entity_id, score, tier, sub_scores, signal_count, last_signal_at, last_scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_id) DO UPDATE
		SET score = EXCLUDED.score,
		    tier = EXCLUDED.tier,
		    sub_scores = EXCLUDED.sub_scores,
		    signal_count = EXCLUDED.signal_count,
		    last_signal_at = EXCLUDED.last_signal_at,
		    last_scored_at = EXCLUDED.last_scored_at`

	_, err = r.db.Exec(ctx, query,
		record.EntityID,
		record.Score,
		record.Tier,
		subScoresJSON,
		record.SignalCount,
		record.LastSignalAt,
		record.LastScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score record: %w", err)
	}

	return nil
}

func (r *scoreRepository) ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT entity_id
		FROM score_records
		WHERE tier = $1
		ORDER BY score DESC, last_scored_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, tier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities by tier: %w", err)
	}
	defer rows.Close()

	var entityIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity id: %w", err)
		}
		entityIDs = append(entityIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier entities: %w", err)
	}

	return entityIDs, nil
}

func (r *scoreRepository) TierDistribution(ctx context.Context) (map[models.Tier]int, error) {
	query := `
		SELECT tier, COUNT(*)
		FROM score_records
		GROUP BY tier`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier distribution: %w", err)
	}
	defer rows.Close()

	distribution := make(map[models.Tier]int, len(models.Tiers))
	for _, tier := range models.Tiers {
		distribution[tier] = 0
	}

	for rows.Next() {
		var tier models.Tier
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		distribution[tier] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier distribution: %w", err)
	}

	return distribution, nil
}
