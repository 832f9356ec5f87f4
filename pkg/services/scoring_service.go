package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/models"
	"github.com/sellsignal/intent-engine/pkg/repositories"
	"github.com/sellsignal/intent-engine/pkg/scoring"
)

// ScoringService recomputes and serves entity scores. Recompute is a full
// replay of the entity's signal log through the decay calculator and weight
// table; the result is identical to what any incremental scheme would have
// to produce.
type ScoringService interface {
	// Recompute rebuilds the entity's score record from its signal history
	// and persists it. On any failure the prior record is left untouched.
	Recompute(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error)

	// GetScore returns the entity's current score record.
	GetScore(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error)

	// ListByTier returns up to limit entity IDs in the tier, hottest first.
	ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error)

	// TierDistribution returns entity counts per tier.
	TierDistribution(ctx context.Context) (map[models.Tier]int, error)
}

type scoringService struct {
	signals repositories.SignalRepository
	scores  repositories.ScoreRepository
	weights *scoring.WeightTable
	logger  *zap.Logger
	now     func() time.Time
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	signals repositories.SignalRepository,
	scores repositories.ScoreRepository,
	weights *scoring.WeightTable,
	logger *zap.Logger,
) ScoringService {
	return &scoringService{
		signals: signals,
		scores:  scores,
		weights: weights,
		logger:  logger.Named("scoring"),
		now:     time.Now,
	}
}

var _ ScoringService = (*scoringService)(nil)

func (s *scoringService) Recompute(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	history, err := s.signals.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signal history for %s: %w", entityID, err)
	}

	record := scoring.Aggregate(history, s.weights, s.now().UTC())
	record.EntityID = entityID

	if err := s.scores.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist score for %s: %w", entityID, err)
	}

	s.logger.Debug("Recomputed entity score",
		zap.String("entity_id", entityID.String()),
		zap.Int("score", record.Score),
		zap.String("tier", string(record.Tier)),
		zap.Int("signal_count", record.SignalCount))

	return record, nil
}

func (s *scoringService) GetScore(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	return s.scores.Get(ctx, entityID)
}

func (s *scoringService) ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error) {
	return s.scores.ListByTier(ctx, tier, limit)
}

func (s *scoringService) TierDistribution(ctx context.Context) (map[models.Tier]int, error) {
	return s.scores.TierDistribution(ctx)
}
