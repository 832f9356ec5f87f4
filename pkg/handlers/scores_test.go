package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/models"
)

type stubScoring struct {
	record       *models.ScoreRecord
	recordErr    error
	tierIDs      []uuid.UUID
	distribution map[models.Tier]int
	gotLimit     int
}

func (s *stubScoring) Recompute(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	return s.record, s.recordErr
}

func (s *stubScoring) GetScore(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	return s.record, s.recordErr
}

func (s *stubScoring) ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error) {
	s.gotLimit = limit
	return s.tierIDs, nil
}

func (s *stubScoring) TierDistribution(ctx context.Context) (map[models.Tier]int, error) {
	return s.distribution, nil
}

func TestGetScore_OK(t *testing.T) {
	entityID := uuid.New()
	now := time.Now().UTC()
	scoring := &stubScoring{record: &models.ScoreRecord{
		EntityID:     entityID,
		Score:        62,
		Tier:         models.TierHot,
		SubScores:    map[string]float64{"news-watcher": 62},
		SignalCount:  4,
		LastSignalAt: now,
		LastScoredAt: now,
	}}
	handler := NewScoreHandler(scoring, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/scores/"+entityID.String(), nil)
	req.SetPathValue("entity_id", entityID.String())
	rec := httptest.NewRecorder()
	handler.GetScore(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, entityID, resp.EntityID)
	assert.Equal(t, 62, resp.Score)
	assert.Equal(t, models.TierHot, resp.Tier)
	assert.Equal(t, 4, resp.SignalCount)
}

func TestGetScore_InvalidUUID(t *testing.T) {
	handler := NewScoreHandler(&stubScoring{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/scores/not-a-uuid", nil)
	req.SetPathValue("entity_id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.GetScore(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScore_NotFound(t *testing.T) {
	handler := NewScoreHandler(&stubScoring{recordErr: apperrors.ErrNotFound}, zap.NewNop())

	entityID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/scores/"+entityID.String(), nil)
	req.SetPathValue("entity_id", entityID.String())
	rec := httptest.NewRecorder()
	handler.GetScore(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByTier_OK(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	scoring := &stubScoring{tierIDs: ids}
	handler := NewScoreHandler(scoring, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/tiers/HOT?limit=5", nil)
	req.SetPathValue("tier", "HOT")
	rec := httptest.NewRecorder()
	handler.ListByTier(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, scoring.gotLimit)

	var resp TierListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.TierHot, resp.Tier)
	assert.Equal(t, ids, resp.EntityIDs)
}

func TestListByTier_DefaultLimit(t *testing.T) {
	scoring := &stubScoring{}
	handler := NewScoreHandler(scoring, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/tiers/COLD", nil)
	req.SetPathValue("tier", "COLD")
	rec := httptest.NewRecorder()
	handler.ListByTier(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultTierLimit, scoring.gotLimit)
	// Empty tier still returns a JSON array, not null.
	assert.Contains(t, rec.Body.String(), `"entity_ids":[]`)
}

func TestListByTier_InvalidTier(t *testing.T) {
	handler := NewScoreHandler(&stubScoring{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/tiers/TEPID", nil)
	req.SetPathValue("tier", "TEPID")
	rec := httptest.NewRecorder()
	handler.ListByTier(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListByTier_InvalidLimit(t *testing.T) {
	handler := NewScoreHandler(&stubScoring{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/tiers/HOT?limit=-2", nil)
	req.SetPathValue("tier", "HOT")
	rec := httptest.NewRecorder()
	handler.ListByTier(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTierDistribution_OK(t *testing.T) {
	scoring := &stubScoring{distribution: map[models.Tier]int{
		models.TierCold:    10,
		models.TierWarm:    4,
		models.TierHot:     2,
		models.TierBurning: 1,
	}}
	handler := NewScoreHandler(scoring, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/tiers", nil)
	rec := httptest.NewRecorder()
	handler.TierDistribution(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TierDistributionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 10, resp.Distribution[models.TierCold])
	assert.Equal(t, 1, resp.Distribution[models.TierBurning])
}
