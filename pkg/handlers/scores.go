package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/models"
	"github.com/sellsignal/intent-engine/pkg/services"
)

// defaultTierLimit caps ListByTier results when the caller gives no limit.
const defaultTierLimit = 100

// ScoreResponse is the read-only view of an entity's current score.
type ScoreResponse struct {
	EntityID     uuid.UUID          `json:"entity_id"`
	Score        int                `json:"score"`
	Tier         models.Tier        `json:"tier"`
	SubScores    map[string]float64 `json:"sub_scores"`
	SignalCount  int                `json:"signal_count"`
	LastSignalAt time.Time          `json:"last_signal_at"`
	LastScoredAt time.Time          `json:"last_scored_at"`
}

// TierListResponse lists entities currently in one tier.
type TierListResponse struct {
	Tier      models.Tier `json:"tier"`
	EntityIDs []uuid.UUID `json:"entity_ids"`
}

// TierDistributionResponse reports entity counts per tier.
type TierDistributionResponse struct {
	Distribution map[models.Tier]int `json:"distribution"`
}

// ScoreHandler serves the read-only score surface consumed by downstream
// systems (overrides, outreach decisions). Nothing here writes.
type ScoreHandler struct {
	scoring services.ScoringService
	logger  *zap.Logger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scoring services.ScoringService, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{scoring: scoring, logger: logger.Named("score-handler")}
}

// RegisterRoutes registers the score handler's routes on the given mux.
func (h *ScoreHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/scores/{entity_id}", h.GetScore)
	mux.HandleFunc("GET /api/tiers/{tier}", h.ListByTier)
	mux.HandleFunc("GET /api/tiers", h.TierDistribution)
}

// GetScore handles GET /api/scores/{entity_id}.
func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(r.PathValue("entity_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_entity_id", "entity_id must be a UUID")
		return
	}

	record, err := h.scoring.GetScore(r.Context(), entityID)
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "score_not_found", "Entity has no score record")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load score", zap.String("entity_id", entityID.String()), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load score")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ScoreResponse{
		EntityID:     record.EntityID,
		Score:        record.Score,
		Tier:         record.Tier,
		SubScores:    record.SubScores,
		SignalCount:  record.SignalCount,
		LastSignalAt: record.LastSignalAt,
		LastScoredAt: record.LastScoredAt,
	}); err != nil {
		h.logger.Error("Failed to encode score response", zap.Error(err))
	}
}

// ListByTier handles GET /api/tiers/{tier}?limit=N.
func (h *ScoreHandler) ListByTier(w http.ResponseWriter, r *http.Request) {
	tierName := r.PathValue("tier")
	if !models.ValidTier(tierName) {
		h.writeError(w, http.StatusBadRequest, "invalid_tier", "tier must be one of COLD, WARM, HOT, BURNING")
		return
	}
	tier := models.Tier(tierName)

	limit := defaultTierLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entityIDs, err := h.scoring.ListByTier(r.Context(), tier, limit)
	if err != nil {
		h.logger.Error("Failed to list tier", zap.String("tier", tierName), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list tier")
		return
	}
	if entityIDs == nil {
		entityIDs = []uuid.UUID{}
	}

	if err := WriteJSON(w, http.StatusOK, TierListResponse{Tier: tier, EntityIDs: entityIDs}); err != nil {
		h.logger.Error("Failed to encode tier list response", zap.Error(err))
	}
}

// TierDistribution handles GET /api/tiers.
func (h *ScoreHandler) TierDistribution(w http.ResponseWriter, r *http.Request) {
	distribution, err := h.scoring.TierDistribution(r.Context())
	if err != nil {
		h.logger.Error("Failed to load tier distribution", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load tier distribution")
		return
	}

	if err := WriteJSON(w, http.StatusOK, TierDistributionResponse{Distribution: distribution}); err != nil {
		h.logger.Error("Failed to encode tier distribution response", zap.Error(err))
	}
}

func (h *ScoreHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
