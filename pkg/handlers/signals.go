// Package handlers exposes the engine over HTTP: signal submission for
// producers and the read-only score surface for downstream consumers.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/services"
)

// SubmitSignalRequest is the wire shape of a producer submission.
type SubmitSignalRequest struct {
	EntityID           uuid.UUID      `json:"entity_id"`
	SignalType         string         `json:"signal_type"`
	Source             string         `json:"source"`
	CorrelationID      string         `json:"correlation_id"`
	OccurredAt         time.Time      `json:"occurred_at"`
	DedupDiscriminator string         `json:"dedup_discriminator,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// SubmitSignalResponse reports the submission outcome. Exactly one of the
// three statuses is returned: accepted, duplicate, or rejected.
type SubmitSignalResponse struct {
	Status         string `json:"status"`
	SignalID       string `json:"signal_id,omitempty"`
	DuplicateCount int    `json:"duplicate_count,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Retryable      *bool  `json:"retryable,omitempty"`
}

// SignalHandler handles producer signal submissions.
type SignalHandler struct {
	intake services.IntakeService
	logger *zap.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(intake services.IntakeService, logger *zap.Logger) *SignalHandler {
	return &SignalHandler{intake: intake, logger: logger.Named("signal-handler")}
}

// RegisterRoutes registers the signal handler's routes on the given mux.
func (h *SignalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signals", h.Submit)
}

// Submit handles POST /api/signals.
// 201: accepted with the new signal ID. 200: duplicate no-op. 400/404/503:
// rejected, with the reason and retryability in the body.
func (h *SignalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "malformed_request", "Request body is not valid JSON"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.intake.Submit(r.Context(), services.SubmitRequest{
		EntityID:           req.EntityID,
		SignalType:         req.SignalType,
		Source:             req.Source,
		CorrelationID:      req.CorrelationID,
		OccurredAt:         req.OccurredAt,
		DedupDiscriminator: req.DedupDiscriminator,
		Metadata:           req.Metadata,
	})
	if err != nil {
		h.writeRejection(w, err)
		return
	}

	switch result.Outcome {
	case services.OutcomeAccepted:
		h.writeJSON(w, http.StatusCreated, SubmitSignalResponse{
			Status:   "accepted",
			SignalID: result.SignalID.String(),
		})
	case services.OutcomeDuplicate:
		h.writeJSON(w, http.StatusOK, SubmitSignalResponse{
			Status:         "duplicate",
			DuplicateCount: result.DuplicateCount,
		})
	}
}

func (h *SignalHandler) writeRejection(w http.ResponseWriter, err error) {
	rej, ok := apperrors.AsRejection(err)
	if !ok {
		h.logger.Error("Unclassified intake error", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Submission failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	retryable := rej.Retryable
	h.writeJSON(w, statusForRejection(rej), SubmitSignalResponse{
		Status:    "rejected",
		Reason:    rej.Reason,
		Retryable: &retryable,
	})
}

// statusForRejection maps rejection reasons to HTTP statuses: terminal
// validation failures are the caller's to fix (400), a missing entity is
// addressable upstream (404), and infrastructure faults invite a retry (503).
func statusForRejection(rej *apperrors.Rejection) int {
	switch rej.Reason {
	case apperrors.ReasonEntityNotFound:
		return http.StatusNotFound
	case apperrors.ReasonRegistryUnavailable, apperrors.ReasonStorageTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (h *SignalHandler) writeJSON(w http.ResponseWriter, status int, body SubmitSignalResponse) {
	if err := WriteJSON(w, status, body); err != nil {
		h.logger.Error("Failed to encode submission response", zap.Error(err))
	}
}
