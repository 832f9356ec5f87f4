package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/models"
	"github.com/sellsignal/intent-engine/pkg/repositories"
)

// ErrorSinkService records rejected submissions for traceability. It is
// best-effort by contract: Record never returns an error and never blocks
// the caller-facing response beyond its own short timeout.
type ErrorSinkService interface {
	Record(ctx context.Context, correlationID string, entityID *uuid.UUID, reason string, retryable bool, details map[string]any)
}

type errorSinkService struct {
	repo    repositories.RejectionRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewErrorSinkService creates a new ErrorSinkService. timeout bounds each
// sink write; zero means a 1s default.
func NewErrorSinkService(repo repositories.RejectionRepository, timeout time.Duration, logger *zap.Logger) ErrorSinkService {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &errorSinkService{
		repo:    repo,
		timeout: timeout,
		logger:  logger.Named("error-sink"),
	}
}

var _ ErrorSinkService = (*errorSinkService)(nil)

func (s *errorSinkService) Record(ctx context.Context, correlationID string, entityID *uuid.UUID, reason string, retryable bool, details map[string]any) {
	// Detach from the caller's cancellation: an aborted submission should
	// still leave its trace, and a sink failure must not surface upstream.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	rejection := &models.RejectedSignal{
		CorrelationID: correlationID,
		EntityID:      entityID,
		Reason:        reason,
		Retryable:     retryable,
		Context:       details,
	}

	if err := s.repo.Create(sinkCtx, rejection); err != nil {
		s.logger.Warn("Failed to record rejected signal",
			zap.String("correlation_id", correlationID),
			zap.String("reason", reason),
			zap.Error(err))
	}
}
