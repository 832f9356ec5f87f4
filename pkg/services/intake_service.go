// Package services wires the engine's business logic: the intake gateway,
// score aggregation, per-entity serialization, and the best-effort error
// sink.
package services

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/models"
	"github.com/sellsignal/intent-engine/pkg/repositories"
	"github.com/sellsignal/intent-engine/pkg/scoring"
)

// correlationIDPattern accepts opaque trace identifiers: UUIDs, W3C trace
// IDs, and dotted producer-assigned IDs all fit.
var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// EntityRegistry is the identity oracle consumed per submission. The engine
// never invents entity identity; a false return is authoritative.
type EntityRegistry interface {
	Exists(ctx context.Context, entityID uuid.UUID) (bool, error)
}

// Outcome is the caller-facing classification of a submission.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
)

// SubmitRequest is a producer's signal submission.
type SubmitRequest struct {
	EntityID           uuid.UUID
	SignalType         string
	Source             string
	CorrelationID      string
	OccurredAt         time.Time
	DedupDiscriminator string
	Metadata           map[string]any
}

// SubmitResult reports a successful submission: either a durable new signal
// or a recorded duplicate no-op.
type SubmitResult struct {
	Outcome        Outcome
	SignalID       uuid.UUID // set when Outcome is accepted
	DuplicateCount int       // set when Outcome is duplicate
}

// IntakeService is the engine's sole write entry point. Submit returns a
// SubmitResult for accepted and duplicate signals; every failure is an
// *apperrors.Rejection recorded to the error sink, so no submission is ever
// silently dropped.
type IntakeService interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

type intakeService struct {
	signals        repositories.SignalRepository
	dedup          repositories.DedupRepository
	scoring        ScoringService
	sink           ErrorSinkService
	registry       EntityRegistry
	weights        *scoring.WeightTable
	locks          *EntityLocks
	storageTimeout time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewIntakeService creates the intake gateway. storageTimeout bounds each
// internal store operation; zero means a 2s default.
func NewIntakeService(
	signals repositories.SignalRepository,
	dedup repositories.DedupRepository,
	scoringSvc ScoringService,
	sink ErrorSinkService,
	entityRegistry EntityRegistry,
	weights *scoring.WeightTable,
	storageTimeout time.Duration,
	logger *zap.Logger,
) IntakeService {
	if storageTimeout <= 0 {
		storageTimeout = 2 * time.Second
	}
	return &intakeService{
		signals:        signals,
		dedup:          dedup,
		scoring:        scoringSvc,
		sink:           sink,
		registry:       entityRegistry,
		weights:        weights,
		locks:          NewEntityLocks(),
		storageTimeout: storageTimeout,
		logger:         logger.Named("intake"),
		now:            time.Now,
	}
}

var _ IntakeService = (*intakeService)(nil)

func (s *intakeService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// 1. Structural validation. Correlation ID comes first: without it the
	// rejection itself cannot be traced.
	if req.CorrelationID == "" {
		return nil, s.reject(ctx, req, apperrors.NewRejection(apperrors.ReasonMissingCorrelationID))
	}
	if !correlationIDPattern.MatchString(req.CorrelationID) {
		return nil, s.reject(ctx, req, apperrors.NewRejection(apperrors.ReasonInvalidCorrelationID))
	}
	if req.EntityID == uuid.Nil {
		return nil, s.reject(ctx, req, apperrors.NewRejection(apperrors.ReasonMissingEntityID))
	}
	if req.OccurredAt.IsZero() {
		return nil, s.reject(ctx, req, apperrors.NewRejection(apperrors.ReasonMissingOccurredAt))
	}
	weightEntry, ok := s.weights.Lookup(req.SignalType)
	if !ok {
		return nil, s.reject(ctx, req, apperrors.NewRejection(apperrors.ReasonUnknownSignalType))
	}

	// 2. Entity existence. The registry call is the one expected external
	// suspension point of a submission.
	exists, err := s.registry.Exists(ctx, req.EntityID)
	if err != nil {
		return nil, s.reject(ctx, req, apperrors.NewRetryableRejection(apperrors.ReasonRegistryUnavailable, err))
	}
	if !exists {
		rej := apperrors.NewRejection(apperrors.ReasonEntityNotFound)
		rej.Retryable = true // producer may retry after resolving identity upstream
		return nil, s.reject(ctx, req, rej)
	}

	// 3+4. Dedup check-and-reserve, append, and recompute run under the
	// entity lock so concurrent same-entity submissions serialize.
	release := s.locks.Acquire(req.EntityID)
	defer release()

	occurredAt := req.OccurredAt.UTC()
	entry := &models.DedupEntry{
		DedupKey:        models.DedupKey(req.EntityID, req.SignalType, s.discriminator(req, occurredAt)),
		EntityID:        req.EntityID,
		SignalType:      req.SignalType,
		FirstSeenAt:     occurredAt,
		WindowExpiresAt: occurredAt.Add(weightEntry.DedupWindow.Duration()),
	}

	var fresh bool
	err = s.withStorageTimeout(ctx, func(storageCtx context.Context) error {
		var reserveErr error
		fresh, reserveErr = s.dedup.CheckAndReserve(storageCtx, entry)
		return reserveErr
	})
	if err != nil {
		return nil, s.reject(ctx, req, classifyStorage(err))
	}
	if !fresh {
		return s.recordDuplicate(ctx, req, entry.DedupKey)
	}

	signal := &models.Signal{
		ID:                 uuid.New(),
		EntityID:           req.EntityID,
		SignalType:         req.SignalType,
		Source:             req.Source,
		CorrelationID:      req.CorrelationID,
		OccurredAt:         occurredAt,
		RecordedAt:         s.now().UTC(),
		DedupDiscriminator: req.DedupDiscriminator,
		Metadata:           req.Metadata,
	}

	if err := s.appendSignal(ctx, signal); err != nil {
		// The reservation guards no recorded signal; free it so the
		// producer's retry is not misclassified as a duplicate.
		s.releaseReservation(ctx, entry.DedupKey, req.CorrelationID)
		return nil, s.reject(ctx, req, classifyStorage(err))
	}

	// The signal is durable from here on. Recompute runs detached from the
	// caller's cancellation: an aborted request must never roll back or skip
	// the aggregation of a recorded signal.
	recomputeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storageTimeout)
	defer cancel()
	if _, err := s.scoring.Recompute(recomputeCtx, req.EntityID); err != nil {
		// The score is stale until the entity's next signal; the prior
		// record is untouched.
		s.logger.Error("Recompute failed after durable append",
			zap.String("entity_id", req.EntityID.String()),
			zap.String("correlation_id", req.CorrelationID),
			zap.Error(err))
	}

	s.logger.Info("Signal accepted",
		zap.String("signal_id", signal.ID.String()),
		zap.String("entity_id", req.EntityID.String()),
		zap.String("signal_type", req.SignalType),
		zap.String("correlation_id", req.CorrelationID))

	return &SubmitResult{Outcome: OutcomeAccepted, SignalID: signal.ID}, nil
}

// discriminator falls back to the event date when the producer supplied
// none, so undiscriminated signals still dedup within their window by day.
func (s *intakeService) discriminator(req SubmitRequest, occurredAt time.Time) string {
	if req.DedupDiscriminator != "" {
		return req.DedupDiscriminator
	}
	return occurredAt.Format("2006-01-02")
}

func (s *intakeService) appendSignal(ctx context.Context, signal *models.Signal) error {
	return s.withStorageTimeout(ctx, func(storageCtx context.Context) error {
		return s.signals.Append(storageCtx, signal)
	})
}

// releaseReservation deletes a dedup reservation after a failed append. It
// runs detached from the caller's cancellation: a stranded reservation would
// swallow every retry of the tuple until its window expires.
func (s *intakeService) releaseReservation(ctx context.Context, dedupKey, correlationID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storageTimeout)
	defer cancel()
	if err := s.dedup.Release(releaseCtx, dedupKey); err != nil {
		s.logger.Error("Failed to release dedup reservation after append failure",
			zap.String("dedup_key", dedupKey),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
	}
}

func (s *intakeService) recordDuplicate(ctx context.Context, req SubmitRequest, dedupKey string) (*SubmitResult, error) {
	var count int
	err := s.withStorageTimeout(ctx, func(storageCtx context.Context) error {
		var countErr error
		count, countErr = s.dedup.RecordDuplicate(storageCtx, dedupKey)
		return countErr
	})
	if err != nil {
		// The duplicate classification stands; only the counter is lost.
		s.logger.Warn("Failed to bump duplicate counter",
			zap.String("dedup_key", dedupKey),
			zap.String("correlation_id", req.CorrelationID),
			zap.Error(err))
	}

	s.logger.Info("Duplicate signal observed",
		zap.String("entity_id", req.EntityID.String()),
		zap.String("signal_type", req.SignalType),
		zap.String("correlation_id", req.CorrelationID),
		zap.Int("duplicate_count", count))

	return &SubmitResult{Outcome: OutcomeDuplicate, DuplicateCount: count}, nil
}

// withStorageTimeout runs fn under the configured storage deadline.
func (s *intakeService) withStorageTimeout(ctx context.Context, fn func(context.Context) error) error {
	storageCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	return fn(storageCtx)
}

// classifyStorage maps a storage failure to its rejection. Deadline expiry
// and every other store error are retryable: the engine never converts an
// infrastructure fault into a terminal rejection.
func classifyStorage(err error) *apperrors.Rejection {
	return apperrors.NewRetryableRejection(apperrors.ReasonStorageTimeout, err)
}

// reject records the rejection in the error sink (best-effort) and returns
// it for the caller-facing response.
func (s *intakeService) reject(ctx context.Context, req SubmitRequest, rej *apperrors.Rejection) error {
	var entityID *uuid.UUID
	if req.EntityID != uuid.Nil {
		id := req.EntityID
		entityID = &id
	}

	details := map[string]any{
		"signal_type": req.SignalType,
		"source":      req.Source,
	}

	s.sink.Record(ctx, req.CorrelationID, entityID, rej.Reason, rej.Retryable, details)

	s.logger.Info("Signal rejected",
		zap.String("correlation_id", req.CorrelationID),
		zap.String("signal_type", req.SignalType),
		zap.String("reason", rej.Reason),
		zap.Bool("retryable", rej.Retryable))

	return rej
}
