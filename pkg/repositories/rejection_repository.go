package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sellsignal/intent-engine/pkg/database"
	"github.com/sellsignal/intent-engine/pkg/models"
)

// RejectionRepository provides access to the append-only error sink.
type RejectionRepository interface {
	// Create inserts a rejected-signal record.
	Create(ctx context.Context, rejection *models.RejectedSignal) error

	// ListByCorrelationID returns rejections sharing a correlation ID,
	// newest first, for cross-component tracing.
	ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.RejectedSignal, error)
}

type rejectionRepository struct {
	db *database.DB
}

// NewRejectionRepository creates a new RejectionRepository.
func NewRejectionRepository(db *database.DB) RejectionRepository {
	return &rejectionRepository{db: db}
}

var _ RejectionRepository = (*rejectionRepository)(nil)

func (r *rejectionRepository) Create(ctx context.Context, rejection *models.RejectedSignal) error {
	if rejection.ID == uuid.Nil {
		rejection.ID = uuid.New()
	}
	if rejection.CreatedAt.IsZero() {
		rejection.CreatedAt = time.Now().UTC()
	}

	var contextJSON []byte
	var err error
	if len(rejection.Context) > 0 {
		contextJSON, err = json.Marshal(rejection.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal rejection context: %w", err)
		}
	}

	query := `
		INSERT INTO rejected_signals (
			id, correlation_id, entity_id, reason, retryable, context, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query,
		rejection.ID,
		rejection.CorrelationID,
		rejection.EntityID,
		rejection.Reason,
		rejection.Retryable,
		contextJSON,
		rejection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rejected signal: %w", err)
	}

	return nil
}

func (r *rejectionRepository) ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.RejectedSignal, error) {
	query := `
		SELECT id, correlation_id, entity_id, reason, retryable, context, created_at
		FROM rejected_signals
		WHERE correlation_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejected signals: %w", err)
	}
	defer rows.Close()

	var rejections []*models.RejectedSignal
	for rows.Next() {
		var rej models.RejectedSignal
		var contextJSON []byte

		err := rows.Scan(
			&rej.ID,
			&rej.CorrelationID,
			&rej.EntityID,
			&rej.Reason,
			&rej.Retryable,
			&contextJSON,
			&rej.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rejected signal: %w", err)
		}

		if len(contextJSON) > 0 && string(contextJSON) != "null" {
			if err := json.Unmarshal(contextJSON, &rej.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal rejection context: %w", err)
			}
		}

		rejections = append(rejections, &rej)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rejected signals: %w", err)
	}

	return rejections, nil
}
