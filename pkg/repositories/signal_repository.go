// Package repositories provides pgx-backed data access for the engine's
// three owned stores: the append-only signal log, the dedup index, and the
// current-score table, plus the append-only error sink.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sellsignal/intent-engine/pkg/database"
	"github.com/sellsignal/intent-engine/pkg/models"
)

// SignalRepository provides access to the append-only signal log. There is
// deliberately no update or delete operation: a recorded signal is final.
type SignalRepository interface {
	// Append durably records an accepted signal.
	Append(ctx context.Context, signal *models.Signal) error

	// ListByEntity returns the entity's full signal history in arrival order.
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Signal, error)
}

type signalRepository struct {
	db *database.DB
}

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(db *database.DB) SignalRepository {
	return &signalRepository{db: db}
}

var _ SignalRepository = (*signalRepository)(nil)

func (r *signalRepository) Append(ctx context.Context, signal *models.Signal) error {
	var metadataJSON []byte
	var err error
	if len(signal.Metadata) > 0 {
		metadataJSON, err = json.Marshal(signal.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal signal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO signals (
			id, entity_id, signal_type, source, correlation_id,
			occurred_at, recorded_at, dedup_discriminator, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		signal.ID,
		signal.EntityID,
		signal.SignalType,
		signal.Source,
		signal.CorrelationID,
		signal.OccurredAt,
		signal.RecordedAt,
		signal.DedupDiscriminator,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append signal: %w", err)
	}

	return nil
}

func (r *signalRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Signal, error) {
	query := `
		SELECT id, entity_id, signal_type, source, correlation_id,
		       occurred_at, recorded_at, dedup_discriminator, metadata
		FROM signals
		WHERE entity_id = $1
		ORDER BY recorded_at, id`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		var sig models.Signal
		var metadataJSON []byte

		err := rows.Scan(
			&sig.ID,
			&sig.EntityID,
			&sig.SignalType,
			&sig.Source,
			&sig.CorrelationID,
			&sig.OccurredAt,
			&sig.RecordedAt,
			&sig.DedupDiscriminator,
			&metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
			if err := json.Unmarshal(metadataJSON, &sig.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signal metadata: %w", err)
			}
		}

		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return signals, nil
}
