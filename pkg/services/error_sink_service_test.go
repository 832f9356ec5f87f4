package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestErrorSink_RecordsRejection(t *testing.T) {
	repo := &fakeRejectionRepo{}
	sink := NewErrorSinkService(repo, time.Second, zap.NewNop())
	entityID := uuid.New()

	sink.Record(context.Background(), "corr-1", &entityID, "unknown_signal_type", false, map[string]any{
		"signal_type": "CARRIER_PIGEON",
	})

	require.Equal(t, 1, repo.count())
	rejection := repo.last()
	assert.Equal(t, "corr-1", rejection.CorrelationID)
	assert.Equal(t, "unknown_signal_type", rejection.Reason)
	assert.False(t, rejection.Retryable)
	require.NotNil(t, rejection.EntityID)
	assert.Equal(t, entityID, *rejection.EntityID)
}

func TestErrorSink_NeverPanicsOrPropagates(t *testing.T) {
	repo := &fakeRejectionRepo{createErr: errors.New("sink table missing")}
	sink := NewErrorSinkService(repo, time.Second, zap.NewNop())

	// Must not panic and has no error to return.
	sink.Record(context.Background(), "corr-2", nil, "registry_unavailable", true, nil)
}

func TestErrorSink_WritesDespiteCancelledCaller(t *testing.T) {
	repo := &fakeRejectionRepo{}
	sink := NewErrorSinkService(repo, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Record(ctx, "corr-3", nil, "storage_timeout", true, nil)

	assert.Equal(t, 1, repo.count())
}
