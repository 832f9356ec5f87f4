package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/sellsignal/intent-engine/pkg/apperrors"
	"github.com/sellsignal/intent-engine/pkg/models"
	"github.com/sellsignal/intent-engine/pkg/repositories"
)

// In-memory doubles for the engine's stores. They reproduce the storage
// contracts the services rely on (atomic check-and-reserve, upsert) without
// a database; the pgx implementations are covered by integration tests.

type fakeSignalRepo struct {
	mu        sync.Mutex
	signals   []*models.Signal
	appendErr error
	listErr   error
}

var _ repositories.SignalRepository = (*fakeSignalRepo)(nil)

func (f *fakeSignalRepo) Append(ctx context.Context, signal *models.Signal) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *signal
	f.signals = append(f.signals, &copied)
	return nil
}

func (f *fakeSignalRepo) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.Signal, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Signal
	for _, sig := range f.signals {
		if sig.EntityID == entityID {
			result = append(result, sig)
		}
	}
	return result, nil
}

func (f *fakeSignalRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signals)
}

type fakeDedupRepo struct {
	mu         sync.Mutex
	entries    map[string]*models.DedupEntry
	reserveErr error
	releaseErr error
}

var _ repositories.DedupRepository = (*fakeDedupRepo)(nil)

func newFakeDedupRepo() *fakeDedupRepo {
	return &fakeDedupRepo{entries: make(map[string]*models.DedupEntry)}
}

func (f *fakeDedupRepo) CheckAndReserve(ctx context.Context, entry *models.DedupEntry) (bool, error) {
	if f.reserveErr != nil {
		return false, f.reserveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.entries[entry.DedupKey]
	if ok && existing.WindowExpiresAt.After(entry.FirstSeenAt) {
		return false, nil
	}
	copied := *entry
	copied.DuplicateCount = 0
	f.entries[entry.DedupKey] = &copied
	return true, nil
}

func (f *fakeDedupRepo) RecordDuplicate(ctx context.Context, dedupKey string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[dedupKey]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	entry.DuplicateCount++
	return entry.DuplicateCount, nil
}

func (f *fakeDedupRepo) Release(ctx context.Context, dedupKey string) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, dedupKey)
	return nil
}

func (f *fakeDedupRepo) Get(ctx context.Context, dedupKey string) (*models.DedupEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[dedupKey]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

type fakeScoreRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*models.ScoreRecord
	upsertErr error
}

var _ repositories.ScoreRepository = (*fakeScoreRepo)(nil)

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{records: make(map[uuid.UUID]*models.ScoreRecord)}
}

func (f *fakeScoreRepo) Get(ctx context.Context, entityID uuid.UUID) (*models.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[entityID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeScoreRepo) Upsert(ctx context.Context, record *models.ScoreRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.EntityID] = &copied
	return nil
}

func (f *fakeScoreRepo) ListByTier(ctx context.Context, tier models.Tier, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, record := range f.records {
		if record.Tier == tier && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeScoreRepo) TierDistribution(ctx context.Context) (map[models.Tier]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	distribution := make(map[models.Tier]int)
	for _, tier := range models.Tiers {
		distribution[tier] = 0
	}
	for _, record := range f.records {
		distribution[record.Tier]++
	}
	return distribution, nil
}

type fakeRejectionRepo struct {
	mu        sync.Mutex
	records   []*models.RejectedSignal
	createErr error
}

var _ repositories.RejectionRepository = (*fakeRejectionRepo)(nil)

func (f *fakeRejectionRepo) Create(ctx context.Context, rejection *models.RejectedSignal) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *rejection
	f.records = append(f.records, &copied)
	return nil
}

func (f *fakeRejectionRepo) ListByCorrelationID(ctx context.Context, correlationID string) ([]*models.RejectedSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.RejectedSignal
	for _, rej := range f.records {
		if rej.CorrelationID == correlationID {
			result = append(result, rej)
		}
	}
	return result, nil
}

func (f *fakeRejectionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeRejectionRepo) last() *models.RejectedSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return nil
	}
	return f.records[len(f.records)-1]
}

type fakeRegistry struct {
	exists bool
	err    error
	calls  int
	mu     sync.Mutex
}

var _ EntityRegistry = (*fakeRegistry)(nil)

func (f *fakeRegistry) Exists(ctx context.Context, entityID uuid.UUID) (bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.exists, f.err
}

var errStorageDown = errors.New("storage down")
