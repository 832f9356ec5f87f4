package services

import (
	"sync"

	"github.com/google/uuid"
)

// EntityLocks serializes the dedup check and score recomputation per entity.
// Each entity gets its own mutex, created on demand and dropped when the
// last holder releases it, so unrelated entities never contend. The guard
// mutex protects only the map, never the critical sections themselves.
type EntityLocks struct {
	guard sync.Mutex
	locks map[uuid.UUID]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

// NewEntityLocks creates an empty lock registry.
func NewEntityLocks() *EntityLocks {
	return &EntityLocks{locks: make(map[uuid.UUID]*entityLock)}
}

// Acquire blocks until the entity's lock is held and returns the release
// function. Callers must release exactly once, typically via defer.
func (l *EntityLocks) Acquire(entityID uuid.UUID) func() {
	l.guard.Lock()
	lock, ok := l.locks[entityID]
	if !ok {
		lock = &entityLock{}
		l.locks[entityID] = lock
	}
	lock.refs++
	l.guard.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.guard.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, entityID)
		}
		l.guard.Unlock()
	}
}
