package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntityLocks_SerializesSameEntity(t *testing.T) {
	locks := NewEntityLocks()
	entityID := uuid.New()

	const workers = 32
	var inCritical, maxInCritical int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire(entityID)
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical)
}

func TestEntityLocks_DifferentEntitiesDoNotBlock(t *testing.T) {
	locks := NewEntityLocks()

	releaseA := locks.Acquire(uuid.New())
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		releaseB := locks.Acquire(uuid.New())
		defer releaseB()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("unrelated entity blocked behind another entity's lock")
	}
}

func TestEntityLocks_MapDrainsAfterRelease(t *testing.T) {
	locks := NewEntityLocks()
	entityID := uuid.New()

	release := locks.Acquire(entityID)
	release()

	locks.guard.Lock()
	defer locks.guard.Unlock()
	assert.Empty(t, locks.locks)
}
