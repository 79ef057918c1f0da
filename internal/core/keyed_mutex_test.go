package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var km keyedMutex
	var wg sync.WaitGroup

	counter := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("tenant-1/s3/world.zip")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	var km keyedMutex

	unlockA := km.lock("a")
	// A different key must not block.
	unlockB := km.lock("b")
	unlockB()
	unlockA()

	// Released locks are cleaned up.
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}
