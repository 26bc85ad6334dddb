package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				clock.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), clock.Current())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, "bundle-0001", ids.Generate())
	assert.Equal(t, "bundle-0002", ids.Generate())

	custom := NewSequentialIDs("run")
	assert.Equal(t, "run-0001", custom.Generate())
}
