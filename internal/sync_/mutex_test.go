package sync_

import (
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestSimple(t *testing.T) {
	assert := assert_.New(t)
	rw := NewRWMutexed(123)
	assert.Equal(123, rw.Get())
	assert.Equal(123, rw.Swap(456))
	assert.Equal(456, rw.Get())
	rw.Set(789)
	assert.Equal(789, rw.Get())
}

func TestRace(t *testing.T) {
	assert := assert_.New(t)
	rw := NewRWMutexed(map[string]int{"count": 0})
	wg := sync.WaitGroup{}

	// Increment by 2500 with 50 goroutines in parallel
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = rw.Locked(func(v map[string]int) error {
					v["count"]++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(2500, rw.Get()["count"])
}
