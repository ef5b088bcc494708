package httpdl

import (
	"sync/atomic"
	"time"

	"github.com/mediagrab/mediagrab/internal/sync"
)

// progressTracker aggregates byte-count deltas from all fragment/connection
// workers and delivers them to a single coalescing callback. Workers report
// per-fragment so that a retried fragment can reset its own contribution
// without the reported total ever going backwards between callbacks.
type progressTracker struct {
	total    int64
	delay    time.Duration
	hook     ProgressFunc
	start    time.Time
	fragDone []int64 // accessed atomically

	// Only touched by the emitting goroutine (and stop, after it finished)
	lastEmit     int64
	lastEmitTime time.Time

	stopped  *sync.Event
	finished chan struct{}
}

func newProgressTracker(fragments int, total int64, delay time.Duration, hook ProgressFunc) *progressTracker {
	t := &progressTracker{
		total:    total,
		delay:    delay,
		hook:     hook,
		start:    time.Now(),
		fragDone: make([]int64, fragments),
		stopped:  sync.NewEvent(),
		finished: make(chan struct{}),
	}
	if t.hook != nil {
		go t.run()
	} else {
		close(t.finished)
	}
	return t
}

// fragmentWriter returns an io.Writer that attributes written byte counts to
// the given fragment. Safe for concurrent use across workers.
func (t *progressTracker) fragmentWriter(index int) *fragmentWriter {
	return &fragmentWriter{t: t, index: index}
}

// resetFragment discards the byte count of a fragment that is starting over.
func (t *progressTracker) resetFragment(index int) {
	atomic.StoreInt64(&t.fragDone[index], 0)
}

// snapshot returns the bytes currently persisted across all fragments.
func (t *progressTracker) snapshot() int64 {
	var sum int64
	for i := range t.fragDone {
		sum += atomic.LoadInt64(&t.fragDone[i])
	}
	return sum
}

func (t *progressTracker) run() {
	defer close(t.finished)
	ticker := time.NewTicker(t.delay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.emit()
		case <-t.stopped.Wait():
			return
		}
	}
}

func (t *progressTracker) emit() {
	done := t.snapshot()
	if done < t.lastEmit {
		// A fragment retry reset its contribution; don't report a regression
		done = t.lastEmit
	}
	if done == t.lastEmit && !t.lastEmitTime.IsZero() {
		return
	}
	t.lastEmit = done
	t.lastEmitTime = time.Now()
	t.hook(done, t.total, time.Since(t.start))
}

// stop ends the emitting goroutine. With flush, a final callback reporting the
// end state is delivered, still honoring the configured callback spacing.
func (t *progressTracker) stop(flush bool) {
	t.stopped.Set()
	<-t.finished
	if !flush || t.hook == nil {
		return
	}
	done := t.snapshot()
	if done < t.lastEmit {
		done = t.lastEmit
	}
	if done == t.lastEmit && !t.lastEmitTime.IsZero() {
		return
	}
	if !t.lastEmitTime.IsZero() {
		if wait := t.delay - time.Since(t.lastEmitTime); wait > 0 {
			time.Sleep(wait)
		}
	}
	t.lastEmit = done
	t.lastEmitTime = time.Now()
	t.hook(done, t.total, time.Since(t.start))
}

type fragmentWriter struct {
	t     *progressTracker
	index int
}

func (w *fragmentWriter) Write(p []byte) (int, error) {
	atomic.AddInt64(&w.t.fragDone[w.index], int64(len(p)))
	return len(p), nil
}
