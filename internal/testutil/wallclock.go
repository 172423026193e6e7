package testutil

import (
	"sync"
	"time"
)

// WallClock stamps deterministic, monotonically increasing timestamps for
// tests that need a real time.Time but can't tolerate wall-clock jitter:
// each call advances one second past epoch, so two runs of the same
// scenario against a fresh WallClock always stamp byte-identical
// timestamps, in turn producing byte-identical event CIDs.
type WallClock struct {
	mu    sync.Mutex
	epoch time.Time
	seq   int64
}

// NewWallClock returns a WallClock stamping seconds after epoch in call
// order, starting at epoch+1s.
func NewWallClock(epoch time.Time) *WallClock {
	return &WallClock{epoch: epoch}
}

// Now returns the next deterministic timestamp. Pass this method value
// wherever a func() time.Time is expected (e.g. aggregate.Runtime.WithClock).
func (w *WallClock) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	return w.epoch.Add(time.Duration(w.seq) * time.Second)
}
