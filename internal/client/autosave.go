package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"canvas-backend/internal/store"
)

// AutosaveScheduler periodically writes the local state snapshot through a
// CanvasStore. A failed save is logged and skipped; the next tick tries
// again with a fresh snapshot, so there is no retry queue to drain.
type AutosaveScheduler struct {
	state    *store.State
	backend  CanvasStore
	interval time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewAutosaveScheduler creates a scheduler; interval <= 0 falls back to 30s
func NewAutosaveScheduler(state *store.State, backend CanvasStore, interval time.Duration, log *logrus.Logger) *AutosaveScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AutosaveScheduler{
		state:    state,
		backend:  backend,
		interval: interval,
		log:      log.WithField("canvas_id", state.CanvasID()),
	}
}

// Start launches the periodic save loop. Starting twice is a no-op.
func (a *AutosaveScheduler) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true

	go a.run(ctx)
}

// Stop halts the loop and performs one final save so the newest edits are
// not lost on a clean shutdown
func (a *AutosaveScheduler) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.cancel()
	a.running = false
	a.mu.Unlock()

	a.Flush()
}

// Flush performs one immediate save, returning the backend error so callers
// of explicit saves can surface it
func (a *AutosaveScheduler) Flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot := a.state.Snapshot()
	if err := a.backend.Save(ctx, a.state.CanvasID(), snapshot); err != nil {
		a.log.WithError(err).Warn("canvas save failed")
		return err
	}
	a.log.WithFields(logrus.Fields{
		"objects": len(snapshot.Objects),
		"areas":   len(snapshot.Areas),
	}).Debug("canvas saved")
	return nil
}

func (a *AutosaveScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors already logged in Flush; the tick after a failure
			// saves whatever state exists then.
			_ = a.Flush()
		}
	}
}
