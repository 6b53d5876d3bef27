package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-backend/internal/model"
	"canvas-backend/internal/store"
)

type fakeBackend struct {
	mu        sync.Mutex
	saves     []model.CanvasState
	saveErr   error
	loadState model.CanvasState
	loadErr   error
}

func (f *fakeBackend) Load(ctx context.Context, canvasID int64) (model.CanvasState, error) {
	return f.loadState, f.loadErr
}

func (f *fakeBackend) Save(ctx context.Context, canvasID int64, state model.CanvasState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, state)
	return nil
}

func (f *fakeBackend) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func TestFlushWritesSnapshot(t *testing.T) {
	state := store.New(1, 1)
	state.AddObject(model.ObjectCreate{Kind: model.KindSticky})
	backend := &fakeBackend{}

	sched := NewAutosaveScheduler(state, backend, time.Hour, nil)
	require.NoError(t, sched.Flush())

	require.Equal(t, 1, backend.saveCount())
	assert.Len(t, backend.saves[0].Objects, 1)
}

func TestFlushReturnsBackendError(t *testing.T) {
	state := store.New(1, 1)
	backend := &fakeBackend{saveErr: errors.New("db down")}

	sched := NewAutosaveScheduler(state, backend, time.Hour, nil)
	err := sched.Flush()
	assert.Error(t, err)

	// A failed save is not retried; the count stays at zero until the
	// next tick or explicit flush.
	assert.Equal(t, 0, backend.saveCount())
}

func TestPeriodicSaves(t *testing.T) {
	state := store.New(1, 1)
	state.AddObject(model.ObjectCreate{Kind: model.KindText})
	backend := &fakeBackend{}

	sched := NewAutosaveScheduler(state, backend, 20*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return backend.saveCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopFlushesFinalSave(t *testing.T) {
	state := store.New(1, 1)
	backend := &fakeBackend{}

	sched := NewAutosaveScheduler(state, backend, time.Hour, nil)
	sched.Start()
	sched.Stop()

	assert.Equal(t, 1, backend.saveCount())

	// Stopping again neither panics nor double-saves.
	sched.Stop()
	assert.Equal(t, 1, backend.saveCount())
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	state := store.New(1, 1)
	backend := &fakeBackend{}

	sched := NewAutosaveScheduler(state, backend, 25*time.Millisecond, nil)
	sched.Start()
	sched.Start()

	time.Sleep(60 * time.Millisecond)
	sched.Stop()

	// One loop plus the final flush; a doubled loop would roughly double
	// the count.
	assert.LessOrEqual(t, backend.saveCount(), 4)
}
