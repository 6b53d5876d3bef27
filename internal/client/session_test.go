package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-backend/internal/config"
	"canvas-backend/internal/model"
	"canvas-backend/internal/viewport"
)

func newOfflineSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()
	return NewSession(SessionConfig{
		CanvasID: 1,
		UserID:   42,
		UserName: "mina",
		WSURL:    "ws://127.0.0.1:1/ws/canvas/1", // unreachable on purpose
		Backend:  backend,
	})
}

func TestOpenLoadsStateEvenWhenChannelFails(t *testing.T) {
	backend := &fakeBackend{
		loadState: model.CanvasState{
			Objects:  []model.CanvasObject{{ObjectID: "obj-1", Kind: model.KindSticky}},
			Viewport: model.Viewport{Scale: 1},
		},
	}
	s := newOfflineSession(t, backend)
	defer s.Close()

	err := s.Open(context.Background())
	assert.Error(t, err) // channel is down
	assert.False(t, s.Connected())

	// Local editing still works offline.
	assert.Equal(t, 1, s.State().ObjectCount())
	obj := s.AddObject(model.ObjectCreate{Kind: model.KindText})
	assert.NotEmpty(t, obj.ObjectID)
	assert.Equal(t, 2, s.State().ObjectCount())
}

func TestSessionMutationsUpdateLocalState(t *testing.T) {
	s := newOfflineSession(t, &fakeBackend{})
	defer s.Close()

	obj := s.AddObject(model.ObjectCreate{Kind: model.KindSticky, X: 1})

	x := 77.0
	updated, err := s.UpdateObject(obj.ObjectID, model.ObjectPatch{X: &x})
	require.NoError(t, err)
	assert.Equal(t, 77.0, updated.X)

	s.DeleteObject(obj.ObjectID)
	assert.Equal(t, 0, s.State().ObjectCount())

	area := s.AddArea(model.AreaCreate{Name: "qa"})
	name := "review"
	_, err = s.UpdateArea(area.AreaID, model.AreaPatch{Name: &name})
	require.NoError(t, err)
	s.DeleteArea(area.AreaID)
	assert.Equal(t, 0, s.State().AreaCount())
}

func TestSessionViewportIsLocalOnly(t *testing.T) {
	s := newOfflineSession(t, &fakeBackend{})
	defer s.Close()

	s.Pan(30, -10)
	v := s.Viewport()
	assert.Equal(t, 30.0, v.X)
	assert.Equal(t, -10.0, v.Y)

	s.ZoomAt(20, 100, 100)
	assert.Equal(t, 5.0, s.Viewport().Scale)

	s.ZoomAt(0.0001, 100, 100)
	assert.Equal(t, 0.1, s.Viewport().Scale)
}

func TestSessionHonorsConfiguredZoomLimits(t *testing.T) {
	s := NewSession(SessionConfig{
		CanvasID: 1,
		UserID:   42,
		UserName: "mina",
		WSURL:    "ws://127.0.0.1:1/ws/canvas/1",
		Backend:  &fakeBackend{},
		Limits:   &viewport.Limits{MinScale: 0.1, MaxScale: 10},
	})
	defer s.Close()

	s.ZoomAt(8, 100, 100)
	v := s.Viewport()
	assert.Equal(t, 8.0, v.Scale)

	// The canvas point under the pointer must not move across the zoom.
	before := viewport.Transform{X: 0, Y: 0, Scale: 1}
	after := viewport.Transform{X: v.X, Y: v.Y, Scale: v.Scale}
	bx, by := before.ToCanvas(100, 100)
	ax, ay := after.ToCanvas(100, 100)
	assert.InDelta(t, bx, ax, 1e-9)
	assert.InDelta(t, by, ay, 1e-9)

	s.ZoomAt(50, 100, 100)
	assert.Equal(t, 10.0, s.Viewport().Scale)
}

func TestNewSessionConfigCarriesCanvasSettings(t *testing.T) {
	cfg := NewSessionConfig(config.CanvasConfig{
		AutosaveInterval: 45 * time.Second,
		MinScale:         0.25,
		MaxScale:         4,
	})

	assert.Equal(t, 45*time.Second, cfg.AutosaveInterval)
	require.NotNil(t, cfg.Limits)
	assert.Equal(t, 0.25, cfg.Limits.MinScale)
	assert.Equal(t, 4.0, cfg.Limits.MaxScale)
}

func TestSessionSaveWritesThroughBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := newOfflineSession(t, backend)
	defer s.Close()

	s.AddObject(model.ObjectCreate{Kind: model.KindImage})
	require.NoError(t, s.Save())

	require.GreaterOrEqual(t, backend.saveCount(), 1)
	assert.Len(t, backend.saves[0].Objects, 1)
}

func TestSessionIDEmbedsUser(t *testing.T) {
	s := newOfflineSession(t, &fakeBackend{})
	defer s.Close()

	assert.Contains(t, s.ID, "session_")
	assert.Contains(t, s.ID, "_42")
}
