package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-backend/internal/model"
	"canvas-backend/internal/viewport"
)

func TestAddObjectFillsDefaults(t *testing.T) {
	s := New(1, 42)

	obj := s.AddObject(model.ObjectCreate{Kind: model.KindSticky, X: 5, Y: 6})

	assert.NotEmpty(t, obj.ObjectID)
	assert.Equal(t, "#ffbd59", obj.Color)
	assert.Equal(t, 150.0, obj.Width)
	assert.Equal(t, 1, s.ObjectCount())

	got, ok := s.GetObject(obj.ObjectID)
	require.True(t, ok)
	assert.Equal(t, obj.ObjectID, got.ObjectID)
}

func TestUpdateObjectMissingID(t *testing.T) {
	s := New(1, 1)

	x := 10.0
	_, err := s.UpdateObject("no-such-id", model.ObjectPatch{X: &x})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateObjectMerges(t *testing.T) {
	s := New(1, 1)
	obj := s.AddObject(model.ObjectCreate{Kind: model.KindRectangle, X: 1, Y: 2})

	x := 50.0
	updated, err := s.UpdateObject(obj.ObjectID, model.ObjectPatch{X: &x})
	require.NoError(t, err)

	assert.Equal(t, 50.0, updated.X)
	assert.Equal(t, 2.0, updated.Y)
}

func TestRemoveObjectIdempotent(t *testing.T) {
	s := New(1, 1)
	obj := s.AddObject(model.ObjectCreate{Kind: model.KindCircle})

	s.RemoveObject(obj.ObjectID)
	assert.Equal(t, 0, s.ObjectCount())

	// Second removal of the same id is a no-op.
	s.RemoveObject(obj.ObjectID)
	assert.Equal(t, 0, s.ObjectCount())
}

func TestAreaLifecycle(t *testing.T) {
	s := New(1, 9)

	area := s.AddArea(model.AreaCreate{Name: "frontend"})
	assert.Equal(t, 1, s.AreaCount())

	name := "backend"
	updated, err := s.UpdateArea(area.AreaID, model.AreaPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "backend", updated.Name)

	s.RemoveArea(area.AreaID)
	s.RemoveArea(area.AreaID)
	assert.Equal(t, 0, s.AreaCount())
}

func TestSetViewportClampsScale(t *testing.T) {
	s := New(1, 1)

	s.SetViewport(model.Viewport{X: 10, Y: 20, Scale: 50})
	v := s.Viewport()
	assert.Equal(t, 5.0, v.Scale)
	assert.Equal(t, 10.0, v.X)

	s.SetViewport(model.Viewport{Scale: 0.001})
	assert.Equal(t, 0.1, s.Viewport().Scale)
}

func TestSetLimitsWidensClampRange(t *testing.T) {
	s := New(1, 1)
	s.SetLimits(viewport.Limits{MinScale: 0.5, MaxScale: 10})

	s.SetViewport(model.Viewport{Scale: 8})
	assert.Equal(t, 8.0, s.Viewport().Scale)

	s.SetViewport(model.Viewport{Scale: 0.2})
	assert.Equal(t, 0.5, s.Viewport().Scale)
}

func TestSetLimitsReclampsCurrentViewport(t *testing.T) {
	s := New(1, 1)
	s.SetViewport(model.Viewport{Scale: 4})

	s.SetLimits(viewport.Limits{MinScale: 0.1, MaxScale: 2})
	assert.Equal(t, 2.0, s.Viewport().Scale)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(1, 1)
	obj := s.AddObject(model.ObjectCreate{Kind: model.KindSticky})
	s.AddArea(model.AreaCreate{Name: "a"})

	snap := s.Snapshot()
	require.Len(t, snap.Objects, 1)
	require.Len(t, snap.Areas, 1)

	// Mutating the store after the snapshot must not change the snapshot.
	s.RemoveObject(obj.ObjectID)
	assert.Len(t, snap.Objects, 1)
}

func TestLoadReplacesState(t *testing.T) {
	s := New(1, 1)
	s.AddObject(model.ObjectCreate{Kind: model.KindSticky})

	s.Load(model.CanvasState{
		Objects: []model.CanvasObject{
			{ObjectID: "obj-1", CanvasID: 1, Kind: model.KindText},
			{ObjectID: "obj-2", CanvasID: 1, Kind: model.KindImage},
		},
		Areas:    []model.CollaborationArea{{AreaID: "area-1", CanvasID: 1, Name: "z"}},
		Viewport: model.Viewport{X: 1, Y: 2, Scale: 2},
	})

	assert.Equal(t, 2, s.ObjectCount())
	assert.Equal(t, 1, s.AreaCount())
	assert.Equal(t, 2.0, s.Viewport().Scale)

	_, ok := s.GetObject("obj-1")
	assert.True(t, ok)
}
