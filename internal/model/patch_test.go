package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectStickyDefaults(t *testing.T) {
	obj := NewObject(1, 42, ObjectCreate{Kind: KindSticky, X: 10, Y: 20})

	assert.NotEmpty(t, obj.ObjectID)
	assert.Equal(t, KindSticky, obj.Kind)
	assert.Equal(t, "#ffbd59", obj.Color)
	assert.Equal(t, 150.0, obj.Width)
	assert.Equal(t, 150.0, obj.Height)
	require.NotNil(t, obj.FontSize)
	assert.Equal(t, 16, *obj.FontSize)
	require.NotNil(t, obj.FontFamily)
	assert.Equal(t, "Arial, sans-serif", *obj.FontFamily)
	assert.Equal(t, int64(42), obj.CreatedBy)
}

func TestNewObjectKindDefaults(t *testing.T) {
	text := NewObject(1, 1, ObjectCreate{Kind: KindText})
	assert.Equal(t, 200.0, text.Width)
	assert.Equal(t, 100.0, text.Height)
	assert.Equal(t, "#3b82f6", text.Color)

	line := NewObject(1, 1, ObjectCreate{Kind: KindLine})
	assert.Equal(t, 100.0, line.Width)
	assert.Equal(t, 2.0, line.Height)
	assert.Nil(t, line.FontSize)

	rect := NewObject(1, 1, ObjectCreate{Kind: KindRectangle})
	assert.Equal(t, 150.0, rect.Width)
	assert.Equal(t, 150.0, rect.Height)
}

func TestNewObjectExplicitValuesWin(t *testing.T) {
	size := 24
	obj := NewObject(1, 1, ObjectCreate{
		Kind:     KindSticky,
		Width:    80,
		Height:   60,
		Color:    "#123456",
		FontSize: &size,
	})

	assert.Equal(t, 80.0, obj.Width)
	assert.Equal(t, 60.0, obj.Height)
	assert.Equal(t, "#123456", obj.Color)
	assert.Equal(t, 24, *obj.FontSize)
}

func TestNewObjectClampsDimensions(t *testing.T) {
	obj := NewObject(1, 1, ObjectCreate{Kind: KindRectangle, Width: 0.2, Height: -5})

	assert.Equal(t, 1.0, obj.Width)
	assert.Equal(t, 1.0, obj.Height)
}

func TestNewObjectNormalizesRotation(t *testing.T) {
	obj := NewObject(1, 1, ObjectCreate{Kind: KindRectangle, Rotation: 400})
	assert.InDelta(t, 40, obj.Rotation, 1e-9)

	obj = NewObject(1, 1, ObjectCreate{Kind: KindRectangle, Rotation: -90})
	assert.InDelta(t, 270, obj.Rotation, 1e-9)
}

func TestNewAreaDefaults(t *testing.T) {
	area := NewArea(1, 7, AreaCreate{Name: "design"})

	assert.NotEmpty(t, area.AreaID)
	assert.Equal(t, "design", area.Name)
	assert.Equal(t, 300.0, area.Width)
	assert.Equal(t, 200.0, area.Height)
	assert.Equal(t, "#3b82f6", area.Color)
	assert.NotNil(t, area.AssignedUsers)
	assert.Empty(t, area.AssignedUsers)
}

func TestObjectPatchApply(t *testing.T) {
	obj := NewObject(1, 1, ObjectCreate{Kind: KindSticky, X: 10, Y: 20})
	before := obj.UpdatedAt

	x := 99.0
	content := "hello"
	patch := ObjectPatch{X: &x, Content: &content}
	patch.Apply(&obj)

	assert.Equal(t, 99.0, obj.X)
	assert.Equal(t, 20.0, obj.Y) // untouched field survives
	require.NotNil(t, obj.Content)
	assert.Equal(t, "hello", *obj.Content)
	assert.False(t, obj.UpdatedAt.Before(before))
}

func TestObjectPatchClampsAndNormalizes(t *testing.T) {
	obj := NewObject(1, 1, ObjectCreate{Kind: KindRectangle})

	w := 0.0001
	rot := 725.0
	patch := ObjectPatch{Width: &w, Rotation: &rot}
	patch.Apply(&obj)

	assert.Equal(t, 1.0, obj.Width)
	assert.InDelta(t, 5, obj.Rotation, 1e-9)
}

func TestAreaPatchApply(t *testing.T) {
	area := NewArea(1, 1, AreaCreate{Name: "old", X: 0, Y: 0})

	name := "new"
	patch := AreaPatch{Name: &name, AssignedUsers: []int64{3, 4}}
	patch.Apply(&area)

	assert.Equal(t, "new", area.Name)
	assert.Equal(t, []int64{3, 4}, area.AssignedUsers)
	assert.Equal(t, 300.0, area.Width) // untouched
}

func TestNormalizeRotation(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeRotation(0))
	assert.Equal(t, 0.0, NormalizeRotation(360))
	assert.Equal(t, 10.0, NormalizeRotation(370))
	assert.Equal(t, 350.0, NormalizeRotation(-10))
	assert.Equal(t, 0.0, NormalizeRotation(720))
}
