// Package store holds the client's believed-current canvas state and the
// reconciliation engine that applies remote sync messages to it.
package store

import (
	"errors"
	"sync"

	"canvas-backend/internal/model"
	"canvas-backend/internal/viewport"
)

// ErrNotFound the referenced object/area id is not present locally
var ErrNotFound = errors.New("entity not found")

// State the local copy of one open canvas: id-indexed objects and areas plus
// the client's own viewport. Mutations are synchronous and never broadcast
// by themselves; composing a mutation with a sync-channel send is the
// caller's job. A mutex guards against the autosave goroutine snapshotting
// mid-mutation.
type State struct {
	canvasID int64
	userID   int64

	mu       sync.RWMutex
	objects  map[string]*model.CanvasObject
	areas    map[string]*model.CollaborationArea
	viewport model.Viewport
	limits   viewport.Limits
}

// New creates an empty state store for one open canvas
func New(canvasID, userID int64) *State {
	return &State{
		canvasID: canvasID,
		userID:   userID,
		objects:  make(map[string]*model.CanvasObject),
		areas:    make(map[string]*model.CollaborationArea),
		viewport: model.Viewport{Scale: 1},
		limits:   viewport.DefaultLimits(),
	}
}

// CanvasID returns the id of the canvas this store holds
func (s *State) CanvasID() int64 {
	return s.canvasID
}

// SetLimits replaces the zoom clamp range. The current viewport is re-clamped
// so a tightened range takes effect immediately.
func (s *State) SetLimits(l viewport.Limits) {
	s.mu.Lock()
	s.limits = l
	s.viewport.Scale = l.Clamp(s.viewport.Scale)
	s.mu.Unlock()
}

// Load replaces the whole state with a freshly loaded snapshot
func (s *State) Load(state model.CanvasState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]*model.CanvasObject, len(state.Objects))
	for i := range state.Objects {
		obj := state.Objects[i]
		s.objects[obj.ObjectID] = &obj
	}
	s.areas = make(map[string]*model.CollaborationArea, len(state.Areas))
	for i := range state.Areas {
		area := state.Areas[i]
		s.areas[area.AreaID] = &area
	}
	if state.Viewport.Scale != 0 {
		s.viewport = state.Viewport
	}
}

// AddObject assigns an object_id, merges create data over kind defaults and
// inserts the record, returning the full object.
func (s *State) AddObject(create model.ObjectCreate) model.CanvasObject {
	obj := model.NewObject(s.canvasID, s.userID, create)

	s.mu.Lock()
	s.objects[obj.ObjectID] = &obj
	s.mu.Unlock()

	return obj
}

// PutObject inserts or overwrites an object under its remote-assigned id.
// This is the last-writer-wins entry point used by reconciliation.
func (s *State) PutObject(obj model.CanvasObject) {
	s.mu.Lock()
	s.objects[obj.ObjectID] = &obj
	s.mu.Unlock()
}

// UpdateObject shallow-merges the patch onto the object with the given id.
// Returns ErrNotFound when the id is absent; the caller decides whether to
// surface or drop that.
func (s *State) UpdateObject(objectID string, patch model.ObjectPatch) (model.CanvasObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[objectID]
	if !ok {
		return model.CanvasObject{}, ErrNotFound
	}
	patch.Apply(obj)
	return *obj, nil
}

// RemoveObject deletes by id; removing an absent id is a no-op
func (s *State) RemoveObject(objectID string) {
	s.mu.Lock()
	delete(s.objects, objectID)
	s.mu.Unlock()
}

// GetObject looks up an object by id
func (s *State) GetObject(objectID string) (model.CanvasObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectID]
	if !ok {
		return model.CanvasObject{}, false
	}
	return *obj, true
}

// AddArea assigns an area_id, fills defaults and inserts the record
func (s *State) AddArea(create model.AreaCreate) model.CollaborationArea {
	area := model.NewArea(s.canvasID, s.userID, create)

	s.mu.Lock()
	s.areas[area.AreaID] = &area
	s.mu.Unlock()

	return area
}

// PutArea inserts or overwrites an area under its remote-assigned id
func (s *State) PutArea(area model.CollaborationArea) {
	s.mu.Lock()
	s.areas[area.AreaID] = &area
	s.mu.Unlock()
}

// UpdateArea shallow-merges the patch onto the area with the given id
func (s *State) UpdateArea(areaID string, patch model.AreaPatch) (model.CollaborationArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.areas[areaID]
	if !ok {
		return model.CollaborationArea{}, ErrNotFound
	}
	patch.Apply(area)
	return *area, nil
}

// RemoveArea deletes by id; removing an absent id is a no-op
func (s *State) RemoveArea(areaID string) {
	s.mu.Lock()
	delete(s.areas, areaID)
	s.mu.Unlock()
}

// GetArea looks up an area by id
func (s *State) GetArea(areaID string) (model.CollaborationArea, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	area, ok := s.areas[areaID]
	if !ok {
		return model.CollaborationArea{}, false
	}
	return *area, true
}

// SetViewport merges pan/zoom into the local viewport. Viewport state is
// never transmitted as a canvas delta.
func (s *State) SetViewport(v model.Viewport) {
	s.mu.Lock()
	v.Scale = s.limits.Clamp(v.Scale)
	s.viewport = v
	s.mu.Unlock()
}

// Viewport returns the current local viewport
func (s *State) Viewport() model.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Snapshot returns a copy of the full current state, used by autosave and
// by explicit saves. Object/area slices are copied so later mutations do
// not race with an in-flight save.
func (s *State) Snapshot() model.CanvasState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := model.CanvasState{
		Objects:  make([]model.CanvasObject, 0, len(s.objects)),
		Areas:    make([]model.CollaborationArea, 0, len(s.areas)),
		Viewport: s.viewport,
	}
	for _, obj := range s.objects {
		state.Objects = append(state.Objects, *obj)
	}
	for _, area := range s.areas {
		state.Areas = append(state.Areas, *area)
	}
	return state
}

// ObjectCount returns the number of objects currently held
func (s *State) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// AreaCount returns the number of areas currently held
func (s *State) AreaCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.areas)
}
