package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"canvas-backend/internal/config"
	"canvas-backend/internal/model"
	"canvas-backend/internal/presence"
	"canvas-backend/internal/protocol"
	"canvas-backend/internal/store"
	"canvas-backend/internal/viewport"
)

// Session one user's editing session on one canvas. It owns the local
// state, the peer tracker, the sync channel and the autosave loop, and it
// is the only place where a local mutation and its broadcast are paired.
type Session struct {
	ID     string
	UserID int64

	state      *store.State
	tracker    *presence.Tracker
	reconciler *store.Reconciler
	channel    *SyncChannel
	backend    CanvasStore
	autosave   *AutosaveScheduler
	limits     viewport.Limits
	log        *logrus.Entry
}

// SessionConfig everything needed to open a session
type SessionConfig struct {
	CanvasID int64
	UserID   int64
	UserName string
	// WSURL full sync-channel endpoint, including auth token
	WSURL   string
	Backend CanvasStore
	// AutosaveInterval <= 0 uses the 30s default
	AutosaveInterval time.Duration
	// DialTimeout <= 0 uses the 10s default
	DialTimeout time.Duration
	Limits      *viewport.Limits
	Log         *logrus.Logger
}

// NewSessionConfig seeds a session config from the shared canvas settings:
// autosave cadence and zoom bounds. Identity and endpoints are filled in by
// the caller.
func NewSessionConfig(cc config.CanvasConfig) SessionConfig {
	return SessionConfig{
		AutosaveInterval: cc.AutosaveInterval,
		Limits:           &viewport.Limits{MinScale: cc.MinScale, MaxScale: cc.MaxScale},
	}
}

// NewSession wires up a session; call Open to load state and go live
func NewSession(cfg SessionConfig) *Session {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	sessionID := presence.SessionID(cfg.UserID)
	state := store.New(cfg.CanvasID, cfg.UserID)
	tracker := presence.NewTracker()

	limits := viewport.DefaultLimits()
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	state.SetLimits(limits)

	s := &Session{
		ID:         sessionID,
		UserID:     cfg.UserID,
		state:      state,
		tracker:    tracker,
		reconciler: store.NewReconciler(state, tracker, log),
		backend:    cfg.Backend,
		limits:     limits,
		log:        log.WithField("session", sessionID),
	}
	s.channel = NewSyncChannel(cfg.WSURL, sessionID, cfg.UserID, cfg.UserName, cfg.DialTimeout, log)
	s.channel.OnMessage = s.onRemote
	s.autosave = NewAutosaveScheduler(state, cfg.Backend, cfg.AutosaveInterval, log)
	return s
}

// Open loads persisted state, connects the sync channel and starts
// autosave. The session is usable offline when the channel fails: edits
// stay local and the error is returned for the caller to surface.
func (s *Session) Open(ctx context.Context) error {
	state, err := s.backend.Load(ctx, s.state.CanvasID())
	if err != nil {
		return fmt.Errorf("failed to open canvas: %w", err)
	}
	s.state.Load(state)

	s.autosave.Start()

	if err := s.channel.Connect(); err != nil {
		s.log.WithError(err).Warn("sync channel unavailable, editing offline")
		return err
	}
	return nil
}

// Close flushes a final save and tears the session down
func (s *Session) Close() {
	s.channel.Disconnect()
	s.autosave.Stop()
}

// Connected reports whether live sync is up
func (s *Session) Connected() bool {
	return s.channel.Connected()
}

// Save writes the current state immediately
func (s *Session) Save() error {
	return s.autosave.Flush()
}

// State exposes the local store for reads
func (s *Session) State() *store.State {
	return s.state
}

// Peers returns the remote participants seen on this canvas
func (s *Session) Peers() []presence.Peer {
	return s.tracker.List()
}

// AddObject creates an object locally and broadcasts it
func (s *Session) AddObject(create model.ObjectCreate) model.CanvasObject {
	obj := s.state.AddObject(create)
	s.channel.Send(protocol.NewObjectAdd(obj))
	return obj
}

// UpdateObject patches an object locally and broadcasts the patch
func (s *Session) UpdateObject(objectID string, patch model.ObjectPatch) (model.CanvasObject, error) {
	obj, err := s.state.UpdateObject(objectID, patch)
	if err != nil {
		return model.CanvasObject{}, err
	}
	s.channel.Send(protocol.NewObjectUpdate(objectID, patch))
	return obj, nil
}

// DeleteObject removes an object locally and broadcasts the deletion
func (s *Session) DeleteObject(objectID string) {
	s.state.RemoveObject(objectID)
	s.channel.Send(protocol.NewObjectDelete(objectID))
}

// AddArea creates a collaboration area locally and broadcasts it
func (s *Session) AddArea(create model.AreaCreate) model.CollaborationArea {
	area := s.state.AddArea(create)
	s.channel.Send(protocol.NewAreaAdd(area))
	return area
}

// UpdateArea patches an area locally and broadcasts the patch
func (s *Session) UpdateArea(areaID string, patch model.AreaPatch) (model.CollaborationArea, error) {
	area, err := s.state.UpdateArea(areaID, patch)
	if err != nil {
		return model.CollaborationArea{}, err
	}
	s.channel.Send(protocol.NewAreaUpdate(areaID, patch))
	return area, nil
}

// DeleteArea removes an area locally and broadcasts the deletion
func (s *Session) DeleteArea(areaID string) {
	s.state.RemoveArea(areaID)
	s.channel.Send(protocol.NewAreaDelete(areaID))
}

// MoveCursor broadcasts this user's cursor position; nothing is stored
// locally, peers render it from the message alone
func (s *Session) MoveCursor(x, y float64) {
	s.channel.Send(protocol.NewCursorMove(s.ID, x, y))
}

// Pan shifts the local viewport; never broadcast
func (s *Session) Pan(dx, dy float64) {
	v := s.state.Viewport()
	t := viewport.Transform{X: v.X, Y: v.Y, Scale: v.Scale}.Pan(dx, dy)
	s.state.SetViewport(model.Viewport{X: t.X, Y: t.Y, Scale: t.Scale})
}

// ZoomAt zooms the local viewport around a pointer position so the point
// under the cursor stays put; never broadcast
func (s *Session) ZoomAt(newScale, pointerX, pointerY float64) {
	v := s.state.Viewport()
	t := viewport.Transform{X: v.X, Y: v.Y, Scale: v.Scale}.ZoomAt(newScale, pointerX, pointerY, s.limits)
	s.state.SetViewport(model.Viewport{X: t.X, Y: t.Y, Scale: t.Scale})
}

// Viewport returns the local pan/zoom state
func (s *Session) Viewport() model.Viewport {
	return s.state.Viewport()
}

func (s *Session) onRemote(env protocol.Envelope) {
	outcome := s.reconciler.Apply(env)
	if outcome == store.DroppedMissing {
		s.log.WithField("type", env.Type).Debug("dropped update for missing entity")
	}
}
