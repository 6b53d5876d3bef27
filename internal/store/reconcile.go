package store

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"canvas-backend/internal/model"
	"canvas-backend/internal/protocol"
)

// Outcome describes how a remote message was absorbed
type Outcome int

const (
	// Applied the message mutated local state (or presence)
	Applied Outcome = iota
	// DroppedMissing an update/delete referenced an id we do not hold
	DroppedMissing
	// Ignored the message type is unknown or the payload was malformed
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case DroppedMissing:
		return "dropped_missing"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// PresenceSink receives the presence-flavored messages the reconciler
// does not fold into canvas state
type PresenceSink interface {
	OnJoin(userID int64, userName string)
	OnLeave(userID int64)
	OnCursor(sessionID string, x, y float64)
}

// Reconciler folds incoming sync messages into a State using
// last-writer-wins semantics. It never panics on malformed input; bad
// payloads are logged and reported as Ignored so one broken peer cannot
// take down the session.
type Reconciler struct {
	state    *State
	presence PresenceSink
	log      *logrus.Entry
}

// NewReconciler wires a reconciler to its state store. presence may be nil
// when the caller does not track remote cursors.
func NewReconciler(state *State, presence PresenceSink, log *logrus.Logger) *Reconciler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reconciler{
		state:    state,
		presence: presence,
		log:      log.WithField("canvas_id", state.CanvasID()),
	}
}

// Apply dispatches one remote envelope. Every path is O(1) in canvas size.
func (r *Reconciler) Apply(env protocol.Envelope) Outcome {
	switch env.Type {
	case protocol.TypeObjectAdd:
		return r.applyObjectAdd(env.Data)
	case protocol.TypeObjectUpdate:
		return r.applyObjectUpdate(env.Data)
	case protocol.TypeObjectDelete:
		return r.applyObjectDelete(env.Data)
	case protocol.TypeAreaAdd:
		return r.applyAreaAdd(env.Data)
	case protocol.TypeAreaUpdate:
		return r.applyAreaUpdate(env.Data)
	case protocol.TypeAreaDelete:
		return r.applyAreaDelete(env.Data)
	case protocol.TypeCursorMove:
		return r.applyCursor(env.SessionID, env.Data)
	case protocol.TypeUserJoin:
		return r.applyJoin(env.Data)
	case protocol.TypeUserLeave:
		return r.applyLeave(env.Data)
	}
	r.log.WithField("type", env.Type).Debug("ignoring unknown message type")
	return Ignored
}

func (r *Reconciler) applyObjectAdd(data json.RawMessage) Outcome {
	var obj model.CanvasObject
	if err := json.Unmarshal(data, &obj); err != nil || obj.ObjectID == "" {
		r.malformed(protocol.TypeObjectAdd, err)
		return Ignored
	}
	// Re-add of an existing id is a full overwrite: last writer wins.
	r.state.PutObject(obj)
	return Applied
}

func (r *Reconciler) applyObjectUpdate(data json.RawMessage) Outcome {
	var payload protocol.ObjectUpdate
	if err := json.Unmarshal(data, &payload); err != nil || payload.ObjectID == "" {
		r.malformed(protocol.TypeObjectUpdate, err)
		return Ignored
	}
	if _, err := r.state.UpdateObject(payload.ObjectID, payload.Updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			// The object was deleted concurrently; the delete wins.
			return DroppedMissing
		}
		r.malformed(protocol.TypeObjectUpdate, err)
		return Ignored
	}
	return Applied
}

func (r *Reconciler) applyObjectDelete(data json.RawMessage) Outcome {
	var payload protocol.ObjectDelete
	if err := json.Unmarshal(data, &payload); err != nil || payload.ObjectID == "" {
		r.malformed(protocol.TypeObjectDelete, err)
		return Ignored
	}
	// Deleting an already-deleted id converges to the same state.
	r.state.RemoveObject(payload.ObjectID)
	return Applied
}

func (r *Reconciler) applyAreaAdd(data json.RawMessage) Outcome {
	var area model.CollaborationArea
	if err := json.Unmarshal(data, &area); err != nil || area.AreaID == "" {
		r.malformed(protocol.TypeAreaAdd, err)
		return Ignored
	}
	r.state.PutArea(area)
	return Applied
}

func (r *Reconciler) applyAreaUpdate(data json.RawMessage) Outcome {
	var payload protocol.AreaUpdate
	if err := json.Unmarshal(data, &payload); err != nil || payload.AreaID == "" {
		r.malformed(protocol.TypeAreaUpdate, err)
		return Ignored
	}
	if _, err := r.state.UpdateArea(payload.AreaID, payload.Updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			return DroppedMissing
		}
		r.malformed(protocol.TypeAreaUpdate, err)
		return Ignored
	}
	return Applied
}

func (r *Reconciler) applyAreaDelete(data json.RawMessage) Outcome {
	var payload protocol.AreaDelete
	if err := json.Unmarshal(data, &payload); err != nil || payload.AreaID == "" {
		r.malformed(protocol.TypeAreaDelete, err)
		return Ignored
	}
	r.state.RemoveArea(payload.AreaID)
	return Applied
}

func (r *Reconciler) applyCursor(sessionID string, data json.RawMessage) Outcome {
	var payload protocol.CursorMove
	if err := json.Unmarshal(data, &payload); err != nil {
		r.malformed(protocol.TypeCursorMove, err)
		return Ignored
	}
	if r.presence != nil {
		r.presence.OnCursor(sessionID, payload.X, payload.Y)
	}
	return Applied
}

func (r *Reconciler) applyJoin(data json.RawMessage) Outcome {
	var payload protocol.UserJoin
	if err := json.Unmarshal(data, &payload); err != nil {
		r.malformed(protocol.TypeUserJoin, err)
		return Ignored
	}
	if r.presence != nil {
		r.presence.OnJoin(payload.UserID, payload.UserName)
	}
	return Applied
}

func (r *Reconciler) applyLeave(data json.RawMessage) Outcome {
	var payload protocol.UserLeave
	if err := json.Unmarshal(data, &payload); err != nil {
		r.malformed(protocol.TypeUserLeave, err)
		return Ignored
	}
	if r.presence != nil {
		r.presence.OnLeave(payload.UserID)
	}
	return Applied
}

func (r *Reconciler) malformed(msgType string, err error) {
	r.log.WithFields(logrus.Fields{
		"type":  msgType,
		"error": err,
	}).Warn("ignoring malformed sync message")
}
