package protocol

import (
	"encoding/json"
	"time"

	"canvas-backend/internal/model"
)

// Message types carried in the envelope. Anything else is ignored by the
// reconciliation engine.
const (
	TypeCursorMove   = "cursor_move"
	TypeObjectAdd    = "object_add"
	TypeObjectUpdate = "object_update"
	TypeObjectDelete = "object_delete"
	TypeAreaAdd      = "area_add"
	TypeAreaUpdate   = "area_update"
	TypeAreaDelete   = "area_delete"
	TypeUserJoin     = "user_join"
	TypeUserLeave    = "user_leave"
)

// Envelope the shared shape of every sync message
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
}

// CursorMove payload for cursor_move; sender identified by the envelope's session_id
type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ObjectUpdate payload for object_update
type ObjectUpdate struct {
	ObjectID string            `json:"object_id"`
	Updates  model.ObjectPatch `json:"updates"`
}

// ObjectDelete payload for object_delete
type ObjectDelete struct {
	ObjectID string `json:"object_id"`
}

// AreaUpdate payload for area_update
type AreaUpdate struct {
	AreaID  string          `json:"area_id"`
	Updates model.AreaPatch `json:"updates"`
}

// AreaDelete payload for area_delete
type AreaDelete struct {
	AreaID string `json:"area_id"`
}

// UserJoin payload for user_join
type UserJoin struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

// UserLeave payload for user_leave
type UserLeave struct {
	UserID int64 `json:"user_id"`
}

// newEnvelope stamps the envelope with the current time. Marshal errors
// cannot happen for our payload types, so they are swallowed here.
func newEnvelope(msgType string, data any) Envelope {
	raw, _ := json.Marshal(data)
	return Envelope{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}
}

// NewCursorMove builds a cursor_move envelope for the given session
func NewCursorMove(sessionID string, x, y float64) Envelope {
	env := newEnvelope(TypeCursorMove, CursorMove{X: x, Y: y})
	env.SessionID = sessionID
	return env
}

// NewObjectAdd builds an object_add envelope carrying the full record
func NewObjectAdd(obj model.CanvasObject) Envelope {
	return newEnvelope(TypeObjectAdd, obj)
}

// NewObjectUpdate builds an object_update envelope
func NewObjectUpdate(objectID string, updates model.ObjectPatch) Envelope {
	return newEnvelope(TypeObjectUpdate, ObjectUpdate{ObjectID: objectID, Updates: updates})
}

// NewObjectDelete builds an object_delete envelope
func NewObjectDelete(objectID string) Envelope {
	return newEnvelope(TypeObjectDelete, ObjectDelete{ObjectID: objectID})
}

// NewAreaAdd builds an area_add envelope carrying the full record
func NewAreaAdd(area model.CollaborationArea) Envelope {
	return newEnvelope(TypeAreaAdd, area)
}

// NewAreaUpdate builds an area_update envelope
func NewAreaUpdate(areaID string, updates model.AreaPatch) Envelope {
	return newEnvelope(TypeAreaUpdate, AreaUpdate{AreaID: areaID, Updates: updates})
}

// NewAreaDelete builds an area_delete envelope
func NewAreaDelete(areaID string) Envelope {
	return newEnvelope(TypeAreaDelete, AreaDelete{AreaID: areaID})
}

// NewUserJoin builds a user_join envelope
func NewUserJoin(userID int64, userName string) Envelope {
	return newEnvelope(TypeUserJoin, UserJoin{UserID: userID, UserName: userName})
}

// NewUserLeave builds a user_leave envelope
func NewUserLeave(userID int64) Envelope {
	return newEnvelope(TypeUserLeave, UserLeave{UserID: userID})
}

// Encode serializes the envelope for the wire
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire frame into an envelope
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// DecodeData parses the envelope payload into the given struct
func (e Envelope) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}

