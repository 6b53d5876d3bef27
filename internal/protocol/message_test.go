package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-backend/internal/model"
)

func TestCursorMoveEnvelope(t *testing.T) {
	env := NewCursorMove("session_1700000000000_7", 12.5, -3)

	assert.Equal(t, TypeCursorMove, env.Type)
	assert.Equal(t, "session_1700000000000_7", env.SessionID)
	assert.False(t, env.Timestamp.IsZero())

	var payload CursorMove
	require.NoError(t, env.DecodeData(&payload))
	assert.Equal(t, 12.5, payload.X)
	assert.Equal(t, -3.0, payload.Y)
}

func TestObjectAddCarriesFullRecord(t *testing.T) {
	obj := model.NewObject(1, 7, model.ObjectCreate{Kind: model.KindSticky, X: 10})

	env := NewObjectAdd(obj)
	frame, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeObjectAdd, decoded.Type)

	var got model.CanvasObject
	require.NoError(t, decoded.DecodeData(&got))
	assert.Equal(t, obj.ObjectID, got.ObjectID)
	assert.Equal(t, obj.Kind, got.Kind)
	assert.Equal(t, obj.Color, got.Color)
}

func TestEnvelopeWireShape(t *testing.T) {
	env := NewUserJoin(5, "mina")
	frame, err := env.Encode()
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &raw))

	assert.Contains(t, raw, "type")
	assert.Contains(t, raw, "data")
	assert.Contains(t, raw, "timestamp")
	// session_id is omitted when empty
	assert.NotContains(t, raw, "session_id")

	var ts time.Time
	require.NoError(t, json.Unmarshal(raw["timestamp"], &ts))
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestUpdateEnvelopeOmitsNilFields(t *testing.T) {
	x := 42.0
	env := NewObjectUpdate("obj-1", model.ObjectPatch{X: &x})

	var payload map[string]json.RawMessage
	require.NoError(t, env.DecodeData(&payload))

	var updates map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload["updates"], &updates))
	assert.Contains(t, updates, "x")
	assert.NotContains(t, updates, "y")
	assert.NotContains(t, updates, "color")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
