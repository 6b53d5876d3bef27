package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"canvas-backend/internal/protocol"
)

func TestSendBeforeConnectIsDropped(t *testing.T) {
	ch := NewSyncChannel("ws://localhost:0/ws/canvas/1", "session_1_1", 1, "mina", 0, nil)

	// Must not panic or block; the message is silently discarded.
	ch.Send(protocol.NewCursorMove("session_1_1", 1, 2))
	assert.False(t, ch.Connected())
}

func TestDisconnectWithoutConnect(t *testing.T) {
	ch := NewSyncChannel("ws://localhost:0/ws/canvas/1", "session_1_1", 1, "mina", 0, nil)

	ch.Disconnect()
	ch.Disconnect()
	assert.False(t, ch.Connected())
}

func TestConnectFailureLeavesChannelDown(t *testing.T) {
	// Port 0 is never dialable; Connect must fail cleanly.
	ch := NewSyncChannel("ws://127.0.0.1:1/ws/canvas/1", "session_1_1", 1, "mina", 0, nil)

	err := ch.Connect()
	assert.Error(t, err)
	assert.False(t, ch.Connected())

	// The channel stays usable as a null sink.
	ch.Send(protocol.NewUserLeave(1))
}
