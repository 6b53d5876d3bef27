// Package client is the embeddable editor engine: a local state store, a
// sync channel to the server, and an autosave loop, composed into a Session.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"canvas-backend/internal/protocol"
)

// SyncChannel one client's WebSocket connection to a canvas room. Sends
// before Connect or after the socket drops are silently discarded; the
// caller can poll Connected to decide whether to surface that.
type SyncChannel struct {
	url         string
	sessionID   string
	userID      int64
	userName    string
	dialTimeout time.Duration
	log         *logrus.Entry

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	// OnMessage receives every inbound envelope; set before Connect
	OnMessage func(protocol.Envelope)
}

// NewSyncChannel prepares a channel for one canvas. url is the full
// ws:// endpoint including the auth token query parameter. dialTimeout <= 0
// uses a 10s default.
func NewSyncChannel(url, sessionID string, userID int64, userName string, dialTimeout time.Duration, log *logrus.Logger) *SyncChannel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &SyncChannel{
		url:         url,
		sessionID:   sessionID,
		userID:      userID,
		userName:    userName,
		dialTimeout: dialTimeout,
		log:         log.WithField("session", sessionID),
	}
}

// Connect dials the server, announces the user and starts the read pump.
// Connecting an already-connected channel is a no-op.
func (ch *SyncChannel) Connect() error {
	ch.mu.Lock()
	if ch.connected {
		ch.mu.Unlock()
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: ch.dialTimeout}
	conn, _, err := dialer.Dial(ch.url, nil)
	if err != nil {
		ch.mu.Unlock()
		return fmt.Errorf("failed to connect sync channel: %w", err)
	}
	ch.conn = conn
	ch.connected = true
	ch.mu.Unlock()

	go ch.readPump()

	// Announce immediately so peers render this user before any edit.
	ch.Send(protocol.NewUserJoin(ch.userID, ch.userName))
	return nil
}

// Connected reports whether the socket is currently usable
func (ch *SyncChannel) Connected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.connected
}

// Send transmits an envelope. When the channel is down the envelope is
// dropped without error; real-time traffic is not worth queueing, the next
// save or reload resynchronizes state.
func (ch *SyncChannel) Send(env protocol.Envelope) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if !ch.connected || ch.conn == nil {
		ch.log.WithField("type", env.Type).Debug("channel down, dropping outbound message")
		return
	}

	payload, err := env.Encode()
	if err != nil {
		ch.log.WithError(err).Warn("failed to encode outbound message")
		return
	}
	if err := ch.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		ch.log.WithError(err).Warn("sync channel write failed")
		ch.closeLocked()
	}
}

// Disconnect announces the departure and closes the socket. Safe to call
// repeatedly.
func (ch *SyncChannel) Disconnect() {
	ch.Send(protocol.NewUserLeave(ch.userID))

	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.closeLocked()
}

func (ch *SyncChannel) closeLocked() {
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	ch.connected = false
}

func (ch *SyncChannel) readPump() {
	for {
		ch.mu.Lock()
		conn := ch.conn
		ch.mu.Unlock()
		if conn == nil {
			return
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			ch.mu.Lock()
			ch.closeLocked()
			ch.mu.Unlock()
			return
		}

		env, err := protocol.Decode(frame)
		if err != nil {
			ch.log.Debug("dropping undecodable inbound frame")
			continue
		}
		if ch.OnMessage != nil {
			ch.OnMessage(env)
		}
	}
}
