package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"

	"canvas-backend/internal/protocol"
)

// CanvasHub manages the live rooms, one per open canvas. A hub is a plain
// instance handed to the handlers that need it; nothing here is global, so
// tests can spin up hubs side by side.
type CanvasHub struct {
	rooms        map[int64]*CanvasRoom
	mu           sync.RWMutex
	writeTimeout time.Duration
	log          *logrus.Logger
}

// CanvasRoom fan-out domain for one canvas: every envelope received from a
// participant is relayed verbatim to every other participant.
type CanvasRoom struct {
	CanvasID  int64
	clients   map[string]*CanvasClient
	broadcast chan *relayMessage
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	hub       *CanvasHub
	isRunning bool
}

// CanvasClient one connected participant. Writes to the shared conn are
// serialized through writeMu.
type CanvasClient struct {
	SessionID string
	UserID    int64
	UserName  string
	Conn      *websocket.Conn
	writeMu   sync.Mutex
}

type relayMessage struct {
	senderSession string
	payload       []byte
}

// NewCanvasHub creates a hub. writeTimeout bounds each fan-out write so one
// stalled connection cannot block delivery to the rest of a room; <= 0
// disables the deadline.
func NewCanvasHub(writeTimeout time.Duration, log *logrus.Logger) *CanvasHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CanvasHub{
		rooms:        make(map[int64]*CanvasRoom),
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// GetOrCreateRoom returns the room for a canvas, creating it on first join
func (h *CanvasHub) GetOrCreateRoom(canvasID int64) *CanvasRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[canvasID]; exists {
		return room
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &CanvasRoom{
		CanvasID:  canvasID,
		clients:   make(map[string]*CanvasClient),
		broadcast: make(chan *relayMessage, 256),
		ctx:       ctx,
		cancel:    cancel,
		hub:       h,
	}

	h.rooms[canvasID] = room
	h.log.WithField("canvas_id", canvasID).Info("created canvas room")

	return room
}

// RemoveRoom shuts down and drops an empty room
func (h *CanvasHub) RemoveRoom(canvasID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[canvasID]
	if !exists {
		return
	}
	room.mu.RLock()
	empty := len(room.clients) == 0
	room.mu.RUnlock()
	if !empty {
		// A client joined between the leave and this cleanup; keep the room.
		return
	}

	room.shutdown()
	delete(h.rooms, canvasID)
	h.log.WithField("canvas_id", canvasID).Info("removed canvas room")
}

// RoomCount returns the number of live rooms
func (h *CanvasHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// AddClient registers a participant and starts the room broadcaster if this
// is the first join
func (r *CanvasRoom) AddClient(client *CanvasClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.SessionID] = client

	r.hub.log.WithFields(logrus.Fields{
		"canvas_id": r.CanvasID,
		"user_id":   client.UserID,
		"session":   client.SessionID,
		"total":     len(r.clients),
	}).Info("client joined canvas")

	if !r.isRunning {
		r.isRunning = true
		go r.runBroadcaster()
	}
}

// RemoveClient drops a participant; the last one out schedules room cleanup
func (r *CanvasRoom) RemoveClient(sessionID string) {
	r.mu.Lock()
	delete(r.clients, sessionID)
	remaining := len(r.clients)
	r.mu.Unlock()

	r.hub.log.WithFields(logrus.Fields{
		"canvas_id": r.CanvasID,
		"session":   sessionID,
		"remaining": remaining,
	}).Info("client left canvas")

	if remaining == 0 {
		go r.hub.RemoveRoom(r.CanvasID)
	}
}

// ClientCount returns the number of connected participants
func (r *CanvasRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Relay queues an envelope for fan-out to everyone except the sender. The
// payload is the raw frame: the room never re-encodes what it forwards.
// Frames arriving after the room shut down are dropped.
func (r *CanvasRoom) Relay(senderSession string, payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isRunning {
		return
	}
	select {
	case r.broadcast <- &relayMessage{senderSession: senderSession, payload: payload}:
	default:
		r.hub.log.WithField("canvas_id", r.CanvasID).Warn("broadcast buffer full, dropping frame")
	}
}

// RelayEnvelope encodes and queues a server-originated envelope, used for
// synthesized user_leave on abrupt disconnects
func (r *CanvasRoom) RelayEnvelope(senderSession string, env protocol.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		r.hub.log.WithError(err).Warn("failed to encode envelope")
		return
	}
	r.Relay(senderSession, payload)
}

func (r *CanvasRoom) shutdown() {
	r.mu.Lock()
	r.isRunning = false
	close(r.broadcast)
	r.mu.Unlock()
	r.cancel()
}

func (r *CanvasRoom) runBroadcaster() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.broadcast:
			if !ok {
				return
			}
			r.fanOut(msg)
		}
	}
}

func (r *CanvasRoom) fanOut(msg *relayMessage) {
	r.mu.RLock()
	clients := make([]*CanvasClient, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		if client.SessionID == msg.senderSession {
			continue
		}
		client.writeMu.Lock()
		if r.hub.writeTimeout > 0 {
			client.Conn.SetWriteDeadline(time.Now().Add(r.hub.writeTimeout))
		}
		err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload)
		client.writeMu.Unlock()
		if err != nil {
			r.hub.log.WithFields(logrus.Fields{
				"canvas_id": r.CanvasID,
				"session":   client.SessionID,
			}).WithError(err).Warn("failed to deliver frame")
		}
	}
}
