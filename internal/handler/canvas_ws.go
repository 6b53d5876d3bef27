package handler

import (
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"canvas-backend/internal/presence"
	"canvas-backend/internal/protocol"
)

// CanvasWSHandler accepts sync-channel connections and feeds the hub. The
// server relays deltas without interpreting them; durable state only changes
// through the REST save path.
type CanvasWSHandler struct {
	hub      *CanvasHub
	presence *presence.Manager
	log      *logrus.Logger
}

// NewCanvasWSHandler creates the WebSocket handler
func NewCanvasWSHandler(hub *CanvasHub, presenceMgr *presence.Manager, log *logrus.Logger) *CanvasWSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CanvasWSHandler{
		hub:      hub,
		presence: presenceMgr,
		log:      log,
	}
}

// Upgrade gates the HTTP->WebSocket upgrade and stashes the route context
// where the connection handler can reach it
func (h *CanvasWSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	canvasID, err := strconv.ParseInt(c.Params("canvasId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid canvas id",
		})
	}

	c.Locals("canvasID", canvasID)
	return c.Next()
}

// HandleConnection runs one participant's session: register, relay frames
// until the socket drops, then clean up. An abrupt close still produces a
// user_leave for the rest of the room.
func (h *CanvasWSHandler) HandleConnection(c *websocket.Conn) {
	canvasID, ok1 := c.Locals("canvasID").(int64)
	userID, ok2 := c.Locals("userID").(int64)
	userName, ok3 := c.Locals("userName").(string)

	if !ok1 || !ok2 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"invalid session"}`))
		c.Close()
		return
	}
	if !ok3 {
		userName = ""
	}

	sessionID := presence.SessionID(userID)
	room := h.hub.GetOrCreateRoom(canvasID)

	client := &CanvasClient{
		SessionID: sessionID,
		UserID:    userID,
		UserName:  userName,
		Conn:      c,
	}
	room.AddClient(client)

	if h.presence != nil {
		err := h.presence.Join(canvasID, presence.Entry{
			UserID:    userID,
			UserName:  userName,
			SessionID: sessionID,
		})
		if err != nil {
			h.log.WithError(err).Warn("failed to register presence")
		}
	}

	defer func() {
		// Peers learn about the departure even when the client never sent
		// a user_leave of its own. Relayed before RemoveClient so the last
		// client out cannot race the room shutdown.
		room.RelayEnvelope(sessionID, protocol.NewUserLeave(userID))
		room.RemoveClient(sessionID)
		if h.presence != nil {
			if err := h.presence.Leave(canvasID, userID); err != nil {
				h.log.WithError(err).Warn("failed to clear presence")
			}
		}
		c.Close()
	}()

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			return
		}

		env, err := protocol.Decode(frame)
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"canvas_id": canvasID,
				"session":   sessionID,
			}).Debug("dropping undecodable frame")
			continue
		}

		h.observe(canvasID, userID, env)
		room.Relay(sessionID, frame)
	}
}

// observe mirrors presence-relevant traffic into Redis so ActiveUsers stays
// accurate across server instances
func (h *CanvasWSHandler) observe(canvasID, userID int64, env protocol.Envelope) {
	if h.presence == nil {
		return
	}

	switch env.Type {
	case protocol.TypeCursorMove:
		var payload protocol.CursorMove
		if err := env.DecodeData(&payload); err != nil {
			return
		}
		if err := h.presence.UpdateCursor(canvasID, userID, payload.X, payload.Y); err != nil {
			h.log.WithError(err).Debug("cursor presence update failed")
		}
	case protocol.TypeUserJoin, protocol.TypeUserLeave:
		// Join/leave are already handled at the connection boundary.
	default:
		if err := h.presence.Heartbeat(canvasID, userID); err != nil {
			h.log.WithError(err).Debug("presence heartbeat failed")
		}
	}
}
