package presence

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"canvas-backend/internal/model"
)

// Peer one remote participant as seen by this client
type Peer struct {
	UserID   int64        `json:"user_id"`
	UserName string       `json:"user_name"`
	Cursor   *model.Point `json:"cursor,omitempty"`
	JoinedAt time.Time    `json:"joined_at"`
	LastSeen time.Time    `json:"last_seen"`
}

// Tracker keeps the set of remote peers on one open canvas and their most
// recent cursor positions. Messages are absorbed in arrival order, so a
// cursor_move that raced ahead of its user_join still lands: the peer entry
// is created on first sight either way.
type Tracker struct {
	mu    sync.RWMutex
	peers map[int64]*Peer
}

// NewTracker creates an empty peer tracker
func NewTracker() *Tracker {
	return &Tracker{peers: make(map[int64]*Peer)}
}

// OnJoin records a peer joining; re-joins refresh the name and timestamp
func (t *Tracker) OnJoin(userID int64, userName string) {
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	peer, ok := t.peers[userID]
	if !ok {
		t.peers[userID] = &Peer{UserID: userID, UserName: userName, JoinedAt: now, LastSeen: now}
		return
	}
	peer.UserName = userName
	peer.LastSeen = now
}

// OnLeave drops a peer; leaving twice is a no-op
func (t *Tracker) OnLeave(userID int64) {
	t.mu.Lock()
	delete(t.peers, userID)
	t.mu.Unlock()
}

// OnCursor records the latest cursor position for the session's user.
// The user id is embedded in the session id, so a cursor seen before the
// join message still creates a (nameless) peer entry.
func (t *Tracker) OnCursor(sessionID string, x, y float64) {
	userID, ok := UserIDFromSession(sessionID)
	if !ok {
		return
	}
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	peer, ok := t.peers[userID]
	if !ok {
		peer = &Peer{UserID: userID, JoinedAt: now}
		t.peers[userID] = peer
	}
	peer.Cursor = &model.Point{X: x, Y: y}
	peer.LastSeen = now
}

// List returns a copy of the current peer set
func (t *Tracker) List() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Peer, 0, len(t.peers))
	for _, peer := range t.peers {
		p := *peer
		if peer.Cursor != nil {
			cursor := *peer.Cursor
			p.Cursor = &cursor
		}
		out = append(out, p)
	}
	return out
}

// Count returns the number of tracked peers
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// SessionID builds the "session_{timestamp}_{userId}" identifier used to
// tag outgoing cursor traffic
func SessionID(userID int64) string {
	return "session_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + strconv.FormatInt(userID, 10)
}

// UserIDFromSession extracts the trailing user id from a session identifier
func UserIDFromSession(sessionID string) (int64, bool) {
	idx := strings.LastIndex(sessionID, "_")
	if idx < 0 || idx == len(sessionID)-1 {
		return 0, false
	}
	userID, err := strconv.ParseInt(sessionID[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}
