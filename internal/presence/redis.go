// Package presence tracks who is on a canvas: a Redis-backed manager shared
// by all server instances, plus an in-memory Tracker each client keeps for
// remote cursors.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// entry TTL; clients heartbeat every 30s so one missed beat survives
const presenceTTL = 60 * time.Second

// Entry presence record stored in Redis
type Entry struct {
	UserID        int64   `json:"user_id"`
	UserName      string  `json:"user_name"`
	SessionID     string  `json:"session_id"`
	CursorX       float64 `json:"cursor_x"`
	CursorY       float64 `json:"cursor_y"`
	LastHeartbeat int64   `json:"last_heartbeat"`
	ServerID      string  `json:"server_id"`
}

// Manager canvas presence backed by Redis. Each canvas has a member set and
// per-user entries with a TTL, so crashed clients age out on their own.
type Manager struct {
	client *redis.Client
	ctx    context.Context
}

// NewManager connects to Redis and returns a presence manager
func NewManager(addr string, password string, db int) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Manager{
		client: rdb,
		ctx:    context.Background(),
	}
}

// Ping verifies the Redis connection
func (m *Manager) Ping() error {
	return m.client.Ping(m.ctx).Err()
}

func (m *Manager) entryKey(canvasID, userID int64) string {
	return fmt.Sprintf("canvas:%d:presence:%d", canvasID, userID)
}

func (m *Manager) memberKey(canvasID int64) string {
	return fmt.Sprintf("canvas:%d:members", canvasID)
}

// Join registers a user on a canvas
func (m *Manager) Join(canvasID int64, entry Entry) error {
	entry.LastHeartbeat = time.Now().Unix()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	pipe.Set(m.ctx, m.entryKey(canvasID, entry.UserID), jsonData, presenceTTL)
	pipe.SAdd(m.ctx, m.memberKey(canvasID), entry.UserID)
	_, err = pipe.Exec(m.ctx)
	return err
}

// UpdateCursor refreshes a user's cursor position and heartbeat in one write
func (m *Manager) UpdateCursor(canvasID, userID int64, x, y float64) error {
	key := m.entryKey(canvasID, userID)

	val, err := m.client.Get(m.ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("user %d not present on canvas %d", userID, canvasID)
	}
	if err != nil {
		return err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return err
	}
	entry.CursorX = x
	entry.CursorY = y
	entry.LastHeartbeat = time.Now().Unix()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.client.Set(m.ctx, key, jsonData, presenceTTL).Err()
}

// Heartbeat extends a user's presence TTL without touching the entry
func (m *Manager) Heartbeat(canvasID, userID int64) error {
	ok, err := m.client.Expire(m.ctx, m.entryKey(canvasID, userID), presenceTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d not present on canvas %d", userID, canvasID)
	}
	return nil
}

// Leave removes a user's presence from a canvas
func (m *Manager) Leave(canvasID, userID int64) error {
	pipe := m.client.TxPipeline()
	pipe.Del(m.ctx, m.entryKey(canvasID, userID))
	pipe.SRem(m.ctx, m.memberKey(canvasID), userID)
	_, err := pipe.Exec(m.ctx)
	return err
}

// ActiveUsers returns the live presence entries for a canvas. Members whose
// entries expired are pruned from the member set as a side effect.
func (m *Manager) ActiveUsers(canvasID int64) ([]Entry, error) {
	memberIDs, err := m.client.SMembers(m.ctx, m.memberKey(canvasID)).Result()
	if err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return []Entry{}, nil
	}

	keys := make([]string, len(memberIDs))
	for i, id := range memberIDs {
		keys[i] = fmt.Sprintf("canvas:%d:presence:%s", canvasID, id)
	}

	results, err := m.client.MGet(m.ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(results))
	var stale []interface{}
	for i, result := range results {
		if result == nil {
			stale = append(stale, memberIDs[i])
			continue
		}
		strVal, ok := result.(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(strVal), &entry); err == nil {
			entries = append(entries, entry)
		}
	}

	if len(stale) > 0 {
		m.client.SRem(m.ctx, m.memberKey(canvasID), stale...)
	}
	return entries, nil
}

// ActiveCount returns the number of entries still alive on a canvas
func (m *Manager) ActiveCount(canvasID int64) (int, error) {
	entries, err := m.ActiveUsers(canvasID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Close releases the Redis connection
func (m *Manager) Close() error {
	return m.client.Close()
}
