package presence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLeave(t *testing.T) {
	tr := NewTracker()

	tr.OnJoin(1, "mina")
	tr.OnJoin(2, "leo")
	assert.Equal(t, 2, tr.Count())

	tr.OnLeave(1)
	assert.Equal(t, 1, tr.Count())

	// Leaving twice is harmless.
	tr.OnLeave(1)
	assert.Equal(t, 1, tr.Count())
}

func TestRejoinRefreshesName(t *testing.T) {
	tr := NewTracker()

	tr.OnJoin(1, "mina")
	tr.OnJoin(1, "mina-renamed")

	peers := tr.List()
	require.Len(t, peers, 1)
	assert.Equal(t, "mina-renamed", peers[0].UserName)
}

func TestCursorUpdates(t *testing.T) {
	tr := NewTracker()
	tr.OnJoin(7, "mina")

	tr.OnCursor("session_1700000000000_7", 10, 20)
	tr.OnCursor("session_1700000000000_7", 30, 40)

	peers := tr.List()
	require.Len(t, peers, 1)
	require.NotNil(t, peers[0].Cursor)
	assert.Equal(t, 30.0, peers[0].Cursor.X)
	assert.Equal(t, 40.0, peers[0].Cursor.Y)
}

func TestCursorBeforeJoinCreatesPeer(t *testing.T) {
	tr := NewTracker()

	// Messages apply in arrival order; a cursor that raced ahead of its
	// join still lands and the join fills the name in afterwards.
	tr.OnCursor("session_1700000000000_9", 1, 2)
	assert.Equal(t, 1, tr.Count())

	tr.OnJoin(9, "late-joiner")
	peers := tr.List()
	require.Len(t, peers, 1)
	assert.Equal(t, "late-joiner", peers[0].UserName)
	require.NotNil(t, peers[0].Cursor)
	assert.Equal(t, 1.0, peers[0].Cursor.X)
}

func TestCursorWithBadSessionIgnored(t *testing.T) {
	tr := NewTracker()

	tr.OnCursor("not-a-session", 1, 2)
	tr.OnCursor("", 1, 2)
	assert.Equal(t, 0, tr.Count())
}

func TestListIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.OnJoin(1, "mina")
	tr.OnCursor("session_1_1", 5, 5)

	peers := tr.List()
	require.Len(t, peers, 1)
	peers[0].Cursor.X = 999

	fresh := tr.List()
	assert.Equal(t, 5.0, fresh[0].Cursor.X)
}

func TestSessionIDFormat(t *testing.T) {
	id := SessionID(42)

	assert.True(t, strings.HasPrefix(id, "session_"))
	assert.True(t, strings.HasSuffix(id, "_42"))

	userID, ok := UserIDFromSession(id)
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)
}

func TestUserIDFromSessionRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "session", "session_", "session_abc_def", "trailing_"} {
		_, ok := UserIDFromSession(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}
