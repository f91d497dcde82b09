package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newConn(sessionID, workspaceID string) *conn {
	return &conn{
		sessionID:   sessionID,
		workspaceID: workspaceID,
		send:        make(chan []byte, 1),
	}
}

func TestDirectory_AddAndRemove(t *testing.T) {
	d := NewDirectory()

	c := newConn("sess-1", "ws-a")
	d.add(c)
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, 1, d.WorkspaceCount("ws-a"))

	assert.True(t, d.remove(c))
	assert.Equal(t, 0, d.Count())
	assert.Equal(t, 0, d.WorkspaceCount("ws-a"))

	// Second remove reports the connection was already gone
	assert.False(t, d.remove(c))
}

func TestDirectory_GroupsByWorkspace(t *testing.T) {
	d := NewDirectory()

	a1 := newConn("sess-1", "ws-a")
	a2 := newConn("sess-2", "ws-a")
	b1 := newConn("sess-3", "ws-b")
	d.add(a1)
	d.add(a2)
	d.add(b1)

	assert.Equal(t, 3, d.Count())
	assert.Equal(t, 2, d.WorkspaceCount("ws-a"))
	assert.Equal(t, 1, d.WorkspaceCount("ws-b"))

	conns := d.workspaceConns("ws-a")
	assert.Len(t, conns, 2)
	for _, c := range conns {
		assert.Equal(t, "ws-a", c.workspaceID)
	}

	d.remove(a1)
	d.remove(a2)
	assert.Equal(t, 0, d.WorkspaceCount("ws-a"))
	assert.Equal(t, 1, d.WorkspaceCount("ws-b"))
}
