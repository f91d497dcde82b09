package websocket

import (
	"sync"
)

// conn is one live device connection tracked by the directory.
type conn struct {
	sessionID   string
	workspaceID string
	userID      string
	deviceID    string
	send        chan []byte
}

// Directory tracks live connections grouped by workspace so fan-out only
// touches the workspace that changed.
type Directory struct {
	mu          sync.RWMutex
	bySession   map[string]*conn
	byWorkspace map[string]map[*conn]struct{}
}

func NewDirectory() *Directory {
	return &Directory{
		bySession:   make(map[string]*conn),
		byWorkspace: make(map[string]map[*conn]struct{}),
	}
}

func (d *Directory) add(c *conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bySession[c.sessionID] = c
	if d.byWorkspace[c.workspaceID] == nil {
		d.byWorkspace[c.workspaceID] = make(map[*conn]struct{})
	}
	d.byWorkspace[c.workspaceID][c] = struct{}{}
}

// remove detaches a connection and reports whether it was still tracked, so
// the double-close from read and write pumps tears down only once.
func (d *Directory) remove(c *conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.bySession[c.sessionID]; !ok {
		return false
	}
	delete(d.bySession, c.sessionID)

	if peers, ok := d.byWorkspace[c.workspaceID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(d.byWorkspace, c.workspaceID)
		}
	}
	return true
}

// workspaceConns snapshots the live connections for one workspace.
func (d *Directory) workspaceConns(workspaceID string) []*conn {
	d.mu.RLock()
	defer d.mu.RUnlock()

	peers := d.byWorkspace[workspaceID]
	conns := make([]*conn, 0, len(peers))
	for c := range peers {
		conns = append(conns, c)
	}
	return conns
}

// Count returns the number of live connections.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bySession)
}

// WorkspaceCount returns the number of live connections in one workspace.
func (d *Directory) WorkspaceCount(workspaceID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byWorkspace[workspaceID])
}
