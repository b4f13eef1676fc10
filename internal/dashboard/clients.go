package dashboard

import (
	"sync"

	"github.com/coder/websocket"
)

type clientSet struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func newClientSet() *clientSet {
	return &clientSet{conns: make(map[*websocket.Conn]struct{})}
}

// add registers conn and returns the new count.
func (c *clientSet) add(conn *websocket.Conn) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn] = struct{}{}
	return len(c.conns)
}

// remove reports whether conn was registered, and the remaining count.
func (c *clientSet) remove(conn *websocket.Conn) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[conn]; !ok {
		return len(c.conns), false
	}
	delete(c.conns, conn)
	return len(c.conns), true
}

func (c *clientSet) list() []*websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		out = append(out, conn)
	}
	return out
}

// drain empties the set and returns what it held.
func (c *clientSet) drain() []*websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		out = append(out, conn)
	}
	c.conns = make(map[*websocket.Conn]struct{})
	return out
}

func (c *clientSet) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
