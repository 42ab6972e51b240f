package relay

import (
	"sync"
)

// Session is the authenticated user context. The auth collaborator is the
// single writer; everything else only reads. The relay client itself only
// consumes Token and TenantID to parameterize connections.
type Session struct {
	Token    string
	UserID   string
	TenantID string
	Role     string
}

// SessionContext holds the process-wide session with swap-on-login and
// clear-on-401 semantics. Never a free-floating global.
type SessionContext struct {
	mu      sync.RWMutex
	current Session
}

func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// Set replaces the session. Only the auth collaborator calls this.
func (c *SessionContext) Set(s Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

// Clear destroys the session, as on logout or a hard 401.
func (c *SessionContext) Clear() {
	c.mu.Lock()
	c.current = Session{}
	c.mu.Unlock()
}

// Get returns a copy of the current session.
func (c *SessionContext) Get() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Authenticated reports whether a session token is present.
func (c *SessionContext) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Token != ""
}
