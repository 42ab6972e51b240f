package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Status is the connection state surfaced to the UI.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusError:
		return "Error"
	default:
		return "Disconnected"
	}
}

// Socket is the slice of *websocket.Conn the connection needs. Narrowed so
// tests can script the wire.
type Socket interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a socket to the hub. The default dials with gorilla.
type DialFunc func(urlStr string, header http.Header) (Socket, error)

// Config parameterizes one hub connection. Room is either an agent id or
// "tenant_{tenantId}".
type Config struct {
	Endpoint       string
	Token          string
	Room           string
	TenantID       string
	HeartbeatEvery time.Duration
	Dial           DialFunc
}

type handlerEntry struct {
	id uuid.UUID
	fn func(Envelope)
}

// Connection owns one real-time channel to the event hub: dial, auth, room
// join, reconnection and teardown. Joining the room is an explicit emit
// after every successful dial, including reconnects; the hub does not
// restore membership on its own.
type Connection struct {
	cfg Config

	mu       sync.Mutex
	status   Status
	handlers map[string][]handlerEntry
	sock     Socket
	closed   bool

	send     chan Envelope
	done     chan struct{}
	doneOnce sync.Once
}

func NewConnection(cfg Config) *Connection {
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = 30 * time.Second
	}
	if cfg.Dial == nil {
		cfg.Dial = gorillaDial
	}
	return &Connection{
		cfg:      cfg,
		status:   StatusDisconnected,
		handlers: make(map[string][]handlerEntry),
		send:     make(chan Envelope, 256),
		done:     make(chan struct{}),
	}
}

func gorillaDial(urlStr string, header http.Header) (Socket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(urlStr, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// hubURL builds the ws(s) URL with the token doubled into the query string.
// The hub accepts the token from either the Authorization header or the
// query parameter, depending on how transport negotiation settled.
func (c *Connection) hubURL() (string, error) {
	endpoint := c.cfg.Endpoint
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = "ws://" + strings.TrimPrefix(endpoint, "http://")
	} else if strings.HasPrefix(endpoint, "https://") {
		endpoint = "wss://" + strings.TrimPrefix(endpoint, "https://")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/hub"
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Status returns the current connection state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Connection) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// On registers a handler for a hub event and returns the matching off
// function. Every registration path must keep the returned func and call it
// on teardown, otherwise the handler keeps firing against dead state.
func (c *Connection) On(event string, fn func(Envelope)) func() {
	id := uuid.NewV4()
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], handlerEntry{id: id, fn: fn})
	c.mu.Unlock()
	return func() { c.off(event, id) }
}

func (c *Connection) off(event string, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.handlers[event]
	for i, entry := range entries {
		if entry.id == id {
			c.handlers[event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (c *Connection) dispatch(env Envelope) {
	c.mu.Lock()
	entries := append([]handlerEntry(nil), c.handlers[env.Event]...)
	c.mu.Unlock()
	for _, entry := range entries {
		entry.fn(env)
	}
	RecordEventRouted(env.Event)
}

// Emit queues an event for the hub. It is a silent no-op unless the
// connection is currently Connected: user input keeps firing during
// transient disconnects and must not blow up the panel.
func (c *Connection) Emit(event string, payload interface{}) {
	c.mu.Lock()
	connected := c.status == StatusConnected
	c.mu.Unlock()
	if !connected {
		return
	}
	select {
	case c.send <- NewEnvelope(event, payload):
		RecordCommandEmitted(event)
	default:
		logrus.Warnf("send queue full, dropping %s", event)
	}
}

// Run drives the connection until ctx is done or Close is called. The
// transport reconnects with capped backoff; room membership is re-emitted
// on every successful dial.
func (c *Connection) Run(ctx context.Context) error {
	if c.cfg.Room == "" {
		return errors.New("room required")
	}
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		connected, err := c.runOnce(ctx)
		if err != nil {
			logrus.Warnf("hub connection lost: %v", err)
		}
		if connected {
			backoff = time.Second
		}
		c.setStatus(StatusDisconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}
		if backoff < 8*time.Second {
			backoff *= 2
		}
	}
}

func (c *Connection) runOnce(ctx context.Context) (bool, error) {
	c.setStatus(StatusConnecting)

	urlStr, err := c.hubURL()
	if err != nil {
		c.setStatus(StatusError)
		return false, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)

	sock, err := c.cfg.Dial(urlStr, header)
	if err != nil {
		c.setStatus(StatusError)
		return false, err
	}
	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sock = nil
		c.mu.Unlock()
		sock.Close()
	}()

	c.setStatus(StatusConnected)
	IncLiveConnections(c.cfg.TenantID)
	defer DecLiveConnections(c.cfg.TenantID)
	logrus.Infof("connected to hub, room %s", c.cfg.Room)

	runDone := make(chan struct{})
	writerDone := make(chan struct{})

	// The read loop only exits when the socket errors. Close the socket on
	// teardown so a blocked ReadJSON returns and the goroutine is released.
	go func() {
		select {
		case <-runDone:
		case <-c.done:
			sock.Close()
		case <-ctx.Done():
			sock.Close()
		}
	}()
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-runDone:
				return
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case env := <-c.send:
				_ = sock.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := sock.WriteJSON(env); err != nil {
					logrus.Errorf("write %s to hub failed %v", env.Event, err)
					return
				}
			}
		}
	}()

	// Join is not implicit in connection establishment. Emit it now, and
	// again after every reconnect when this method runs anew.
	c.Emit(EventJoinRoom, map[string]string{"room": c.cfg.Room})

	heartbeat := time.NewTicker(c.cfg.HeartbeatEvery)
	defer heartbeat.Stop()
	go func() {
		for {
			select {
			case <-runDone:
				return
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				c.Emit(EventClientDebug, map[string]string{
					"room":   c.cfg.Room,
					"status": c.Status().String(),
				})
			}
		}
	}()

	for {
		var env Envelope
		if err := sock.ReadJSON(&env); err != nil {
			close(runDone)
			<-writerDone
			return true, err
		}
		c.dispatch(env)
	}
}

// Close tears down the connection. Safe to call more than once and safe to
// call on a connection that never ran.
func (c *Connection) Close() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.closed = true
	c.status = StatusDisconnected
	c.handlers = make(map[string][]handlerEntry)
	c.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
}

// Room returns the room this connection is bound to.
func (c *Connection) Room() string {
	return c.cfg.Room
}

// TenantRoom builds the tenant-wide room identifier.
func TenantRoom(tenantID string) string {
	return fmt.Sprintf("tenant_%s", tenantID)
}
