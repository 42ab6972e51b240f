package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// scriptedSocket lets a test play the hub side of the wire.
type scriptedSocket struct {
	mu         sync.Mutex
	wrote      []Envelope
	reads      chan Envelope
	closed     chan struct{}
	once       sync.Once
	closeCalls int32
}

func newScriptedSocket() *scriptedSocket {
	return &scriptedSocket{
		reads:  make(chan Envelope, 16),
		closed: make(chan struct{}),
	}
}

func (s *scriptedSocket) ReadJSON(v interface{}) error {
	select {
	case env := <-s.reads:
		*(v.(*Envelope)) = env
		return nil
	case <-s.closed:
		return fmt.Errorf("socket closed")
	}
}

func (s *scriptedSocket) WriteJSON(v interface{}) error {
	select {
	case <-s.closed:
		return fmt.Errorf("socket closed")
	default:
	}
	s.mu.Lock()
	s.wrote = append(s.wrote, v.(Envelope))
	s.mu.Unlock()
	return nil
}

func (s *scriptedSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *scriptedSocket) Close() error {
	atomic.AddInt32(&s.closeCalls, 1)
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *scriptedSocket) wasClosed() bool {
	return atomic.LoadInt32(&s.closeCalls) > 0
}

func (s *scriptedSocket) writtenCount(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, env := range s.wrote {
		if env.Event == event {
			count++
		}
	}
	return count
}

func TestRejoinAfterReconnect(t *testing.T) {
	sockets := []*scriptedSocket{newScriptedSocket(), newScriptedSocket()}
	var dials int32
	dial := func(urlStr string, header http.Header) (Socket, error) {
		n := atomic.AddInt32(&dials, 1)
		if int(n) > len(sockets) {
			return nil, fmt.Errorf("no more sockets")
		}
		assert.Equal(t, "Bearer jwt-token", header.Get("Authorization"))
		return sockets[n-1], nil
	}

	conn := NewConnection(Config{
		Endpoint: "https://hub.example.com",
		Token:    "jwt-token",
		Room:     "AGENT-7",
		TenantID: "tenant-1",
		Dial:     dial,
	})
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = conn.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return sockets[0].writtenCount(EventJoinRoom) == 1
	}, 3*time.Second, 10*time.Millisecond, "join_room not sent on first connect")

	// drop the transport; the room must be re-joined on the new socket
	sockets[0].Close()

	assert.Eventually(t, func() bool {
		return sockets[1].writtenCount(EventJoinRoom) == 1
	}, 5*time.Second, 10*time.Millisecond, "join_room not re-sent after reconnect")
}

func TestCloseReleasesBlockedSocket(t *testing.T) {
	sock := newScriptedSocket()
	dial := func(urlStr string, header http.Header) (Socket, error) {
		return sock, nil
	}

	conn := NewConnection(Config{
		Endpoint: "https://hub.example.com",
		Token:    "jwt-token",
		Room:     "AGENT-7",
		Dial:     dial,
	})

	runDone := make(chan error, 1)
	go func() { runDone <- conn.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sock.writtenCount(EventJoinRoom) == 1
	}, 3*time.Second, 10*time.Millisecond)

	// the reader is parked in ReadJSON now; Close must unblock it
	conn.Close()

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after Close")
	}
	assert.True(t, sock.wasClosed(), "socket left open after Close")
}

func TestContextCancelReleasesSocket(t *testing.T) {
	sock := newScriptedSocket()
	dial := func(urlStr string, header http.Header) (Socket, error) {
		return sock, nil
	}

	conn := NewConnection(Config{
		Endpoint: "https://hub.example.com",
		Token:    "jwt-token",
		Room:     "AGENT-7",
		Dial:     dial,
	})
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- conn.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return sock.writtenCount(EventJoinRoom) == 1
	}, 3*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-runDone:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after ctx cancel")
	}
	assert.True(t, sock.wasClosed(), "socket left open after ctx cancel")
}

func TestDispatchReachesHandlers(t *testing.T) {
	conn := NewConnection(Config{Room: "AGENT-7"})

	var got []string
	off := conn.On("ping", func(env Envelope) {
		got = append(got, env.Event)
	})
	conn.dispatch(NewEnvelope("ping", nil))
	assert.Equal(t, 1, len(got))

	off()
	conn.dispatch(NewEnvelope("ping", nil))
	assert.Equal(t, 1, len(got), "handler fired after off")
}

func TestEmitIsNoopWhileDisconnected(t *testing.T) {
	conn := NewConnection(Config{Room: "AGENT-7"})
	conn.Emit(EventRemoteInput, map[string]string{"type": "keypress"})
	assert.Equal(t, 0, len(conn.send))

	conn.setStatus(StatusConnected)
	conn.Emit(EventRemoteInput, map[string]string{"type": "keypress"})
	assert.Equal(t, 1, len(conn.send))
}

func TestCloseIdempotent(t *testing.T) {
	conn := NewConnection(Config{Room: "AGENT-7"})
	conn.Close()
	conn.Close()
	assert.Equal(t, StatusDisconnected, conn.Status())
}

func TestRunRequiresRoom(t *testing.T) {
	conn := NewConnection(Config{})
	err := conn.Run(context.Background())
	assert.Error(t, err)
}

func TestHubURL(t *testing.T) {
	conn := NewConnection(Config{Endpoint: "https://hub.example.com", Token: "abc", Room: "r"})
	u, err := conn.hubURL()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "wss://hub.example.com/hub?token=abc", u)

	conn = NewConnection(Config{Endpoint: "http://127.0.0.1:4567/socket", Token: "abc", Room: "r"})
	u, _ = conn.hubURL()
	assert.Equal(t, "ws://127.0.0.1:4567/socket?token=abc", u)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Disconnected", StatusDisconnected.String())
	assert.Equal(t, "Connecting", StatusConnecting.String())
	assert.Equal(t, "Connected", StatusConnected.String())
	assert.Equal(t, "Error", StatusError.String())
}
