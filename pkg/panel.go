package relay

import (
	"context"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/sentrylink/relay/lib/logging"
)

// PanelStore tracks the open panels in this process by panel id.
var PanelStore *MemoryStore

func init() {
	PanelStore = NewMemoryStore()
}

// Panel is one open live-monitor or remote-desktop view. It exclusively
// owns its connection, multiplexer, recorder and RTC session, and releases
// all of them on Close regardless of which exit path got there. Two open
// panels never share a socket.
type Panel struct {
	ID string

	conn     *Connection
	Mux      *Mux
	Recorder *Recorder

	cancel    context.CancelFunc
	closeOnce sync.Once

	owner    string
	tenantID string
	agentID  string
	room     string
}

// OpenPanel connects a new panel and registers it. The connection runs in
// the background until the panel closes; reconnects re-join the room on
// their own.
func OpenPanel(ctx context.Context, session Session, cfg Config, agentID string) *Panel {
	id := uuid.NewV4().String()
	panelCtx, cancel := context.WithCancel(ctx)

	conn := NewConnection(cfg)
	mux := NewMux(conn, agentID)
	mux.Bind()

	p := &Panel{
		ID:       id,
		conn:     conn,
		Mux:      mux,
		Recorder: NewRecorder("/var/lib/sentrylink/recordings", session.TenantID, session.UserID),
		cancel:   cancel,
		owner:    session.UserID,
		tenantID: session.TenantID,
		agentID:  agentID,
		room:     cfg.Room,
	}
	mux.SetRecorder(p.Recorder)

	go func() {
		if err := conn.Run(panelCtx); err != nil && err != context.Canceled {
			logrus.Errorf("panel %s connection ended %v", id, err)
		}
	}()

	if err := dbAccess.SaveMonitorSession(id, session.UserID, session.TenantID, agentID, cfg.Room); err != nil {
		logrus.Errorf("save monitor session failed %v", err)
	}
	logging.Log(logging.Action{
		AppTag:    "monitor.open",
		TenantID:  session.TenantID,
		AgentID:   agentID,
		Room:      cfg.Room,
		UserEmail: session.UserID,
	})

	PanelStore.Set(id, p)
	return p
}

// Connection exposes the panel's connection for status display.
func (p *Panel) Connection() *Connection {
	return p.conn
}

// Close releases everything the panel owns: listeners, socket, RTC
// session, in-flight recording buffer. Idempotent.
func (p *Panel) Close() {
	p.closeOnce.Do(func() {
		p.Mux.Close()
		p.conn.Close()
		p.cancel()
		if p.Recorder.Recording() {
			if _, err := p.Recorder.Stop(); err != nil {
				logrus.Infof("panel %s recorder drained empty: %v", p.ID, err)
			}
		}

		PanelStore.Delete(p.ID)
		if err := dbAccess.DeleteMonitorSession(p.ID); err != nil {
			logrus.Errorf("delete monitor session failed %v", err)
		}
		logging.Log(logging.Action{
			AppTag:    "monitor.exit",
			TenantID:  p.tenantID,
			AgentID:   p.agentID,
			Room:      p.room,
			UserEmail: p.owner,
		})
	})
}
