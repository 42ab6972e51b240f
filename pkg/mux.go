package relay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Mux routes every inbound hub event to the correct slice of panel state,
// applying the merge or replace rule that event's semantics call for. It is
// the single ingress point: payloads are canonicalized here and downstream
// consumers never see the hub's mixed field casing.
//
// Bind registers the listeners and Close releases every one of them plus
// the owned RTC session. The two must be paired on every exit path, or the
// stale handlers keep mutating state for a panel that no longer exists.
type Mux struct {
	conn    *Connection
	emitter *Emitter

	Feed   *ActivityFeed
	Alerts *AlertFeed
	Roster *Roster
	Screen *ScreenState

	mu        sync.Mutex
	agentID   string
	rtc       *RTCSession
	recorder  *Recorder
	bandwidth map[string]BandwidthPush
	offs      []func()
	bound     bool
}

func NewMux(conn *Connection, agentID string) *Mux {
	return &Mux{
		conn:      conn,
		emitter:   NewEmitter(conn, agentID),
		agentID:   agentID,
		Feed:      NewActivityFeed(),
		Alerts:    NewAlertFeed(0),
		Roster:    NewRoster(),
		Screen:    NewScreenState(),
		bandwidth: make(map[string]BandwidthPush),
	}
}

// Emitter returns the command emitter bound to the panel's agent.
func (m *Mux) Emitter() *Emitter {
	return m.emitter
}

// SetRecorder attaches a local recorder; inbound fallback-path frames for
// the selected agent are copied into it while it is recording.
func (m *Mux) SetRecorder(r *Recorder) {
	m.mu.Lock()
	m.recorder = r
	m.mu.Unlock()
}

// Bind registers all event listeners on the connection. Calling it twice
// is a no-op.
func (m *Mux) Bind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bound {
		return
	}
	m.bound = true
	m.offs = []func(){
		m.conn.On(EventReceiveScreen, m.handleScreen),
		m.conn.On(EventStreamFrame, m.handleStreamFrame),
		m.conn.On(EventRawStreamFrame, m.handleStreamFrame),
		m.conn.On(EventNewClientActivity, m.handleActivity),
		m.conn.On(EventNewAlert, m.handleAlert),
		m.conn.On(EventAgentListUpdate, m.handleAgentUpdate),
		m.conn.On(EventWebrtcOffer, m.handleOffer),
		m.conn.On(EventIceCandidate, m.handleCandidate),
		m.conn.On(EventNewEvent, m.handleNewEvent),
		m.conn.On(EventBandwidthUpdate, m.handleBandwidth),
	}
}

// Close releases every registered listener and tears down the RTC session.
// Idempotent; required on the owning panel's teardown path.
func (m *Mux) Close() {
	m.mu.Lock()
	offs := m.offs
	m.offs = nil
	m.bound = false
	rtc := m.rtc
	m.rtc = nil
	m.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if rtc != nil {
		rtc.Close()
	}
}

// SelectAgent switches the panel to another agent: the RTC session and
// screen state belong to the old agent and are dropped.
func (m *Mux) SelectAgent(agentID string) {
	m.mu.Lock()
	rtc := m.rtc
	m.rtc = nil
	m.agentID = agentID
	m.emitter = NewEmitter(m.conn, agentID)
	m.mu.Unlock()

	if rtc != nil {
		rtc.Close()
	}
	m.Screen.SetFrame("")
}

func (m *Mux) selectedAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentID
}

// RTC returns the active RTC session, if any.
func (m *Mux) RTC() *RTCSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rtc
}

// Bandwidth returns the last reported bandwidth sample for an agent.
func (m *Mux) Bandwidth(agentID string) (BandwidthPush, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sample, ok := m.bandwidth[agentID]
	return sample, ok
}

func (m *Mux) handleScreen(env Envelope) {
	push, ok := DecodeScreenPush(env.Data)
	if !ok {
		return
	}
	if !SameAgent(push.AgentID, m.selectedAgent()) {
		return
	}
	m.Screen.SetFrame(push.Frame)

	m.mu.Lock()
	recorder := m.recorder
	m.mu.Unlock()
	if recorder != nil {
		recorder.Write([]byte(push.Frame))
	}
}

func (m *Mux) handleStreamFrame(env Envelope) {
	if !m.Screen.Live() {
		return
	}
	push, ok := DecodeFramePush(env.Data)
	if !ok || push.Image == "" {
		return
	}
	m.Screen.SetBitmap(push.Image)
}

func (m *Mux) handleActivity(env Envelope) {
	push, ok := DecodeActivityPush(env.Data)
	if !ok {
		return
	}
	if !SameAgent(push.AgentID, m.selectedAgent()) {
		return
	}
	m.Feed.Push(ActivityEntry{
		ProcessName:     push.ProcessName,
		WindowTitle:     push.WindowTitle,
		ActivityType:    push.ActivityType,
		DurationSeconds: push.DurationSeconds,
		IdleSeconds:     push.IdleSeconds,
		Timestamp:       push.Timestamp,
	})
}

func (m *Mux) handleAlert(env Envelope) {
	push, ok := DecodeAlertPush(env.Data)
	if !ok {
		return
	}
	alert := m.Alerts.Push(push)
	logrus.Debugf("alert from %s routed to %s", alert.AgentID, alert.Module)
}

func (m *Mux) handleAgentUpdate(env Envelope) {
	update, ok := DecodeAgentUpdate(env.Data)
	if !ok || update.AgentID == "" {
		return
	}
	m.Roster.Upsert(update)
}

func (m *Mux) handleOffer(env Envelope) {
	push, ok := DecodeOfferPush(env.Data)
	if !ok {
		return
	}
	agentID := m.selectedAgent()
	if push.AgentID != "" && !SameAgent(push.AgentID, agentID) {
		return
	}

	// A new offer for the same agent replaces the prior session wholesale.
	m.mu.Lock()
	old := m.rtc
	session := NewRTCSession(agentID, m.emitter)
	m.rtc = session
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}

	if err := session.HandleOffer(push.SDP); err != nil {
		logrus.Errorf("answering offer from %s failed %v", agentID, err)
		m.mu.Lock()
		if m.rtc == session {
			m.rtc = nil
		}
		m.mu.Unlock()
		session.Close()
	}
}

func (m *Mux) handleCandidate(env Envelope) {
	push, ok := DecodeCandidatePush(env.Data)
	if !ok || push.Candidate == "" {
		return
	}
	m.mu.Lock()
	rtc := m.rtc
	m.mu.Unlock()
	if rtc == nil {
		// Candidate arrived after teardown. Not an error.
		logrus.Debug("dropping candidate, no rtc session")
		return
	}
	rtc.AddCandidate(push)
}

func (m *Mux) handleNewEvent(env Envelope) {
	// Generic event-store pings only feed the activity indicator.
	logrus.Debugf("event store ping, %d bytes", len(env.Data))
}

func (m *Mux) handleBandwidth(env Envelope) {
	push, ok := DecodeBandwidthPush(env.Data)
	if !ok || push.AgentID == "" {
		return
	}
	m.mu.Lock()
	m.bandwidth[push.AgentID] = push
	m.mu.Unlock()
}
