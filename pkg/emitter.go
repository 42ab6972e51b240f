package relay

// Input types accepted by the remote agent.
const (
	InputMouseMove      = "mousemove"
	InputClick          = "click"
	InputKeyPress       = "keypress"
	InputLock           = "lock"
	InputStartRecording = "start_recording"
	InputStopRecording  = "stop_recording"
)

// Emitter translates user intents into hub events addressed to one agent.
// Every method is fire-and-forget and a silent no-op while the connection
// is absent or not Connected; input events keep firing during transient
// disconnects and must never panic the panel.
type Emitter struct {
	conn    *Connection
	agentID string
}

func NewEmitter(conn *Connection, agentID string) *Emitter {
	return &Emitter{conn: conn, agentID: agentID}
}

func (e *Emitter) ready() bool {
	return e != nil && e.conn != nil && e.conn.Status() == StatusConnected
}

// SendMouseMove forwards a pointer position. Coordinates are fractions of
// the canvas in [0,1], not pixels, so the agent can rescale to its own
// resolution.
func (e *Emitter) SendMouseMove(x, y float64) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventRemoteInput, map[string]interface{}{
		"agentId": e.agentID,
		"type":    InputMouseMove,
		"x":       clampFraction(x),
		"y":       clampFraction(y),
	})
}

// SendClick forwards a button press at a normalized position.
func (e *Emitter) SendClick(x, y float64, button string) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventRemoteInput, map[string]interface{}{
		"agentId": e.agentID,
		"type":    InputClick,
		"x":       clampFraction(x),
		"y":       clampFraction(y),
		"button":  button,
	})
}

// SendKeyPress forwards a key press.
func (e *Emitter) SendKeyPress(key string) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventRemoteInput, map[string]interface{}{
		"agentId": e.agentID,
		"type":    InputKeyPress,
		"key":     key,
	})
}

// LockWorkstation asks the agent to lock its desktop.
func (e *Emitter) LockWorkstation() {
	e.sendBareInput(InputLock)
}

// StartRemoteRecording instructs the agent to record locally and upload
// later. Distinct from the local Recorder, which captures the inbound
// stream on this side with no server round-trip.
func (e *Emitter) StartRemoteRecording() {
	e.sendBareInput(InputStartRecording)
}

// StopRemoteRecording stops agent-side recording.
func (e *Emitter) StopRemoteRecording() {
	e.sendBareInput(InputStopRecording)
}

func (e *Emitter) sendBareInput(inputType string) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventRemoteInput, map[string]interface{}{
		"agentId": e.agentID,
		"type":    inputType,
	})
}

// StartStream asks the hub to begin the screen-push loop for this agent.
// The emitter never decodes frames itself.
func (e *Emitter) StartStream() {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventStartStream, map[string]string{"agentId": e.agentID})
}

// StopStream cancels the screen-push loop.
func (e *Emitter) StopStream() {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventStopStream, map[string]string{"agentId": e.agentID})
}

// KillProcess asks the agent to terminate a process.
func (e *Emitter) KillProcess(target string) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventKillProcess, map[string]string{
		"agentId": e.agentID,
		"target":  target,
	})
}

// SendAnswer returns a WebRTC answer SDP to the agent.
func (e *Emitter) SendAnswer(sdp string) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventWebrtcAnswer, map[string]string{
		"target": e.agentID,
		"sdp":    sdp,
		"type":   "answer",
	})
}

// SendCandidate trickles a local ICE candidate to the agent.
func (e *Emitter) SendCandidate(candidate CandidatePush) {
	if !e.ready() {
		return
	}
	e.conn.Emit(EventIceCandidate, map[string]interface{}{
		"target":        e.agentID,
		"candidate":     candidate.Candidate,
		"sdpMid":        candidate.SDPMid,
		"sdpMLineIndex": candidate.SDPMLineIndex,
	})
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
