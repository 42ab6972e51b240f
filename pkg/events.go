package relay

import (
	"encoding/json"
	"strings"
)

// Client to server events.
const (
	EventJoinRoom     = "join_room"
	EventStartStream  = "start_stream"
	EventStopStream   = "stop_stream"
	EventRemoteInput  = "RemoteInput"
	EventWebrtcAnswer = "webrtc_answer"
	EventIceCandidate = "ice_candidate"
	EventClientDebug  = "client_debug"
	EventKillProcess  = "KillProcess"
)

// Server to client events.
const (
	EventReceiveScreen     = "ReceiveScreen"
	EventStreamFrame       = "receive_stream_frame"
	EventRawStreamFrame    = "stream_frame"
	EventNewClientActivity = "new_client_activity"
	EventNewAlert          = "new_alert"
	EventAgentListUpdate   = "agent_list_update"
	EventWebrtcOffer       = "webrtc_offer"
	EventNewEvent          = "new_event"
	EventBandwidthUpdate   = "agent_bandwidth_update"
)

// Envelope is the wire shape for every event on the hub channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, payload interface{}) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}

// The hub is inconsistent about field casing: the same concept arrives as
// PascalCase from agent relays and camelCase from the event store. Payloads
// are canonicalized here, at the ingress boundary, so nothing downstream
// ever does a dual-cased lookup.

type ScreenPush struct {
	AgentID string
	Frame   string
}

type FramePush struct {
	Image string
}

type ActivityPush struct {
	AgentID         string
	ProcessName     string
	WindowTitle     string
	ActivityType    string
	DurationSeconds int
	IdleSeconds     int
	Timestamp       string
}

type AlertPush struct {
	AgentID   string
	Type      string
	Details   string
	Timestamp string
}

type AgentUpdate struct {
	AgentID     string
	Hostname    string
	Status      string
	IPAddress   string
	CPUUsage    float64
	MemoryUsage float64
	Timestamp   string
}

type OfferPush struct {
	AgentID string
	SDP     string
}

type CandidatePush struct {
	Candidate     string
	SDPMid        string
	SDPMLineIndex uint16
}

type BandwidthPush struct {
	AgentID   string
	KbpsIn    float64
	KbpsOut   float64
	Timestamp string
}

func decodeFields(raw json.RawMessage) map[string]interface{} {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func pickString(fields map[string]interface{}, names ...string) string {
	for _, name := range names {
		if v, ok := fields[name].(string); ok {
			return v
		}
	}
	return ""
}

func pickFloat(fields map[string]interface{}, names ...string) float64 {
	for _, name := range names {
		if v, ok := fields[name].(float64); ok {
			return v
		}
	}
	return 0
}

func DecodeScreenPush(raw json.RawMessage) (ScreenPush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return ScreenPush{}, false
	}
	return ScreenPush{
		AgentID: pickString(fields, "AgentId", "agentId"),
		Frame:   pickString(fields, "Frame", "frame", "Image", "image"),
	}, true
}

func DecodeFramePush(raw json.RawMessage) (FramePush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return FramePush{}, false
	}
	return FramePush{Image: pickString(fields, "Image", "image")}, true
}

func DecodeActivityPush(raw json.RawMessage) (ActivityPush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return ActivityPush{}, false
	}
	return ActivityPush{
		AgentID:         pickString(fields, "AgentId", "agentId"),
		ProcessName:     pickString(fields, "ProcessName", "processName"),
		WindowTitle:     pickString(fields, "WindowTitle", "windowTitle"),
		ActivityType:    pickString(fields, "ActivityType", "activityType"),
		DurationSeconds: int(pickFloat(fields, "DurationSeconds", "durationSeconds")),
		IdleSeconds:     int(pickFloat(fields, "IdleSeconds", "idleSeconds")),
		Timestamp:       NormalizeTimestamp(pickString(fields, "Timestamp", "timestamp")),
	}, true
}

func DecodeAlertPush(raw json.RawMessage) (AlertPush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return AlertPush{}, false
	}
	return AlertPush{
		AgentID:   pickString(fields, "AgentId", "agentId"),
		Type:      pickString(fields, "Type", "type"),
		Details:   pickString(fields, "Details", "details"),
		Timestamp: NormalizeTimestamp(pickString(fields, "Timestamp", "timestamp")),
	}, true
}

func DecodeAgentUpdate(raw json.RawMessage) (AgentUpdate, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return AgentUpdate{}, false
	}
	return AgentUpdate{
		AgentID:     pickString(fields, "AgentId", "agentId"),
		Hostname:    pickString(fields, "Hostname", "hostname"),
		Status:      pickString(fields, "Status", "status"),
		IPAddress:   pickString(fields, "IpAddress", "ipAddress", "ip"),
		CPUUsage:    pickFloat(fields, "CpuUsage", "cpuUsage"),
		MemoryUsage: pickFloat(fields, "MemoryUsage", "memoryUsage"),
		Timestamp:   NormalizeTimestamp(pickString(fields, "Timestamp", "timestamp")),
	}, true
}

func DecodeOfferPush(raw json.RawMessage) (OfferPush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return OfferPush{}, false
	}
	return OfferPush{
		AgentID: pickString(fields, "AgentId", "agentId", "Target", "target"),
		SDP:     pickString(fields, "Sdp", "sdp"),
	}, true
}

func DecodeCandidatePush(raw json.RawMessage) (CandidatePush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return CandidatePush{}, false
	}
	var index uint16
	if v := pickFloat(fields, "SdpMLineIndex", "sdpMLineIndex"); v >= 0 {
		index = uint16(v)
	}
	return CandidatePush{
		Candidate:     pickString(fields, "Candidate", "candidate"),
		SDPMid:        pickString(fields, "SdpMid", "sdpMid"),
		SDPMLineIndex: index,
	}, true
}

func DecodeBandwidthPush(raw json.RawMessage) (BandwidthPush, bool) {
	fields := decodeFields(raw)
	if fields == nil {
		return BandwidthPush{}, false
	}
	return BandwidthPush{
		AgentID:   pickString(fields, "AgentId", "agentId"),
		KbpsIn:    pickFloat(fields, "KbpsIn", "kbpsIn"),
		KbpsOut:   pickFloat(fields, "KbpsOut", "kbpsOut"),
		Timestamp: NormalizeTimestamp(pickString(fields, "Timestamp", "timestamp")),
	}, true
}

// SameAgent compares agent identifiers the way the hub does: the relays are
// not consistent about casing here either.
func SameAgent(a, b string) bool {
	return strings.EqualFold(a, b)
}
