package relay

import (
	"strings"
	"sync"
)

// Alert severity buckets, used to light up the per-module activity
// indicator in the console.
const (
	ModuleUSB     = "usb"
	ModuleMalware = "malware"
	ModuleCVE     = "vulnerability"
	ModuleGeneric = "generic"
)

type Alert struct {
	AgentID   string `json:"agentId"`
	Type      string `json:"type"`
	Details   string `json:"details"`
	Module    string `json:"module"`
	Timestamp string `json:"timestamp"`
}

// ClassifyAlert routes an alert to a module indicator by substring match on
// its type and details. The hub does not tag alerts with a module itself.
func ClassifyAlert(alertType, details string) string {
	haystack := strings.ToLower(alertType + " " + details)
	switch {
	case strings.Contains(haystack, "usb"):
		return ModuleUSB
	case strings.Contains(haystack, "malware"):
		return ModuleMalware
	case strings.Contains(haystack, "cve-"):
		return ModuleCVE
	default:
		return ModuleGeneric
	}
}

// AlertFeed is the tenant-scoped alert list, newest first.
type AlertFeed struct {
	mu     sync.Mutex
	alerts []Alert
	limit  int
}

func NewAlertFeed(limit int) *AlertFeed {
	if limit <= 0 {
		limit = 500
	}
	return &AlertFeed{limit: limit}
}

// Push prepends an alert, classifying it on the way in.
func (f *AlertFeed) Push(push AlertPush) Alert {
	alert := Alert{
		AgentID:   push.AgentID,
		Type:      push.Type,
		Details:   push.Details,
		Module:    ClassifyAlert(push.Type, push.Details),
		Timestamp: NormalizeTimestamp(push.Timestamp),
	}
	f.mu.Lock()
	f.alerts = append([]Alert{alert}, f.alerts...)
	if len(f.alerts) > f.limit {
		f.alerts = f.alerts[:f.limit]
	}
	f.mu.Unlock()
	return alert
}

func (f *AlertFeed) Alerts() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Alert(nil), f.alerts...)
}
