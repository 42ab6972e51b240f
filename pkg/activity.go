package relay

import (
	"sort"
	"sync"
)

// ActivityEntry is one normalized telemetry record, newest-first in the feed.
type ActivityEntry struct {
	ProcessName     string `json:"processName"`
	WindowTitle     string `json:"windowTitle"`
	ActivityType    string `json:"activityType"`
	DurationSeconds int    `json:"durationSeconds"`
	IdleSeconds     int    `json:"idleSeconds"`
	Timestamp       string `json:"timestamp"`
}

// ActivityFeed holds the combined historical + live activity list for one
// panel. The backend pushes fixed-size time chunks (60s each), so a live
// push that matches the newest entry's (process, title, type) triple is
// accumulated into it instead of appended; that is how true session
// duration is shown.
//
// Merging only applies in live mode, i.e. when no date filter is active.
// While browsing historical ranges every push is prepended as-is.
type ActivityFeed struct {
	mu       sync.Mutex
	entries  []ActivityEntry
	liveMode bool
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{liveMode: true}
}

// SetLiveMode flips the merge gating. Live mode means no date filter.
func (f *ActivityFeed) SetLiveMode(live bool) {
	f.mu.Lock()
	f.liveMode = live
	f.mu.Unlock()
}

// Push applies one live telemetry record, honoring the merge rule.
func (f *ActivityFeed) Push(e ActivityEntry) {
	e.Timestamp = NormalizeTimestamp(e.Timestamp)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.liveMode && len(f.entries) > 0 {
		top := &f.entries[0]
		if top.ProcessName == e.ProcessName &&
			top.WindowTitle == e.WindowTitle &&
			top.ActivityType == e.ActivityType {
			top.DurationSeconds += e.DurationSeconds
			top.IdleSeconds += e.IdleSeconds
			return
		}
	}
	f.entries = append([]ActivityEntry{e}, f.entries...)
}

// SetHistory replaces the feed with a freshly fetched historical slice.
// The combined list is sorted by parsed timestamp descending here, once per
// fetch; individual live pushes are never re-sorted.
func (f *ActivityFeed) SetHistory(entries []ActivityEntry) {
	for i := range entries {
		entries[i].Timestamp = NormalizeTimestamp(entries[i].Timestamp)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return ParseTimestamp(entries[i].Timestamp).After(ParseTimestamp(entries[j].Timestamp))
	})
	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
}

// Entries returns a copy of the feed, newest first.
func (f *ActivityFeed) Entries() []ActivityEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ActivityEntry(nil), f.entries...)
}
