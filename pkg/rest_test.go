package relay

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetActivityNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/activity/AGENT-7", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"ProcessName":"chrome.exe","WindowTitle":"Docs","ActivityType":"active","DurationSeconds":60,"Timestamp":"2024-01-01 10:00:00"},
			{"processName":"code.exe","windowTitle":"main.go","activityType":"active","durationSeconds":120,"timestamp":"2024-01-01T11:00:00Z"}
		]`))
	}))
	defer server.Close()

	sessions := NewSessionContext()
	sessions.Set(Session{Token: "jwt-token", TenantID: "tenant-1"})
	api := NewAPIClient(server.URL, sessions, nil)

	entries, err := api.GetActivity("AGENT-7", "", "")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(entries))
	assert.Equal(t, "chrome.exe", entries[0].ProcessName)
	assert.Equal(t, "2024-01-01T10:00:00Z", entries[0].Timestamp)
	assert.Equal(t, "code.exe", entries[1].ProcessName)
}

func TestGetActivityRejectsNonArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, NewSessionContext(), nil)
	_, err := api.GetActivity("AGENT-7", "", "")
	assert.Error(t, err)
}

func TestUnauthorizedFiresLogoutOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var logouts int32
	sessions := NewSessionContext()
	sessions.Set(Session{Token: "stale-token", TenantID: "tenant-1"})
	api := NewAPIClient(server.URL, sessions, func() {
		atomic.AddInt32(&logouts, 1)
	})

	_, err := api.GetActivity("AGENT-7", "", "")
	assert.Error(t, err)
	_ = api.SimulateEvent("AGENT-7")
	_, _ = api.TrialStatus()

	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))
	assert.False(t, sessions.Authenticated())
}

func TestGetAgentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tenant-1", r.URL.Query().Get("tenantId"))
		w.Write([]byte(`[{"agentId":"AGENT-1","hostname":"desk-01"},{"hostname":"no-id-row"}]`))
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, NewSessionContext(), nil)
	updates, err := api.GetAgentStatus("tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	// rows with no agent id are dropped
	assert.Equal(t, 1, len(updates))
	assert.Equal(t, "AGENT-1", updates[0].AgentID)
}

func TestToggleFeature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/AGENT-7/toggle-feature", r.URL.Path)
		assert.Equal(t, "screen_stream", r.URL.Query().Get("feature"))
		assert.Equal(t, "true", r.URL.Query().Get("enabled"))
		w.Write([]byte(`true`))
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, NewSessionContext(), nil)
	enabled, err := api.ToggleFeature("AGENT-7", "screen_stream", true)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, enabled)
}

func TestTrialStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"feature":"remote_desktop","active":true,"expiresAt":"2026-10-01T00:00:00Z"}]`))
	}))
	defer server.Close()

	api := NewAPIClient(server.URL, NewSessionContext(), nil)
	trials, err := api.TrialStatus()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(trials))
	assert.Equal(t, "remote_desktop", trials[0].Feature)
	assert.True(t, trials[0].Active)
}
