package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRosterUpsertMerges(t *testing.T) {
	roster := NewRoster()

	roster.Upsert(AgentUpdate{AgentID: "AGENT-1", Hostname: "desk-01", CPUUsage: 10})
	roster.Upsert(AgentUpdate{AgentID: "AGENT-2", Hostname: "desk-02"})
	roster.Upsert(AgentUpdate{AgentID: "AGENT-1", Status: "online", MemoryUsage: 42})

	agent, ok := roster.Get("AGENT-1")
	assert.True(t, ok)
	assert.Equal(t, "desk-01", agent.Hostname)
	assert.Equal(t, "online", agent.Status)
	assert.Equal(t, 10.0, agent.CPUUsage)
	assert.Equal(t, 42.0, agent.MemoryUsage)

	_, ok = roster.Get("AGENT-9")
	assert.False(t, ok)
}

func TestRosterKeepsFirstSeenOrder(t *testing.T) {
	roster := NewRoster()
	roster.Upsert(AgentUpdate{AgentID: "b"})
	roster.Upsert(AgentUpdate{AgentID: "a"})
	roster.Upsert(AgentUpdate{AgentID: "c"})
	roster.Upsert(AgentUpdate{AgentID: "a", Status: "online"})

	agents := roster.Agents()
	assert.Equal(t, 3, len(agents))
	assert.Equal(t, "b", agents[0].AgentID)
	assert.Equal(t, "a", agents[1].AgentID)
	assert.Equal(t, "c", agents[2].AgentID)
}
