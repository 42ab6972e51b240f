package relay

import (
	"sync"

	"github.com/sentrylink/relay/lib/geoip"
)

// Agent is one row of the fleet roster.
type Agent struct {
	AgentID     string  `json:"agentId"`
	Hostname    string  `json:"hostname"`
	Status      string  `json:"status"`
	IPAddress   string  `json:"ipAddress"`
	IsoCountry  string  `json:"isoCountry"`
	CPUUsage    float64 `json:"cpuUsage"`
	MemoryUsage float64 `json:"memoryUsage"`
	Timestamp   string  `json:"timestamp"`
}

// Roster is the tenant-scoped agent list. Updates are upserts: a known
// agent id shallow-merges the incoming fields, an unknown one is appended.
// Order of first appearance is preserved for stable rendering.
type Roster struct {
	mu     sync.Mutex
	agents map[string]*Agent
	order  []string
}

func NewRoster() *Roster {
	return &Roster{agents: make(map[string]*Agent)}
}

// Upsert merges an update into the roster and returns the resulting row.
func (r *Roster) Upsert(u AgentUpdate) Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[u.AgentID]
	if !ok {
		agent = &Agent{AgentID: u.AgentID}
		r.agents[u.AgentID] = agent
		r.order = append(r.order, u.AgentID)
	}
	// Shallow merge: zero-valued fields in the update leave prior values.
	if u.Hostname != "" {
		agent.Hostname = u.Hostname
	}
	if u.Status != "" {
		agent.Status = u.Status
	}
	if u.IPAddress != "" {
		agent.IPAddress = u.IPAddress
		agent.IsoCountry = geoip.GetIpIsoCode(u.IPAddress)
	}
	if u.CPUUsage != 0 {
		agent.CPUUsage = u.CPUUsage
	}
	if u.MemoryUsage != 0 {
		agent.MemoryUsage = u.MemoryUsage
	}
	if u.Timestamp != "" {
		agent.Timestamp = u.Timestamp
	}
	return *agent
}

// Get returns the roster row for an agent id.
func (r *Roster) Get(agentID string) (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent, ok := r.agents[agentID]; ok {
		return *agent, true
	}
	return Agent{}, false
}

// Agents returns the roster in first-seen order.
func (r *Roster) Agents() []Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.agents[id])
	}
	return result
}
