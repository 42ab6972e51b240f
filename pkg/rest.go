package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// TrialState is one time-boxed feature unlock, independent of the plan.
type TrialState struct {
	Feature   string `json:"feature"`
	Active    bool   `json:"active"`
	ExpiresAt string `json:"expiresAt"`
}

// APIClient talks to the backend REST collaborator. A 401 on any call
// clears the session and fires the registered logout hook exactly once;
// that is the only centrally enforced error policy. There is no
// retry-with-backoff here.
type APIClient struct {
	http             *resty.Client
	sessions         *SessionContext
	onUnauthorized   func()
	unauthorizedOnce sync.Once
}

func NewAPIClient(baseURL string, sessions *SessionContext, onUnauthorized func()) *APIClient {
	c := &APIClient{
		sessions:       sessions,
		onUnauthorized: onUnauthorized,
	}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if s := sessions.Get(); s.Token != "" {
			req.SetHeader("Authorization", "Bearer "+s.Token)
		}
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		RecordRestRequest(resp.Request.RawRequest.URL.Path, resp.Request.Method,
			resp.StatusCode(), resp.Time().Seconds())
		if resp.StatusCode() == http.StatusUnauthorized {
			c.handleUnauthorized()
		}
		return nil
	})
	return c
}

func (c *APIClient) handleUnauthorized() {
	c.unauthorizedOnce.Do(func() {
		logrus.Info("session rejected by backend, forcing logout")
		c.sessions.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	})
}

// GetActivity fetches historical activity records for an agent. The body
// must be a JSON array; anything else leaves the caller's state untouched
// by returning an error.
func (c *APIClient) GetActivity(agentID, startDate, endDate string) ([]ActivityEntry, error) {
	resp, err := c.http.R().
		SetQueryParam("start_date", startDate).
		SetQueryParam("end_date", endDate).
		Get(fmt.Sprintf("/events/activity/%s", agentID))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("activity fetch failed: %s", resp.Status())
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("activity response is not an array: %w", err)
	}
	entries := make([]ActivityEntry, 0, len(rows))
	for _, row := range rows {
		push, ok := DecodeActivityPush(row)
		if !ok {
			continue
		}
		entries = append(entries, ActivityEntry{
			ProcessName:     push.ProcessName,
			WindowTitle:     push.WindowTitle,
			ActivityType:    push.ActivityType,
			DurationSeconds: push.DurationSeconds,
			IdleSeconds:     push.IdleSeconds,
			Timestamp:       push.Timestamp,
		})
	}
	return entries, nil
}

// GetAgentStatus fetches the fleet status summaries for a tenant.
func (c *APIClient) GetAgentStatus(tenantID string) ([]AgentUpdate, error) {
	resp, err := c.http.R().
		SetQueryParam("tenantId", tenantID).
		Get("/api/status")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status fetch failed: %s", resp.Status())
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("status response is not an array: %w", err)
	}
	updates := make([]AgentUpdate, 0, len(rows))
	for _, row := range rows {
		if update, ok := DecodeAgentUpdate(row); ok && update.AgentID != "" {
			updates = append(updates, update)
		}
	}
	return updates, nil
}

// SimulateEvent triggers a synthetic test event on an agent.
func (c *APIClient) SimulateEvent(agentID string) error {
	resp, err := c.http.R().Post(fmt.Sprintf("/api/events/simulate/%s", agentID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("simulate failed: %s", resp.Status())
	}
	return nil
}

// ExportActivity streams the CSV activity export to a local file.
func (c *APIClient) ExportActivity(agentID, destPath string) error {
	resp, err := c.http.R().
		SetOutput(destPath).
		Get(fmt.Sprintf("/api/export/activity/%s", agentID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("export failed: %s", resp.Status())
	}
	return nil
}

// ToggleFeature flips a per-agent feature flag and returns the resulting
// state.
func (c *APIClient) ToggleFeature(agentID, feature string, enabled bool) (bool, error) {
	resp, err := c.http.R().
		SetQueryParam("feature", feature).
		SetQueryParam("enabled", strconv.FormatBool(enabled)).
		Post(fmt.Sprintf("/agents/%s/toggle-feature", agentID))
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("toggle failed: %s", resp.Status())
	}
	var result bool
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return false, err
	}
	return result, nil
}

// TrialStatus fetches the feature-trial states for the tenant.
func (c *APIClient) TrialStatus() ([]TrialState, error) {
	resp, err := c.http.R().Get("/trials/status")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("trial status failed: %s", resp.Status())
	}
	var trials []TrialState
	if err := json.Unmarshal(resp.Body(), &trials); err != nil {
		return nil, fmt.Errorf("trial response is not an array: %w", err)
	}
	return trials, nil
}

// StartTrial starts a time-boxed trial for one feature.
func (c *APIClient) StartTrial(feature string) error {
	resp, err := c.http.R().
		SetBody(map[string]string{"feature": feature}).
		Post("/trials/start")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("start trial failed: %s", resp.Status())
	}
	return nil
}
