package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAlert(t *testing.T) {
	assert.Equal(t, ModuleUSB, ClassifyAlert("USB device inserted", ""))
	assert.Equal(t, ModuleMalware, ClassifyAlert("detection", "malware signature matched"))
	assert.Equal(t, ModuleCVE, ClassifyAlert("vuln", "CVE-2024-1234 found in openssl"))
	assert.Equal(t, ModuleGeneric, ClassifyAlert("policy", "clipboard blocked"))
}

func TestAlertFeedLimit(t *testing.T) {
	feed := NewAlertFeed(3)
	for i := 0; i < 5; i++ {
		feed.Push(AlertPush{AgentID: "a1", Type: fmt.Sprintf("alert-%d", i)})
	}
	alerts := feed.Alerts()
	assert.Equal(t, 3, len(alerts))
	// newest first, oldest dropped
	assert.Equal(t, "alert-4", alerts[0].Type)
	assert.Equal(t, "alert-2", alerts[2].Type)
}
