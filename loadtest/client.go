package loadtest

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	relay "github.com/sentrylink/relay/pkg"
)

var (
	TENANT_ID = "00000000-0000-0000-0000-000000000000"
	HUB       = "qa.hub.sentrylink.io"
)

func init() {
	if os.Getenv("TENANT_ID") != "" {
		TENANT_ID = os.Getenv("TENANT_ID")
	}
	if os.Getenv("HUB") != "" {
		HUB = os.Getenv("HUB")
	}
	logrus.Infof("tenant %s, hub %s", TENANT_ID, HUB)
}

// Client is one synthetic console session driving mouse input at an agent
// room for RunFor, to load the hub's input fan-out path.
type Client struct {
	Index   int
	AgentID string
	RunFor  time.Duration
	Jwt     string
}

func (c *Client) Connect(wg *sync.WaitGroup) {
	defer wg.Done()

	dialer := websocket.DefaultDialer
	dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true, ServerName: HUB}

	headers := http.Header{
		"Authorization": {fmt.Sprintf("Bearer %s", c.Jwt)},
	}
	vals := url.Values{}
	vals.Set("token", c.Jwt)

	conn, _, err := dialer.Dial(fmt.Sprintf("wss://%s/hub?%s", HUB, vals.Encode()), headers)
	if err != nil {
		logrus.Errorf("dial websocket failed %v", err)
		return
	}
	defer conn.Close()

	join := relay.NewEnvelope(relay.EventJoinRoom, map[string]string{"room": c.AgentID})
	if e := conn.WriteJSON(join); e != nil {
		logrus.Errorf("join room failed %v", e)
		return
	}

	go func() {
		for {
			var env relay.Envelope
			if e := conn.ReadJSON(&env); e != nil {
				logrus.Errorf("ws failed %v", e)
				return
			}
			logrus.Infof("receive event %s, %d bytes", env.Event, len(env.Data))
		}
	}()

	start := time.Now()
	x := 0.1
	y := 0.1
	reverse := false
	for {
		move := relay.NewEnvelope(relay.EventRemoteInput, map[string]interface{}{
			"agentId": c.AgentID,
			"type":    "mousemove",
			"x":       x,
			"y":       y,
		})
		e := conn.WriteJSON(move)
		if e != nil {
			logrus.Errorf("write input to hub failed %v", e)
			break
		}
		time.Sleep(100 * time.Millisecond)
		diff := 0.002
		if reverse {
			diff = -0.002
		}
		x += diff
		y += diff
		if x >= 0.9 {
			reverse = true
		} else if x <= 0.1 {
			reverse = false
		}
		if time.Since(start) > c.RunFor {
			break
		}
	}
}

// AgentRoomFor derives the room name a test client should join.
func AgentRoomFor(index int) string {
	return strings.ToUpper(fmt.Sprintf("load-agent-%d", index))
}
