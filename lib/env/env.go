package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultAPIOrigin is the hardcoded fallback for the default deployment.
const DefaultAPIOrigin = "https://api.sentrylink.io"

var (
	// APIOrigin is the REST backend base origin.
	APIOrigin string
	// SocketOrigin is the event hub origin; defaults to APIOrigin.
	SocketOrigin string
	// Region is the cloud region used for recording storage.
	Region string
)

// Init resolves the runtime configuration. Precedence: process environment
// (after loading .env), then the etcd settings tree when an endpoint is
// configured, then the hardcoded default origin.
func Init() {
	_ = godotenv.Load()

	APIOrigin = os.Getenv("API_ORIGIN")
	SocketOrigin = os.Getenv("SOCKET_ORIGIN")
	Region = os.Getenv("REGION")
	if Region == "" {
		Region = "us-east-1"
	}

	if APIOrigin == "" || SocketOrigin == "" {
		fillFromEtcd()
	}
	if APIOrigin == "" {
		APIOrigin = DefaultAPIOrigin
	}
	if SocketOrigin == "" {
		SocketOrigin = APIOrigin
	}
	logrus.Infof("api origin %s, socket origin %s, region %s", APIOrigin, SocketOrigin, Region)
}

func fillFromEtcd() {
	endpoint := os.Getenv("ETCDCTL_ENDPOINT")
	if endpoint == "" {
		return
	}
	cfg := clientv3.Config{
		Endpoints:   []string{endpoint},
		DialTimeout: 10 * time.Second,
	}
	if user := os.Getenv("ETCDCTL_USER"); user != "" {
		parts := strings.SplitN(user, ":", 2)
		if len(parts) == 2 {
			cfg.Username = parts[0]
			cfg.Password = parts[1]
		}
	}
	client, err := clientv3.New(cfg)
	if err != nil {
		logrus.Errorf("etcd settings unavailable %v", err)
		return
	}
	defer client.Close()

	if APIOrigin == "" {
		APIOrigin = etcdGet(client, "/sentrylink/settings/API_ORIGIN")
	}
	if SocketOrigin == "" {
		SocketOrigin = etcdGet(client, "/sentrylink/settings/SOCKET_ORIGIN")
	}
}

func etcdGet(client *clientv3.Client, key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := client.Get(ctx, key)
	if err != nil {
		logrus.Errorf("etcd get %s failed %v", key, err)
		return ""
	}
	if len(resp.Kvs) == 0 {
		return ""
	}
	return string(resp.Kvs[0].Value)
}
