package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_FILE = "/var/log/sentrylink/relay_audit.log"

var auditFile *os.File
var logger *log.Logger
var recordingLogger *zap.Logger

// Action is a user action, the audit log object.
type Action struct {
	AppType   string   `json:"app_type"`
	AppTag    string   `json:"app_tag"`
	TenantID  string   `json:"tenantID"`
	AgentID   string   `json:"agentID"`
	Room      string   `json:"room,omitempty"`
	RoleIDs   []string `json:"roleIDs,omitempty"`
	UserEmail string   `json:"userEmail"`
	ClientIP  string   `json:"client_ip"`
	Details   string   `json:"details,omitempty"`
}

// RecordingInfo identifies one captured screen recording through its
// assemble, queue and upload lifecycle.
type RecordingInfo struct {
	TenantID  string
	UserEmail string
	AgentID   string
	Key       string
	LocalPath string
}

// GetRecordingFileName returns the artifact name used on disk and in the
// upload bucket.
func (r RecordingInfo) GetRecordingFileName() string {
	return r.TenantID + "_" + r.AgentID + "_" + r.Key
}

// Init manually creates the audit log file and the recording logger.
func Init() {
	var err error
	auditFile, err = os.OpenFile(LOG_FILE, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o755)
	if err != nil {
		logrus.Fatal(err)
	}
	logger = log.New(auditFile, "", 0)

	recordingLogger, _ = NewRecordingLogger()
}

func NewRecordingLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	os.OpenFile("/var/log/sentrylink/relay_recordings.log", os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o744)

	cfg.OutputPaths = []string{
		"/var/log/sentrylink/relay_recordings.log",
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// LogRecording writes one structured entry per uploaded recording.
func LogRecording(info RecordingInfo, bucket string) {
	if recordingLogger == nil {
		return
	}
	recordingLogger.Info(
		"monitor-recording",
		zap.String("tenant", info.TenantID),
		zap.String("username", info.UserEmail),
		zap.String("agent", info.AgentID),
		zap.String("key", info.Key),
		zap.String("bucket", bucket))
}

// Log appends one audit action.
func Log(action Action) {
	action.AppType = "relay"
	data, err := json.Marshal(action)
	if err != nil {
		logrus.Errorf("marshal audit action failed %s", err.Error())
		return
	}
	if logger == nil {
		return
	}
	now := time.Now().Format("2006-01-02T15:04:05.000Z")
	logger.Printf("%s %s\n", now, string(data))
}

func Close() {
	if auditFile != nil {
		auditFile.Close()
	}
}
