package relay

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/sentrylink/relay/lib/logging"
)

// Recorder captures the inbound fallback-path frame stream on the console
// side. Chunks are buffered in memory until Stop assembles them into one
// artifact on disk; the finished artifact is then queued for upload. This
// is a purely local side effect with no server round-trip, distinct from
// the start_recording/stop_recording remote commands.
type Recorder struct {
	mu        sync.Mutex
	dir       string
	tenantID  string
	userEmail string
	agentID   string
	chunks    [][]byte
	recording bool
}

func NewRecorder(dir, tenantID, userEmail string) *Recorder {
	return &Recorder{dir: dir, tenantID: tenantID, userEmail: userEmail}
}

// Start begins buffering frames for one agent. Starting while already
// recording restarts the buffer.
func (r *Recorder) Start(agentID string) {
	r.mu.Lock()
	r.agentID = agentID
	r.chunks = nil
	r.recording = true
	r.mu.Unlock()
	logrus.Infof("local recording started for %s", agentID)
}

// Write appends one frame chunk. No-op unless recording.
func (r *Recorder) Write(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
}

// Recording reports whether frames are currently being buffered.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop assembles the buffered chunks into a single artifact, writes it
// under the recorder's directory and queues it for upload. Returns the
// local path. Stopping an idle recorder is an error.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", fmt.Errorf("recorder is not running")
	}
	chunks := r.chunks
	agentID := r.agentID
	r.chunks = nil
	r.recording = false
	r.mu.Unlock()

	if len(chunks) == 0 {
		return "", fmt.Errorf("no frames captured for %s", agentID)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	info := logging.RecordingInfo{
		TenantID:  r.tenantID,
		UserEmail: r.userEmail,
		AgentID:   agentID,
		Key:       fmt.Sprintf("%s-%s", time.Now().Format("20060102T150405"), uuid.NewV4().String()),
	}
	path := filepath.Join(r.dir, info.GetRecordingFileName()+".mjpeg")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	for _, chunk := range chunks {
		if _, err := f.Write(chunk); err != nil {
			f.Close()
			return "", err
		}
		if _, err := f.Write([]byte("\n")); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	logrus.Infof("assembled recording %s, %d frames", path, len(chunks))

	info.LocalPath = path
	PushRecording(info)
	return path, nil
}
