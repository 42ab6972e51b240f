package relay

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
)

// ScreenState is the current frame for one panel. Exactly one
// representation is active at a time: the base64 JPEG fallback path
// (per-agent remote desktop) or the live bitmap path (fleet monitor).
type ScreenState struct {
	mu     sync.Mutex
	frame  string
	live   bool
	width  int
	height int
	frames int
}

func NewScreenState() *ScreenState {
	return &ScreenState{}
}

// SetLive flips the panel between the live bitmap path and the fallback
// path. Switching clears the other representation.
func (s *ScreenState) SetLive(live bool) {
	s.mu.Lock()
	s.live = live
	s.frame = ""
	s.width, s.height = 0, 0
	s.mu.Unlock()
}

func (s *ScreenState) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// SetFrame replaces the fallback-path frame. Earlier frames are discarded,
// never merged.
func (s *ScreenState) SetFrame(frame string) {
	s.mu.Lock()
	s.frame = frame
	s.frames++
	s.mu.Unlock()
	RecordFrame()
}

// Frame returns the current fallback-path frame.
func (s *ScreenState) Frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// SetBitmap decodes a live-path image and replaces the canvas content,
// resizing the canvas to the decoded image's native dimensions when they
// changed. A frame that fails to decode leaves prior state untouched.
func (s *ScreenState) SetBitmap(b64 string) bool {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return false
	}
	s.mu.Lock()
	if cfg.Width != s.width || cfg.Height != s.height {
		s.width, s.height = cfg.Width, cfg.Height
	}
	s.frames++
	s.mu.Unlock()
	RecordFrame()
	return true
}

// CanvasSize returns the live canvas dimensions.
func (s *ScreenState) CanvasSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// FrameCount returns how many frames this panel has painted.
func (s *ScreenState) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
