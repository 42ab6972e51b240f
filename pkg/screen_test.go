package relay

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodePNG(t *testing.T, w, h int) string {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSetBitmapResizesCanvas(t *testing.T) {
	s := NewScreenState()
	s.SetLive(true)

	assert.True(t, s.SetBitmap(encodePNG(t, 8, 6)))
	w, h := s.CanvasSize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)

	assert.True(t, s.SetBitmap(encodePNG(t, 16, 9)))
	w, h = s.CanvasSize()
	assert.Equal(t, 16, w)
	assert.Equal(t, 9, h)
	assert.Equal(t, 2, s.FrameCount())
}

func TestSetBitmapRejectsGarbage(t *testing.T) {
	s := NewScreenState()
	s.SetLive(true)
	assert.True(t, s.SetBitmap(encodePNG(t, 8, 6)))

	// bad base64, then valid base64 that is not an image
	assert.False(t, s.SetBitmap("!!not base64!!"))
	assert.False(t, s.SetBitmap(base64.StdEncoding.EncodeToString([]byte("plain text"))))

	// prior state untouched
	w, h := s.CanvasSize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)
	assert.Equal(t, 1, s.FrameCount())
}

func TestSetLiveClearsFallbackFrame(t *testing.T) {
	s := NewScreenState()
	s.SetFrame("frameA")
	assert.Equal(t, "frameA", s.Frame())

	s.SetLive(true)
	assert.Equal(t, "", s.Frame())
	assert.True(t, s.Live())

	s.SetLive(false)
	assert.False(t, s.Live())
}
