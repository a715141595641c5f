package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sio "github.com/zishang520/socket.io/v2/socket"

	"github.com/vistream/vistream/client"
	"github.com/vistream/vistream/detect"
	"github.com/vistream/vistream/vision"
)

type testDetector struct{}

func (testDetector) Detect(images []vision.Image) ([][]vision.Detection, error) {
	out := make([][]vision.Detection, len(images))
	for i := range out {
		out[i] = []vision.Detection{{Left: 1, Top: 1, Right: 5, Bottom: 5, Score: 0.8, Category: "person"}}
	}
	return out, nil
}
func (testDetector) InputDims() [2]int { return [2]int{416, 416} }
func (testDetector) Categories() []string { return []string{"person"} }
func (testDetector) Close() {}

func setupFakePool(t *testing.T) {
	var err error
	pool, err = detect.NewPool(1, func() (detect.Detector, error) {
		return testDetector{}, nil
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
		pool = nil
	})
}

func TestDecodeFrame(t *testing.T) {
	im := vision.NewImage(8, 8)
	b64 := base64.StdEncoding.EncodeToString(im.AsJPG())

	decoded, err := decodeFrame(b64)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Width)

	// browsers send data URLs
	_, err = decodeFrame("data:image/jpeg;base64," + b64)
	require.NoError(t, err)

	_, err = decodeFrame("!!!not base64!!!")
	assert.Error(t, err)

	_, err = decodeFrame(base64.StdEncoding.EncodeToString([]byte("not a jpeg")))
	assert.Error(t, err)
}

func TestBadFrameAdvancesCounter(t *testing.T) {
	setupTest(t)
	setupFakePool(t)
	session := newStreamSession()

	_, _, err := session.process("garbage")
	require.Error(t, err)

	// the bad frame consumed index 0, so the next frame gets index 1
	payload := base64.StdEncoding.EncodeToString(vision.NewImage(8, 8).AsJPG())
	_, response, err := session.process(payload)
	require.NoError(t, err)
	assert.Equal(t, 1, response.FrameIdx)
	assert.Len(t, response.Detections, 1)
}

func TestStreamEndToEnd(t *testing.T) {
	setupTest(t)
	setupFakePool(t)

	server := sio.NewServer(nil, nil)
	server.On("connection", func(clients ...any) {
		c := clients[0].(*sio.Socket)
		for _, f := range SetupFuncs {
			f(c)
		}
	})
	handler := http.NewServeMux()
	handler.Handle("/socket.io/", server.ServeHandler(nil))
	ts := httptest.NewServer(handler)
	defer ts.Close()
	defer server.Close(nil)

	framesDir := t.TempDir()
	im := vision.NewImage(64, 64)
	require.NoError(t, os.WriteFile(filepath.Join(framesDir, "0.jpg"), im.AsJPG(), 0644))

	result, err := client.Run(&client.Stream{
		Name: "e2e",
		URL: ts.URL,
		Images: filepath.Join(framesDir, "*.jpg"),
		Count: 3,
		Labels: true,
	}, 15*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FramesSent)
	assert.Equal(t, 3, result.Responses)
	assert.Equal(t, 0, result.Errors)
}
