package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistream/vistream/vision"
)

func TestRenderFrameDrawsBox(t *testing.T) {
	im := vision.NewImage(100, 100)
	dlist := []vision.Detection{
		{Left: 20, Top: 20, Right: 60, Bottom: 60, Score: 0.9},
	}
	out := RenderFrame(im, dlist, RenderOptions{})

	// the original frame is untouched
	assert.Equal(t, [3]uint8{0, 0, 0}, im.GetRGB(20, 40))
	// box edges are drawn in the palette color for TrackID 0
	assert.Equal(t, palette[0], out.GetRGB(20, 40))
	assert.Equal(t, palette[0], out.GetRGB(60, 40))
	assert.Equal(t, palette[0], out.GetRGB(40, 20))
	assert.Equal(t, palette[0], out.GetRGB(40, 60))
	// interior stays clear
	assert.Equal(t, [3]uint8{0, 0, 0}, out.GetRGB(40, 40))
}

func TestRenderFrameTrackColors(t *testing.T) {
	im := vision.NewImage(200, 100)
	dlist := []vision.Detection{
		{Left: 10, Top: 10, Right: 50, Bottom: 50, TrackID: 1},
		{Left: 110, Top: 10, Right: 150, Bottom: 50, TrackID: 2},
	}
	out := RenderFrame(im, dlist, RenderOptions{})
	c1 := out.GetRGB(10, 30)
	c2 := out.GetRGB(110, 30)
	assert.NotEqual(t, c1, c2)
}

func TestRenderFrameClipsOutOfBounds(t *testing.T) {
	im := vision.NewImage(50, 50)
	dlist := []vision.Detection{
		{Left: -10, Top: -10, Right: 100, Bottom: 100, Category: "person", Score: 0.5},
	}
	assert.NotPanics(t, func() {
		RenderFrame(im, dlist, RenderOptions{Labels: true})
	})
}

func TestRenderFrameOverlay(t *testing.T) {
	im := vision.NewImage(120, 40)
	im.FillRectangle(0, 0, 120, 40, [3]uint8{50, 50, 50})
	out := RenderFrame(im, nil, RenderOptions{Overlay: "forward time 12ms"})
	// overlay text paints a black background patch near the top-left corner;
	// sample just left of the first glyph
	assert.Equal(t, [3]uint8{0, 0, 0}, out.GetRGB(3, 12))
}

func TestRenderFrames(t *testing.T) {
	images := []vision.Image{vision.NewImage(10, 10), vision.NewImage(10, 10)}
	detections := [][]vision.Detection{{}, {}}
	out, err := RenderFrames(images, detections, RenderOptions{})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = RenderFrames(images, [][]vision.Detection{{}}, RenderOptions{})
	assert.Error(t, err)
}
