package vision

import (
	"bytes"
	"testing"
)

func TestImageSetGet(t *testing.T) {
	im := NewImage(8, 6)
	im.SetRGB(3, 2, [3]uint8{10, 20, 30})
	if im.GetRGB(3, 2) != [3]uint8{10, 20, 30} {
		t.Errorf("GetRGB(3, 2) = %v; want {10 20 30}", im.GetRGB(3, 2))
	}
	// out-of-bounds writes are dropped
	im.SetRGB(-1, 0, [3]uint8{255, 255, 255})
	im.SetRGB(8, 0, [3]uint8{255, 255, 255})
	im.SetRGB(0, 6, [3]uint8{255, 255, 255})
	if im.GetRGB(0, 0) != [3]uint8{0, 0, 0} {
		t.Errorf("out-of-bounds SetRGB modified the image")
	}
}

func TestFillRectangle(t *testing.T) {
	im := NewImage(10, 10)
	im.FillRectangle(2, 3, 5, 7, [3]uint8{255, 0, 0})
	if im.GetRGB(2, 3) != [3]uint8{255, 0, 0} {
		t.Errorf("top-left corner not filled")
	}
	if im.GetRGB(4, 6) != [3]uint8{255, 0, 0} {
		t.Errorf("interior not filled")
	}
	// right/bottom are exclusive
	if im.GetRGB(5, 3) != [3]uint8{0, 0, 0} {
		t.Errorf("right edge should be exclusive")
	}
	if im.GetRGB(2, 7) != [3]uint8{0, 0, 0} {
		t.Errorf("bottom edge should be exclusive")
	}
}

func TestDrawRectangleClipped(t *testing.T) {
	// rectangle partially outside the canvas should not panic
	im := NewImage(10, 10)
	im.DrawRectangle(-5, -5, 15, 15, 2, [3]uint8{0, 255, 0})
}

func TestPNGRoundtrip(t *testing.T) {
	im := NewImage(5, 4)
	im.SetRGB(1, 1, [3]uint8{100, 150, 200})
	im.SetRGB(4, 3, [3]uint8{1, 2, 3})
	decoded, err := ImageFromPNGReader(bytes.NewReader(im.AsPNG()))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decoded.Width != 5 || decoded.Height != 4 {
		t.Fatalf("got dims %dx%d; want 5x4", decoded.Width, decoded.Height)
	}
	if !bytes.Equal(decoded.Bytes, im.Bytes) {
		t.Errorf("PNG roundtrip changed pixel data")
	}
}

func TestResize(t *testing.T) {
	im := NewImage(16, 8)
	im.FillRectangle(0, 0, 16, 8, [3]uint8{200, 100, 50})
	resized := im.Resize(8, 4)
	if resized.Width != 8 || resized.Height != 4 {
		t.Fatalf("got dims %dx%d; want 8x4", resized.Width, resized.Height)
	}
	c := resized.GetRGB(4, 2)
	// uniform image stays (approximately) uniform under bilinear scaling
	for channel, want := range []uint8{200, 100, 50} {
		diff := int(c[channel]) - int(want)
		if diff < -2 || diff > 2 {
			t.Errorf("channel %d = %d; want ~%d", channel, c[channel], want)
		}
	}
}

func TestDrawImage(t *testing.T) {
	canvas := NewImage(8, 8)
	patch := NewImage(2, 2)
	patch.FillRectangle(0, 0, 2, 2, [3]uint8{50, 60, 70})
	canvas.DrawImage(3, 4, patch)
	if canvas.GetRGB(3, 4) != [3]uint8{50, 60, 70} || canvas.GetRGB(4, 5) != [3]uint8{50, 60, 70} {
		t.Errorf("patch not drawn at offset")
	}
	if canvas.GetRGB(2, 4) != [3]uint8{0, 0, 0} || canvas.GetRGB(5, 5) != [3]uint8{0, 0, 0} {
		t.Errorf("pixels outside the patch modified")
	}
}

func TestCopyIsDeep(t *testing.T) {
	im := NewImage(4, 4)
	cp := im.Copy()
	cp.SetRGB(0, 0, [3]uint8{9, 9, 9})
	if im.GetRGB(0, 0) != [3]uint8{0, 0, 0} {
		t.Errorf("Copy shares pixel data with the original")
	}
}
