package detect

import (
	"fmt"

	"github.com/vistream/vistream/vision"
)

// box colors cycle by TrackID; untracked detections use the first entry
var palette = [][3]uint8{
	{255, 0, 0},
	{0, 255, 0},
	{0, 0, 255},
	{255, 255, 0},
	{0, 255, 255},
	{255, 0, 255},
}

type RenderOptions struct {
	// draw "category score" label above each box
	Labels bool
	// extra overlay text in the top-left corner, e.g. timing info
	Overlay string
}

func boxColor(d vision.Detection) [3]uint8 {
	if d.TrackID == 0 {
		return palette[0]
	}
	return palette[vision.Mod(d.TrackID, len(palette))]
}

// RenderFrame draws the detections onto a copy of the frame.
func RenderFrame(im vision.Image, dlist []vision.Detection, opts RenderOptions) vision.Image {
	canvas := im.Copy()
	dims := [2]int{canvas.Width, canvas.Height}
	for _, d := range dlist {
		d = d.Clip(dims)
		canvas.DrawRectangle(d.Left, d.Top, d.Right, d.Bottom, 2, boxColor(d))
		if opts.Labels && d.Category != "" {
			label := d.Category
			if d.Score > 0 {
				label = fmt.Sprintf("%s %.2f", d.Category, d.Score)
			}
			canvas.DrawText(vision.RichText{
				Text: label,
				X: vision.Clip(d.Left, 1, canvas.Width-1),
				Y: vision.Clip(d.Top-10, 1, canvas.Height-1),
			})
		}
	}
	if opts.Overlay != "" {
		canvas.DrawText(vision.RichText{Text: opts.Overlay})
	}
	return canvas
}

// RenderFrames renders a stored image sequence against its detections.
func RenderFrames(images []vision.Image, detections [][]vision.Detection, opts RenderOptions) ([]vision.Image, error) {
	if len(images) != len(detections) {
		return nil, fmt.Errorf("inputs have different lengths")
	}
	out := make([]vision.Image, len(images))
	for i := range images {
		out[i] = RenderFrame(images[i], detections[i], opts)
	}
	return out, nil
}
