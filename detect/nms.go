package detect

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/mitroadmaps/gomapinfer/common"

	"github.com/vistream/vistream/vision"
)

func detectionRect(d vision.Detection) common.Rectangle {
	return common.Rectangle{
		Min: common.Point{X: float64(d.Left), Y: float64(d.Top)},
		Max: common.Point{X: float64(d.Right), Y: float64(d.Bottom)},
	}
}

type nmsEntry struct {
	rect *rtreego.Rect
	idx int
}

func (e nmsEntry) Bounds() *rtreego.Rect {
	return e.rect
}

func nmsRect(d vision.Detection) *rtreego.Rect {
	// rtreego needs strictly positive lengths
	width := float64(d.Right - d.Left)
	height := float64(d.Bottom - d.Top)
	if width <= 0 {
		width = 0.001
	}
	if height <= 0 {
		height = 0.001
	}
	rect, err := rtreego.NewRect(rtreego.Point{float64(d.Left), float64(d.Top)}, []float64{width, height})
	if err != nil {
		panic(err)
	}
	return rect
}

// NMS performs greedy non-maximum suppression over one frame of detections:
// boxes are visited in decreasing score order, and a box is dropped if it
// overlaps an already kept box of the same category with IOU above the
// threshold. Candidate overlaps are found through an r-tree over the boxes.
func NMS(dlist []vision.Detection, iouThreshold float64) []vision.Detection {
	if len(dlist) == 0 {
		return nil
	}

	tree := rtreego.NewTree(2, 2, 25)
	for i, d := range dlist {
		tree.Insert(nmsEntry{nmsRect(d), i})
	}

	order := make([]int, len(dlist))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dlist[order[a]].Score > dlist[order[b]].Score
	})

	kept := make([]bool, len(dlist))
	suppressed := make([]bool, len(dlist))
	for _, idx := range order {
		if suppressed[idx] {
			continue
		}
		kept[idx] = true
		d := dlist[idx]
		for _, spatial := range tree.SearchIntersect(nmsRect(d)) {
			other := spatial.(nmsEntry).idx
			if other == idx || kept[other] || suppressed[other] {
				continue
			}
			if dlist[other].Category != d.Category {
				continue
			}
			if detectionRect(d).IOU(detectionRect(dlist[other])) > iouThreshold {
				suppressed[other] = true
			}
		}
	}

	var out []vision.Detection
	for i, d := range dlist {
		if kept[i] {
			out = append(out, d)
		}
	}
	return out
}

// NMSFrames applies NMS independently to every frame.
func NMSFrames(detections [][]vision.Detection, iouThreshold float64) [][]vision.Detection {
	out := make([][]vision.Detection, len(detections))
	for i, dlist := range detections {
		out[i] = NMS(dlist, iouThreshold)
	}
	return out
}
