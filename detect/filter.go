package detect

import (
	"github.com/vistream/vistream/vision"
)

type FilterParams struct {
	Categories []string
	Score float64
}

// Filter drops detections below a score threshold or outside a category
// whitelist. An empty whitelist admits every category.
type Filter struct {
	Params FilterParams
	categories map[string]bool
}

func NewFilter(params FilterParams) *Filter {
	var categories map[string]bool
	if len(params.Categories) > 0 {
		categories = make(map[string]bool)
		for _, category := range params.Categories {
			categories[category] = true
		}
	}
	return &Filter{
		Params: params,
		categories: categories,
	}
}

func (f *Filter) FilterFrame(dlist []vision.Detection) []vision.Detection {
	out := []vision.Detection{}
	for _, d := range dlist {
		if f.Params.Score > 0 && d.Score < f.Params.Score {
			continue
		} else if len(f.categories) > 0 && !f.categories[d.Category] {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (f *Filter) FilterFrames(detections [][]vision.Detection) [][]vision.Detection {
	out := make([][]vision.Detection, len(detections))
	for i, dlist := range detections {
		out[i] = f.FilterFrame(dlist)
	}
	return out
}
