package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vistream/vistream/vision"
)

func TestFilterScore(t *testing.T) {
	f := NewFilter(FilterParams{Score: 0.5})
	out := f.FilterFrame([]vision.Detection{
		{Category: "person", Score: 0.9},
		{Category: "person", Score: 0.3},
	})
	assert.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].Score)
}

func TestFilterCategories(t *testing.T) {
	f := NewFilter(FilterParams{Categories: []string{"person", "bicycle"}})
	out := f.FilterFrame([]vision.Detection{
		{Category: "person", Score: 0.9},
		{Category: "car", Score: 0.9},
		{Category: "bicycle", Score: 0.2},
	})
	assert.Len(t, out, 2)
	assert.Equal(t, "person", out[0].Category)
	assert.Equal(t, "bicycle", out[1].Category)
}

func TestFilterNoParamsKeepsAll(t *testing.T) {
	f := NewFilter(FilterParams{})
	out := f.FilterFrame([]vision.Detection{
		{Category: "person", Score: 0.01},
		{Category: "car"},
	})
	assert.Len(t, out, 2)
}

func TestFilterFrames(t *testing.T) {
	f := NewFilter(FilterParams{Score: 0.5})
	out := f.FilterFrames([][]vision.Detection{
		{{Score: 0.6}, {Score: 0.4}},
		{{Score: 0.1}},
	})
	assert.Len(t, out, 2)
	assert.Len(t, out[0], 1)
	assert.Empty(t, out[1])
	// empty frames stay non-nil so frame counts are preserved on encode
	assert.NotNil(t, out[1])
}
