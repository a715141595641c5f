package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistream/vistream/vision"
)

func setupTest(t *testing.T) {
	Config.DataDir = t.TempDir()
	vision.ItemDir = filepath.Join(Config.DataDir, "items")
	InitDB()
}

func TestItemUpsert(t *testing.T) {
	setupTest(t)
	ds := NewDataset("frames", "source", vision.ImageType)
	require.NotNil(t, ds)

	item := ds.AddItem("0001", "jpg", "jpeg", "")
	require.NotNil(t, item)

	// re-adding the same key replaces the row instead of duplicating it
	updated := ds.AddItem("0001", "png", "png", `{"CanvasDims":[4,4]}`)
	require.NotNil(t, updated)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, "png", updated.Ext)
	assert.Equal(t, "png", updated.Format)

	items := ds.ListItems()
	require.Len(t, items, 1)
	assert.Equal(t, "0001", items[0].Key)
	assert.Equal(t, "png", items[0].Ext)

	// a different key is a separate item
	ds.AddItem("0002", "jpg", "jpeg", "")
	assert.Len(t, ds.ListItems(), 2)
}

func TestDatasetDeleteScoped(t *testing.T) {
	setupTest(t)
	ds1 := NewDataset("keep", "source", vision.ImageType)
	ds2 := NewDataset("drop", "source", vision.ImageType)
	ds1.AddItem("a", "jpg", "jpeg", "")
	ds2.AddItem("b", "jpg", "jpeg", "")

	ds2.Delete()

	assert.Nil(t, GetDataset(ds2.ID))
	require.NotNil(t, GetDataset(ds1.ID))
	assert.Len(t, ds1.ListItems(), 1)
}

func TestWriteItemRoundtrip(t *testing.T) {
	setupTest(t)
	ds := NewDataset("detections", "computed", vision.DetectionType)
	data := vision.DetectionData{
		Detections: [][]vision.Detection{
			{{Left: 1, Top: 2, Right: 3, Bottom: 4, Category: "car", Score: 0.7}},
		},
		Metadata: vision.DetectionMetadata{CanvasDims: [2]int{32, 32}},
	}
	item := ds.WriteItem("frame0", data)
	require.NotNil(t, item)

	loaded, err := item.LoadData()
	require.NoError(t, err)
	got := loaded.(vision.DetectionData)
	require.Len(t, got.Detections, 1)
	assert.Equal(t, "car", got.Detections[0][0].Category)
	assert.Equal(t, [2]int{32, 32}, got.Metadata.CanvasDims)
}
