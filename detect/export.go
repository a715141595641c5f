package detect

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/vistream/vistream/vision"
)

// ExportGeoJSON converts a detection sequence into a FeatureCollection with
// one polygon feature per box. Coordinates are in pixel space of the
// detection canvas.
func ExportGeoJSON(data vision.DetectionData) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for frameIdx, dlist := range data.Detections {
		for _, d := range dlist {
			d = d.Clip(data.Metadata.CanvasDims)
			coordinates := [][]float64{
				{float64(d.Left), float64(d.Top)},
				{float64(d.Right), float64(d.Top)},
				{float64(d.Right), float64(d.Bottom)},
				{float64(d.Left), float64(d.Bottom)},
				{float64(d.Left), float64(d.Top)},
			}
			feature := geojson.NewFeature(geojson.NewPolygonGeometry([][][]float64{coordinates}))
			feature.SetProperty("frame", frameIdx)
			if d.Category != "" {
				feature.SetProperty("category", d.Category)
			}
			if d.Score > 0 {
				feature.SetProperty("score", d.Score)
			}
			if d.TrackID > 0 {
				feature.SetProperty("track", d.TrackID)
			}
			fc.AddFeature(feature)
		}
	}
	return fc
}
