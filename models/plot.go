package models

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Plot is a known field polygon from the static GeoJSON catalog.
type Plot struct {
	ID        string      `json:"id"`
	Bounds    BoundingBox `json:"bounds"`
	CenterLat float64     `json:"center_lat"`
	CenterLon float64     `json:"center_lon"`

	Properties geojson.Properties `json:"properties,omitempty"`
}

// NewPlotFromFeature derives a Plot from a catalog feature, using the
// coordinate envelope of its geometry as the bounding box.
func NewPlotFromFeature(id string, f *geojson.Feature) (Plot, error) {
	if f == nil || f.Geometry == nil {
		return Plot{}, fmt.Errorf("%w: plot %s has no geometry", ErrInvalidGeometry, id)
	}
	bound := f.Geometry.Bound()
	bbox := BoundingBoxFromBound(bound)
	center := bound.Center()
	return Plot{
		ID:         id,
		Bounds:     bbox,
		CenterLat:  center[1],
		CenterLon:  center[0],
		Properties: f.Properties,
	}, nil
}

func (p *Plot) ToString() string {
	return fmt.Sprintf("Plot(id=%s, lat=%f, lon=%f, %s)", p.ID, p.CenterLat, p.CenterLon, p.Bounds.String())
}
