package models

// ImageryFixture is a canned imagery catalog used for offline runs and tests.
type ImageryFixture struct {
	Collections map[string][]FixtureImage `json:"collections"`
}

// FixtureImage is one image of a fixture collection with the statistics the
// mock service reports for each region kind. A nil footprint covers the globe.
type FixtureImage struct {
	ID        string       `json:"id"`
	Timestamp int64        `json:"system:time_start"`
	Footprint *BoundingBox `json:"footprint,omitempty"`
	Inner     FixtureStats `json:"inner"`
	Outer     FixtureStats `json:"outer"`
}

// FixtureStats are band statistics; nil means no valid pixels.
type FixtureStats struct {
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"stdDev"`
}

// Intersects reports whether two boxes overlap, edges included.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.XMin <= o.XMax && o.XMin <= b.XMax && b.YMin <= o.YMax && o.YMin <= b.YMax
}
