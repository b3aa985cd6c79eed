package models

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is an axis-aligned extent in degrees.
type BoundingBox struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// Validate rejects boxes that are not strictly ordered on both axes.
// Violations are reported as ErrInvalidGeometry, never silently corrected.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.XMin, b.XMax, b.YMin, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bounding box has a non-finite coordinate", ErrInvalidGeometry)
		}
	}
	if b.XMin >= b.XMax {
		return fmt.Errorf("%w: xmin (%v) must be less than xmax (%v)", ErrInvalidGeometry, b.XMin, b.XMax)
	}
	if b.YMin >= b.YMax {
		return fmt.Errorf("%w: ymin (%v) must be less than ymax (%v)", ErrInvalidGeometry, b.YMin, b.YMax)
	}
	return nil
}

func (b BoundingBox) Width() float64  { return b.XMax - b.XMin }
func (b BoundingBox) Height() float64 { return b.YMax - b.YMin }

// Centroid returns the center of the box as an orb point (x, y).
func (b BoundingBox) Centroid() orb.Point {
	return orb.Point{(b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2}
}

// Perimeter is 2 * (width + height), in coordinate units.
func (b BoundingBox) Perimeter() float64 {
	return 2 * (b.Width() + b.Height())
}

// Area is the planar area in squared coordinate units.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.XMin, b.YMin},
		Max: orb.Point{b.XMax, b.YMax},
	}
}

// BoundingBoxFromBound converts an orb envelope into a BoundingBox.
func BoundingBoxFromBound(bound orb.Bound) BoundingBox {
	return BoundingBox{
		XMin: bound.Min[0],
		XMax: bound.Max[0],
		YMin: bound.Min[1],
		YMax: bound.Max[1],
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox(xmin=%f, xmax=%f, ymin=%f, ymax=%f)", b.XMin, b.XMax, b.YMin, b.YMax)
}
