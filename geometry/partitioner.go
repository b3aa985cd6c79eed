// Package geometry derives the inner/outer split of a center pivot field from
// its bounding rectangle.
package geometry

import (
	"math"
	"sort"

	"cpi-server/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

const (
	// RadiusDivisor turns a rectangle perimeter into the pivot disk radius.
	// Calibrated empirically; changing it changes every published result.
	RadiusDivisor = 7.9

	// SimplifyTolerance is the largest distance, in coordinate units, the
	// polygonal disk may deviate from the true circle.
	SimplifyTolerance = 0.05

	MinVertices = 64
	MaxVertices = 1024
)

// Partition is the inner disk / outer remainder split of a bounding box.
type Partition struct {
	Bounds   models.BoundingBox
	Center   orb.Point
	Radius   float64
	Vertices int

	// Disk is the full polygonal disk before clipping to Bounds.
	Disk  orb.Polygon
	Inner orb.Polygon
	Outer orb.MultiPolygon
}

// InnerArea is the geodesic area of the inner region in square meters.
func (p *Partition) InnerArea() float64 {
	if len(p.Inner) == 0 {
		return 0
	}
	return geo.Area(p.Inner)
}

// OuterArea is the geodesic area of the outer region in square meters.
func (p *Partition) OuterArea() float64 {
	if len(p.Outer) == 0 {
		return 0
	}
	return geo.Area(p.Outer)
}

// PlanarAreas returns inner and outer areas in squared coordinate units.
func (p *Partition) PlanarAreas() (inner, outer float64) {
	if len(p.Inner) > 0 {
		inner = planar.Area(p.Inner)
	}
	for _, poly := range p.Outer {
		outer += planar.Area(poly)
	}
	return inner, outer
}

// Partitioner builds partitions. The zero value is not usable; use
// NewPartitioner.
type Partitioner struct {
	Tolerance   float64
	MinVertices int
	MaxVertices int
}

func NewPartitioner() *Partitioner {
	return &Partitioner{
		Tolerance:   SimplifyTolerance,
		MinVertices: MinVertices,
		MaxVertices: MaxVertices,
	}
}

// Partition splits bbox into a disk centered at its centroid with radius
// perimeter/RadiusDivisor (clipped to the box) and the rest of the box.
// An outer region that vanishes because the disk covers the whole box is
// returned as an empty MultiPolygon, not as an error.
func (pt *Partitioner) Partition(bbox models.BoundingBox) (*Partition, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	center := bbox.Centroid()
	radius := bbox.Perimeter() / RadiusDivisor
	n := pt.vertexCount(radius)
	disk := orb.Polygon{circleRing(center, radius, n)}

	bound := bbox.Bound()
	inner := clip.Polygon(bound, orb.Polygon{cloneRing(disk[0])})
	if len(inner) > 0 {
		inner = orb.Polygon{normalizeRing(inner[0])}
	}

	return &Partition{
		Bounds:   bbox,
		Center:   center,
		Radius:   radius,
		Vertices: n,
		Disk:     disk,
		Inner:    inner,
		Outer:    subtractConvex(bbox, inner),
	}, nil
}

// vertexCount picks the smallest n whose chord sagitta r(1-cos(pi/n)) stays
// within the tolerance, bounded to [MinVertices, MaxVertices].
func (pt *Partitioner) vertexCount(radius float64) int {
	n := pt.MinVertices
	if pt.Tolerance > 0 && pt.Tolerance < radius {
		needed := int(math.Ceil(math.Pi / math.Acos(1-pt.Tolerance/radius)))
		if needed > n {
			n = needed
		}
	}
	if pt.MaxVertices > 0 && n > pt.MaxVertices {
		n = pt.MaxVertices
	}
	return n
}

// circleRing returns a closed counter-clockwise ring with n distinct vertices.
func circleRing(center orb.Point, radius float64, n int) orb.Ring {
	ring := make(orb.Ring, 0, n+1)
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}
	return append(ring, ring[0])
}

func cloneRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	copy(out, r)
	return out
}

// normalizeRing drops consecutive duplicates, closes the ring and makes it
// counter-clockwise.
func normalizeRing(r orb.Ring) orb.Ring {
	pts := openRing(r)
	if len(pts) == 0 {
		return nil
	}
	out := append(orb.Ring{}, pts...)
	out = append(out, pts[0])
	if out.Orientation() == orb.CW {
		out.Reverse()
	}
	return out
}

// openRing returns the distinct vertices of r without the closing point.
func openRing(r orb.Ring) []orb.Point {
	pts := make([]orb.Point, 0, len(r))
	for _, p := range r {
		if len(pts) > 0 && pts[len(pts)-1].Equal(p) {
			continue
		}
		pts = append(pts, p)
	}
	for len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// boxRing is the closed counter-clockwise ring of the bounding box.
func boxRing(b models.BoundingBox) orb.Ring {
	return orb.Ring{
		{b.XMin, b.YMin},
		{b.XMax, b.YMin},
		{b.XMax, b.YMax},
		{b.XMin, b.YMax},
		{b.XMin, b.YMin},
	}
}

// subtractConvex computes box minus q, where q is a convex polygon already
// clipped to the box.
func subtractConvex(b models.BoundingBox, q orb.Polygon) orb.MultiPolygon {
	if len(q) == 0 {
		return orb.MultiPolygon{{boxRing(b)}}
	}
	pts := openRing(q[0])
	n := len(pts)
	if n < 3 {
		return orb.MultiPolygon{{boxRing(b)}}
	}

	e := newBoxEdges(b)
	onBoundary := make([]bool, n)
	boundaryEdges := 0
	for i := range pts {
		onBoundary[i] = e.side(pts[i]) != 0
	}
	edgeOnBox := make([]bool, n)
	for i := range pts {
		j := (i + 1) % n
		edgeOnBox[i] = e.side(pts[i])&e.side(pts[j]) != 0
		if edgeOnBox[i] {
			boundaryEdges++
		}
	}

	switch {
	case boundaryEdges == n:
		return orb.MultiPolygon{}
	case boundaryEdges == 0:
		hole := append(orb.Ring{}, pts...)
		hole = append(hole, pts[0])
		if hole.Orientation() == orb.CCW {
			hole.Reverse()
		}
		return orb.MultiPolygon{{boxRing(b), hole}}
	}

	// Start from a vertex on the box that begins an interior run.
	start := -1
	for i := 0; i < n; i++ {
		if onBoundary[i] && !edgeOnBox[i] {
			start = i
			break
		}
	}
	if start < 0 {
		return orb.MultiPolygon{}
	}

	out := orb.MultiPolygon{}
	for k := 0; k < n; {
		i := (start + k) % n
		if !onBoundary[i] || edgeOnBox[i] {
			k++
			continue
		}
		// Walk the interior run A..B along q.
		chain := orb.Ring{pts[i]}
		steps := 0
		j := i
		for {
			j = (j + 1) % n
			steps++
			chain = append(chain, pts[j])
			if onBoundary[j] || steps >= n {
				break
			}
		}
		k += steps

		// Close it by walking the box clockwise from B back to A.
		chain = append(chain, e.cornersClockwise(pts[j], pts[i])...)
		if len(chain) < 3 {
			continue
		}
		chain = append(chain, chain[0])
		if chain.Orientation() == orb.CW {
			chain.Reverse()
		}
		out = append(out, orb.Polygon{chain})
	}
	return out
}

// boxEdges classifies points against the sides of a bounding box and
// parametrizes its boundary counter-clockwise from (xmin, ymin).
type boxEdges struct {
	b   models.BoundingBox
	eps float64
}

const (
	sideBottom = 1 << iota
	sideRight
	sideTop
	sideLeft
)

// Clipped vertices sit exactly on the box sides, so eps only absorbs
// rounding in position arithmetic. It scales with the box, not with the
// coordinates, or interior vertices of sub-metre boxes read as boundary.
func newBoxEdges(b models.BoundingBox) boxEdges {
	return boxEdges{b: b, eps: 1e-9 * math.Min(b.Width(), b.Height())}
}

func (e boxEdges) side(p orb.Point) int {
	s := 0
	if math.Abs(p[1]-e.b.YMin) <= e.eps {
		s |= sideBottom
	}
	if math.Abs(p[0]-e.b.XMax) <= e.eps {
		s |= sideRight
	}
	if math.Abs(p[1]-e.b.YMax) <= e.eps {
		s |= sideTop
	}
	if math.Abs(p[0]-e.b.XMin) <= e.eps {
		s |= sideLeft
	}
	return s
}

func (e boxEdges) perimeter() float64 {
	return 2 * (e.b.Width() + e.b.Height())
}

// position is the counter-clockwise arc length of a boundary point.
func (e boxEdges) position(p orb.Point) float64 {
	w, h := e.b.Width(), e.b.Height()
	s := e.side(p)
	switch {
	case s&sideBottom != 0:
		return p[0] - e.b.XMin
	case s&sideRight != 0:
		return w + (p[1] - e.b.YMin)
	case s&sideTop != 0:
		return w + h + (e.b.XMax - p[0])
	default:
		return 2*w + h + (e.b.YMax - p[1])
	}
}

// cornersClockwise lists the box corners strictly between from and to when
// walking the boundary clockwise.
func (e boxEdges) cornersClockwise(from, to orb.Point) []orb.Point {
	per := e.perimeter()
	sFrom := e.position(from)
	span := math.Mod(sFrom-e.position(to)+per, per)

	type corner struct {
		p    orb.Point
		dist float64
	}
	corners := []orb.Point{
		{e.b.XMin, e.b.YMin},
		{e.b.XMax, e.b.YMin},
		{e.b.XMax, e.b.YMax},
		{e.b.XMin, e.b.YMax},
	}
	var found []corner
	for _, c := range corners {
		d := math.Mod(sFrom-e.position(c)+per, per)
		if d > e.eps && d < span-e.eps {
			found = append(found, corner{p: c, dist: d})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })

	out := make([]orb.Point, len(found))
	for i, c := range found {
		out[i] = c.p
	}
	return out
}
