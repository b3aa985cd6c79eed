package imagery

import (
	"context"
	"time"

	"cpi-server/models"

	"github.com/paulmach/orb"
)

// Reducer names understood by the imagery service.
const (
	ReducerMean   = "mean"
	ReducerStdDev = "stdDev"
)

// ImageryAPI defines the interface for interacting with the remote imagery
// service that owns the rasters.
type ImageryAPI interface {
	// ListImages returns the images of a collection whose footprint
	// intersects bounds and whose timestamp is in [start, endExclusive).
	ListImages(ctx context.Context, collectionID string, bounds models.BoundingBox, start, endExclusive time.Time) ([]models.ImageObservation, error)
	ReduceRegion(ctx context.Context, req ReduceRequest) (*ReduceResponse, error)
}

// RegionKind labels which side of a partition a region is.
type RegionKind string

const (
	RegionInner RegionKind = "inner"
	RegionOuter RegionKind = "outer"
)

// ReduceRequest asks for mean and standard deviation of one band of one image
// over a region, sampled at Scale meters per pixel.
type ReduceRequest struct {
	ImageID string
	Kind    RegionKind
	Region  orb.Geometry
	Band    string
	Scale   float64
}

// ReduceResponse maps band name to value per reducer. A nil value or a missing
// band means the region had no valid pixels.
type ReduceResponse struct {
	Mean   map[string]*float64 `json:"mean"`
	StdDev map[string]*float64 `json:"stdDev"`
}

// Band extracts the mean and standard deviation of one band.
func (r *ReduceResponse) Band(band string) (mean, stdDev *float64) {
	if r == nil {
		return nil, nil
	}
	return r.Mean[band], r.StdDev[band]
}
