package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cpi-server/api"
	"cpi-server/api/imagery"
	"cpi-server/logging"
	"cpi-server/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"
)

const DEFAULT_REDUCE_MAX_ATTEMPTS = 3
const DEFAULT_REDUCE_BASE_BACKOFF = 250 * time.Millisecond

// RegionReducer reduces one band of one image over a region through the
// imagery service, retrying failed calls.
type RegionReducer struct {
	imageryAPI  imagery.ImageryAPI
	maxAttempts int
	baseBackoff time.Duration
	log         *zap.Logger
}

func NewRegionReducer(imageryAPI imagery.ImageryAPI, maxAttempts int, baseBackoff time.Duration) *RegionReducer {
	if maxAttempts < 1 {
		maxAttempts = DEFAULT_REDUCE_MAX_ATTEMPTS
	}
	if baseBackoff < 0 {
		baseBackoff = DEFAULT_REDUCE_BASE_BACKOFF
	}
	return &RegionReducer{
		imageryAPI:  imageryAPI,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		log:         logging.Named("RegionReducer"),
	}
}

// Reduce returns the region's geodesic area together with mean and stdDev of
// band. Area is filled in even when the service reports no valid pixels.
// An empty region is answered locally with area 0. kind is passed through to
// the imagery service and labels log lines and errors.
func (rr *RegionReducer) Reduce(ctx context.Context, kind imagery.RegionKind, region orb.Geometry, imageID, band string, scale float64) (models.RegionStats, error) {
	area := regionArea(region)
	if area == 0 {
		return models.EmptyRegionStats(0), nil
	}

	req := imagery.ReduceRequest{ImageID: imageID, Kind: kind, Region: region, Band: band, Scale: scale}

	var lastErr error
	wait := rr.baseBackoff
	for attempt := 1; attempt <= rr.maxAttempts; attempt++ {
		resp, err := rr.imageryAPI.ReduceRegion(ctx, req)
		if err == nil {
			mean, stdDev := resp.Band(band)
			return models.RegionStats{Area: area, Mean: mean, StdDev: stdDev}, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.RegionStats{}, ctxErr
		}
		if !retryable(err) {
			break
		}

		rr.log.Warn("Reduce failed",
			zap.String("image_id", imageID),
			zap.String("region", string(kind)),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == rr.maxAttempts {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return models.RegionStats{}, ctx.Err()
		}
		wait *= 2
	}

	return models.RegionStats{}, fmt.Errorf("%w: reduce %s (%s): %v",
		models.ErrExternalService, imageID, kind, lastErr)
}

// retryable treats client-side HTTP errors as permanent and anything else as
// worth another attempt.
func retryable(err error) bool {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

func regionArea(region orb.Geometry) float64 {
	if region == nil {
		return 0
	}
	switch g := region.(type) {
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 4 {
			return 0
		}
	case orb.MultiPolygon:
		if len(g) == 0 {
			return 0
		}
	}
	return geo.Area(region)
}
