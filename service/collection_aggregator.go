package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cpi-server/api/imagery"
	"cpi-server/logging"
	"cpi-server/models"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DEFAULT_MAX_CONCURRENCY = 8

// Reducer is the per-region reduction the aggregator fans out to.
type Reducer interface {
	Reduce(ctx context.Context, kind imagery.RegionKind, region orb.Geometry, imageID, band string, scale float64) (models.RegionStats, error)
}

// AggregateRequest selects a collection window and the two regions to reduce.
// Begin and End are calendar days; End is inclusive.
type AggregateRequest struct {
	CollectionID string
	Bounds       models.BoundingBox
	Begin        time.Time
	End          time.Time
	Inner        orb.Polygon
	Outer        orb.MultiPolygon
	Band         string
	Scale        float64
}

// Window returns the half-open instant range [Begin 00:00Z, End+1d 00:00Z).
func (r AggregateRequest) Window() (time.Time, time.Time) {
	begin := truncateDay(r.Begin)
	return begin, truncateDay(r.End).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CollectionAggregator reduces every image of a filtered collection over the
// inner and outer regions with bounded concurrency.
type CollectionAggregator struct {
	imageryAPI     imagery.ImageryAPI
	reducer        Reducer
	maxConcurrency int
	log            *zap.Logger
}

func NewCollectionAggregator(imageryAPI imagery.ImageryAPI, reducer Reducer, maxConcurrency int) *CollectionAggregator {
	if maxConcurrency < 1 {
		maxConcurrency = DEFAULT_MAX_CONCURRENCY
	}
	return &CollectionAggregator{
		imageryAPI:     imageryAPI,
		reducer:        reducer,
		maxConcurrency: maxConcurrency,
		log:            logging.Named("CollectionAggregator"),
	}
}

// Aggregate returns one RawResult per image that could be reduced on at least
// one side, sorted by timestamp then image id. Images failing on both sides
// are dropped; if every listed image fails the call fails with
// ErrExternalService.
func (ca *CollectionAggregator) Aggregate(ctx context.Context, req AggregateRequest) ([]models.RawResult, error) {
	start, endExclusive := req.Window()

	images, err := ca.imageryAPI.ListImages(ctx, req.CollectionID, req.Bounds, start, endExclusive)
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: listing %s: %v", models.ErrExternalService, req.CollectionID, err)
	}
	ca.log.Debug("Listed images",
		zap.String("collection", req.CollectionID),
		zap.Int("count", len(images)))
	if len(images) == 0 {
		return []models.RawResult{}, nil
	}

	slots := make([]*models.RawResult, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ca.maxConcurrency)

	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = ca.reduceImage(gctx, img, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if ctxErr := contextError(ctx); ctxErr != nil {
		return nil, ctxErr
	}

	results := make([]models.RawResult, 0, len(images))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: all %d images failed to reduce", models.ErrExternalService, len(images))
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Timestamp != results[b].Timestamp {
			return results[a].Timestamp < results[b].Timestamp
		}
		return results[a].ImageID < results[b].ImageID
	})
	return results, nil
}

// reduceImage reduces both sides of one image. It returns nil when neither
// side could be reduced.
func (ca *CollectionAggregator) reduceImage(ctx context.Context, img models.ImageObservation, req AggregateRequest) *models.RawResult {
	inner, innerErr := ca.reducer.Reduce(ctx, imagery.RegionInner, req.Inner, img.ID, req.Band, req.Scale)
	outer, outerErr := ca.reducer.Reduce(ctx, imagery.RegionOuter, req.Outer, img.ID, req.Band, req.Scale)

	if ctx.Err() != nil {
		return nil
	}
	if innerErr != nil && outerErr != nil {
		ca.log.Warn("Dropping image, both regions failed",
			zap.String("image_id", img.ID),
			zap.NamedError("inner_error", innerErr),
			zap.NamedError("outer_error", outerErr))
		return nil
	}

	if innerErr != nil {
		ca.log.Warn("Inner region failed, keeping area only", zap.String("image_id", img.ID), zap.Error(innerErr))
		inner = models.EmptyRegionStats(regionArea(req.Inner))
	}
	if outerErr != nil {
		ca.log.Warn("Outer region failed, keeping area only", zap.String("image_id", img.ID), zap.Error(outerErr))
		outer = models.EmptyRegionStats(regionArea(req.Outer))
	}

	return &models.RawResult{
		ImageID:   img.ID,
		Timestamp: img.Timestamp,
		Inner:     &inner,
		Outer:     &outer,
	}
}

// contextError maps a finished context to the error taxonomy.
func contextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	default:
		return err
	}
}
