package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cpi-server/config"
	"cpi-server/dao/redis"
	"cpi-server/db"
	"cpi-server/geometry"
	"cpi-server/logging"
	"cpi-server/models"

	"go.uber.org/zap"
)

// CpiRequest is one CPI computation. Empty Collection/Band and a zero Scale
// take the service defaults; "default" is an alias for the default collection.
type CpiRequest struct {
	BBox         models.BoundingBox
	Begin        string
	End          string
	CollectionID string
	Band         string
	Scale        float64
}

// CpiDefaults are the fallbacks applied to a CpiRequest.
type CpiDefaults struct {
	CollectionID string
	Band         string
	Scale        float64
}

func DefaultCpiDefaults() CpiDefaults {
	return CpiDefaults{
		CollectionID: config.DEFAULT_COLLECTION,
		Band:         config.DEFAULT_BAND,
		Scale:        config.DEFAULT_SCALE,
	}
}

// Aggregator is the collection fan-out the service drives.
type Aggregator interface {
	Aggregate(ctx context.Context, req AggregateRequest) ([]models.RawResult, error)
}

// CpiService is the single entry point for CPI computations: it validates the
// request, partitions the box, aggregates the collection and normalizes the
// result.
type CpiService struct {
	partitioner *geometry.Partitioner
	aggregator  Aggregator
	catalog     *PlotCatalog
	cpiDao      *redis.RedisCpiDAO
	cacheTTL    time.Duration
	defaults    CpiDefaults
	now         func() time.Time
	log         *zap.Logger
}

// NewCpiService wires the pipeline. catalog and cpiDao may be nil, which
// disables plot lookups and result caching respectively.
func NewCpiService(
	partitioner *geometry.Partitioner,
	aggregator Aggregator,
	catalog *PlotCatalog,
	cpiDao *redis.RedisCpiDAO,
	cacheTTL time.Duration,
	defaults CpiDefaults) *CpiService {

	return &CpiService{
		partitioner: partitioner,
		aggregator:  aggregator,
		catalog:     catalog,
		cpiDao:      cpiDao,
		cacheTTL:    cacheTTL,
		defaults:    defaults,
		now:         time.Now,
		log:         logging.Named("CpiService"),
	}
}

// ComputeCPI computes the inner/outer statistics time series for a box.
func (cs *CpiService) ComputeCPI(ctx context.Context, req CpiRequest) (*models.CpiResult, error) {
	req, err := cs.withDefaults(req)
	if err != nil {
		return nil, err
	}
	begin, end, err := parseDateRange(req.Begin, req.End)
	if err != nil {
		return nil, err
	}
	if err := req.BBox.Validate(); err != nil {
		return nil, err
	}

	key := redis.CpiCacheKey{
		CollectionID: req.CollectionID,
		Band:         req.Band,
		Scale:        req.Scale,
		BBox:         req.BBox,
		Begin:        req.Begin,
		End:          req.End,
	}
	if cached := cs.cached(ctx, key); cached != nil {
		return cached, nil
	}

	partition, err := cs.partitioner.Partition(req.BBox)
	if err != nil {
		return nil, err
	}

	raws, err := cs.aggregator.Aggregate(ctx, AggregateRequest{
		CollectionID: req.CollectionID,
		Bounds:       req.BBox,
		Begin:        begin,
		End:          end,
		Inner:        partition.Inner,
		Outer:        partition.Outer,
		Band:         req.Band,
		Scale:        req.Scale,
	})
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	records, err := NormalizeAll(raws)
	if err != nil {
		return nil, err
	}
	if ctxErr := contextError(ctx); ctxErr != nil {
		return nil, ctxErr
	}

	result := models.NewCpiResult(req.Begin, req.End, records)
	cs.log.Info("Computed CPI",
		zap.String("bbox", req.BBox.String()),
		zap.String("begin", req.Begin),
		zap.String("end", req.End),
		zap.Int("count", result.Count))

	cs.store(ctx, key, end, result)
	return result, nil
}

// ComputeCPIForPlot resolves a catalog plot and computes CPI over its
// bounding box. Any BBox already set on req is ignored.
func (cs *CpiService) ComputeCPIForPlot(ctx context.Context, plotID string, req CpiRequest) (*models.CpiResult, error) {
	if cs.catalog == nil {
		return nil, fmt.Errorf("%w: no plot catalog loaded", models.ErrNotFound)
	}
	plot, err := cs.catalog.Lookup(plotID)
	if err != nil {
		return nil, err
	}
	req.BBox = plot.Bounds
	return cs.ComputeCPI(ctx, req)
}

func (cs *CpiService) withDefaults(req CpiRequest) (CpiRequest, error) {
	if req.CollectionID == "" || req.CollectionID == config.DEFAULT_COLLECTION_ALIAS {
		req.CollectionID = cs.defaults.CollectionID
	}
	if req.Band == "" {
		req.Band = cs.defaults.Band
	}
	if req.Scale == 0 {
		req.Scale = cs.defaults.Scale
	}
	if req.Scale < 0 || math.IsNaN(req.Scale) || math.IsInf(req.Scale, 0) {
		return req, fmt.Errorf("%w: scale must be a positive number, got %v", models.ErrInvalidInput, req.Scale)
	}
	return req, nil
}

// parseDateRange parses two YYYY-MM-DD days and checks begin <= end.
func parseDateRange(beginStr, endStr string) (time.Time, time.Time, error) {
	begin, err := time.Parse(config.DATE_LAYOUT, beginStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: begin %q is not a YYYY-MM-DD date", models.ErrInvalidInput, beginStr)
	}
	end, err := time.Parse(config.DATE_LAYOUT, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q is not a YYYY-MM-DD date", models.ErrInvalidInput, endStr)
	}
	if begin.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: begin %s is after end %s", models.ErrInvalidInput, beginStr, endStr)
	}
	return begin, end, nil
}

func (cs *CpiService) cached(ctx context.Context, key redis.CpiCacheKey) *models.CpiResult {
	if cs.cpiDao == nil {
		return nil
	}
	result, err := cs.cpiDao.GetCpiResult(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrCacheMiss) {
			cs.log.Warn("Cache read failed", zap.String("key", key.String()), zap.Error(err))
		}
		return nil
	}
	cs.log.Debug("Cache hit", zap.String("key", key.String()))
	return result
}

// store caches results whose range ended before today. Later ranges may
// still receive images.
func (cs *CpiService) store(ctx context.Context, key redis.CpiCacheKey, end time.Time, result *models.CpiResult) {
	if cs.cpiDao == nil {
		return
	}
	if !end.Before(truncateDay(cs.now())) {
		return
	}
	if err := cs.cpiDao.SetCpiResult(ctx, key, result, cs.cacheTTL); err != nil {
		cs.log.Warn("Cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}
