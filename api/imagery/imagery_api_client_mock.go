package imagery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cpi-server/models"
	"cpi-server/util"
)

// ImageryApiClientMock serves a canned fixture with the same filtering rules as
// the real service. Requests of kind RegionInner get the fixture's inner
// statistics, everything else the outer ones.
type ImageryApiClientMock struct {
	fixture *models.ImageryFixture

	// Failure injection, set before use.
	ListErr    error
	FailImages map[string]bool
	FailOuter  map[string]bool
	Transient  map[string]int
	Delays     map[string]time.Duration

	mu          sync.Mutex
	failedSoFar map[string]int
	reduceCalls int64
}

// NewImageryApiClientMock creates a mock backed by an in-memory fixture.
func NewImageryApiClientMock(fixture *models.ImageryFixture) *ImageryApiClientMock {
	if fixture == nil {
		fixture = &models.ImageryFixture{}
	}
	return &ImageryApiClientMock{
		fixture:     fixture,
		failedSoFar: map[string]int{},
	}
}

// NewImageryApiClientMockFromFile loads the fixture from a JSON resource.
func NewImageryApiClientMockFromFile(path string) (*ImageryApiClientMock, error) {
	fixture, err := util.ReadImageryFixtureFromJSON(path)
	if err != nil {
		return nil, err
	}
	return NewImageryApiClientMock(fixture), nil
}

func (c *ImageryApiClientMock) ListImages(ctx context.Context, collectionID string, bounds models.BoundingBox, start, endExclusive time.Time) ([]models.ImageObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.ListErr != nil {
		return nil, c.ListErr
	}

	images, ok := c.fixture.Collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collectionID)
	}

	from, to := start.UnixMilli(), endExclusive.UnixMilli()
	out := []models.ImageObservation{}
	for _, img := range images {
		if img.Timestamp < from || img.Timestamp >= to {
			continue
		}
		if img.Footprint != nil && !img.Footprint.Intersects(bounds) {
			continue
		}
		out = append(out, models.ImageObservation{ID: img.ID, Timestamp: img.Timestamp})
	}
	return out, nil
}

func (c *ImageryApiClientMock) ReduceRegion(ctx context.Context, req ReduceRequest) (*ReduceResponse, error) {
	atomic.AddInt64(&c.reduceCalls, 1)

	if d := c.Delays[req.ImageID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	isInner := req.Kind == RegionInner
	if c.FailImages[req.ImageID] || (!isInner && c.FailOuter[req.ImageID]) {
		return nil, fmt.Errorf("reduce %s: backend unavailable", req.ImageID)
	}
	if c.failTransient(req.ImageID) {
		return nil, fmt.Errorf("reduce %s: transient failure", req.ImageID)
	}

	img, ok := c.findImage(req.ImageID)
	if !ok {
		return nil, fmt.Errorf("image %q not found", req.ImageID)
	}

	stats := img.Outer
	if isInner {
		stats = img.Inner
	}
	return &ReduceResponse{
		Mean:   map[string]*float64{req.Band: stats.Mean},
		StdDev: map[string]*float64{req.Band: stats.StdDev},
	}, nil
}

// ReduceCalls returns how many reductions were requested so far.
func (c *ImageryApiClientMock) ReduceCalls() int {
	return int(atomic.LoadInt64(&c.reduceCalls))
}

func (c *ImageryApiClientMock) failTransient(imageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failedSoFar[imageID] < c.Transient[imageID] {
		c.failedSoFar[imageID]++
		return true
	}
	return false
}

func (c *ImageryApiClientMock) findImage(imageID string) (models.FixtureImage, bool) {
	for _, images := range c.fixture.Collections {
		for _, img := range images {
			if img.ID == imageID {
				return img, true
			}
		}
	}
	return models.FixtureImage{}, false
}
