package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"cpi-server/api/imagery"
	"cpi-server/geometry"
	"cpi-server/models"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "LANDSAT/LE7_L1T_32DAY_EVI"

var testBBox = models.BoundingBox{XMin: -100, XMax: -99.99, YMin: 40, YMax: 40.01}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func millis(s string) int64 {
	return day(s).UnixMilli()
}

// fixtureImages builds n images one day apart starting at 2018-01-01.
func fixtureImages(n int) []models.FixtureImage {
	images := make([]models.FixtureImage, n)
	for i := range images {
		images[i] = models.FixtureImage{
			ID:        fmt.Sprintf("img-%02d", i),
			Timestamp: day("2018-01-01").AddDate(0, 0, i).UnixMilli(),
			Inner:     models.FixtureStats{Mean: models.Float64(0.4 + float64(i)/100), StdDev: models.Float64(0.05)},
			Outer:     models.FixtureStats{Mean: models.Float64(0.2), StdDev: models.Float64(0.07)},
		}
	}
	return images
}

func newTestAggregator(mock *imagery.ImageryApiClientMock, concurrency int) *CollectionAggregator {
	return NewCollectionAggregator(mock, NewRegionReducer(mock, 3, time.Millisecond), concurrency)
}

func aggregateRequest(t *testing.T, begin, end string) AggregateRequest {
	t.Helper()
	p, err := geometry.NewPartitioner().Partition(testBBox)
	require.NoError(t, err)
	return AggregateRequest{
		CollectionID: testCollection,
		Bounds:       testBBox,
		Begin:        day(begin),
		End:          day(end),
		Inner:        p.Inner,
		Outer:        p.Outer,
		Band:         "EVI",
		Scale:        30,
	}
}

func TestAggregate_OneImageAlwaysFailingIsDropped(t *testing.T) {
	// Arrange
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: fixtureImages(5)},
	})
	mock.FailImages = map[string]bool{"img-02": true}
	aggregator := newTestAggregator(mock, 4)

	// Act
	results, err := aggregator.Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NotEqual(t, "img-02", r.ImageID)
		require.NotNil(t, r.Inner)
		require.NotNil(t, r.Outer)
	}
}

func TestAggregate_SortedRegardlessOfCompletionOrder(t *testing.T) {
	images := fixtureImages(6)
	// Reverse the listing order and make earlier images finish last.
	for i, j := 0, len(images)-1; i < j; i, j = i+1, j-1 {
		images[i], images[j] = images[j], images[i]
	}
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: images},
	})
	mock.Delays = map[string]time.Duration{
		"img-00": 40 * time.Millisecond,
		"img-01": 30 * time.Millisecond,
		"img-02": 20 * time.Millisecond,
		"img-03": 10 * time.Millisecond,
	}

	results, err := newTestAggregator(mock, 6).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.True(t, sort.SliceIsSorted(results, func(a, b int) bool {
		return results[a].Timestamp < results[b].Timestamp
	}))
	assert.Equal(t, "img-00", results[0].ImageID)
	assert.Equal(t, "img-05", results[5].ImageID)
}

func TestAggregate_TiesBrokenByImageID(t *testing.T) {
	images := []models.FixtureImage{
		{ID: "b", Timestamp: millis("2018-01-05")},
		{ID: "a", Timestamp: millis("2018-01-05")},
	}
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: images},
	})

	results, err := newTestAggregator(mock, 2).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ImageID)
	assert.Equal(t, "b", results[1].ImageID)
}

func TestAggregate_OneSideFailingKeepsAreaOnly(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: fixtureImages(1)},
	})
	mock.FailOuter = map[string]bool{"img-00": true}

	results, err := newTestAggregator(mock, 1).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-01"))

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].Inner.Mean)
	assert.Nil(t, results[0].Outer.Mean)
	assert.Nil(t, results[0].Outer.StdDev)
	assert.Greater(t, results[0].Outer.Area, 0.0)
}

func TestAggregate_EndDateIsInclusive(t *testing.T) {
	images := []models.FixtureImage{
		{ID: "before", Timestamp: millis("2017-12-31") + 23*3600*1000},
		{ID: "first-day", Timestamp: millis("2018-01-01")},
		{ID: "last-day", Timestamp: millis("2018-03-01") + 23*3600*1000},
		{ID: "after", Timestamp: millis("2018-03-02")},
	}
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: images},
	})

	results, err := newTestAggregator(mock, 2).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-03-01"))

	require.NoError(t, err)
	ids := []string{}
	for _, r := range results {
		ids = append(ids, r.ImageID)
	}
	assert.Equal(t, []string{"first-day", "last-day"}, ids)
}

func TestAggregate_NoImages(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: {}},
	})

	results, err := newTestAggregator(mock, 2).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-01"))

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestAggregate_AllImagesFailing(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: fixtureImages(2)},
	})
	mock.FailImages = map[string]bool{"img-00": true, "img-01": true}

	_, err := newTestAggregator(mock, 2).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	assert.True(t, errors.Is(err, models.ErrExternalService))
}

func TestAggregate_ListingFailure(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(nil)
	mock.ListErr = errors.New("unreachable")

	_, err := newTestAggregator(mock, 2).Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	assert.True(t, errors.Is(err, models.ErrExternalService))
}

func TestAggregate_DeadlineExceeded(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: fixtureImages(3)},
	})
	mock.Delays = map[string]time.Duration{"img-01": time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results, err := newTestAggregator(mock, 3).Aggregate(ctx, aggregateRequest(t, "2018-01-01", "2018-01-31"))

	assert.Nil(t, results)
	assert.True(t, errors.Is(err, models.ErrTimeout))
}

func TestAggregateRequest_Window(t *testing.T) {
	req := AggregateRequest{Begin: day("2018-01-01"), End: day("2018-01-01")}

	start, end := req.Window()

	assert.Equal(t, day("2018-01-01"), start)
	assert.Equal(t, day("2018-01-02"), end)
}

// kindRecorder remembers which geometry type each region kind was reduced with.
type kindRecorder struct {
	mu    sync.Mutex
	kinds map[imagery.RegionKind]string
}

func (k *kindRecorder) Reduce(ctx context.Context, kind imagery.RegionKind, region orb.Geometry, imageID, band string, scale float64) (models.RegionStats, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kinds[kind] = region.GeoJSONType()
	return models.EmptyRegionStats(1), nil
}

func TestAggregate_LabelsRegionsExplicitly(t *testing.T) {
	mock := imagery.NewImageryApiClientMock(&models.ImageryFixture{
		Collections: map[string][]models.FixtureImage{testCollection: fixtureImages(2)},
	})
	recorder := &kindRecorder{kinds: map[imagery.RegionKind]string{}}
	aggregator := NewCollectionAggregator(mock, recorder, 2)

	_, err := aggregator.Aggregate(context.Background(), aggregateRequest(t, "2018-01-01", "2018-01-31"))

	require.NoError(t, err)
	assert.Equal(t, map[imagery.RegionKind]string{
		imagery.RegionInner: "Polygon",
		imagery.RegionOuter: "MultiPolygon",
	}, recorder.kinds)
}
