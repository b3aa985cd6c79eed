package services

import (
	"context"
	"testing"
	"time"

	"cpi-server/dao/redis"
	"cpi-server/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshPlotIndex_UpsertsAndRemovesStale(t *testing.T) {
	// Arrange
	ctx := context.Background()
	plotDao := redis.NewRedisPlotDAO(db.NewMockRedisClient())
	stale := testCatalog().Plots()[1]
	stale.ID = "gone"
	require.NoError(t, plotDao.UpsertPlot(ctx, stale))
	refresher := NewPlotsRefresherService(plotDao, testCatalog())

	// Act
	upserted, err := refresher.RefreshPlotIndex(ctx)

	// Assert
	require.NoError(t, err)
	// "dup" appears twice in the catalog and is indexed once.
	assert.Equal(t, 3, upserted)

	ids, err := plotDao.ListAllPlotIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "7", "dup"}, ids)

	nearby, err := plotDao.GetNearbyPlots(ctx, 40.005, -99.995, 1)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "1", nearby[0].ID)
}

func TestRefreshPlotIndex_Idempotent(t *testing.T) {
	ctx := context.Background()
	plotDao := redis.NewRedisPlotDAO(db.NewMockRedisClient())
	refresher := NewPlotsRefresherService(plotDao, testCatalog())

	_, err := refresher.RefreshPlotIndex(ctx)
	require.NoError(t, err)
	_, err = refresher.RefreshPlotIndex(ctx)
	require.NoError(t, err)

	ids, err := plotDao.ListAllPlotIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestPlotsRefresher_StartStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	plotDao := redis.NewRedisPlotDAO(db.NewMockRedisClient())
	refresher := NewPlotsRefresherService(plotDao, testCatalog())

	done := make(chan error, 1)
	go func() { done <- refresher.Start(ctx, time.Hour) }()

	// The first run fires immediately.
	assert.Eventually(t, func() bool {
		ids, _ := plotDao.ListAllPlotIDs(context.Background())
		return len(ids) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
