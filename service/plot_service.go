package services

import (
	"context"
	"fmt"

	"cpi-server/dao/redis"
	"cpi-server/models"
)

// PlotService answers plot queries from the catalog and the geo index.
type PlotService struct {
	plotDao *redis.RedisPlotDAO
	catalog *PlotCatalog
}

func NewPlotService(plotDao *redis.RedisPlotDAO, catalog *PlotCatalog) *PlotService {
	return &PlotService{
		plotDao: plotDao,
		catalog: catalog,
	}
}

// GetPlotsNearby returns indexed plots whose centroid lies within radiusKm.
func (ps *PlotService) GetPlotsNearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.Plot, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: lat/lon out of range", models.ErrInvalidInput)
	}
	if radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", models.ErrInvalidInput)
	}
	return ps.plotDao.GetNearbyPlots(ctx, lat, lon, radiusKm)
}

func (ps *PlotService) GetPlot(id string) (models.Plot, error) {
	if ps.catalog == nil {
		return models.Plot{}, fmt.Errorf("%w: no plot catalog loaded", models.ErrNotFound)
	}
	return ps.catalog.Lookup(id)
}
