package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cpi-server/db"
	"cpi-server/models"
)

const PLOTS_GEO_KEY_V1 = "plots_geo_v1"
const PLOTS_GEO_MEMBER_FORMAT_V1 = "plots_geo_member_v1:%s"

// RedisPlotDAO keeps catalog plots in a Redis geo index keyed by centroid.
type RedisPlotDAO struct {
	client db.RedisClient
}

func NewRedisPlotDAO(client db.RedisClient) *RedisPlotDAO {
	return &RedisPlotDAO{client: client}
}

// UpsertPlot stores the plot as a geolocation with the plot's JSON data.
func (dao *RedisPlotDAO) UpsertPlot(ctx context.Context, p models.Plot) error {
	member := fmt.Sprintf(PLOTS_GEO_MEMBER_FORMAT_V1, p.ID)
	return dao.client.AddLocationWithJSON(ctx, PLOTS_GEO_KEY_V1, member, p.CenterLat, p.CenterLon, p)
}

// GetNearbyPlots retrieves plots whose centroid is within radiusKm.
func (dao *RedisPlotDAO) GetNearbyPlots(ctx context.Context, lat, lon, radiusKm float64) ([]models.Plot, error) {
	plotsJSON, err := dao.client.GetLocationsWithinRadius(ctx, PLOTS_GEO_KEY_V1, lat, lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("[RedisPlotDAO] failed to get plots: %w", err)
	}

	plots := make([]models.Plot, len(plotsJSON))
	for i, plotJSON := range plotsJSON {
		if err := json.Unmarshal([]byte(plotJSON), &plots[i]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plot JSON: %w", err)
		}
	}
	return plots, nil
}

// ListAllPlotIDs returns all plot ids present in the geo index.
func (dao *RedisPlotDAO) ListAllPlotIDs(ctx context.Context) ([]string, error) {
	keys, err := dao.client.Keys(ctx, fmt.Sprintf(PLOTS_GEO_MEMBER_FORMAT_V1, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list plot geo keys: %w", err)
	}
	prefix := fmt.Sprintf(PLOTS_GEO_MEMBER_FORMAT_V1, "")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids, nil
}

// DeletePlot removes the plot from the geo index and drops its data key.
func (dao *RedisPlotDAO) DeletePlot(ctx context.Context, id string) error {
	key := fmt.Sprintf(PLOTS_GEO_MEMBER_FORMAT_V1, id)
	if err := dao.client.RemoveLocation(ctx, PLOTS_GEO_KEY_V1, key); err != nil {
		return fmt.Errorf("failed to remove plot %s from geo index: %w", id, err)
	}
	if err := dao.client.Del(ctx, key); err != nil {
		return fmt.Errorf("failed to delete plot key %s: %w", key, err)
	}
	return nil
}
