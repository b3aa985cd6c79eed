package redis

import (
	"context"
	"encoding/json"
	"testing"

	"cpi-server/db"
	"cpi-server/models"
)

func testPlot(id string, lat, lon float64) models.Plot {
	return models.Plot{
		ID:        id,
		CenterLat: lat,
		CenterLon: lon,
		Bounds:    models.BoundingBox{XMin: lon - 0.005, XMax: lon + 0.005, YMin: lat - 0.005, YMax: lat + 0.005},
	}
}

func TestRedisPlotDAO_UpsertPlot_Success(t *testing.T) {
	// Setup
	ctx := context.Background()
	mockClient := db.NewMockRedisClient()
	dao := NewRedisPlotDAO(mockClient)

	// Act
	err := dao.UpsertPlot(ctx, testPlot("7", 40.005, -99.995))

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	storedValue, err := mockClient.Get(ctx, "plots_geo_member_v1:7")
	if err != nil {
		t.Fatalf("Expected data to be stored, got error: %v", err)
	}

	var stored models.Plot
	if err := json.Unmarshal(storedValue, &stored); err != nil {
		t.Fatalf("Failed to unmarshal stored plot data: %v", err)
	}
	if stored.ID != "7" || stored.Bounds.XMin != -100 {
		t.Errorf("Unexpected stored plot %+v", stored)
	}
}

func TestRedisPlotDAO_GetNearbyPlots_Success(t *testing.T) {
	// Setup
	ctx := context.Background()
	dao := NewRedisPlotDAO(db.NewMockRedisClient())
	_ = dao.UpsertPlot(ctx, testPlot("7", 40.005, -99.995))
	_ = dao.UpsertPlot(ctx, testPlot("8", 40.02, -99.98))
	_ = dao.UpsertPlot(ctx, testPlot("9", 45.0, -90.0))

	// Act
	plots, err := dao.GetNearbyPlots(ctx, 40.0, -100.0, 5)

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(plots) != 2 {
		t.Fatalf("Expected 2 plots, got %d", len(plots))
	}
	if plots[0].ID != "7" || plots[1].ID != "8" {
		t.Errorf("Expected nearest first [7 8], got [%s %s]", plots[0].ID, plots[1].ID)
	}
}

func TestRedisPlotDAO_GetNearbyPlots_NoResults(t *testing.T) {
	dao := NewRedisPlotDAO(db.NewMockRedisClient())

	plots, err := dao.GetNearbyPlots(context.Background(), 40.7128, -74.0060, 1000)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(plots) != 0 {
		t.Errorf("Expected no plots, got %d", len(plots))
	}
}

func TestRedisPlotDAO_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	dao := NewRedisPlotDAO(db.NewMockRedisClient())
	_ = dao.UpsertPlot(ctx, testPlot("7", 40.005, -99.995))
	_ = dao.UpsertPlot(ctx, testPlot("8", 40.02, -99.98))

	if err := dao.DeletePlot(ctx, "7"); err != nil {
		t.Fatalf("DeletePlot failed: %v", err)
	}

	ids, err := dao.ListAllPlotIDs(ctx)
	if err != nil {
		t.Fatalf("ListAllPlotIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "8" {
		t.Errorf("Expected [8], got %v", ids)
	}

	plots, _ := dao.GetNearbyPlots(ctx, 40.005, -99.995, 50)
	if len(plots) != 1 {
		t.Errorf("Expected deleted plot to leave the geo index, got %d plots", len(plots))
	}
}

func TestRedisPlotDAO_DeletePlot_RemovesGeoMember(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mockClient := db.NewMockRedisClient()
	dao := NewRedisPlotDAO(mockClient)
	_ = dao.UpsertPlot(ctx, testPlot("7", 40.005, -99.995))
	_ = dao.UpsertPlot(ctx, testPlot("8", 40.02, -99.98))

	// Act
	err := dao.DeletePlot(ctx, "7")

	// Assert
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	members := mockClient.GeoMembers(PLOTS_GEO_KEY_V1)
	if len(members) != 1 || members[0] != "plots_geo_member_v1:8" {
		t.Errorf("Expected only plots_geo_member_v1:8 in the geo index, got %v", members)
	}
	if _, err := mockClient.Get(ctx, "plots_geo_member_v1:7"); err != db.ErrCacheMiss {
		t.Errorf("Expected data key to be gone, got %v", err)
	}
}
