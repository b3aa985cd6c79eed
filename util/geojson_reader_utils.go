package util

import (
	"encoding/json"
	"fmt"
	"os"

	"cpi-server/models"

	"github.com/paulmach/orb/geojson"
)

// ReadFeatureCollectionFromGeoJSON loads a GeoJSON FeatureCollection from disk.
func ReadFeatureCollectionFromGeoJSON(filePath string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal FeatureCollection: %w", err)
	}
	return fc, nil
}

// ReadImageryFixtureFromJSON loads an imagery fixture from JSON on disk.
func ReadImageryFixtureFromJSON(filePath string) (*models.ImageryFixture, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	var fixture models.ImageryFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ImageryFixture: %w", err)
	}
	return &fixture, nil
}

// WriteJSON writes v as indented JSON to filePath.
func WriteJSON(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// PropertyString renders a GeoJSON property value the way ids are compared:
// integral numbers lose their fraction, strings pass through.
func PropertyString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), true
		}
		return fmt.Sprintf("%v", t), true
	case int:
		return fmt.Sprintf("%d", t), true
	case int64:
		return fmt.Sprintf("%d", t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
