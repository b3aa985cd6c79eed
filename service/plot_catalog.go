package services

import (
	"fmt"
	"strconv"
	"strings"

	"cpi-server/models"
	"cpi-server/util"

	"github.com/paulmach/orb/geojson"
)

const DEFAULT_PLOT_ID_FIELD = "cartodb_id"

// PlotCatalog resolves plot ids against a static GeoJSON FeatureCollection
// loaded once at startup.
type PlotCatalog struct {
	features *geojson.FeatureCollection
	idField  string
}

func NewPlotCatalog(fc *geojson.FeatureCollection, idField string) *PlotCatalog {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	if idField == "" {
		idField = DEFAULT_PLOT_ID_FIELD
	}
	return &PlotCatalog{features: fc, idField: idField}
}

// LoadPlotCatalog reads the catalog from a GeoJSON file.
func LoadPlotCatalog(path, idField string) (*PlotCatalog, error) {
	fc, err := util.ReadFeatureCollectionFromGeoJSON(path)
	if err != nil {
		return nil, err
	}
	return NewPlotCatalog(fc, idField), nil
}

// Lookup finds the single plot whose id property equals id. Numeric ids
// compare by value, so "7" and "7.0" match a property of 7.
func (c *PlotCatalog) Lookup(id string) (models.Plot, error) {
	want := normalizeID(id)
	if want == "" {
		return models.Plot{}, fmt.Errorf("%w: plot id is required", models.ErrInvalidInput)
	}

	var matches []*geojson.Feature
	for _, f := range c.features.Features {
		if got, ok := util.PropertyString(f.Properties[c.idField]); ok && normalizeID(got) == want {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return models.Plot{}, fmt.Errorf("%w: no plot with %s=%s", models.ErrNotFound, c.idField, id)
	case 1:
		return models.NewPlotFromFeature(want, matches[0])
	default:
		return models.Plot{}, fmt.Errorf("%w: %d plots with %s=%s", models.ErrAmbiguousID, len(matches), c.idField, id)
	}
}

// Plots returns every feature that carries an id and a geometry. Features
// without either are skipped.
func (c *PlotCatalog) Plots() []models.Plot {
	plots := make([]models.Plot, 0, len(c.features.Features))
	for _, f := range c.features.Features {
		id, ok := util.PropertyString(f.Properties[c.idField])
		if !ok {
			continue
		}
		p, err := models.NewPlotFromFeature(normalizeID(id), f)
		if err != nil {
			continue
		}
		plots = append(plots, p)
	}
	return plots
}

func (c *PlotCatalog) Len() int {
	return len(c.features.Features)
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if v, err := strconv.ParseFloat(id, 64); err == nil {
		s, _ := util.PropertyString(v)
		return s
	}
	return id
}
