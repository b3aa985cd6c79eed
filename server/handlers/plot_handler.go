package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cpi-server/models"

	"go.uber.org/zap"
)

const (
	LAT_QUERY_ARG    = "lat"
	LON_QUERY_ARG    = "lon"
	RADIUS_QUERY_ARG = "radius"
)

// PlotFinder is the part of the plot service the handler needs.
type PlotFinder interface {
	GetPlotsNearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.Plot, error)
}

type PlotHandler struct {
	plotService PlotFinder
}

func NewPlotHandler(plotService PlotFinder) *PlotHandler {
	return &PlotHandler{plotService: plotService}
}

// GetPlotsNearby handles GET /api/plots/nearby?lat=&lon=&radius= (radius in km).
func (h *PlotHandler) GetPlotsNearby(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, "PlotHandler")

	lat, lon, radius, err := parseNearbyArgs(r.URL.Query())
	if err != nil {
		writeError(w, log, err)
		return
	}

	plots, err := h.plotService.GetPlotsNearby(r.Context(), lat, lon, radius)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if plots == nil {
		plots = []models.Plot{}
	}

	if err := writeJSON(w, http.StatusOK, plots); err != nil {
		log.Warn("Error encoding response", zap.Error(err))
	}
}

// Ping handles GET /ping
func (h *PlotHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
}

func parseNearbyArgs(vals url.Values) (lat, lon, radius float64, err error) {
	if lat, err = parseArgFloat64(vals, LAT_QUERY_ARG); err != nil {
		return
	}
	if lon, err = parseArgFloat64(vals, LON_QUERY_ARG); err != nil {
		return
	}
	radius, err = parseArgFloat64(vals, RADIUS_QUERY_ARG)
	return
}

func parseArgFloat64(vals url.Values, name string) (float64, error) {
	s := vals.Get(name)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid argument %s=%q", models.ErrInvalidInput, name, s)
	}
	return v, nil
}
