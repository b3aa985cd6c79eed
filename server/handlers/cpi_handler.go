package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cpi-server/config"
	"cpi-server/models"
	services "cpi-server/service"

	"go.uber.org/zap"
)

const (
	ID_QUERY_ARG         = "id"
	XMIN_QUERY_ARG       = "xmin"
	XMAX_QUERY_ARG       = "xmax"
	YMIN_QUERY_ARG       = "ymin"
	YMAX_QUERY_ARG       = "ymax"
	BEGIN_QUERY_ARG      = "begin"
	END_QUERY_ARG        = "end"
	COLLECTION_QUERY_ARG = "collection"
	BAND_QUERY_ARG       = "band"
	SCALE_QUERY_ARG      = "scale"
)

// CpiComputer is the part of the CPI service the handler needs.
type CpiComputer interface {
	ComputeCPI(ctx context.Context, req services.CpiRequest) (*models.CpiResult, error)
	ComputeCPIForPlot(ctx context.Context, plotID string, req services.CpiRequest) (*models.CpiResult, error)
}

type CpiHandler struct {
	cpiService CpiComputer
	now        func() time.Time
}

func NewCpiHandler(cpiService CpiComputer) *CpiHandler {
	return &CpiHandler{cpiService: cpiService, now: time.Now}
}

// GetCpi handles GET /api/plot and /api/poly. An id selects a catalog plot
// and wins over the bbox params.
func (h *CpiHandler) GetCpi(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, "CpiHandler")
	vals := r.URL.Query()

	req, err := h.parseArgs(vals)
	if err != nil {
		writeError(w, log, err)
		return
	}

	var result *models.CpiResult
	if id := vals.Get(ID_QUERY_ARG); id != "" {
		log.Debug("Computing CPI for plot", zap.String("plot_id", id))
		result, err = h.cpiService.ComputeCPIForPlot(r.Context(), id, req)
	} else {
		log.Debug("Computing CPI for bbox", zap.String("bbox", req.BBox.String()))
		result, err = h.cpiService.ComputeCPI(r.Context(), req)
	}
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result); err != nil {
		log.Warn("Error encoding response", zap.Error(err))
	}
}

func (h *CpiHandler) parseArgs(vals url.Values) (services.CpiRequest, error) {
	req := services.CpiRequest{
		Begin:        vals.Get(BEGIN_QUERY_ARG),
		End:          vals.Get(END_QUERY_ARG),
		CollectionID: vals.Get(COLLECTION_QUERY_ARG),
		Band:         vals.Get(BAND_QUERY_ARG),
	}
	if req.Begin == "" {
		req.Begin = config.DEFAULT_BEGIN_DATE
	}
	if req.End == "" {
		req.End = h.now().UTC().Format(config.DATE_LAYOUT)
	}

	if s := vals.Get(SCALE_QUERY_ARG); s != "" {
		scale, err := strconv.ParseFloat(s, 64)
		if err != nil || scale <= 0 {
			return req, fmt.Errorf("%w: invalid argument %s=%q", models.ErrInvalidInput, SCALE_QUERY_ARG, s)
		}
		req.Scale = scale
	}

	if vals.Get(ID_QUERY_ARG) != "" {
		return req, nil
	}

	coords := make([]float64, 4)
	for i, name := range []string{XMIN_QUERY_ARG, XMAX_QUERY_ARG, YMIN_QUERY_ARG, YMAX_QUERY_ARG} {
		s := vals.Get(name)
		if s == "" {
			return req, fmt.Errorf("%w: missing argument %s (or provide %s)", models.ErrInvalidInput, name, ID_QUERY_ARG)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("%w: invalid argument %s=%q", models.ErrInvalidInput, name, s)
		}
		coords[i] = v
	}
	req.BBox = models.BoundingBox{XMin: coords[0], XMax: coords[1], YMin: coords[2], YMax: coords[3]}
	return req, nil
}
