package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"cpi-server/api/osm"
	"cpi-server/logging"
	"cpi-server/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
)

const DEFAULT_HARVEST_GEOTYPE = "way"
const DEFAULT_HARVEST_TIMEOUT_SECONDS = 250
const DEFAULT_HARVEST_TAG_VALUE = "water"
const DEFAULT_NEARBY_TIMEOUT_SECONDS = 25
const DEFAULT_NEARBY_BUFFER_METERS = 20

// HarvestOptions configures one harvest. Build a fresh value per call with
// DefaultHarvestOptions and adjust the copy.
type HarvestOptions struct {
	GeoType        string
	TimeoutSeconds int
	TagValue       string
	// ClipToBounds clamps feature coordinates to the requested box.
	ClipToBounds bool
}

func DefaultHarvestOptions() HarvestOptions {
	return HarvestOptions{
		GeoType:        DEFAULT_HARVEST_GEOTYPE,
		TimeoutSeconds: DEFAULT_HARVEST_TIMEOUT_SECONDS,
		TagValue:       DEFAULT_HARVEST_TAG_VALUE,
	}
}

// BuildQuery returns the Overpass QL query selecting every element of geotype
// inside bbox, with member nodes resolved.
func BuildQuery(geotype string, bbox models.BoundingBox, timeoutSeconds int) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("[out:json][timeout:%d];%s(%s,%s,%s,%s);out body;>;out skel qt;",
		timeoutSeconds, geotype, f(bbox.YMin), f(bbox.XMin), f(bbox.YMax), f(bbox.XMax))
}

// NearbyOptions configures one point-and-radius harvest. Build a fresh value
// per call with DefaultNearbyOptions; the SearchPairs map is never shared.
type NearbyOptions struct {
	GeoType        string
	TimeoutSeconds int
	// SearchPairs maps a tag key to a regular expression its value must match.
	SearchPairs map[string]string
	// Strict keeps only ways whose bounds contain the search point.
	Strict bool
}

func DefaultNearbyOptions() NearbyOptions {
	return NearbyOptions{
		GeoType:        DEFAULT_HARVEST_GEOTYPE,
		TimeoutSeconds: DEFAULT_NEARBY_TIMEOUT_SECONDS,
		SearchPairs:    map[string]string{},
		Strict:         true,
	}
}

var overpassStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BuildNearbyQuery returns the Overpass QL query selecting every element of
// geotype within buf metres of (lat, lon) whose tags match searchPairs, with
// geometry inlined. Pairs are emitted in key order.
func BuildNearbyQuery(geotype string, lat, lon, buf float64, searchPairs map[string]string, timeoutSeconds int) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	keys := make([]string, 0, len(searchPairs))
	for k := range searchPairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filters strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&filters, `["%s"~"%s"]`, overpassStringEscaper.Replace(k), overpassStringEscaper.Replace(searchPairs[k]))
	}
	return fmt.Sprintf("[out:json][timeout:%d];%s%s(around:%s,%s,%s);out geom;",
		timeoutSeconds, geotype, filters.String(), f(buf), f(lat), f(lon))
}

// HarvestService extracts closed OSM ways carrying a tag value (water bodies
// by default) around a field as GeoJSON polygons.
type HarvestService struct {
	overpassAPI osm.OverpassAPI
	log         *zap.Logger
}

func NewHarvestService(overpassAPI osm.OverpassAPI) *HarvestService {
	return &HarvestService{
		overpassAPI: overpassAPI,
		log:         logging.Named("HarvestService"),
	}
}

// Harvest queries bbox and returns matching ways ordered by id.
func (hs *HarvestService) Harvest(ctx context.Context, bbox models.BoundingBox, opts HarvestOptions) (*geojson.FeatureCollection, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	if opts.GeoType == "" {
		opts.GeoType = DEFAULT_HARVEST_GEOTYPE
	}

	query := BuildQuery(opts.GeoType, bbox, opts.TimeoutSeconds)
	hs.log.Debug("Querying Overpass", zap.String("query", query))

	result, err := hs.overpassAPI.Query(ctx, query)
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}

	ids := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		way := result.Ways[id]
		if !hasTagValue(way.Tags, opts.TagValue) {
			continue
		}
		ring, ok := closedRing(way)
		if !ok {
			continue
		}
		if opts.ClipToBounds {
			ring = clampRing(ring, bbox)
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = way.ID
		for k, v := range way.Tags {
			f.Properties[k] = v
		}
		fc.Append(f)
	}

	hs.log.Info("Harvested features",
		zap.String("bbox", bbox.String()),
		zap.Int("ways", len(result.Ways)),
		zap.Int("features", len(fc.Features)))
	return fc, nil
}

// HarvestNearby queries the ways within buf metres of (lat, lon) and returns
// them ordered by id. Each feature carries the way's tags and its bounds.
func (hs *HarvestService) HarvestNearby(ctx context.Context, lat, lon, buf float64, opts NearbyOptions) (*geojson.FeatureCollection, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: point (%v, %v) is out of range", models.ErrInvalidInput, lat, lon)
	}
	if !(buf > 0) || math.IsInf(buf, 0) {
		return nil, fmt.Errorf("%w: buffer must be a positive number of metres", models.ErrInvalidInput)
	}
	if opts.GeoType == "" {
		opts.GeoType = DEFAULT_HARVEST_GEOTYPE
	}

	query := BuildNearbyQuery(opts.GeoType, lat, lon, buf, opts.SearchPairs, opts.TimeoutSeconds)
	hs.log.Debug("Querying Overpass", zap.String("query", query))

	result, err := hs.overpassAPI.Query(ctx, query)
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}

	ids := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	point := orb.Point{lon, lat}
	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		way := result.Ways[id]
		ring := wayRing(way)
		if len(ring) < 3 {
			continue
		}
		bounds := wayBounds(way, ring)
		if opts.Strict && !bounds.Contains(point) {
			continue
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = way.ID
		for k, v := range way.Tags {
			f.Properties[k] = v
		}
		f.Properties["bounds"] = models.BoundingBox{
			XMin: bounds.Min[0], XMax: bounds.Max[0],
			YMin: bounds.Min[1], YMax: bounds.Max[1],
		}
		fc.Append(f)
	}

	hs.log.Info("Harvested nearby features",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("buffer_m", buf),
		zap.Bool("strict", opts.Strict),
		zap.Int("ways", len(result.Ways)),
		zap.Int("features", len(fc.Features)))
	return fc, nil
}

// wayRing prefers the inline geometry of "out geom" and falls back to the
// resolved member nodes.
func wayRing(way *overpass.Way) orb.Ring {
	ring := make(orb.Ring, 0, len(way.Geometry))
	for _, p := range way.Geometry {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	if len(ring) > 0 {
		return ring
	}
	for _, n := range way.Nodes {
		if n != nil {
			ring = append(ring, orb.Point{n.Lon, n.Lat})
		}
	}
	return ring
}

func wayBounds(way *overpass.Way, ring orb.Ring) orb.Bound {
	if way.Bounds != nil {
		return orb.Bound{
			Min: orb.Point{way.Bounds.Min.Lon, way.Bounds.Min.Lat},
			Max: orb.Point{way.Bounds.Max.Lon, way.Bounds.Max.Lat},
		}
	}
	return ring.Bound()
}

func hasTagValue(tags map[string]string, value string) bool {
	if value == "" {
		return true
	}
	for _, v := range tags {
		if v == value {
			return true
		}
	}
	return false
}

// closedRing returns the way's coordinates when it repeats a vertex, which
// is how OSM encodes areas.
func closedRing(way *overpass.Way) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(way.Nodes))
	seen := make(map[orb.Point]struct{}, len(way.Nodes))
	closed := false
	for _, n := range way.Nodes {
		if n == nil {
			continue
		}
		p := orb.Point{n.Lon, n.Lat}
		if _, dup := seen[p]; dup {
			closed = true
		}
		seen[p] = struct{}{}
		ring = append(ring, p)
	}
	if !closed || len(ring) < 4 {
		return nil, false
	}
	return ring, true
}

func clampRing(ring orb.Ring, bbox models.BoundingBox) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = orb.Point{
			clamp(p[0], bbox.XMin, bbox.XMax),
			clamp(p[1], bbox.YMin, bbox.YMax),
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
