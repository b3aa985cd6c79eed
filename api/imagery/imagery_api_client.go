package imagery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cpi-server/api"
	"cpi-server/models"

	"github.com/paulmach/orb/geojson"
)

const API_KEY_HEADER = "X-Api-Key"

// ImageryApiClient embeds the common HTTPClient
type ImageryApiClient struct {
	*api.HTTPClient
	apiKey string
}

type listImagesResponse struct {
	Images []models.ImageObservation `json:"images"`
}

type reduceRequestBody struct {
	ImageID  string            `json:"image_id"`
	Kind     RegionKind        `json:"region_kind,omitempty"`
	Band     string            `json:"band"`
	Scale    float64           `json:"scale"`
	Reducers []string          `json:"reducers"`
	Region   *geojson.Geometry `json:"region"`
}

func NewImageryApiClient(httpClient *api.HTTPClient) *ImageryApiClient {
	return &ImageryApiClient{
		HTTPClient: httpClient,
	}
}

func (c *ImageryApiClient) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

func (c *ImageryApiClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{API_KEY_HEADER: c.apiKey}
}

// ListImages lists the images of a collection intersecting bounds in the
// half-open window [start, endExclusive).
func (c *ImageryApiClient) ListImages(ctx context.Context, collectionID string, bounds models.BoundingBox, start, endExclusive time.Time) ([]models.ImageObservation, error) {
	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%v,%v,%v,%v", bounds.XMin, bounds.YMin, bounds.XMax, bounds.YMax))
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", endExclusive.UTC().Format(time.RFC3339))

	var response listImagesResponse
	endpoint := "/collections/" + url.PathEscape(collectionID) + "/images?" + q.Encode()
	if err := c.Request(ctx, "GET", endpoint, c.headers(), nil, &response); err != nil {
		return nil, err
	}
	return response.Images, nil
}

// ReduceRegion computes mean and stdDev of a band over the request region.
func (c *ImageryApiClient) ReduceRegion(ctx context.Context, req ReduceRequest) (*ReduceResponse, error) {
	body := reduceRequestBody{
		ImageID:  req.ImageID,
		Kind:     req.Kind,
		Band:     req.Band,
		Scale:    req.Scale,
		Reducers: []string{ReducerMean, ReducerStdDev},
		Region:   geojson.NewGeometry(req.Region),
	}

	var response ReduceResponse
	if err := c.Request(ctx, "POST", "/reduce", c.headers(), body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
