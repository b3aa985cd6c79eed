package osm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/serjvanilla/go-overpass"
)

// OverpassApiClient is the OverpassAPI backed by a public interpreter.
type OverpassApiClient struct {
	client *overpass.Client
}

func NewOverpassApiClient(endpoint string, maxParallel int, timeout time.Duration) *OverpassApiClient {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, maxParallel, httpClient)
	return &OverpassApiClient{
		client: &client,
	}
}

// Query runs query and waits for it unless ctx finishes first. The underlying
// client has no context support, so an abandoned query still runs to the
// HTTP timeout in the background.
func (c *OverpassApiClient) Query(ctx context.Context, query string) (*overpass.Result, error) {
	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := c.client.Query(query)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", o.err)
		}
		return &o.result, nil
	}
}
