package osm

import (
	"context"
	"sync"

	"github.com/serjvanilla/go-overpass"
)

// OverpassApiClientMock returns a canned result and records the queries it
// received.
type OverpassApiClientMock struct {
	Result overpass.Result
	Err    error

	mu      sync.Mutex
	queries []string
}

func NewOverpassApiClientMock(result overpass.Result) *OverpassApiClientMock {
	return &OverpassApiClientMock{Result: result}
}

func (c *OverpassApiClientMock) Query(ctx context.Context, query string) (*overpass.Result, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	result := c.Result
	return &result, nil
}

func (c *OverpassApiClientMock) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}
