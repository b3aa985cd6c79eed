package osm

import (
	"context"

	"github.com/serjvanilla/go-overpass"
)

// OverpassAPI runs raw Overpass QL queries.
type OverpassAPI interface {
	Query(ctx context.Context, query string) (*overpass.Result, error)
}
