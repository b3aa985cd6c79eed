package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cpi-server/db"
	"cpi-server/models"

	"github.com/golang/snappy"
)

const CPI_RESULT_KEY_PREFIX_V1 = "cpi_result_v1"

// CPI_RESULT_KEY_FORMAT_V1 is prefix:collection:band:scale:xmin,ymin,xmax,ymax:begin:end
const CPI_RESULT_KEY_FORMAT_V1 = CPI_RESULT_KEY_PREFIX_V1 + ":%s:%s:%s:%s,%s,%s,%s:%s:%s"

// CpiCacheKey identifies a cached CpiResult. Every input that changes the
// result is part of the key.
type CpiCacheKey struct {
	CollectionID string
	Band         string
	Scale        float64
	BBox         models.BoundingBox
	Begin        string
	End          string
}

func (k CpiCacheKey) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf(CPI_RESULT_KEY_FORMAT_V1,
		k.CollectionID, k.Band, f(k.Scale),
		f(k.BBox.XMin), f(k.BBox.YMin), f(k.BBox.XMax), f(k.BBox.YMax),
		k.Begin, k.End)
}

// RedisCpiDAO caches computed CPI results as snappy-compressed JSON.
type RedisCpiDAO struct {
	client db.RedisClient
}

func NewRedisCpiDAO(client db.RedisClient) *RedisCpiDAO {
	return &RedisCpiDAO{client: client}
}

// SetCpiResult stores a result under key for ttl.
func (dao *RedisCpiDAO) SetCpiResult(ctx context.Context, key CpiCacheKey, result *models.CpiResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cpi result %s: %w", key, err)
	}
	if err := dao.client.Set(ctx, key.String(), snappy.Encode(nil, data), ttl); err != nil {
		return fmt.Errorf("failed to set cpi result in redis: %w", err)
	}
	return nil
}

// GetCpiResult returns the cached result, or an error wrapping db.ErrCacheMiss.
func (dao *RedisCpiDAO) GetCpiResult(ctx context.Context, key CpiCacheKey) (*models.CpiResult, error) {
	compressed, err := dao.client.Get(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get cpi result %s: %w", key, err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cpi result %s: %w", key, err)
	}
	var result models.CpiResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cpi result JSON: %w", err)
	}
	if result.Results == nil {
		result.Results = []models.CpiRecord{}
	}
	return &result, nil
}

// FlushCpiResults deletes every cached result and reports how many were removed.
func (dao *RedisCpiDAO) FlushCpiResults(ctx context.Context) (int, error) {
	keys, err := dao.client.Keys(ctx, CPI_RESULT_KEY_PREFIX_V1+":*")
	if err != nil {
		return 0, fmt.Errorf("failed to list cpi result keys: %w", err)
	}
	if err := dao.client.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to delete cpi result keys: %w", err)
	}
	return len(keys), nil
}
