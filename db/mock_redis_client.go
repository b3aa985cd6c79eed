package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MockRedisClient is an in-process RedisClient used by tests and when no
// Redis address is configured.
type MockRedisClient struct {
	data    map[string]entry
	geoData map[string]map[string]GeoLoc
	mu      sync.RWMutex
	now     func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// GeoLoc represents a geolocation with latitude and longitude.
type GeoLoc struct {
	Latitude  float64
	Longitude float64
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:    make(map[string]entry),
		geoData: make(map[string]map[string]GeoLoc),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (m *MockRedisClient) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MockRedisClient) get(key string) (entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}

func (m *MockRedisClient) AddLocationWithJSON(ctx context.Context, geoKey, memberKey string, lat, lon float64, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.geoData[geoKey]; !exists {
		m.geoData[geoKey] = make(map[string]GeoLoc)
	}
	m.geoData[geoKey][memberKey] = GeoLoc{Latitude: lat, Longitude: lon}
	m.data[memberKey] = entry{value: jsonData}
	return nil
}

// GetLocationsWithinRadius filters members by great-circle distance, nearest
// first, like GEORADIUS ... ASC.
func (m *MockRedisClient) GetLocationsWithinRadius(ctx context.Context, key string, lat, lon, radiusKm float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		data string
		dist float64
	}
	var hits []hit
	origin := orb.Point{lon, lat}
	for member, loc := range m.geoData[key] {
		dist := geo.Distance(origin, orb.Point{loc.Longitude, loc.Latitude})
		if dist > radiusKm*1000 {
			continue
		}
		if e, ok := m.get(member); ok {
			hits = append(hits, hit{data: string(e.value), dist: dist})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	results := make([]string, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.data)
	}
	return results, nil
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return nil
}

// Keys matches live keys against a glob pattern.
func (m *MockRedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for k := range m.data {
		if _, ok := m.get(k); !ok {
			continue
		}
		if globMatch(pattern, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MockRedisClient) RemoveLocation(ctx context.Context, geoKey, memberKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.geoData[geoKey], memberKey)
	return nil
}

// GeoMembers lists the members of a geo index, including ones whose data key
// is gone.
func (m *MockRedisClient) GeoMembers(geoKey string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]string, 0, len(m.geoData[geoKey]))
	for member := range m.geoData[geoKey] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// globMatch supports the '*' and '?' wildcards of KEYS. Unlike path.Match,
// '*' also spans '/', which collection ids contain.
func globMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for i := len(s); i >= 0; i-- {
				if globMatch(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
		}
		pattern, s = pattern[1:], s[1:]
	}
	return len(s) == 0
}
