package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Imagery defaults
const DEFAULT_COLLECTION = "LANDSAT/LE7_L1T_32DAY_EVI"
const DEFAULT_COLLECTION_ALIAS = "default"
const DEFAULT_BAND = "EVI"
const DEFAULT_SCALE = 30.0
const DEFAULT_BEGIN_DATE = "2000-01-01"
const DATE_LAYOUT = "2006-01-02"
const IMAGERY_MODE_MOCK = "mock"
const IMAGERY_MODE_PROD = "prod"

// Overpass
const OVERPASS_DEFAULT_ENDPOINT = "https://overpass-api.de/api/interpreter"
const OVERPASS_MAX_PARALLEL = 2
const OVERPASS_HTTP_TIMEOUT_SECONDS = 300

// Resources file paths
const RESOURCES_PATH_PREFIX = "resources"
const PLOTS_GEOJSON_RESOURCE = "cpi.geojson"
const IMAGERY_FIXTURE_RESOURCE = "imagery_fixture.json"

// Config holds everything read from the environment. Each Load call returns a
// fresh value.
type Config struct {
	Port string

	ImageryMode       string
	ImageryEndpoint   string
	ImageryAPIKey     string
	DefaultCollection string
	DefaultBand       string
	DefaultScale      float64

	MaxConcurrency    int
	ReduceMaxAttempts int
	ReduceBackoff     time.Duration
	RequestTimeout    time.Duration

	PlotsGeoJSONPath   string
	PlotsIDField       string
	ImageryFixturePath string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	PlotsRefresh  time.Duration

	OverpassEndpoint string

	LogLevel  string
	LogFormat string
}

// Load reads an optional env file (".env" when none is given) and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	return Config{
		Port: getenv("PORT", "8080"),

		ImageryMode:       getenv("IMAGERY_MODE", IMAGERY_MODE_MOCK),
		ImageryEndpoint:   getenv("IMAGERY_ENDPOINT", "http://localhost:8090/v1"),
		ImageryAPIKey:     getenv("IMAGERY_API_KEY", ""),
		DefaultCollection: getenv("DEFAULT_COLLECTION", DEFAULT_COLLECTION),
		DefaultBand:       getenv("DEFAULT_BAND", DEFAULT_BAND),
		DefaultScale:      getenvFloat("DEFAULT_SCALE", DEFAULT_SCALE),

		MaxConcurrency:    getenvInt("MAX_CONCURRENCY", 8),
		ReduceMaxAttempts: getenvInt("REDUCE_MAX_ATTEMPTS", 3),
		ReduceBackoff:     time.Duration(getenvInt("REDUCE_BACKOFF_MS", 250)) * time.Millisecond,
		RequestTimeout:    time.Duration(getenvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,

		PlotsGeoJSONPath:   getenv("PLOTS_GEOJSON_PATH", GetResourcePath(PLOTS_GEOJSON_RESOURCE)),
		PlotsIDField:       getenv("PLOTS_ID_FIELD", "cartodb_id"),
		ImageryFixturePath: getenv("IMAGERY_FIXTURE_PATH", GetResourcePath(IMAGERY_FIXTURE_RESOURCE)),

		RedisAddress:  getenv("REDIS_ADDRESS", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getenvInt("CACHE_TTL_MINUTES", 360)) * time.Minute,
		PlotsRefresh:  time.Duration(getenvInt("PLOTS_REFRESH_MINUTES", 60)) * time.Minute,

		OverpassEndpoint: getenv("OVERPASS_ENDPOINT", OVERPASS_DEFAULT_ENDPOINT),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "console"),
	}
}

// BaseDir returns the absolute path of the project root directory
func BaseDir() string {
	if root := os.Getenv("PROJECT_ROOT"); root != "" {
		return root
	}

	wd, err := os.Getwd()
	if err != nil {
		panic("Unable to determine working directory: " + err.Error())
	}
	return wd
}

func GetResourcePath(resourceFile string) string {
	return filepath.Join(BaseDir(), RESOURCES_PATH_PREFIX, resourceFile)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getenvFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	return v
}
