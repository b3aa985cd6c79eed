package di

import (
	"context"
	"fmt"
	"time"

	"cpi-server/api"
	"cpi-server/api/imagery"
	"cpi-server/api/osm"
	"cpi-server/config"
	"cpi-server/dao/redis"
	"cpi-server/db"
	"cpi-server/geometry"
	"cpi-server/logging"
	"cpi-server/server"
	"cpi-server/server/handlers"
	services "cpi-server/service"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all application dependencies.
type Container struct {
	Config                config.Config
	RedisClient           db.RedisClient
	RedisCpiDao           *redis.RedisCpiDAO
	RedisPlotDao          *redis.RedisPlotDAO
	ImageryAPI            imagery.ImageryAPI
	OverpassAPI           osm.OverpassAPI
	Partitioner           *geometry.Partitioner
	RegionReducer         *services.RegionReducer
	CollectionAggregator  *services.CollectionAggregator
	PlotCatalog           *services.PlotCatalog
	CpiService            *services.CpiService
	PlotService           *services.PlotService
	PlotsRefresherService *services.PlotsRefresherService
	HarvestService        *services.HarvestService
	CpiHandler            *handlers.CpiHandler
	PlotHandler           *handlers.PlotHandler
	MuxRouter             *mux.Router
	Router                *server.Router
	CpiHttpServer         *server.CpiHttpServer
}

// NewContainer initializes and wires up all dependencies.
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	log := logging.Named("Container")
	log.Info("Initializing container",
		zap.String("imagery_mode", cfg.ImageryMode),
		zap.Bool("redis", cfg.RedisAddress != ""))

	redisClient, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisCpiDao := redis.NewRedisCpiDAO(redisClient)
	redisPlotDao := redis.NewRedisPlotDAO(redisClient)

	imageryAPI, err := newImageryAPI(cfg)
	if err != nil {
		return nil, err
	}

	plotCatalog, err := services.LoadPlotCatalog(cfg.PlotsGeoJSONPath, cfg.PlotsIDField)
	if err != nil {
		log.Warn("Plot catalog unavailable, id lookups will fail",
			zap.String("path", cfg.PlotsGeoJSONPath), zap.Error(err))
		plotCatalog = services.NewPlotCatalog(nil, cfg.PlotsIDField)
	}

	partitioner := geometry.NewPartitioner()
	regionReducer := services.NewRegionReducer(imageryAPI, cfg.ReduceMaxAttempts, cfg.ReduceBackoff)
	collectionAggregator := services.NewCollectionAggregator(imageryAPI, regionReducer, cfg.MaxConcurrency)

	cpiService := services.NewCpiService(
		partitioner,
		collectionAggregator,
		plotCatalog,
		redisCpiDao,
		cfg.CacheTTL,
		services.CpiDefaults{
			CollectionID: cfg.DefaultCollection,
			Band:         cfg.DefaultBand,
			Scale:        cfg.DefaultScale,
		})
	plotService := services.NewPlotService(redisPlotDao, plotCatalog)
	plotsRefresherService := services.NewPlotsRefresherService(redisPlotDao, plotCatalog)

	overpassAPI := osm.NewOverpassApiClient(
		cfg.OverpassEndpoint,
		config.OVERPASS_MAX_PARALLEL,
		config.OVERPASS_HTTP_TIMEOUT_SECONDS*time.Second)
	harvestService := services.NewHarvestService(overpassAPI)

	cpiHandler := handlers.NewCpiHandler(cpiService)
	plotHandler := handlers.NewPlotHandler(plotService)

	muxRouter := mux.NewRouter()
	router := server.NewRouter(cpiHandler, plotHandler, muxRouter, cfg.RequestTimeout)
	cpiHttpServer := server.NewCpiHttpServer(router, cfg.Port)

	return &Container{
		Config:                cfg,
		RedisClient:           redisClient,
		RedisCpiDao:           redisCpiDao,
		RedisPlotDao:          redisPlotDao,
		ImageryAPI:            imageryAPI,
		OverpassAPI:           overpassAPI,
		Partitioner:           partitioner,
		RegionReducer:         regionReducer,
		CollectionAggregator:  collectionAggregator,
		PlotCatalog:           plotCatalog,
		CpiService:            cpiService,
		PlotService:           plotService,
		PlotsRefresherService: plotsRefresherService,
		HarvestService:        harvestService,
		CpiHandler:            cpiHandler,
		PlotHandler:           plotHandler,
		MuxRouter:             muxRouter,
		Router:                router,
		CpiHttpServer:         cpiHttpServer,
	}, nil
}

// newRedisClient connects to Redis when an address is configured and falls
// back to the in-process client otherwise.
func newRedisClient(ctx context.Context, cfg config.Config) (db.RedisClient, error) {
	if cfg.RedisAddress == "" {
		logging.Named("Container").Info("Using in-process redis client")
		return db.NewMockRedisClient(), nil
	}
	internal := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	client, err := db.NewGeoRedisClient(ctx, internal)
	if err != nil {
		internal.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func newImageryAPI(cfg config.Config) (imagery.ImageryAPI, error) {
	switch cfg.ImageryMode {
	case config.IMAGERY_MODE_PROD:
		logging.Named("Container").Info("Using prod imagery api", zap.String("endpoint", cfg.ImageryEndpoint))
		client := imagery.NewImageryApiClient(api.NewHTTPClient(cfg.ImageryEndpoint))
		client.SetAPIKey(cfg.ImageryAPIKey)
		return client, nil
	case config.IMAGERY_MODE_MOCK, "":
		logging.Named("Container").Info("Using mock imagery api", zap.String("fixture", cfg.ImageryFixturePath))
		return imagery.NewImageryApiClientMockFromFile(cfg.ImageryFixturePath)
	default:
		return nil, fmt.Errorf("unknown IMAGERY_MODE %q", cfg.ImageryMode)
	}
}
