package services

import (
	"context"
	"time"

	"cpi-server/dao/redis"
	"cpi-server/logging"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// PlotsRefresherService keeps the Redis geo index in line with the plot
// catalog.
type PlotsRefresherService struct {
	plotDao *redis.RedisPlotDAO
	catalog *PlotCatalog
	log     *zap.Logger
}

func NewPlotsRefresherService(plotDao *redis.RedisPlotDAO, catalog *PlotCatalog) *PlotsRefresherService {
	return &PlotsRefresherService{
		plotDao: plotDao,
		catalog: catalog,
		log:     logging.Named("PlotsRefresherService"),
	}
}

// RefreshPlotIndex upserts every catalog plot and removes indexed plots that
// left the catalog. It returns the number of plots upserted.
func (pr *PlotsRefresherService) RefreshPlotIndex(ctx context.Context) (int, error) {
	plots := pr.catalog.Plots()
	pr.log.Info("Refreshing plot index", zap.Int("plots", len(plots)))

	seen := make(map[string]struct{}, len(plots))
	upserted := 0
	for _, p := range plots {
		if _, dup := seen[p.ID]; dup {
			pr.log.Warn("Skipping duplicate plot id", zap.String("plot_id", p.ID))
			continue
		}
		seen[p.ID] = struct{}{}

		if err := pr.plotDao.UpsertPlot(ctx, p); err != nil {
			pr.log.Warn("Upsert failed", zap.String("plot_id", p.ID), zap.Error(err))
			continue
		}
		upserted++
	}

	indexed, err := pr.plotDao.ListAllPlotIDs(ctx)
	if err != nil {
		return upserted, err
	}
	for _, id := range indexed {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := pr.plotDao.DeletePlot(ctx, id); err != nil {
			pr.log.Warn("Delete of stale plot failed", zap.String("plot_id", id), zap.Error(err))
		}
	}

	pr.log.Info("Plot index refreshed", zap.Int("upserted", upserted))
	return upserted, nil
}

// Start runs RefreshPlotIndex now and then every interval until ctx is done.
// It blocks.
func (pr *PlotsRefresherService) Start(ctx context.Context, interval time.Duration) error {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(interval).Do(func() {
		if _, err := pr.RefreshPlotIndex(ctx); err != nil {
			pr.log.Error("RefreshPlotIndex returned error", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	pr.log.Info("Plot refresher stopped")
	return nil
}
