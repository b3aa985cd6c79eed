package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cpi-server/di"
	"cpi-server/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the plot index refresher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}

	log := logging.Named("Serve")
	if cfg.PlotsRefresh > 0 {
		go func() {
			if err := container.PlotsRefresherService.Start(ctx, cfg.PlotsRefresh); err != nil {
				log.Error("Plot refresher failed", zap.Error(err))
			}
		}()
	} else {
		log.Info("Plot refresher disabled")
	}

	return container.CpiHttpServer.Start(ctx)
}
