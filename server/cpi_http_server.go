package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cpi-server/logging"

	"go.uber.org/zap"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

type CpiHttpServer struct {
	router *Router
	port   string
	log    *zap.Logger
}

func NewCpiHttpServer(router *Router, port string) *CpiHttpServer {
	return &CpiHttpServer{
		router: router,
		port:   port,
		log:    logging.Named("CpiHttpServer"),
	}
}

// Start serves until ctx is done, then shuts down gracefully. Callers cancel
// ctx on SIGINT/SIGTERM.
func (s *CpiHttpServer) Start(ctx context.Context) error {
	s.router.RegisterRoutes()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ListenAndServe(): %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("Server exiting")
	return nil
}
