package server

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	tripfinder "github.com/mnrtools/tripfinder"
	"github.com/mnrtools/tripfinder/downloader"
	"github.com/mnrtools/tripfinder/metrics"
)

type Config struct {
	ListenAddr  string
	RealtimeURL string // empty disables the live-delay overlay
	Location    *time.Location
}

// Server is the HTTP boundary around the trip finder.
type Server struct {
	cfg        Config
	store      *tripfinder.Store
	downloader downloader.Downloader
	logger     *zap.Logger
	collector  *metrics.Collector

	httpServer *http.Server
}

func New(
	cfg Config,
	store *tripfinder.Store,
	dl downloader.Downloader,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		downloader: dl,
		logger:     logger,
		collector:  collector,
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/", s.handleHome)
	router.HandlerFunc(http.MethodGet, "/healthz", s.handleHealth)
	router.HandlerFunc(http.MethodGet, "/find-trips", s.handleFindTrips)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("server listening", zap.String("addr", s.cfg.ListenAddr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
