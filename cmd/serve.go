package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tripfinder "github.com/mnrtools/tripfinder"
	"github.com/mnrtools/tripfinder/config"
	"github.com/mnrtools/tripfinder/downloader"
	"github.com/mnrtools/tripfinder/metrics"
	"github.com/mnrtools/tripfinder/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the trip finder HTTP API",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := openStorage(cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	storeCfg := storeConfig(cfg)
	storeCfg.OnRefresh = func(err error) {
		if err != nil {
			collector.RefreshErrors.Inc()
			return
		}
		collector.Refreshes.Inc()
		collector.SnapshotLoadedAt.SetToCurrentTime()
	}

	store := tripfinder.NewStore(storeCfg, st, downloader.NewHTTP(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Load(ctx); err != nil {
		return err
	}
	store.Start()
	defer store.Stop()

	if cfg.MetricsAddr != "" {
		collector.Serve(cfg.MetricsAddr)
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	srv := server.New(server.Config{
		ListenAddr:  cfg.ListenAddr,
		RealtimeURL: cfg.RealtimeURL,
		Location:    cfg.Location,
	}, store, downloader.NewHTTP(), logger, collector)

	return srv.Run(ctx)
}
