package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-evac-priority/internal/api"
	"github.com/mr1hm/go-evac-priority/internal/config"
	"github.com/mr1hm/go-evac-priority/internal/geocoding"
	"github.com/mr1hm/go-evac-priority/internal/ingestion"
	"github.com/mr1hm/go-evac-priority/internal/logging"
	"github.com/mr1hm/go-evac-priority/internal/metrics"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
	"github.com/mr1hm/go-evac-priority/internal/repository"
	"github.com/mr1hm/go-evac-priority/internal/service"
	"github.com/mr1hm/go-evac-priority/internal/stream"
)

const streamBuffer = 16

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)
	log := slog.Default()

	log.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "db", cfg.DB.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DB, log)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	ranker := ranking.NewRanker(rankerOptions(cfg.Ranking, m, log))
	broadcaster := stream.NewBroadcaster(streamBuffer, m.StreamSubscribers)

	geocoder, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoding.Provider),
		APIKey:    cfg.Geocoding.APIKey,
		RateLimit: cfg.Geocoding.RateLimit,
		Logger:    log,
	})
	if err != nil && !errors.Is(err, geocoding.ErrGeocodingDisabled) {
		logging.Fatalf("Failed to initialize geocoder: %v", err)
	}

	priority := service.NewPriorityService(db, db, ranker, broadcaster, cfg.Ranking.RankRadiusKm, log)

	mgr := ingestion.NewManager(cfg, db, priority, m, log)
	mgr.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(db, priority, geocoder, broadcaster, cfg.Ranking, log)
	router := api.NewRouter(handler, m, reg, cfg.RateLimit.RPS)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		mgr.Stop()
		// Ends open SSE streams so Shutdown does not wait on them.
		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func rankerOptions(cfg config.RankingConfig, m *metrics.Metrics, log *slog.Logger) ranking.Options {
	opts := ranking.DefaultOptions()
	opts.DisasterPointsPerKm = cfg.DisasterPointsPerKm
	opts.VulnerablePointsPerKm = cfg.VulnerablePointsPerKm
	if p, ok := ranking.ParsePolicy(cfg.Policy); ok {
		opts.Policy = p
	}
	opts.Logger = log
	opts.Observer = m
	return opts
}
