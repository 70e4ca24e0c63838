package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"routesight/internal/analysis"
	"routesight/internal/api"
	"routesight/internal/cache"
	"routesight/internal/config"
	"routesight/internal/fetch"
	"routesight/internal/gis/routing"
	"routesight/internal/imagery"
	"routesight/internal/notify"
	"routesight/internal/route"
	"routesight/internal/session"
)

const (
	sessionTTL        = 24 * time.Hour
	healthCheckPeriod = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &loggerOpts)
	logger := slog.New(jsonHandler)

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})

	diskBackend, err := cache.NewDiskTileBackend(conf.TileCacheDir, cache.TileTTL)
	if err != nil {
		return err
	}
	redisBackend := cache.NewRedisTileBackend(redisClient, cache.TileTTL)
	tileCache := cache.NewTileCache(ctx, redisBackend, diskBackend, logger)
	go tileCache.StartHealthCheck(ctx, healthCheckPeriod)

	notifier := notify.NewManager(ctx, logger)
	go notifier.Start()

	imageryClient := imagery.NewClient(conf.ImageryAPIURL, conf.ImageryAPIKey)
	dispatcher := fetch.NewDispatcher(imageryClient, tileCache, notifier, logger, fetch.Options{
		Workers:       conf.FetchWorkers,
		RatePerSecond: conf.FetchRatePerSecond,
		QueueSize:     4096,
		MaxAttempts:   3,
		BackoffBase:   500 * time.Millisecond,
	})
	dispatcher.Start(ctx)

	sessionStore := session.NewRedisStore(redisClient, sessionTTL)
	tracker := session.NewTracker(sessionStore, tileCache, logger)

	routingClient := routing.NewClient(conf.RoutingAPIURL)
	routeService := route.NewService(routingClient, tileCache, dispatcher, tracker, logger, route.Options{
		SamplingIntervalMeters: conf.SamplingIntervalMeters,
		Zoom:                   conf.TileZoom,
	})

	var analysisClient *analysis.Client
	if conf.AnalysisAPIURL != "" {
		analysisClient = analysis.NewClient(conf.AnalysisAPIURL)
	}

	server := api.NewServer(conf, logger, routeService, tracker, tileCache, analysisClient, notifier)
	if err := server.Start(ctx); err != nil {
		return err
	}

	notifier.Shutdown()
	return nil
}
