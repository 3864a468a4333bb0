package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"multitool/internal/catalog"
	"multitool/internal/http/handlers"
	httpapi "multitool/internal/http/httpapi"
	"multitool/internal/infra"
	"multitool/internal/infra/geoip"
	"multitool/internal/ledger"
	"multitool/internal/middleware"
	"multitool/internal/storage"
	imagetools "multitool/internal/tools/image"
	"multitool/internal/upload"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	outputs, err := storage.NewOutputStore(cfg.OutputDir, cfg.OutputBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init output store")
	}
	scratch, err := storage.NewScratchStore(cfg.ScratchDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("init scratch store")
	}

	ctx := context.Background()

	// The ledger is optional: without DATABASE_URL the history and stats
	// endpoints report it as disabled.
	var recorder *ledger.Recorder
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		recorder = ledger.NewRecorder(infra.NewSQLRunner(dbpool, logger))
		if err := recorder.Ensure(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare ledger schema")
		}
	} else {
		logger.Info().Msg("DATABASE_URL not set, operation ledger disabled")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
		if closer, ok := resolver.(interface{ Close() error }); ok {
			defer closer.Close()
		}
	}

	segmenter := imagetools.NewSegmenter(cfg.RemoveBGModelPath, cfg.ONNXRuntimeLibPath)

	app := &handlers.App{
		Log:            logger,
		Registry:       catalog.Build(outputs, segmenter),
		Uploads:        upload.NewValidator(scratch, cfg.MaxUploadBytes),
		Outputs:        outputs,
		Ledger:         recorder,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	router := httpapi.NewRouter(app, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
