package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/iptracker/internal/config"
	"github.com/evyataryagoni/iptracker/internal/controller"
	"github.com/evyataryagoni/iptracker/internal/geoapi"
	"github.com/evyataryagoni/iptracker/internal/handler"
	"github.com/evyataryagoni/iptracker/internal/limiter"
	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/evyataryagoni/iptracker/internal/mapview"
	"github.com/evyataryagoni/iptracker/internal/metrics"
	"github.com/evyataryagoni/iptracker/internal/render"
	"github.com/evyataryagoni/iptracker/internal/router"
	"github.com/evyataryagoni/iptracker/internal/session"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	appConfig := config.Load()
	appLogger := setupLogger(appConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("Server failed")
	}
	appLogger.Info().Msg("Server stopped")
}

// run wires the application and blocks until ctx is canceled or a component fails
func run(ctx context.Context, appConfig *config.Config, log *logger.Logger) error {
	metricsCollector := metrics.New()

	rateLimiter, err := limiter.New(ctx, limiter.Config{
		Type:          appConfig.RateLimitType,
		Limit:         appConfig.RateLimit,
		Window:        time.Duration(appConfig.RateLimitWindow) * time.Second,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	defer rateLimiter.Close()

	log.Info().
		Str("type", appConfig.RateLimitType).
		Int("limit", appConfig.RateLimit).
		Int("window_seconds", appConfig.RateLimitWindow).
		Float64("lookups_per_second", appConfig.LookupsPerSecond()).
		Msg("Rate limiter initialized")

	geoClient := geoapi.NewHTTPClient(geoapi.Config{
		BaseURL: appConfig.GeoAPIURL,
		APIKey:  appConfig.GeoAPIKey,
		Timeout: appConfig.GeoAPITimeout,
	}, metricsCollector)

	controllerOpts := controller.Options{
		DefaultView: mapview.View{
			Center: mapview.LatLng{Lat: appConfig.MapDefaultLat, Lng: appConfig.MapDefaultLng},
			Zoom:   appConfig.MapDefaultZoom,
		},
		Tiles:   tileLayer(appConfig),
		Metrics: metricsCollector,
		Logger:  log,
	}
	sessions := session.NewRegistry(func() *controller.ViewController {
		return controller.New(geoClient, controllerOpts)
	}, appConfig.SessionTTL, metricsCollector)

	renderer, err := render.NewRenderer(log)
	if err != nil {
		return err
	}

	appRouter := router.SetupRouter(router.Deps{
		Handler:      handler.NewTrackerHandler(renderer, log),
		Sessions:     sessions,
		Limiter:      rateLimiter,
		Metrics:      metricsCollector,
		Logger:       log,
		SecureCookie: appConfig.CookieSecure,

		TrustProxyHeaders: appConfig.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           appRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("page", "http://localhost:"+appConfig.Port+"/").
			Str("health_check", "http://localhost:"+appConfig.Port+"/health").
			Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
			Msg("Server is running")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:      appConfig.LogLevel,
		Pretty:     appConfig.LogPretty,
		OutputFile: appConfig.LogFile,
	})

	appLogger.Info().Msg("Starting IP Address Tracker...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("geo_api_url", appConfig.GeoAPIURL).
		Bool("geo_api_key_set", appConfig.GeoAPIKey != "").
		Dur("geo_api_timeout", appConfig.GeoAPITimeout).
		Dur("session_ttl", appConfig.SessionTTL).
		Bool("trust_proxy_headers", appConfig.TrustProxyHeaders).
		Msg("Configuration loaded")

	if appConfig.GeoAPIKey == "" {
		appLogger.Warn().Msg("GEO_API_KEY is not set, lookups will be rejected upstream")
	}

	return appLogger
}

// tileLayer applies the configured tile URL to the default layer
func tileLayer(appConfig *config.Config) mapview.TileLayer {
	tiles := mapview.OpenStreetMap
	if appConfig.MapTileURL != "" {
		tiles.URLTemplate = appConfig.MapTileURL
	}
	return tiles
}
