package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/cache"
	"github.com/PetoAdam/homenavi/citysearch/internal/config"
	"github.com/PetoAdam/homenavi/citysearch/internal/country"
	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/httpapi"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/observability"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"
	"github.com/PetoAdam/homenavi/citysearch/internal/ratelimit"
	"github.com/PetoAdam/homenavi/citysearch/internal/realtime"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const serviceName = "citysearch"

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the location API, weather detail and websocket search sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			setupLogger(os.Stdout, cfg)
			return serve(cmd.Context(), cfg)
		},
	}
}

func newOWMClient(cfg *config.Config) *owm.Client {
	return owm.New(owm.Options{
		APIKey:         cfg.OpenWeather.APIKey,
		GeoBaseURL:     cfg.OpenWeather.GeoBaseURL,
		WeatherBaseURL: cfg.OpenWeather.WeatherBaseURL,
		Timeout:        cfg.OpenWeather.Timeout,
		RPS:            cfg.OpenWeather.RPS,
		Burst:          cfg.OpenWeather.Burst,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	shutdownObs, promHandler, tracer, err := observability.Setup(ctx, serviceName)
	if err != nil {
		return err
	}
	defer shutdownObs()

	client := newOWMClient(cfg)
	if client.Mock() {
		slog.Warn("OPENWEATHER_API_KEY not set, serving mock data")
	}
	gateway := geocode.NewGateway(client, geocode.NewMapper(country.NewRegistry()), cfg.Search.Limit)
	weatherCache := cache.New[models.WeatherReport](cfg.Cache.TTL)
	api := httpapi.NewServer(gateway, client, weatherCache)
	hub := realtime.NewHub(gateway,
		search.WithDelay(cfg.Search.Debounce),
		search.WithBindings(bindings(cfg)),
	)

	var locationMW []func(http.Handler) http.Handler
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		rl := ratelimit.New(rdb, serviceName+":location", ratelimit.LimiterConfig{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		locationMW = append(locationMW, rl.Middleware(ratelimit.KeyByIP))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(httpapi.CorrelationID)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", httpapi.CorrelationHeader},
		ExposedHeaders: []string{httpapi.CorrelationHeader},
		MaxAge:         300,
	}))
	r.Use(observability.Middleware(tracer, serviceName))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promHandler)
	api.RegisterRoutes(r, locationMW...)
	r.Handle("/ws/search", hub)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("citysearch started", "port", cfg.Port, "mock", client.Mock())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Cache.TTL)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := weatherCache.Sweep(); n > 0 {
					slog.Debug("weather cache swept", "removed", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
