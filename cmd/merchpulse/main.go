package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/yair/merchpulse/pkg/analysis"
	"github.com/yair/merchpulse/pkg/collectors"
	"github.com/yair/merchpulse/pkg/config"
	"github.com/yair/merchpulse/pkg/integrations"
	"github.com/yair/merchpulse/pkg/integrations/scrapers"
	"github.com/yair/merchpulse/pkg/interfaces"
	"github.com/yair/merchpulse/pkg/metrics"
	"github.com/yair/merchpulse/pkg/ratelimit"
)

func main() {
	log.Println("Starting MerchPulse...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize database
	dialect, err := collectors.ParseDialect(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Failed to select database: %v", err)
	}
	db, err := openDatabase(dialect, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store, err := collectors.NewStore(db, dialect)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	log.Printf("Using %s store", dialect)

	// Outbound request spacing, shared by every scraper and the Spotify client
	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	defer closeLimiter()

	registry := scrapers.NewDefaultRegistry(
		scrapers.ScrapingConfig{
			UserAgent:    cfg.Scrapers.UserAgent,
			Timeout:      cfg.Scrapers.RequestTimeout(),
			MaxRetries:   cfg.Scrapers.MaxRetries,
			RetryBackoff: cfg.Scrapers.RetryBackoff(),
		},
		scrapers.ShopeeConfig{
			PageSize:    cfg.Scrapers.Shopee.PageSize,
			MaxPages:    cfg.Scrapers.Shopee.MaxPages,
			MaxRetries:  cfg.Scrapers.Shopee.MaxRetries,
			BackoffStep: time.Duration(cfg.Scrapers.Shopee.BackoffStepSeconds) * time.Second,
		},
		limiter,
	).Filter(cfg.Scrapers.Platforms)
	log.Printf("Enabled platforms: %v", registry.Platforms())

	// Initialize services
	m := metrics.New()
	scorer := analysis.NewScorer()
	ingestionService := interfaces.NewIngestionService(store, registry, scorer, m, cfg.Scrapers.MaxConcurrent)
	recalculationService := interfaces.NewRecalculationService(store, scorer, m, cfg.Forecast.Workers)
	eventService := interfaces.NewEventService(store)
	marketplaceService := interfaces.NewMarketplaceService(store, ingestionService, cfg.Forecast.DaysAhead)

	// Spotify is optional; without it the refresh endpoint answers 503
	var popularity interfaces.PopularitySource
	if cfg.SpotifyEnabled() {
		spotifyClient, err := integrations.NewSpotifyClient(integrations.SpotifyConfig{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
		})
		if err != nil {
			log.Printf("Warning: Failed to create Spotify client: %v", err)
		} else {
			popularity = integrations.NewPopularitySeeder(spotifyClient, store.Artists(), limiter)
		}
	}
	artistService := interfaces.NewArtistService(store.Artists(), popularity)

	// Setup router
	router := mux.NewRouter()
	interfaces.NewEventHandler(eventService).RegisterRoutes(router)
	interfaces.NewScrapingHandler(ingestionService, recalculationService, eventService).RegisterRoutes(router)
	interfaces.NewMarketplaceHandler(marketplaceService).RegisterRoutes(router)
	interfaces.NewArtistHandler(artistService).RegisterRoutes(router)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	router.Handle("/metrics", m.Handler()).Methods("GET")

	// Log available routes
	log.Println("Available routes:")
	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		log.Printf("  %v %s", methods, path)
		return nil
	})

	// Background jobs share this context and stop before the store closes
	jobs, stopJobs := context.WithCancel(context.Background())
	schedulerDone := make(chan struct{})
	if cfg.Scheduler.Enabled {
		scheduler := interfaces.NewScheduler(ingestionService, recalculationService, interfaces.SchedulerConfig{
			IngestionInterval:     cfg.Scheduler.IngestionInterval(),
			RecalculationInterval: cfg.Scheduler.RecalculationInterval(),
		})
		go func() {
			defer close(schedulerDone)
			scheduler.Run(jobs)
		}()
	} else {
		close(schedulerDone)
	}

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopJobs()
	select {
	case <-schedulerDone:
	case <-ctx.Done():
		log.Println("Scheduler did not stop in time")
	}

	log.Println("Server stopped. That was a good drum break.")
}

func openDatabase(dialect collectors.Dialect, cfg *config.DatabaseConfig) (*sql.DB, error) {
	if dialect == collectors.DialectPostgres {
		return collectors.NewPostgresDB(cfg.GetDSN())
	}
	return collectors.NewSQLiteDB(cfg.Path)
}

func newLimiter(cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		return ratelimit.NewWithInterval(cfg.Scrapers.RateLimitInterval()), func() {}, nil
	}

	limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
		Prefix:   cfg.RateLimit.RedisPrefix,
		Interval: cfg.Scrapers.RateLimitInterval(),
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Using redis rate limiter at %s", cfg.RateLimit.RedisAddr)
	return limiter, func() {
		if err := limiter.Close(); err != nil {
			log.Printf("Failed to close rate limiter: %v", err)
		}
	}, nil
}
