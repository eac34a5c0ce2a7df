package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/internal/api"
	"github.com/RMahshie/ftmwcat/internal/categorize"
	"github.com/RMahshie/ftmwcat/internal/config"
	"github.com/RMahshie/ftmwcat/internal/fitting"
	"github.com/RMahshie/ftmwcat/internal/hardware"
	"github.com/RMahshie/ftmwcat/internal/metrics"
	"github.com/RMahshie/ftmwcat/internal/processing"
	"github.com/RMahshie/ftmwcat/internal/repository/postgres"
	"github.com/RMahshie/ftmwcat/internal/storage"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Server.Env == "prod" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgres.Migrate(migrateCtx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	cancelMigrate()
	batchRepo := postgres.NewPostgresBatchRepository(db)

	// Instrument and analysis collaborators
	var lines []hardware.Line
	if cfg.Instrument.SimulatorLines != "" {
		lines, err = hardware.LoadLines(cfg.Instrument.SimulatorLines)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load simulator lines")
		}
	}
	executor := hardware.NewSimulator(hardware.WithLines(lines...))

	analyzer := fitting.NewSignalAnalyzer(cfg.Fitting.SaturationLevel)
	fitter, err := fitting.New(cfg.Fitting.Mode, cfg.Fitting.Threshold, analyzer)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fitting configuration")
	}
	selector, err := categorize.SelectorByName(cfg.Categorizer.BestResultPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid categorizer configuration")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	procOpts := []processing.Option{
		processing.WithEngineOptions(
			categorize.WithSelector(selector),
			categorize.WithSignalAnalyzer(analyzer),
		),
		processing.WithMetrics(metrics.New(registry)),
	}

	// Optional raw signal archive
	var s3Service storage.S3Service
	if cfg.AWS.ArchiveSignals {
		s3Service, err = storage.NewS3Service(storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure signal storage")
		}
		procOpts = append(procOpts, processing.WithSignalArchive(s3Service))
	}

	processingSvc := processing.NewProcessingService(batchRepo, executor, fitter, procOpts...)

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("FTMW Autocat API", "1.0.0")
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		if err := db.PingContext(ctx); err != nil {
			resp.Body.Status = "degraded"
		}
		resp.Body.Version = "1.0.0"
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, batchRepo, s3Service, processingSvc, cfg.Instrument.MaxAttenuation)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("Starting FTMW Autocat API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
