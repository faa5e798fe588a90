package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/ticketing/services/booking/config"
	"example.com/ticketing/services/booking/internal/api"
	"example.com/ticketing/services/booking/internal/cache"
	"example.com/ticketing/services/booking/internal/database"
	"example.com/ticketing/services/booking/internal/messaging"
	"example.com/ticketing/services/booking/internal/metrics"
	"example.com/ticketing/services/booking/internal/notifier"
	"example.com/ticketing/services/booking/internal/search"
	"example.com/ticketing/services/booking/internal/services"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that handles reservations and availability reads`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connections
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = &cache.RedisCache{}
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	// Initialize Elasticsearch client; the API process does not index,
	// but the service is constructed uniformly across commands
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without audit indexing")
		elasticClient = nil
	}

	// Initialize Service Bus publisher. Without it reservations still
	// commit; facts wait in the outbox for the worker's forwarder.
	bus, err := messaging.NewServiceBusClient(cfg.Azure, "booking-api")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus client, facts will be delivered from the outbox")
		bus = nil
	} else {
		defer func() {
			if err := bus.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing Service Bus client")
			}
		}()
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("database", true)

	// Initialize services
	bookingService := services.NewBookingService(
		db, readOnlyDB, redisCache, bus, elasticClient,
		notifier.NewLogNotifier(), metricsCollector, tracer, cfg.Outbox,
	)

	// Initialize and start the server
	server := api.NewServer(cfg, bookingService, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
