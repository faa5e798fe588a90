package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/ticketing/services/booking/config"
	"example.com/ticketing/services/booking/internal/cache"
	"example.com/ticketing/services/booking/internal/database"
	"example.com/ticketing/services/booking/internal/messaging"
	"example.com/ticketing/services/booking/internal/metrics"
	"example.com/ticketing/services/booking/internal/notifier"
	"example.com/ticketing/services/booking/internal/search"
	"example.com/ticketing/services/booking/internal/services"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the consumer for the booking-events subscription and the outbox forwarder`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connections. Broker and store connectivity
	// are required at startup; failing here terminates the process.
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Initialize cache; without it the consumer degrades to plain
	// at-least-once side effects
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without fact deduplication")
		redisCache = &cache.RedisCache{}
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without audit indexing")
		elasticClient = nil
	}

	// Initialize Service Bus clients
	bus, err := messaging.NewServiceBusClient(cfg.Azure, "booking-worker")
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus client")
		}
	}()

	subscriber, err := messaging.NewSubscriber(cfg.Azure, tracer)
	if err != nil {
		return err
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus subscriber")
		}
	}()

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize services
	bookingService := services.NewBookingService(
		db, readOnlyDB, redisCache, bus, elasticClient,
		notifier.NewLogNotifier(), metricsCollector, tracer, cfg.Outbox,
	)

	// Start the subscription processor
	g.Go(func() error {
		log.Info().
			Str("topic", cfg.Azure.Topic).
			Str("subscription", cfg.Azure.Subscription).
			Msg("Starting booking-events processor")
		return subscriber.ProcessMessages(ctx, bookingService.ProcessBookingMessage)
	})

	// Start the outbox forwarder: delivers any fact whose in-process
	// publish never happened or never got marked
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Outbox.Interval).Msg("Starting outbox forwarder")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Outbox.Interval),
			gocron.NewTask(func() {
				if err := bookingService.ForwardOutbox(ctx); err != nil {
					log.Error().Err(err).Msg("Outbox forwarding failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
