package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/bohemiyan/governance"
	"github.com/bohemiyan/governance/internal/db"
	"github.com/bohemiyan/governance/internal/routes"
	"github.com/bohemiyan/governance/zapLogger"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "migrate",
				Usage:   "Run schema migration before serving",
				Value:   true,
				Sources: cli.EnvVars("AUTO_MIGRATE"),
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logFile, err := setup(command.Root())
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log := zapLogger.Log
	defer log.Sync()

	pgDB, err := db.NewPostgresDB(cfg)
	if err != nil {
		return err
	}
	defer pgDB.Close()
	log.Info("Successfully connected to PostgreSQL database")

	store := governance.NewGormStore(pgDB.GormDB)
	if command.Bool("migrate") {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	var (
		cache     governance.MembershipCache
		routeOpts = routes.Options{
			JWTSecret:      []byte(cfg.JWTSecret),
			CallbackSecret: []byte(cfg.CallbackSecret),
			Logger:         log.Named("http"),
		}
	)
	if cfg.RedisEnabled() {
		redisDB, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisDB.Close()
		redisCache := governance.NewRedisMembershipCache(redisDB, cfg.CachePrefix, cfg.CacheTTL)
		cache = redisCache
		routeOpts.Cache = redisCache
		log.Info("Successfully connected to Redis")
	}
	if cfg.CallbackSecret == "" {
		log.Warn("SIGNATURE_CALLBACK_SECRET is not set; signature callbacks are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := governance.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	defer pubSub.Close()
	if err := deliverNotifications(ctx, pubSub, cfg.NotificationTopic, log.Named("notifications")); err != nil {
		return err
	}

	svc, err := governance.NewService(governance.Config{
		Store:              store,
		Cache:              cache,
		Notifier:           governance.NewWatermillNotifier(pubSub, cfg.NotificationTopic),
		Metrics:            metrics,
		Logger:             log.Named("governance"),
		EnableAuditLogging: cfg.AuditLogging,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize governance service: %w", err)
	}
	defer svc.Close()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(zapLogger.FiberLoggingMiddleware(logFile))
	routeOpts.Gatherer = reg
	routes.Setup(app, svc, routeOpts)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Errorw("Failed to shut down HTTP server", "error", err)
		}
	}()

	log.Infof("Server started on port %d", cfg.AppPort)
	return app.Listen(fmt.Sprintf(":%d", cfg.AppPort))
}

// deliverNotifications consumes published notifications. Delivery to mail or
// chat lives outside this service; here they are logged for the operator.
func deliverNotifications(ctx context.Context, sub message.Subscriber, topic string, log *zap.SugaredLogger) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	go func() {
		for msg := range messages {
			var n governance.Notification
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				log.Errorw("Dropping malformed notification", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			log.Infow("Notification", "recipient_id", n.RecipientID, "priority", n.Priority, "title", n.Title, "workflow_id", n.WorkflowID)
			msg.Ack()
		}
	}()
	return nil
}
