package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/adapter/postgres"
	"github.com/YelzhanWeb/comanda/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/comanda/internal/app/kitchen"
	"github.com/YelzhanWeb/comanda/internal/app/notify"
	"github.com/YelzhanWeb/comanda/internal/app/order"
	"github.com/YelzhanWeb/comanda/internal/app/payment"
	"github.com/YelzhanWeb/comanda/internal/app/venue"
	"github.com/YelzhanWeb/comanda/internal/client/board"
	"github.com/YelzhanWeb/comanda/internal/client/retryqueue"
	"github.com/YelzhanWeb/comanda/internal/client/stream"
	"github.com/YelzhanWeb/comanda/internal/config"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	amqpAdapter "github.com/YelzhanWeb/comanda/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/comanda/internal/adapter/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const capabilityCacheTTL = 5 * time.Minute

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: api, notification-subscriber, kitchen-board, sync")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	// Initialize logger
	lgr := logger.New(*mode, cfg.Log.Level)
	defer lgr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Route to appropriate service
	switch *mode {
	case "api":
		err = runAPI(ctx, cfg, lgr)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, lgr)
	case "kitchen-board":
		err = runKitchenBoard(ctx, cfg, lgr)
	case "sync":
		err = runSync(ctx, cfg, lgr)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}

	if err != nil {
		lgr.Error("service_failed", "Service stopped with error", "runtime", nil, err)
		lgr.Sync()
		os.Exit(1)
	}
	lgr.Info("shutdown_complete", "Service stopped", "shutdown", nil)
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	if cfg.Database.Migrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
	}

	store := postgres.NewStore(db)
	hub := notify.NewHub(cfg.Notify.SubscriberBuffer, lgr)

	g, ctx := errgroup.WithContext(ctx)

	// Without a broker events go straight to the local hub; with one they
	// travel through the fanout exchange so every instance sees them.
	var sink interfaces.EventSink = hub
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			return err
		}
		defer mqConn.Close()

		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})

		sink = notify.NewBrokerSink(rabbitmq.NewPublisher(mqConn))
		consumer := rabbitmq.NewConsumer(mqConn, lgr, cfg.Client.ReconnectDelay)
		handler := amqpAdapter.NewNotificationHandler(hub, lgr)
		g.Go(func() error {
			if err := consumer.ConsumeEvents(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	dispatcher := notify.NewDispatcher(sink, cfg.Notify.DispatchBuffer, lgr)
	g.Go(func() error { return dispatcher.Run(ctx) })

	// Initialize services
	resolver := venue.NewResolver(store.Venues(), capabilityCacheTTL)
	orderService := order.NewService(store, resolver, dispatcher, lgr, cfg.Kitchen.Location(), cfg.Idempotency.Window)
	paymentService := payment.NewService(store, dispatcher, lgr, cfg.Idempotency.Window)
	kitchenService := kitchen.NewService(store, dispatcher, lgr)

	gin.SetMode(gin.ReleaseMode)
	router := httpAdapter.NewRouter(cfg.HTTP, httpAdapter.Handlers{
		Orders:   httpAdapter.NewOrderHandler(orderService, lgr),
		Payments: httpAdapter.NewPaymentHandler(paymentService, lgr),
		Kitchen:  httpAdapter.NewKitchenHandler(kitchenService, lgr),
		Events:   httpAdapter.NewEventsHandler(hub, cfg.Notify.HeartbeatInterval, lgr),
		Health:   db.Ping,
	}, lgr)

	// No WriteTimeout: event streams stay open for the client's lifetime.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g.Go(func() error {
		lgr.Info("service_started", fmt.Sprintf("API started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
			"port":     cfg.HTTP.Port,
			"rabbitmq": cfg.RabbitMQ.Enabled,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, lgr, cfg.Client.ReconnectDelay)
	handler := amqpAdapter.NewNotificationHandler(nil, lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	if err := consumer.ConsumeEvents(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runKitchenBoard(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	if cfg.Client.VenueID == 0 || cfg.Client.ActorID == 0 {
		return fmt.Errorf("client.venue_id and client.actor_id are required for kitchen-board mode")
	}

	api := retryqueue.NewHTTPSender(cfg.Client.BaseURL, cfg.Client.VenueID, cfg.Client.ActorID, 0)
	sub := stream.NewSubscriber(cfg.Client.BaseURL, cfg.Client.VenueID, cfg.Client.ActorID, cfg.Client.ReconnectDelay, lgr)
	b := board.New(api, os.Stdout, cfg.Client.PollInterval, lgr)

	lgr.Info("service_started", "Kitchen board started", "startup", map[string]interface{}{
		"base_url": cfg.Client.BaseURL,
		"venue_id": cfg.Client.VenueID,
	})

	return b.Run(ctx, sub)
}

// runSync reads one JSON request per stdin line and submits it through the
// offline retry queue, which keeps draining in the background.
func runSync(ctx context.Context, cfg *config.Config, lgr logger.Logger) error {
	if cfg.Client.VenueID == 0 || cfg.Client.ActorID == 0 {
		return fmt.Errorf("client.venue_id and client.actor_id are required for sync mode")
	}

	store, err := retryqueue.OpenStore(cfg.Client.QueuePath)
	if err != nil {
		return err
	}
	defer store.Close()

	sender := retryqueue.NewHTTPSender(cfg.Client.BaseURL, cfg.Client.VenueID, cfg.Client.ActorID, 0)
	queue := retryqueue.New(store, sender, lgr, retryqueue.Options{
		RetryDelay: cfg.Client.RetryDelay,
		MaxRetries: cfg.Client.MaxRetries,
	})

	depth, err := queue.Depth(ctx)
	if err != nil {
		return err
	}
	lgr.Info("service_started", "Sync client started", "startup", map[string]interface{}{
		"queue_path":  cfg.Client.QueuePath,
		"queue_depth": depth,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(ctx) })
	g.Go(func() error { return queue.WatchConnectivity(ctx, cfg.Client.ProbeInterval) })

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// stdin closed; keep draining until interrupted
					<-ctx.Done()
					return nil
				}
				submit(ctx, queue, line, lgr)
			}
		}
	})

	return g.Wait()
}

func submit(ctx context.Context, queue *retryqueue.Queue, line []byte, lgr logger.Logger) {
	if len(line) == 0 {
		return
	}

	var req retryqueue.Request
	if err := json.Unmarshal(line, &req); err != nil {
		lgr.Error("request_parse_failed", "Failed to parse request line", "", nil, err)
		return
	}

	resp, err := queue.Do(ctx, req)
	switch {
	case errors.Is(err, retryqueue.ErrQueued):
		fmt.Println("queued:", req.Operation)
	case err != nil:
		fmt.Println("failed:", req.Operation, err)
	default:
		fmt.Printf("ok: %s %d %s\n", req.Operation, resp.StatusCode, resp.Body)
	}
}
