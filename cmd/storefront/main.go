package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/breaker"
	"github.com/DNLCodess/ReezBlank/internal/cart"
	"github.com/DNLCodess/ReezBlank/internal/catalog"
	"github.com/DNLCodess/ReezBlank/internal/checkout"
	"github.com/DNLCodess/ReezBlank/internal/config"
	"github.com/DNLCodess/ReezBlank/internal/events"
	h "github.com/DNLCodess/ReezBlank/internal/http"
	"github.com/DNLCodess/ReezBlank/internal/identity"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"github.com/DNLCodess/ReezBlank/internal/order"
	"github.com/DNLCodess/ReezBlank/internal/payment"
	"github.com/DNLCodess/ReezBlank/internal/store"
	"github.com/DNLCodess/ReezBlank/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, level, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	config.Watch(func(c *config.Config) {
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			log.Warn("ignoring log level from reloaded config", zap.String("level", c.LogLevel), zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.Stringer("log_level", level.Level()))
	}, func(err error) {
		log.Warn("config reload failed", zap.Error(err))
	})

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log = log.With(zap.String("instance_id", cfg.InstanceID))

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTelEndpoint, cfg.InstanceID)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Cart storage
	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer kv.Close()
	log.Info("cart store ready", zap.String("backend", cfg.StoreBackend))

	registry := cart.NewRegistry(kv, log, cfg.CartWriteTimeout)
	go registry.EvictIdleEvery(ctx, cfg.CartIdleTimeout)

	// Catalog
	products, err := catalog.NewSQLiteRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}

	// Orders
	orderRepo, closeOrders, err := openOrders(cfg)
	if err != nil {
		return err
	}
	defer closeOrders()
	orders := order.NewService(orderRepo, log)

	// Payments
	gateway := payment.NewBreakerGateway(
		payment.NewSimulator(payment.NewRandomStatus(cfg.PaymentSuccessPercent), cfg.PaymentDelay, log),
		breaker.DefaultConfig(),
		log,
	)

	// Identity
	var auth identity.Service = identity.Disabled{}
	if cfg.AuthURL != "" {
		auth = identity.NewClient(identity.ClientConfig{
			BaseURL: cfg.AuthURL,
			APIKey:  cfg.AuthAPIKey,
			Timeout: cfg.AuthTimeout,
			Breaker: breaker.DefaultConfig(),
		}, log)
	} else {
		log.Warn("AUTH_URL not set, sign-in disabled")
	}

	// Order events keep other replicas' in-memory carts in step
	var publisher checkout.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		p := events.NewPublisher(events.NewKafkaWriter(brokers...), cfg.InstanceID, log)
		defer p.Close()
		publisher = p

		poller := events.NewPoller(events.NewKafkaReader("storefront-"+cfg.InstanceID, brokers...), registry, cfg.InstanceID, log)
		defer poller.Close()
		go poller.Run(ctx)
	}

	svc := checkout.NewService(registry, gateway, orders, publisher, log)

	router := h.NewRouter(h.Deps{
		Carts:          registry,
		Catalog:        products,
		Identity:       auth,
		Sessions:       identity.NewSessionStore(kv),
		Checkout:       svc,
		Orders:         orders,
		Admins:         cfg.Admins(),
		CookieSecure:   cfg.CookieSecure,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Probes
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc probes listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	log.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error("http shutdown", zap.Error(serr))
	}
	grpcServer.GracefulStop()

	// flush pending cart writes before the store closes
	if cerr := registry.Close(shutdownCtx); cerr != nil {
		log.Error("cart flush incomplete", zap.Error(cerr))
	}

	log.Info("storefront stopped")
	return err
}

func openOrders(cfg *config.Config) (order.Repository, func(), error) {
	if cfg.OrdersBackend != config.OrdersPostgres {
		return order.NewMemoryRepository(), func() {}, nil
	}

	repo, err := order.NewPostgresRepository(&order.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect orders db: %w", err)
	}
	if err := repo.RunMigrations(); err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("migrate orders db: %w", err)
	}
	return repo, func() { repo.Close() }, nil
}
