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

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	v1 "github.com/PaulBabatuyi/marketchat/api/messaging/v1"
	"github.com/PaulBabatuyi/marketchat/internal/auth"
	"github.com/PaulBabatuyi/marketchat/internal/config"
	"github.com/PaulBabatuyi/marketchat/internal/data"
	"github.com/PaulBabatuyi/marketchat/internal/db"
	"github.com/PaulBabatuyi/marketchat/internal/feed"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
	"github.com/PaulBabatuyi/marketchat/internal/middleware"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	dbClient, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dbClient.Close(closeCtx)
	}()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	st := stores{
		conversations: data.NewConversationsStore(dbClient.ConversationsCollection()),
		messages:      data.NewMessagesStore(dbClient.MessagesCollection(), dbClient.ConversationsCollection()),
		users:         data.NewUsersStore(dbClient.UsersCollection()),
		listings:      data.NewListingsStore(dbClient.ListingsCollection()),
		notifications: data.NewNotificationsStore(dbClient.NotificationsCollection()),
	}

	// JWT_KEYS enables key rotation; otherwise the single JWT_SECRET is used.
	var jwtMgr *auth.JWTManager
	if cfg.JWTKeys != "" {
		keys, err := config.ParseJWTKeys(cfg.JWTKeys)
		if err != nil {
			return err
		}
		jwtMgr = auth.NewJWTManagerFromKeys(keys, cfg.JWTActiveKid, cfg.TokenTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	g, ctx := errgroup.WithContext(ctx)

	hub := feed.NewHub()
	var broker feed.Broker = feed.NewLocalBroker(hub)
	if cfg.RedisURL != "" {
		rb, err := feed.NewRedisBroker(ctx, cfg.RedisURL, hub, log)
		if err != nil {
			return err
		}
		defer rb.Close()
		g.Go(func() error { return rb.Run(ctx) })
		broker = rb
		log.Info().Msg("feed fan-out through redis")
	}

	// Writes are limited per authenticated user, with a small burst for
	// quick successive messages. Every message sends one notification, so
	// both share a quota; opening conversations is rarer.
	writes := middleware.Quota{PerMinute: cfg.RateLimitRPM, Burst: 5}
	limiterStore := middleware.NewLimiterStore(map[string]middleware.Quota{
		v1.MessagingService_SendMessage_FullMethodName:       writes,
		v1.MessagingService_SendNotification_FullMethodName:  writes,
		v1.MessagingService_StartConversation_FullMethodName: {PerMinute: max(cfg.RateLimitRPM/3, 1), Burst: 3},
	}, time.Minute)
	defer limiterStore.Stop()

	var serverOpts []grpc.ServerOption
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS certs: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(
			loggingUnaryInterceptor(),
			authUnaryInterceptor(jwtMgr),
			middleware.RateLimitUnaryInterceptor(limiterStore, claimsKey),
			middleware.ValidateUnaryInterceptor(validate),
		),
		grpc.ChainStreamInterceptor(
			loggingStreamInterceptor(),
			authStreamInterceptor(jwtMgr),
		),
	)

	grpcServer := grpc.NewServer(serverOpts...)
	registerService(grpcServer, newServer(st, hub, broker, validate))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info().Str("addr", listenAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		// Subscriptions only end when their clients leave, so GracefulStop is
		// bounded by the shutdown timeout.
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
