package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/event-pos/internal/adapter/handler"
	"github.com/rl1809/event-pos/internal/adapter/messaging"
	"github.com/rl1809/event-pos/internal/adapter/storage"
	"github.com/rl1809/event-pos/internal/auth"
	"github.com/rl1809/event-pos/internal/config"
	"github.com/rl1809/event-pos/internal/core/service"
	"github.com/rl1809/event-pos/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLife)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	redisAdapter := storage.NewRedisAdapter(rdb, storage.RedisTTLs{
		Cart:       cfg.CartTTL,
		CommitLock: cfg.CommitLockTTL,
		Summary:    cfg.DashboardCacheTTL,
	})

	// Initialize services
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	dashboardService := service.NewDashboardService(mysqlAdapter, redisAdapter, logger)
	authService := service.NewAuthService(mysqlAdapter, tokens, logger)
	inventoryService := service.NewInventoryService(mysqlAdapter, logger)

	events, amqpConn := orderEvents(ctx, cfg, dashboardService, logger)
	checkoutService := service.NewCheckoutService(mysqlAdapter, redisAdapter, mysqlAdapter, events, logger)

	// Initialize gRPC server
	grpcHandler := handler.NewGRPCHandler(dashboardService, authService, tokens, logger)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcHandler.UnaryAuthInterceptor))
	grpcHandler.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.SalesServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(checkoutService, dashboardService, inventoryService, authService, tokens, logger)
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Router(store),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Stop the event subscriber before closing connections
	cancel()
	if amqpConn != nil {
		amqpConn.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

// orderEvents wires the order event flow. With a broker, commits are published
// to RabbitMQ and the dashboard consumes them from its own queue; without one
// the dashboard is notified in-process.
func orderEvents(ctx context.Context, cfg config.Config, dashboard *service.DashboardService, logger *zap.Logger) (port.OrderEventPublisher, *amqp.Connection) {
	inProcess := port.OrderEventPublisherFunc(dashboard.HandleOrderCommitted)
	if cfg.AMQPURL == "" {
		logger.Info("no AMQP_URL set, order events stay in-process")
		return inProcess, nil
	}

	conn, ch, err := messaging.SetupConn(ctx, cfg.AMQPURL, logger)
	if err != nil {
		logger.Error("failed to set up RabbitMQ, order events stay in-process", zap.Error(err))
		return inProcess, nil
	}

	subCh, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open subscriber channel, order events stay in-process", zap.Error(err))
		conn.Close()
		return inProcess, nil
	}
	if err := messaging.NewSubscriber(subCh, logger).SubscribeOrderCommitted(ctx, dashboard.HandleOrderCommitted); err != nil {
		logger.Error("failed to subscribe to order events, order events stay in-process", zap.Error(err))
		conn.Close()
		return inProcess, nil
	}

	logger.Info("connected to rabbitmq", zap.String("exchange", messaging.ExchangeName))
	return messaging.NewPublisher(ch), conn
}
