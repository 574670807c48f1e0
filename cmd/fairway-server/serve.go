package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"fairway/backend/internal/authz"
	"fairway/backend/internal/calendar"
	"fairway/backend/internal/config"
	"fairway/backend/internal/events"
	"fairway/backend/internal/logging"
	"fairway/backend/internal/service/timeslots"
	"fairway/backend/internal/store/postgres"
	"fairway/backend/internal/telemetry"
	grpcTransport "fairway/backend/internal/transport/grpc"
	httpTransport "fairway/backend/internal/transport/http"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC scheduling API and the ops HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending database migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		return err
	}

	log, logFile := logging.New(logOptions(cfg))
	defer logFile.Close()
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("version", version),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("log_level", cfg.LogLevel),
	)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTelEndpoint,
	}, log)
	if err != nil {
		log.Error("tracer init failed", slog.Any("err", err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", slog.Any("err", err))
		}
	}()

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migration failed", slog.Any("err", err))
			return err
		}
		log.Info("migrations applied")
	}

	static, err := calendar.NewStatic(cfg.CalendarHolidays, cfg.CalendarPeakWindows)
	if err != nil {
		log.Error("calendar config invalid", slog.Any("err", err))
		return err
	}
	var cal calendar.Source = static
	checks := map[string]httpTransport.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		cal = calendar.Fallback{Primary: calendar.NewRedisSource(rdb, log), Secondary: static, Logger: log}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("calendar backed by redis", slog.String("redis_addr", cfg.RedisAddr))
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitMQURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Error("rabbitmq connection failed", slog.Any("err", err))
			return err
		}
		defer func() {
			if err := rp.Close(); err != nil {
				log.Warn("rabbitmq close failed", slog.Any("err", err))
			}
		}()
		publisher = rp
		log.Info("publishing slot events", slog.String("exchange", cfg.RabbitMQExchange))
	}

	metrics := telemetry.NewMetrics()
	svc := timeslots.NewService(postgres.NewSlotRepo(db),
		timeslots.WithCourseDirectory(postgres.NewCourseRepo(db)),
		timeslots.WithCalendar(cal),
		timeslots.WithPublisher(publisher),
		timeslots.WithMetrics(metrics),
		timeslots.WithLogger(log),
		timeslots.WithRetry(timeslots.RetryPolicy{
			InitialInterval: cfg.RetryInitialInterval,
			MaxElapsed:      cfg.RetryMaxElapsed,
		}),
		timeslots.WithMaxGenerationDays(cfg.GenerationMaxDays),
	)

	serverCfg := grpcTransport.ServerConfig{RequestTimeout: cfg.GRPCRequestTimeout}
	if cfg.AuthEnabled {
		az, err := authz.NewAuthorizer(cfg.AuthPolicyFile)
		if err != nil {
			log.Error("authorizer init failed", slog.Any("err", err))
			return err
		}
		serverCfg.Authorizer = az
		serverCfg.TokenSecret = []byte(cfg.AuthJWTSecret)
	}
	grpcServer, health := grpcTransport.NewServer(svc, serverCfg, log)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpTransport.NewRouter(httpTransport.RouterConfig{
			Checks:  checks,
			Metrics: metrics.Handler(),
		}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		health.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("http shutdown failed", slog.Any("err", err))
		}
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
		return nil
	})
	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*bun.DB, error) {
	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, err
	}
	return db, nil
}

func logOptions(cfg config.Config) logging.Options {
	return logging.Options{
		Service:    "fairway-server",
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
