package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	authcore "github.com/NordCoder/firmbook/internal/auth"
	config "github.com/NordCoder/firmbook/internal/config/api"
	pg "github.com/NordCoder/firmbook/internal/repository/postgres"
	rds "github.com/NordCoder/firmbook/internal/repository/redis"
	"github.com/NordCoder/firmbook/internal/services/api/auth"
	"github.com/NordCoder/firmbook/internal/services/api/health"
	"go.uber.org/zap"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/api.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting auth api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb, err := initRedis(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	registry := rds.NewRefreshRegistry(rdb)
	blacklist := rds.NewBlacklist(rdb)
	minter, err := authcore.NewMinter(registry, authcore.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		logger.Fatal("token minter", zap.Error(err))
	}

	deps := auth.Deps{
		Users:     pg.NewUserRepo(db),
		Hasher:    authcore.NewBcryptHasher(cfg.Auth.BcryptCost),
		Minter:    minter,
		Blacklist: blacklist,
		Tx:        pg.NewTransactor(db, logger),
		Logger:    logger,
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	waitRelay := func() {}
	if cfg.Kafka.Enable {
		outboxRepo := pg.NewOutboxRepo(db)
		deps.Outbox = outboxRepo
		waitRelay = startOutbox(relayCtx, cfg, logger, outboxRepo)
	}
	uc := auth.NewUseCase(deps)

	checker := health.NewChecker(logger,
		health.Probe{Name: "postgres", Pinger: db},
		health.Probe{Name: "redis", Pinger: rdb},
	)

	grpcServer, grpcHealth, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	watchCtx, stopWatch := context.WithCancel(rootCtx)
	defer stopWatch()
	go checker.Watch(watchCtx, grpcHealth, cfg.Server.HealthInterval)

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, logger) }()

	httpSrv := buildHTTPServer(cfg, logger, httpDeps{
		Usecase: uc,
		Gateway: auth.NewGateway(minter, blacklist, logger),
		Health:  checker,
	})
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	stopWatch()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	stopRelay()
	waitRelay()
	logger.Info("bye")
}
