package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/niveshmitr/gateway/internal/config"
	"github.com/niveshmitr/gateway/internal/engine"
	api "github.com/niveshmitr/gateway/internal/http"
	"github.com/niveshmitr/gateway/internal/identity"
	"github.com/niveshmitr/gateway/internal/log"
	"github.com/niveshmitr/gateway/internal/metrics"
	"github.com/niveshmitr/gateway/internal/oauth"
	"github.com/niveshmitr/gateway/internal/queue"
	"github.com/niveshmitr/gateway/internal/repo"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Env == "prod")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Env == "prod" {
		tracer.Start(tracer.WithService("nivesh-gateway"))
		defer tracer.Stop()
	}

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	rds := repo.NewRedis(cfg.RedisAddr)
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, otp flow degraded", zap.Error(err))
	}
	otp := repo.NewOTPStore(rds, cfg.OTPTTL, cfg.OTPMaxAttempts)

	pub, err := queue.NewRabbit(cfg.RabbitURL, cfg.Exchange)
	if err != nil {
		logger.Warn("rabbit unreachable, events disabled", zap.Error(err))
		pub = queue.NewNoop()
	}
	defer pub.Close()

	linker := identity.NewLinker(identity.NewMongoProvider(store), cfg.CredentialSecret)
	eng := engine.NewClient(cfg.EngineURL, cfg.EngineTimeout, logger)
	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.OAuthStateSecret)

	h := api.NewHandler(store, otp, rds, linker, eng, google, pub,
		cfg.JWTSecret, cfg.RefreshTTLDays, cfg.OTPPerMin, cfg.Exchange)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("gateway listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
