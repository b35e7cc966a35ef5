package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/config"
	"github.com/suPer8Hu/prompt-lab/internal/db"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi"
	"github.com/suPer8Hu/prompt-lab/internal/httpapi/handlers"
	"github.com/suPer8Hu/prompt-lab/internal/logging"
	"github.com/suPer8Hu/prompt-lab/internal/store/rabbitmq"
	"github.com/suPer8Hu/prompt-lab/internal/store/redisstore"
	"github.com/suPer8Hu/prompt-lab/internal/variation"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	deps := httpapi.Deps{Log: log}

	var active chat.ActiveSession
	if cfg.ActiveSessionStore == "redis" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rds.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rds.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		active = rds
		deps.Limiter = rds
	}

	svc := chat.NewService(chat.NewRepo(gdb), active, variation.NewGenerator(nil), log.Named("chat"))

	// async experiments are optional; the sync API works without a broker
	var publisher handlers.JobPublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Warn("rabbitmq unavailable, async experiments disabled", zap.Error(err))
	} else {
		defer pub.Close()
		publisher = pub
	}

	deps.Handler = handlers.NewHandler(gdb, svc, publisher, log.Named("http"))
	r := httpapi.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("db", cfg.DBDriver),
			zap.String("active_session_store", cfg.ActiveSessionStore),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
