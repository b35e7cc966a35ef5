package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/config"
	"github.com/suPer8Hu/prompt-lab/internal/db"
	"github.com/suPer8Hu/prompt-lab/internal/logging"
	"github.com/suPer8Hu/prompt-lab/internal/store/rabbitmq"
	"github.com/suPer8Hu/prompt-lab/internal/variation"
	"github.com/suPer8Hu/prompt-lab/internal/worker"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// jobs carry their session id, so the worker never reads the pointer
	svc := chat.NewService(chat.NewRepo(gdb), nil, variation.NewGenerator(nil), log.Named("chat"))

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.QueuesFor(cfg.RabbitQueue).Declare(ch); err != nil {
		log.Fatal("queue declare", zap.Error(err))
	}

	// strict concurrency control
	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume", zap.Error(err))
	}

	retry, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("retry publisher", zap.Error(err))
	}
	defer retry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started",
		zap.String("queue", cfg.RabbitQueue),
		zap.Int("concurrency", concurrency),
	)
	worker.NewPool(svc, retry, concurrency, log.Named("worker")).Run(ctx, msgs)
}
