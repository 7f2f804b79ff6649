package main

import (
	"context"

	config "github.com/NordCoder/firmbook/internal/config/api"
	"github.com/NordCoder/firmbook/internal/obs/retry"
	outboxsvc "github.com/NordCoder/firmbook/internal/outbox"
	kafkarepo "github.com/NordCoder/firmbook/internal/repository/kafka"
	pg "github.com/NordCoder/firmbook/internal/repository/postgres"
	"go.uber.org/zap"
)

// startOutbox runs the relay from the outbox table to Kafka in the
// background. The returned func closes the producer once the relay stopped.
func startOutbox(ctx context.Context, cfg *config.Config, logger *zap.Logger, repo *pg.OutboxRepo) func() {
	producer := kafkarepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	dispatch := outboxsvc.MakeGlobalOutboxHandler(kafkarepo.NewAuthEventsKafka(producer), retry.PublishPolicy(logger))
	runner := outboxsvc.NewOutboxRunner(logger, repo, dispatch, cfg.Outbox.AsRunnerConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("outbox relay started", zap.String("topic", cfg.Kafka.Topic))
		runner.Run(ctx)
	}()

	return func() {
		<-done
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
}
