package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/firmbook/internal/obs"
	kafkarepo "github.com/NordCoder/firmbook/internal/repository/kafka"
	"go.uber.org/zap"
)

func main() {
	logger, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "firmbook-kafka-init"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	brokers := splitList(env("KAFKA_BROKERS", "kafka:9092"))
	topics := splitList(env("KAFKA_TOPICS", "auth.events"))
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range topics {
		spec := kafkarepo.TopicSpec{
			Name:              t,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			MaxWait:           30 * time.Second,
		}
		if err := kafkarepo.EnsureTopic(ctx, brokers, spec, logger); err != nil {
			logger.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
		logger.Info("topic ready", zap.String("topic", t))
	}
	logger.Info("kafka-init ok")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
