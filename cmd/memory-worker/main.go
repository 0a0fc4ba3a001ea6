// Package main 记忆写入 worker 入口。
// 消费 Redis Stream 上的记忆更新消息，落库并更新向量索引。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/config"
	"novel-journey-api/internal/infrastructure/embedding"
	"novel-journey-api/internal/infrastructure/messaging"
	"novel-journey-api/internal/infrastructure/persistence/milvus"
	"novel-journey-api/internal/infrastructure/persistence/postgres"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "memory-worker",
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	embedder, err := embedding.NewProvider(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedding provider", err)
	}

	var vectorIndex memory.VectorIndex
	if cfg.Vector.Enabled {
		milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to init milvus", err)
		}
		defer func() { _ = milvusClient.Close() }()

		idx := milvus.NewIndex(milvusClient, embedder.Dimension())
		if err := idx.EnsureCollection(ctx); err != nil {
			logger.Warn(ctx, "milvus collection unavailable, writes go to postgres only", "error", err.Error())
		} else {
			vectorIndex = idx
		}
	}

	summaryRepo := postgres.NewSummaryRepository(pgClient)
	memStore := memory.NewStore(summaryRepo, embedder, vectorIndex)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamMemoryUpdate,
		Group:        messaging.ConsumerGroupMemWriter,
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler(messaging.MsgTypeMemoryUpdate, func(msgCtx context.Context, msg *messaging.Message) error {
		var payload messaging.MemoryUpdateMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		_, err := memStore.RecordChapterSummary(msgCtx, payload.ProjectID, payload.ChapterNumber, payload.Content, payload.Summary)
		return err
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	logger.Info(ctx, "memory-worker started", "stream", messaging.StreamMemoryUpdate)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	consumer.Stop()
	logger.Info(ctx, "memory-worker exited")
}

// hostnameConsumerName 生成消费者名：主机名加随机后缀
func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "memory-worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
