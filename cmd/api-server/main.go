// Package main API 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"novel-journey-api/internal/application/coordinator"
	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/application/prompt"
	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/config"
	"novel-journey-api/internal/infrastructure/embedding"
	"novel-journey-api/internal/infrastructure/llm"
	"novel-journey-api/internal/infrastructure/messaging"
	"novel-journey-api/internal/infrastructure/persistence/milvus"
	"novel-journey-api/internal/infrastructure/persistence/postgres"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/internal/interfaces/http/handler"
	"novel-journey-api/internal/interfaces/http/middleware"
	"novel-journey-api/internal/interfaces/http/router"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-server",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 数据层
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

	projectRepo := postgres.NewProjectRepository(pgClient)
	summaryRepo := postgres.NewSummaryRepository(pgClient)
	jobRepo := postgres.NewJobRepository(pgClient)
	cache := redis.NewCache(redisClient)

	// 记忆层：embedding + 可选向量索引
	embedder, err := embedding.NewProvider(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedding provider", err)
	}

	var milvusClient *milvus.Client
	var vectorIndex memory.VectorIndex
	if cfg.Vector.Enabled {
		milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to init milvus", err)
		}
		defer func() { _ = milvusClient.Close() }()

		idx := milvus.NewIndex(milvusClient, embedder.Dimension())
		if err := idx.EnsureCollection(ctx); err != nil {
			// 索引不可用时检索退化为全量扫描
			logger.Warn(ctx, "milvus collection unavailable, retrieval falls back to scan", "error", err.Error())
		} else {
			vectorIndex = idx
		}
	}

	memStore := memory.NewStore(summaryRepo, embedder, vectorIndex)

	// 写路径可切换为异步：投递 Redis Stream，由 memory-worker 落库
	var chapterMemory workflow.Memory = memStore
	if cfg.Memory.AsyncWriteback {
		producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
		chapterMemory = messaging.NewAsyncMemoryRecorder(producer, memStore)
	}

	// 生成层
	factory := llm.NewEinoFactory(&cfg.LLM)
	gw := gateway.New(factory, cfg.LLM.FallbackChains)
	prompts := prompt.NewRegistry()
	engine := workflow.NewEngine(gw, prompts, chapterMemory, cfg.LLM.DefaultModel, cfg.Memory, cfg.Generation)
	coord := coordinator.New(engine, jobRepo, cfg.Generation.MaxParallel)

	// HTTP 层
	handlers := router.Handlers{
		Health:    handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Project:   handler.NewProjectHandler(projectRepo, cache, engine),
		Workflow:  handler.NewWorkflowHandler(projectRepo, cache, engine),
		Chapter:   handler.NewChapterHandler(projectRepo, cache, engine, coord),
		Retrieval: handler.NewRetrievalHandler(memStore),
		Model:     handler.NewModelHandler(),
		Job:       handler.NewJobHandler(jobRepo),
		RateLimit: middleware.RateLimit(cfg.Security.RateLimit, redis.NewRateLimiter(redisClient)),
	}

	r := router.New(cfg, handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
