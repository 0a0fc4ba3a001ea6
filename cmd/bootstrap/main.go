// Package main 初始化数据库表结构与向量集合
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"novel-journey-api/internal/config"
	"novel-journey-api/internal/infrastructure/persistence/milvus"
	"novel-journey-api/internal/infrastructure/persistence/postgres"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS projects (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id    VARCHAR(128),
		name        VARCHAR(255) NOT NULL,
		description TEXT,
		state       JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_id)`,

	`CREATE TABLE IF NOT EXISTS chapter_summaries (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id     UUID NOT NULL,
		chapter_number INTEGER NOT NULL,
		summary        JSONB,
		embedding      JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_summary_project_chapter
		ON chapter_summaries (project_id, chapter_number)`,

	`CREATE TABLE IF NOT EXISTS generation_jobs (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id      UUID NOT NULL,
		batch_id        UUID,
		chapter_number  INTEGER NOT NULL,
		mode            VARCHAR(20),
		status          VARCHAR(20) NOT NULL DEFAULT 'pending',
		error_message   TEXT,
		model_id        VARCHAR(128),
		tokens_prompt   INTEGER NOT NULL DEFAULT 0,
		tokens_complete INTEGER NOT NULL DEFAULT 0,
		duration_ms     INTEGER NOT NULL DEFAULT 0,
		retry_count     INTEGER NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at      TIMESTAMPTZ,
		completed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_project ON generation_jobs (project_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_batch ON generation_jobs (batch_id)`,
}

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", postgres.DSN(&cfg.Database.Postgres))
	if err != nil {
		log.Fatalf("failed to open postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}

	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("migration %d failed: %v", i, err)
		}
	}
	fmt.Println("Postgres schema ready.")

	if cfg.Vector.Enabled {
		milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			log.Fatalf("failed to connect milvus: %v", err)
		}
		defer func() { _ = milvusClient.Close() }()

		dimension := cfg.Embedding.Dimension
		if dimension <= 0 {
			dimension = 768
		}
		idx := milvus.NewIndex(milvusClient, dimension)
		if err := idx.EnsureCollection(ctx); err != nil {
			log.Fatalf("failed to ensure milvus collection: %v", err)
		}
		fmt.Println("Milvus collection ready.")
	} else {
		fmt.Println("Vector index disabled, skipping Milvus setup.")
	}

	fmt.Println("Bootstrap completed successfully.")
}
