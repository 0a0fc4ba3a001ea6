// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"novel-journey-api/internal/domain/entity"
)

// JobRepository 生成任务仓储接口
type JobRepository interface {
	Create(ctx context.Context, job *entity.GenerationJob) error
	Update(ctx context.Context, job *entity.GenerationJob) error
	GetByID(ctx context.Context, id string) (*entity.GenerationJob, error)
	ListByBatch(ctx context.Context, batchID string) ([]*entity.GenerationJob, error)
	ListByProject(ctx context.Context, projectID string, status entity.JobStatus) ([]*entity.GenerationJob, error)
}
