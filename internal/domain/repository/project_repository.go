// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"novel-journey-api/internal/domain/entity"
)

// ProjectRepository 项目快照仓储接口。
// Save 为 upsert：有 ID 时更新，无 ID 时创建并回填。
type ProjectRepository interface {
	Save(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Project, error)
	Delete(ctx context.Context, id string) error
}
