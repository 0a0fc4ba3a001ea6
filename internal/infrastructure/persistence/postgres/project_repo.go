// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"novel-journey-api/internal/domain/entity"
)

// ProjectRepository 项目快照仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Save 保存项目快照；无 ID 时创建并回填 ID
func (r *ProjectRepository) Save(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Save")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if project.ID == "" {
		project.ID = uuid.New().String()
		if err := db.Create(project).Error; err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	}

	if err := db.Save(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目；未找到返回 nil
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	var project entity.Project
	err := r.client.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListByOwner 按创建者列出项目，最近更新的在前
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ListByOwner")
	defer span.End()

	var projects []*entity.Project
	err := r.client.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Delete 删除项目
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Delete")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Delete(&entity.Project{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}
