package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"novel-journey-api/internal/domain/entity"
)

// JobRepository 生成任务仓储实现
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建生成任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 创建任务记录
func (r *JobRepository) Create(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if err := r.client.db.WithContext(ctx).Create(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation job: %w", err)
	}
	return nil
}

// Update 更新任务记录
func (r *JobRepository) Update(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update generation job: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取任务；未找到返回 nil
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByID")
	defer span.End()

	var job entity.GenerationJob
	err := r.client.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get generation job: %w", err)
	}
	return &job, nil
}

// ListByBatch 列出批次内全部任务，按章号升序
func (r *JobRepository) ListByBatch(ctx context.Context, batchID string) ([]*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByBatch")
	defer span.End()

	var jobs []*entity.GenerationJob
	err := r.client.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("chapter_number ASC").
		Find(&jobs).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	return jobs, nil
}

// ListByProject 列出项目的任务；status 非空时按状态过滤
func (r *JobRepository) ListByProject(ctx context.Context, projectID string, status entity.JobStatus) ([]*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByProject")
	defer span.End()

	query := r.client.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []*entity.GenerationJob
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list project jobs: %w", err)
	}
	return jobs, nil
}
