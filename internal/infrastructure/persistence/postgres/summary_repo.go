package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"novel-journey-api/internal/domain/entity"
)

// SummaryRepository 章节摘要仓储实现
type SummaryRepository struct {
	client *Client
}

// NewSummaryRepository 创建章节摘要仓储
func NewSummaryRepository(client *Client) *SummaryRepository {
	return &SummaryRepository{client: client}
}

// Upsert 按 (project_id, chapter_number) 幂等写入，后写覆盖先写
func (r *SummaryRepository) Upsert(ctx context.Context, summary *entity.ChapterSummary) error {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.Upsert")
	defer span.End()

	err := r.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "chapter_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "embedding", "updated_at"}),
	}).Create(summary).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert chapter summary: %w", err)
	}
	return nil
}

// GetByChapter 按项目和章号获取摘要；未找到返回 nil
func (r *SummaryRepository) GetByChapter(ctx context.Context, projectID string, chapterNumber int) (*entity.ChapterSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.GetByChapter")
	defer span.End()

	var summary entity.ChapterSummary
	err := r.client.db.WithContext(ctx).
		First(&summary, "project_id = ? AND chapter_number = ?", projectID, chapterNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter summary: %w", err)
	}
	return &summary, nil
}

// ListByProject 列出项目的全部摘要，按章号升序
func (r *SummaryRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ChapterSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.ListByProject")
	defer span.End()

	var summaries []*entity.ChapterSummary
	err := r.client.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("chapter_number ASC").
		Find(&summaries).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapter summaries: %w", err)
	}
	return summaries, nil
}

// DeleteByProject 删除项目的全部摘要
func (r *SummaryRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.DeleteByProject")
	defer span.End()

	err := r.client.db.WithContext(ctx).
		Delete(&entity.ChapterSummary{}, "project_id = ?", projectID).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter summaries: %w", err)
	}
	return nil
}
