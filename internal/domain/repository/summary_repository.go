// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"novel-journey-api/internal/domain/entity"
)

// SummaryRepository 章节摘要仓储接口。
// Upsert 按 (projectID, chapterNumber) 幂等：后写覆盖先写。
type SummaryRepository interface {
	Upsert(ctx context.Context, summary *entity.ChapterSummary) error
	GetByChapter(ctx context.Context, projectID string, chapterNumber int) (*entity.ChapterSummary, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.ChapterSummary, error)
	DeleteByProject(ctx context.Context, projectID string) error
}
