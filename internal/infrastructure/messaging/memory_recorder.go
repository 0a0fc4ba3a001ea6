package messaging

import (
	"context"
	"time"

	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/domain/entity"
)

// AsyncMemoryRecorder 异步记忆写入器。
// 检索走同步 Store，写入投递到 Redis Stream 由记忆 worker 落库，
// 生成路径不被 embedding 和向量索引的延迟阻塞。
type AsyncMemoryRecorder struct {
	producer *Producer
	store    *memory.Store
}

// NewAsyncMemoryRecorder 创建异步记忆写入器
func NewAsyncMemoryRecorder(producer *Producer, store *memory.Store) *AsyncMemoryRecorder {
	return &AsyncMemoryRecorder{
		producer: producer,
		store:    store,
	}
}

// RecordChapterSummary 投递记忆更新消息。
// 返回的摘要尚未落库，仅回显待写入内容。
func (r *AsyncMemoryRecorder) RecordChapterSummary(ctx context.Context, projectID string, chapterNumber int, chapterText string, summary entity.StructuredSummary) (*entity.ChapterSummary, error) {
	if _, err := r.producer.PublishMemoryUpdate(ctx, &MemoryUpdateMessage{
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Content:       chapterText,
		Summary:       summary,
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	return &entity.ChapterSummary{
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Summary:       summary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// RetrieveRelevant 检索相关章节记忆
func (r *AsyncMemoryRecorder) RetrieveRelevant(ctx context.Context, projectID, queryText string, limit int) ([]*entity.ScoredSummary, error) {
	return r.store.RetrieveRelevant(ctx, projectID, queryText, limit)
}
