package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/metrics"
)

var tracer = otel.Tracer("memory")

// Store 记忆存储。
// 写路径：章节定稿时 upsert 摘要和向量；
// 读路径：按查询向量的余弦相似度返回 top-k 摘要，同分取较新章节。
type Store struct {
	repo     repository.SummaryRepository
	embedder EmbeddingProvider
	index    VectorIndex // 可为 nil：退化为全量扫描
}

// NewStore 创建记忆存储
func NewStore(repo repository.SummaryRepository, embedder EmbeddingProvider, index VectorIndex) *Store {
	return &Store{
		repo:     repo,
		embedder: embedder,
		index:    index,
	}
}

// RecordChapterSummary 记录章节摘要。
// 按 (projectID, chapterNumber) 幂等：后写覆盖先写。
func (s *Store) RecordChapterSummary(ctx context.Context, projectID string, chapterNumber int, chapterText string, summary entity.StructuredSummary) (*entity.ChapterSummary, error) {
	ctx, span := tracer.Start(ctx, "memory.RecordChapterSummary",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("chapter_number", chapterNumber),
		))
	defer span.End()

	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if chapterNumber <= 0 {
		return nil, fmt.Errorf("chapter_number must be positive")
	}

	vecs, err := s.embedder.Embed(ctx, []string{chapterText})
	if err != nil {
		metrics.MemoryWriteTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed chapter text: %w", err)
	}
	if len(vecs) == 0 {
		metrics.MemoryWriteTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("empty embedding result")
	}

	record := &entity.ChapterSummary{
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Summary:       summary,
		Embedding:     vecs[0],
		UpdatedAt:     time.Now(),
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		metrics.MemoryWriteTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to persist chapter summary: %w", err)
	}

	if s.index != nil {
		// 索引失败不阻断写路径：摘要已落库，扫描路径仍可检索
		if err := s.index.Upsert(ctx, projectID, chapterNumber, vecs[0]); err != nil {
			logger.Warn(ctx, "vector index upsert failed, scan fallback remains available",
				"project_id", projectID,
				"chapter_number", chapterNumber,
				"error", err.Error())
		}
	}

	metrics.MemoryWriteTotal.WithLabelValues("success").Inc()
	return record, nil
}

// RetrieveRelevant 返回与查询文本最相似的至多 limit 条摘要，
// 按相似度降序，同分按章节号降序（较新优先）。
func (s *Store) RetrieveRelevant(ctx context.Context, projectID, queryText string, limit int) ([]*entity.ScoredSummary, error) {
	ctx, span := tracer.Start(ctx, "memory.RetrieveRelevant",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("limit", limit),
		))
	defer span.End()

	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if limit <= 0 {
		limit = 3
	}

	vecs, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	queryVec := vecs[0]

	if s.index != nil {
		start := time.Now()
		hits, err := s.index.Search(ctx, projectID, queryVec, limit)
		metrics.MemoryRetrievalDuration.WithLabelValues("milvus").Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.MemoryRetrievalTotal.WithLabelValues("milvus", "success").Inc()
			return s.resolveHits(ctx, projectID, hits)
		}
		metrics.MemoryRetrievalTotal.WithLabelValues("milvus", "failed").Inc()
		logger.Warn(ctx, "vector index search failed, falling back to scan",
			"project_id", projectID,
			"error", err.Error())
	}

	return s.scan(ctx, projectID, queryVec, limit)
}

// scan 全量余弦扫描：加载项目全部摘要，逐条打分排序
func (s *Store) scan(ctx context.Context, projectID string, queryVec []float32, limit int) ([]*entity.ScoredSummary, error) {
	start := time.Now()
	all, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		metrics.MemoryRetrievalTotal.WithLabelValues("scan", "failed").Inc()
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	scored := make([]*entity.ScoredSummary, 0, len(all))
	for _, rec := range all {
		if rec == nil {
			continue
		}
		scored = append(scored, &entity.ScoredSummary{
			ChapterSummary: *rec,
			Score:          CosineSimilarity(queryVec, rec.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChapterNumber > scored[j].ChapterNumber
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	metrics.MemoryRetrievalDuration.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	metrics.MemoryRetrievalTotal.WithLabelValues("scan", "success").Inc()
	return scored, nil
}

// resolveHits 把索引命中换回完整摘要记录，
// 并按与扫描路径相同的次序排列：相似度降序，同分章节号降序。
func (s *Store) resolveHits(ctx context.Context, projectID string, hits []IndexHit) ([]*entity.ScoredSummary, error) {
	out := make([]*entity.ScoredSummary, 0, len(hits))
	for _, hit := range hits {
		rec, err := s.repo.GetByChapter(ctx, projectID, hit.ChapterNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to load summary for chapter %d: %w", hit.ChapterNumber, err)
		}
		if rec == nil {
			// 索引落后于库：跳过悬挂命中
			continue
		}
		out = append(out, &entity.ScoredSummary{
			ChapterSummary: *rec,
			Score:          hit.Score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChapterNumber > out[j].ChapterNumber
	})
	return out, nil
}
