package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"novel-journey-api/internal/application/memory"
)

// Index 基于 Milvus 的章节向量索引
type Index struct {
	client    *Client
	dimension int
}

// NewIndex 创建章节向量索引
func NewIndex(client *Client, dimension int) *Index {
	return &Index{client: client, dimension: dimension}
}

// EnsureCollection 创建集合与 HNSW 索引（已存在时跳过）并加载
func (idx *Index) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.Index.EnsureCollection")
	defer span.End()

	collName := idx.client.CollectionName(CollectionChapterMemory)

	has, err := idx.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		schema := ChapterMemorySchema(idx.dimension)
		schema.CollectionName = collName
		if err := idx.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}

		hnsw, err := entity.NewIndexHNSW(
			entity.COSINE,
			idx.client.hnswM,
			idx.client.hnswEf,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := idx.client.milvus.CreateIndex(ctx, collName, "vector", hnsw, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := idx.client.milvus.LoadCollection(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// Upsert 写入章节向量，同主键覆盖写
func (idx *Index) Upsert(ctx context.Context, projectID string, chapterNumber int, vector []float32) error {
	ctx, span := tracer.Start(ctx, "milvus.Index.Upsert",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("chapter_number", chapterNumber),
		))
	defer span.End()

	collName := idx.client.CollectionName(CollectionChapterMemory)
	partitionName := PartitionName(projectID)

	// 确保分区存在
	has, err := idx.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		if err := idx.client.milvus.CreatePartition(ctx, collName, partitionName); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create partition: %w", err)
		}
	}

	key := MemoryKey(projectID, chapterNumber)

	// 先删后插：同章重新生成时替换旧向量
	filter := fmt.Sprintf(`id == "%s"`, key)
	if err := idx.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete stale vector: %w", err)
	}

	idCol := entity.NewColumnVarChar("id", []string{key})
	vectorCol := entity.NewColumnFloatVector("vector", idx.dimension, [][]float32{vector})
	projectCol := entity.NewColumnVarChar("project_id", []string{projectID})
	chapterCol := entity.NewColumnInt64("chapter_number", []int64{int64(chapterNumber)})

	if _, err := idx.client.milvus.Insert(ctx, collName, partitionName, idCol, vectorCol, projectCol, chapterCol); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert vector: %w", err)
	}
	return nil
}

// Search 按余弦相似度检索项目内最相近的章节
func (idx *Index) Search(ctx context.Context, projectID string, vector []float32, topK int) ([]memory.IndexHit, error) {
	ctx, span := tracer.Start(ctx, "milvus.Index.Search",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	collName := idx.client.CollectionName(CollectionChapterMemory)
	partitionName := PartitionName(projectID)

	// 新项目的分区尚未创建时直接返回空结果
	has, err := idx.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		return []memory.IndexHit{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	filter := fmt.Sprintf(`project_id == "%s"`, projectID)
	results, err := idx.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"chapter_number"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []memory.IndexHit
	for _, result := range results {
		chapterCol, ok := result.Fields.GetColumn("chapter_number").(*entity.ColumnInt64)
		if !ok {
			continue
		}
		for i := 0; i < result.ResultCount; i++ {
			hits = append(hits, memory.IndexHit{
				ChapterNumber: int(chapterCol.Data()[i]),
				Score:         float64(result.Scores[i]),
			})
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// DeleteByProject 删除项目的全部章节向量
func (idx *Index) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "milvus.Index.DeleteByProject",
		trace.WithAttributes(attribute.String("project_id", projectID)))
	defer span.End()

	collName := idx.client.CollectionName(CollectionChapterMemory)
	partitionName := PartitionName(projectID)

	has, err := idx.client.milvus.HasPartition(ctx, collName, partitionName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		return nil
	}

	filter := fmt.Sprintf(`project_id == "%s"`, projectID)
	if err := idx.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete project vectors: %w", err)
	}
	return nil
}

var _ memory.VectorIndex = (*Index)(nil)
