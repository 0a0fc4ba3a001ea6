// Package memory 提供章节摘要的记录与检索增强
package memory

import "context"

// EmbeddingProvider 向量化能力（port），由基础设施层实现。
// 同一文本必须产出确定的向量。
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// IndexHit 向量索引命中
type IndexHit struct {
	ChapterNumber int
	Score         float64
}

// VectorIndex 相似度检索能力（port）。
// 实现可为专用向量库（Milvus）；未配置时 Store 退化为全量余弦扫描。
type VectorIndex interface {
	Upsert(ctx context.Context, projectID string, chapterNumber int, vector []float32) error
	Search(ctx context.Context, projectID string, vector []float32, topK int) ([]IndexHit, error)
	DeleteByProject(ctx context.Context, projectID string) error
}
