package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"novel-journey-api/internal/config"
)

// EinoEmbedder 把 Eino 的 OpenAI 兼容 Embedder 适配为本地端口
type EinoEmbedder struct {
	embedder  embedding.Embedder
	dimension int
}

// NewEinoEmbedder 创建基于 Eino 的向量化客户端
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*EinoEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 768
	}
	return &EinoEmbedder{embedder: embedder, dimension: dimension}, nil
}

// Dimension 返回向量维度
func (e *EinoEmbedder) Dimension() int {
	return e.dimension
}

// Embed 向量化文本并把结果压缩为 float32
func (e *EinoEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = make([]float32, len(v))
		for j, f := range v {
			out[i][j] = float32(f)
		}
	}
	return out, nil
}
