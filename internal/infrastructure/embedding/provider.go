package embedding

import (
	"context"

	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/config"
)

// NewProvider 按配置选择向量化实现：
// openai 走 Eino 适配器，http 走自建服务客户端，
// 其余（或未配置 endpoint）回退到本地词袋哈希。
func NewProvider(ctx context.Context, cfg *config.EmbeddingConfig) (memory.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "openai":
		return NewEinoEmbedder(ctx, cfg)
	case "http":
		if cfg.Endpoint != "" {
			return NewClient(cfg), nil
		}
	}
	return NewLocalEmbedder(cfg.Dimension), nil
}
