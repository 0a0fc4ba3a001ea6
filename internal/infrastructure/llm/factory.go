// Package llm 基于 Eino 实现模型适配器工厂
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/config"
	apperrors "novel-journey-api/pkg/errors"
)

// EinoFactory 管理 ChatModel 适配器实例。
// 缓存键为 (modelID, 凭证指纹)：同一模型换一把密钥会得到独立实例，
// 不同调用方的凭证不会互相串用。
type EinoFactory struct {
	config *config.LLMConfig

	mu       sync.RWMutex
	adapters map[cacheKey]gateway.ModelAdapter
}

type cacheKey struct {
	modelID     string
	fingerprint string
}

// NewEinoFactory 创建适配器工厂
func NewEinoFactory(cfg *config.LLMConfig) *EinoFactory {
	return &EinoFactory{
		config:   cfg,
		adapters: make(map[cacheKey]gateway.ModelAdapter),
	}
}

// Known 判断模型是否已配置
func (f *EinoFactory) Known(modelID string) bool {
	_, ok := f.config.Providers[modelID]
	return ok
}

// Get 获取模型适配器，按 (modelID, 凭证指纹) 惰性创建并缓存
func (f *EinoFactory) Get(ctx context.Context, modelID, credential string) (gateway.ModelAdapter, error) {
	providerCfg, ok := f.config.Providers[modelID]
	if !ok {
		return nil, apperrors.ErrUnconfiguredModel.WithDetail(modelID)
	}

	apiKey := credential
	if apiKey == "" {
		apiKey = providerCfg.APIKey
	}
	if providerCfg.RequiresKey && apiKey == "" {
		return nil, apperrors.ErrMissingCredential.WithDetail(modelID)
	}

	key := cacheKey{modelID: modelID, fingerprint: fingerprint(apiKey)}

	f.mu.RLock()
	adapter, ok := f.adapters[key]
	f.mu.RUnlock()
	if ok {
		return adapter, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if adapter, ok = f.adapters[key]; ok {
		return adapter, nil
	}

	adapter, err := f.build(ctx, modelID, apiKey, providerCfg)
	if err != nil {
		return nil, err
	}
	f.adapters[key] = adapter
	return adapter, nil
}

// build 创建适配器实例；无 BaseURL 的模型走本地确定性实现
func (f *EinoFactory) build(ctx context.Context, modelID, apiKey string, providerCfg config.ProviderConfig) (gateway.ModelAdapter, error) {
	if providerCfg.BaseURL == "" {
		return newLocalAdapter(modelID), nil
	}

	maxTokens := providerCfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", modelID, err)
	}

	return &einoAdapter{modelID: modelID, chatModel: chatModel}, nil
}

// fingerprint 凭证指纹；原文不进入缓存键
func fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}

func ptrFloat32(f float32) *float32 {
	return &f
}

var _ gateway.AdapterFactory = (*EinoFactory)(nil)
