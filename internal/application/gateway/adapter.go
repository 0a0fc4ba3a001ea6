// Package gateway 提供统一的模型网关与回退链策略
package gateway

import (
	"context"
	"strings"
)

// CallOptions 单次生成调用的选项
type CallOptions struct {
	// Action 标识调用用途（阶段），仅用于日志与结果处理，不改变网关行为
	Action string

	Temperature *float32
	MaxTokens   *int
}

// Usage Token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// Result 生成结果的带标签变体：结构化 JSON 或降级后的原始文本。
// Structured 为 nil 即表示降级；下游必须显式处理降级分支。
type Result struct {
	Structured map[string]any `json:"structured,omitempty"`
	Raw        string         `json:"raw,omitempty"`
	ModelID    string         `json:"model_id"`
	Usage      Usage          `json:"usage"`
}

// NewStructuredResult 创建结构化结果
func NewStructuredResult(modelID string, data map[string]any) *Result {
	return &Result{Structured: data, ModelID: modelID}
}

// NewRawResult 创建原始文本结果（解析降级）
func NewRawResult(modelID, text string) *Result {
	return &Result{Raw: text, ModelID: modelID}
}

// IsStructured 是否为结构化结果
func (r *Result) IsStructured() bool {
	return r.Structured != nil
}

// Text 返回可用的文本内容：结构化结果按候选键取值，否则返回原始文本
func (r *Result) Text(keys ...string) string {
	if r.IsStructured() {
		for _, k := range keys {
			if v, ok := r.Structured[k]; ok {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
		return ""
	}
	return r.Raw
}

// ModelAdapter 生成提供商的多态适配能力：
// 输入渲染好的提示与选项，输出结构化或原始结果。
// 提供商输出无法解析为预期结构时，适配器降级为 Raw 结果而非报错。
type ModelAdapter interface {
	ProcessPrompt(ctx context.Context, renderedPrompt string, opts CallOptions) (*Result, error)
	ModelID() string
}

// AdapterFactory 适配器工厂（port），由基础设施层实现。
// 凭证按调用传入，不得进入缓存键以外的共享状态。
type AdapterFactory interface {
	Get(ctx context.Context, modelID, credential string) (ModelAdapter, error)
	Known(modelID string) bool
}
