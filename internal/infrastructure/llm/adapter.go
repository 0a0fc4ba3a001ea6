package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"novel-journey-api/internal/application/gateway"
)

// einoAdapter 把 Eino ChatModel 适配为统一的模型适配器接口
type einoAdapter struct {
	modelID   string
	chatModel model.BaseChatModel
}

func (a *einoAdapter) ModelID() string {
	return a.modelID
}

// ProcessPrompt 执行一次生成。
// 输出先尝试按 JSON 解析；解析失败降级为 Raw 结果，由调用方决定如何处理。
func (a *einoAdapter) ProcessPrompt(ctx context.Context, renderedPrompt string, opts gateway.CallOptions) (*gateway.Result, error) {
	outMsg, err := a.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(renderedPrompt),
	}, buildModelOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("llm generate failed for %s: %w", a.modelID, err)
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return nil, fmt.Errorf("empty llm response from %s", a.modelID)
	}

	result := ParseModelOutput(a.modelID, outMsg.Content)
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		result.Usage.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		result.Usage.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}
	return result, nil
}

func buildModelOptions(opts gateway.CallOptions) []model.Option {
	var mopts []model.Option
	if opts.Temperature != nil {
		mopts = append(mopts, model.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens != nil {
		mopts = append(mopts, model.WithMaxTokens(*opts.MaxTokens))
	}
	return mopts
}

// ParseModelOutput 解析模型输出：JSON 对象直接结构化，
// JSON 数组包装到 items 键下，其余一律作为原始文本返回。
// 会剥离模型常见的 ```json 代码围栏。
func ParseModelOutput(modelID, content string) *gateway.Result {
	text := stripCodeFence(strings.TrimSpace(content))

	switch {
	case strings.HasPrefix(text, "{"):
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			return gateway.NewStructuredResult(modelID, obj)
		}
	case strings.HasPrefix(text, "["):
		var arr []any
		if err := json.Unmarshal([]byte(text), &arr); err == nil {
			return gateway.NewStructuredResult(modelID, map[string]any{"items": arr})
		}
	}
	return gateway.NewRawResult(modelID, content)
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
