package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"novel-journey-api/internal/application/prompt"
	apperrors "novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/metrics"
)

var tracer = otel.Tracer("gateway")

// Gateway 模型网关。
// 把请求的模型 ID 解析为适配器并执行回退链策略；
// 适配器实例按 (modelID, credential) 缓存于工厂，凭证按调用传递。
type Gateway struct {
	factory AdapterFactory
	chains  map[string][]string
}

// New 创建模型网关
func New(factory AdapterFactory, chains map[string][]string) *Gateway {
	if chains == nil {
		chains = make(map[string][]string)
	}
	return &Gateway{
		factory: factory,
		chains:  chains,
	}
}

// Chain 返回 modelID 的完整尝试序列：请求模型在前，其后为配置的回退模型。
// 未配置回退时序列只含请求模型本身，首次失败即整体失败。
func (g *Gateway) Chain(modelID string) []string {
	return append([]string{modelID}, g.chains[modelID]...)
}

// Generate 渲染模板并沿回退链依次尝试生成。
// 请求的模型未配置或缺少必需凭证时立即失败，不进入回退链。
func (g *Gateway) Generate(ctx context.Context, modelID, credential, promptTemplate string, vars map[string]any, opts CallOptions) (*Result, error) {
	ctx, span := tracer.Start(ctx, "gateway.Generate",
		trace.WithAttributes(
			attribute.String("model_id", modelID),
			attribute.String("action", opts.Action),
		))
	defer span.End()

	if !g.factory.Known(modelID) {
		err := apperrors.ErrUnconfiguredModel.WithDetail(modelID)
		span.RecordError(err)
		return nil, err
	}

	rendered := prompt.Render(promptTemplate, vars)

	var attempts []AttemptError
	for i, attemptID := range g.Chain(modelID) {
		if i > 0 {
			metrics.GatewayFallbackTotal.WithLabelValues(modelID, attemptID).Inc()
			logger.Warn(ctx, "falling back to alternate model",
				"requested_model", modelID,
				"fallback_model", attemptID,
				"action", opts.Action)
		}

		result, err := g.attempt(ctx, attemptID, credential, rendered, opts)
		if err != nil {
			// 请求模型自身的配置错误原样上抛，换模型重试无意义
			if i == 0 && isConfigError(err) {
				span.RecordError(err)
				return nil, err
			}
			attempts = append(attempts, AttemptError{ModelID: attemptID, Err: err})
			logger.Warn(ctx, "model attempt failed",
				"model_id", attemptID,
				"action", opts.Action,
				"error", err.Error())
			continue
		}
		return result, nil
	}

	chainErr := &ChainError{Action: opts.Action, Attempts: attempts}
	span.RecordError(chainErr)
	return nil, chainErr
}

// isConfigError 配置类错误：模型未配置或凭证缺失
func isConfigError(err error) bool {
	if !apperrors.IsAppError(err) {
		return false
	}
	switch apperrors.AsAppError(err).Code {
	case apperrors.CodeUnconfiguredModel, apperrors.CodeMissingCredential:
		return true
	}
	return false
}

func (g *Gateway) attempt(ctx context.Context, modelID, credential, rendered string, opts CallOptions) (*Result, error) {
	adapter, err := g.factory.Get(ctx, modelID, credential)
	if err != nil {
		metrics.GatewayCallTotal.WithLabelValues(modelID, opts.Action, "failed").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := adapter.ProcessPrompt(ctx, rendered, opts)
	metrics.GatewayCallDuration.WithLabelValues(modelID, opts.Action).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayCallTotal.WithLabelValues(modelID, opts.Action, "failed").Inc()
		return nil, err
	}

	status := "success"
	if !result.IsStructured() {
		// 解析降级不算失败：生成成功但结构不可解析，单独计数
		status = "degraded"
	}
	metrics.GatewayCallTotal.WithLabelValues(modelID, opts.Action, status).Inc()
	return result, nil
}
