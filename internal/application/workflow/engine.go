// Package workflow 实现六阶段创作流程的状态机与各阶段操作
package workflow

import (
	"fmt"

	"go.opentelemetry.io/otel"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/prompt"
	"novel-journey-api/internal/config"
	"novel-journey-api/internal/domain/entity"
	apperrors "novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/metrics"
)

var tracer = otel.Tracer("workflow")

// Engine 工作流引擎。
// 状态只通过这里的转移方法演进；每次转移都校验前置条件，
// 不满足时返回 ErrStageBlocked 并说明缺失的产物。
type Engine struct {
	gw           *gateway.Gateway
	prompts      *prompt.Registry
	mem          Memory
	defaultModel string
	memCfg       config.MemoryConfig
	genCfg       config.GenerationConfig
}

// NewEngine 创建工作流引擎
func NewEngine(gw *gateway.Gateway, prompts *prompt.Registry, mem Memory, defaultModel string, memCfg config.MemoryConfig, genCfg config.GenerationConfig) *Engine {
	return &Engine{
		gw:           gw,
		prompts:      prompts,
		mem:          mem,
		defaultModel: defaultModel,
		memCfg:       memCfg,
		genCfg:       genCfg,
	}
}

// NewState 完整流程入口：从第一阶段（源文本分析）开始
func (e *Engine) NewState() *entity.WorkflowState {
	return entity.NewWorkflowState()
}

// StartFresh 快捷入口：跳过源文本分析，直接从第二阶段开始。
// 后续阶段对风格画像的引用渲染为空串。
func (e *Engine) StartFresh() *entity.WorkflowState {
	state := entity.NewWorkflowState()
	state.StartedFresh = true
	state.CurrentStage = entity.StageIdeaLab
	return state
}

// StageCompleted 判定 stage 的完成条件是否满足。
// 完成条件按需计算，不落盘，存档恢复后判定结果一致。
func (e *Engine) StageCompleted(state *entity.WorkflowState, stage entity.Stage) bool {
	switch stage {
	case entity.StageSourceAnalysis:
		return state.StartedFresh || state.SourceAnalysis != nil
	case entity.StageIdeaLab:
		return state.SelectedIdea() != nil
	case entity.StageBlueprintBuilder:
		return state.NovelBlueprint != nil && len(state.NovelBlueprint.Chapters) > 0
	case entity.StageChapterGeneration:
		return len(state.GeneratedChapters) > 0 && !state.Progress.IsGenerating
	case entity.StageInteractiveEditing:
		for i := range state.GeneratedChapters {
			status := state.GeneratedChapters[i].Status
			if status == entity.ChapterStatusEdited || status == entity.ChapterStatusFinal {
				return true
			}
		}
		return false
	case entity.StageFinalReview:
		return state.FinalProject != nil
	}
	return false
}

// Advance 推进到下一阶段，要求当前阶段已完成
func (e *Engine) Advance(state *entity.WorkflowState) error {
	if state.CurrentStage >= entity.StageFinalReview {
		return apperrors.ErrStageBlocked.WithDetail("already at final stage")
	}
	return e.GoTo(state, state.CurrentStage+1)
}

// GoTo 跳转到目标阶段。
// 向后（回看）总是允许；向前要求沿途每个阶段都已完成。
func (e *Engine) GoTo(state *entity.WorkflowState, target entity.Stage) error {
	if !target.Valid() {
		return apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("invalid stage %d", int(target)))
	}

	from := state.CurrentStage
	if target > from {
		for s := from; s < target; s++ {
			if !e.StageCompleted(state, s) {
				metrics.StageTransitionTotal.WithLabelValues(from.String(), target.String(), "blocked").Inc()
				return apperrors.ErrStageBlocked.WithDetail(
					fmt.Sprintf("stage %s is not completed", s.String()))
			}
		}
	}

	state.CurrentStage = target
	metrics.StageTransitionTotal.WithLabelValues(from.String(), target.String(), "success").Inc()
	return nil
}

// Reset 从终审阶段重置为全新状态，保留模型选择与凭证
func (e *Engine) Reset(state *entity.WorkflowState) (*entity.WorkflowState, error) {
	if state.CurrentStage != entity.StageFinalReview {
		return nil, apperrors.ErrStageBlocked.WithDetail("reset is only allowed from the final review stage")
	}

	fresh := entity.NewWorkflowState()
	fresh.SelectedModels = state.SelectedModels
	fresh.Credentials = state.Credentials
	metrics.StageTransitionTotal.WithLabelValues(state.CurrentStage.String(), fresh.CurrentStage.String(), "reset").Inc()
	return fresh, nil
}

// SelectModel 记录某阶段使用的模型
func (e *Engine) SelectModel(state *entity.WorkflowState, stage entity.Stage, modelID string) error {
	if !stage.Valid() {
		return apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("invalid stage %d", int(stage)))
	}
	if state.SelectedModels == nil {
		state.SelectedModels = make(map[int]string)
	}
	state.SelectedModels[int(stage)] = modelID
	return nil
}

// SetCredential 记录模型凭证；凭证随调用传递给网关，不落入适配器共享状态
func (e *Engine) SetCredential(state *entity.WorkflowState, modelID, credential string) {
	if state.Credentials == nil {
		state.Credentials = make(map[string]string)
	}
	state.Credentials[modelID] = credential
}

// modelFor 解析某阶段的模型与凭证；未显式选择时用默认模型
func (e *Engine) modelFor(state *entity.WorkflowState, stage entity.Stage) (modelID, credential string) {
	modelID = state.SelectedModels[int(stage)]
	if modelID == "" {
		modelID = e.defaultModel
	}
	credential = state.Credentials[modelID]
	return modelID, credential
}
