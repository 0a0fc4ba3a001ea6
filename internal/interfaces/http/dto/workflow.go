// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"novel-journey-api/internal/domain/entity"
)

// AnalyzeSourceRequest 源文本分析请求
type AnalyzeSourceRequest struct {
	Title            string `json:"title" binding:"max=255"`
	Author           string `json:"author" binding:"max=255"`
	SourceText       string `json:"source_text" binding:"required"`
	TemplateOverride string `json:"template_override,omitempty"`
}

// GenerateIdeasRequest 创意生成请求
type GenerateIdeasRequest struct {
	Count            int    `json:"count" binding:"gte=0,lte=10"`
	PreferredGenre   string `json:"preferred_genre" binding:"max=50"`
	TemplateOverride string `json:"template_override,omitempty"`
}

// SelectIdeaRequest 选择创意请求
type SelectIdeaRequest struct {
	IdeaID string `json:"idea_id" binding:"required"`
}

// GenerateBlueprintRequest 蓝图生成请求
type GenerateBlueprintRequest struct {
	TemplateOverride string `json:"template_override,omitempty"`
}

// GotoStageRequest 阶段跳转请求
type GotoStageRequest struct {
	Stage int `json:"stage" binding:"required,gte=1,lte=6"`
}

// SelectModelRequest 阶段模型选择请求
type SelectModelRequest struct {
	Stage   int    `json:"stage" binding:"required,gte=1,lte=6"`
	ModelID string `json:"model_id" binding:"required"`
}

// SetCredentialRequest 模型凭证设置请求
type SetCredentialRequest struct {
	ModelID    string `json:"model_id" binding:"required"`
	Credential string `json:"credential" binding:"required"`
}

// FinalizeRequest 定稿请求
type FinalizeRequest struct {
	Export           entity.ExportSettings `json:"export"`
	TemplateOverride string                `json:"template_override,omitempty"`
}

// StateResponse 工作流状态响应
type StateResponse struct {
	ProjectID    string                    `json:"project_id"`
	CurrentStage int                       `json:"current_stage"`
	StageName    string                    `json:"stage_name"`
	StartedFresh bool                      `json:"started_fresh"`
	Progress     entity.GenerationProgress `json:"progress"`
	IdeaCount    int                       `json:"idea_count"`
	ChapterCount int                       `json:"chapter_count"`
	HasBlueprint bool                      `json:"has_blueprint"`
	Finalized    bool                      `json:"finalized"`
}

// ToStateResponse 转换为工作流状态响应
func ToStateResponse(projectID string, state *entity.WorkflowState) *StateResponse {
	return &StateResponse{
		ProjectID:    projectID,
		CurrentStage: int(state.CurrentStage),
		StageName:    state.CurrentStage.String(),
		StartedFresh: state.StartedFresh,
		Progress:     state.Progress,
		IdeaCount:    len(state.GeneratedIdeas),
		ChapterCount: len(state.GeneratedChapters),
		HasBlueprint: state.NovelBlueprint != nil,
		Finalized:    state.FinalProject != nil,
	}
}

// ModelCatalogResponse 可用模型目录响应
type ModelCatalogResponse struct {
	Models []entity.ModelDescriptor `json:"models"`
}
