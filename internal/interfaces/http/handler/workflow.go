// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/internal/interfaces/http/dto"
	"novel-journey-api/pkg/logger"
)

// WorkflowHandler 工作流阶段处理器。
// 每个写操作都是 加载快照 -> 引擎转移 -> 保存快照 的闭环。
type WorkflowHandler struct {
	store  *projectStore
	engine *workflow.Engine
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(repo repository.ProjectRepository, cache *redis.Cache, engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{
		store:  &projectStore{repo: repo, cache: cache},
		engine: engine,
	}
}

// loadProject 加载项目并注入日志上下文
func (h *WorkflowHandler) loadProject(c *gin.Context) (context.Context, *entity.Project, bool) {
	projectID := c.Param("pid")
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)

	project, err := h.store.load(ctx, projectID)
	if err != nil {
		dto.AppError(c, err)
		return ctx, nil, false
	}
	return ctx, project, true
}

// persist 保存快照；失败时返回 500 并终止
func (h *WorkflowHandler) persist(c *gin.Context, ctx context.Context, project *entity.Project) bool {
	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to persist workflow state", err)
		dto.InternalError(c, "failed to persist workflow state")
		return false
	}
	return true
}

// AnalyzeSource 第一阶段：源文本分析
// @Summary 分析源文本，产出风格画像与主题
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.AnalyzeSourceRequest true "源文本"
// @Success 200 {object} dto.Response[entity.SourceAnalysis]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/workflow/analyze [post]
func (h *WorkflowHandler) AnalyzeSource(c *gin.Context) {
	var req dto.AnalyzeSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	analysis, err := h.engine.AnalyzeSource(ctx, project.State, req.Title, req.Author, req.SourceText, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, analysis)
}

// GenerateIdeas 第二阶段：创意生成
// @Summary 生成小说创意列表（替换上一批）
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.GenerateIdeasRequest true "生成参数"
// @Success 200 {object} dto.Response[[]entity.GeneratedIdea]
// @Router /v1/projects/{pid}/workflow/ideas [post]
func (h *WorkflowHandler) GenerateIdeas(c *gin.Context) {
	var req dto.GenerateIdeasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	ideas, err := h.engine.GenerateIdeas(ctx, project.State, req.Count, req.PreferredGenre, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, ideas)
}

// SelectIdea 第二阶段：选择创意
// @Summary 选定一条创意（互斥单选）
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.SelectIdeaRequest true "创意 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/projects/{pid}/workflow/ideas/select [post]
func (h *WorkflowHandler) SelectIdea(c *gin.Context) {
	var req dto.SelectIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	if err := h.engine.SelectIdea(project.State, req.IdeaID); err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// GenerateBlueprint 第三阶段：蓝图生成
// @Summary 基于选定创意生成小说蓝图
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.GenerateBlueprintRequest true "生成参数"
// @Success 200 {object} dto.Response[entity.NovelBlueprint]
// @Router /v1/projects/{pid}/workflow/blueprint [post]
func (h *WorkflowHandler) GenerateBlueprint(c *gin.Context) {
	var req dto.GenerateBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	blueprint, err := h.engine.GenerateBlueprint(ctx, project.State, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, blueprint)
}

// Advance 推进到下一阶段
// @Summary 当前阶段完成后推进一步
// @Tags Workflow
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/workflow/advance [post]
func (h *WorkflowHandler) Advance(c *gin.Context) {
	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	if err := h.engine.Advance(project.State); err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// GotoStage 阶段跳转
// @Summary 跳转到指定阶段；向前跳需途经阶段全部完成
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.GotoStageRequest true "目标阶段"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/workflow/goto [post]
func (h *WorkflowHandler) GotoStage(c *gin.Context) {
	var req dto.GotoStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	if err := h.engine.GoTo(project.State, entity.Stage(req.Stage)); err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// Reset 从最终回顾阶段重置工作流
// @Summary 重置工作流，保留模型选择与凭证
// @Tags Workflow
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/workflow/reset [post]
func (h *WorkflowHandler) Reset(c *gin.Context) {
	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	fresh, err := h.engine.Reset(project.State)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	project.State = fresh

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// GetState 获取工作流状态概要
// @Summary 获取当前阶段与进度
// @Tags Workflow
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/projects/{pid}/workflow [get]
func (h *WorkflowHandler) GetState(c *gin.Context) {
	_, project, ok := h.loadProject(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// SelectModel 设置阶段使用的模型
// @Summary 按阶段选择生成模型
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.SelectModelRequest true "阶段与模型"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/projects/{pid}/workflow/models [put]
func (h *WorkflowHandler) SelectModel(c *gin.Context) {
	var req dto.SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	if err := h.engine.SelectModel(project.State, entity.Stage(req.Stage), req.ModelID); err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// SetCredential 设置模型 API Key
// @Summary 为模型配置调用凭证
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.SetCredentialRequest true "模型与凭证"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/projects/{pid}/workflow/credentials [put]
func (h *WorkflowHandler) SetCredential(c *gin.Context) {
	var req dto.SetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	h.engine.SetCredential(project.State, req.ModelID, req.Credential)

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// Finalize 第六阶段：定稿
// @Summary 聚合质量报告并产出最终项目
// @Tags Workflow
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.FinalizeRequest true "导出设置"
// @Success 200 {object} dto.Response[entity.FinalProject]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/workflow/finalize [post]
func (h *WorkflowHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx, project, ok := h.loadProject(c)
	if !ok {
		return
	}

	final, err := h.engine.FinalizeProject(ctx, project.State, req.Export, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if !h.persist(c, ctx, project) {
		return
	}
	dto.Success(c, final)
}
