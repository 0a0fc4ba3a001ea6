// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/internal/interfaces/http/dto"
	"novel-journey-api/internal/interfaces/http/middleware"
	"novel-journey-api/pkg/logger"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	store  *projectStore
	engine *workflow.Engine
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(repo repository.ProjectRepository, cache *redis.Cache, engine *workflow.Engine) *ProjectHandler {
	return &ProjectHandler{
		store:  &projectStore{repo: repo, cache: cache},
		engine: engine,
	}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := middleware.GetUserIDFromGin(c)

	projects, err := h.store.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Error(ctx, "failed to list projects", err)
		dto.InternalError(c, "failed to list projects")
		return
	}

	dto.Success(c, dto.ToProjectListResponse(projects))
}

// CreateProject 创建项目
// @Summary 创建项目
// @Description 创建新的小说项目；fresh_start 为 true 时从创意实验室开始
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := middleware.GetUserIDFromGin(c)

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	state := h.engine.NewState()
	if req.FreshStart {
		state = h.engine.StartFresh()
	}

	project := &entity.Project{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		State:       state,
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to create project", err)
		dto.InternalError(c, "failed to create project")
		return
	}

	dto.Created(c, dto.ToProjectResponse(project))
}

// GetProject 获取项目详情
// @Summary 获取项目详情（含完整工作流状态）
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	ctx := c.Request.Context()

	project, err := h.store.load(ctx, c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// UpdateProject 更新项目元信息
// @Summary 更新项目名称与描述
// @Tags Projects
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.UpdateProjectRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Router /v1/projects/{pid} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.store.load(ctx, c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to update project", err)
		dto.InternalError(c, "failed to update project")
		return
	}

	dto.Success(c, dto.ToProjectResponse(project))
}

// SaveProject 显式保存项目快照
// @Summary 保存当前工作流状态快照
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/projects/{pid}/save [post]
func (h *ProjectHandler) SaveProject(c *gin.Context) {
	ctx := c.Request.Context()

	project, err := h.store.load(ctx, c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to save project", err)
		dto.InternalError(c, "failed to save project")
		return
	}

	dto.Success(c, dto.ToStateResponse(project.ID, project.State))
}

// DeleteProject 删除项目
// @Summary 删除项目及其快照
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 204
// @Router /v1/projects/{pid} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("pid")

	if _, err := h.store.load(ctx, projectID); err != nil {
		dto.AppError(c, err)
		return
	}

	if err := h.store.repo.Delete(ctx, projectID); err != nil {
		logger.Error(ctx, "failed to delete project", err)
		dto.InternalError(c, "failed to delete project")
		return
	}
	if h.store.cache != nil {
		if err := h.store.cache.InvalidateProject(ctx, projectID); err != nil {
			logger.Warn(ctx, "failed to invalidate project cache",
				"project_id", projectID, "error", err.Error())
		}
	}

	dto.NoContent(c)
}
