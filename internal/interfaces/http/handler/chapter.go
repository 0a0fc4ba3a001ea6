// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"novel-journey-api/internal/application/coordinator"
	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/internal/infrastructure/persistence/redis"
	"novel-journey-api/internal/interfaces/http/dto"
	"novel-journey-api/pkg/logger"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	store  *projectStore
	engine *workflow.Engine
	coord  *coordinator.Coordinator
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(repo repository.ProjectRepository, cache *redis.Cache, engine *workflow.Engine, coord *coordinator.Coordinator) *ChapterHandler {
	return &ChapterHandler{
		store:  &projectStore{repo: repo, cache: cache},
		engine: engine,
		coord:  coord,
	}
}

// bindChapterNumber 解析路径中的章号
func bindChapterNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("num"))
	if err != nil || n < 1 {
		dto.BadRequest(c, "invalid chapter number")
		return 0, false
	}
	return n, true
}

// ListChapters 获取章节列表
// @Summary 获取已生成章节列表（不含正文）
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Router /v1/projects/{pid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	project, err := h.store.load(c.Request.Context(), c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToChapterListResponse(project.State.GeneratedChapters))
}

// GetChapter 获取章节详情
// @Summary 获取单章详情（含正文与反馈）
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章号"
// @Success 200 {object} dto.Response[entity.GeneratedChapter]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{num} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	num, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	project, err := h.store.load(c.Request.Context(), c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	chapter := project.State.ChapterByNumber(num)
	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return
	}
	dto.Success(c, chapter)
}

// BatchGenerate 批量生成章节
// @Summary 按执行模式批量生成章节
// @Description sequential 按序生成缺失章节，parallel 并发生成，selective 只生成指定章号
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.BatchGenerateRequest true "批量参数"
// @Success 200 {object} dto.Response[dto.BatchResultResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/batch [post]
func (h *ChapterHandler) BatchGenerate(c *gin.Context) {
	var req dto.BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	projectID := c.Param("pid")
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)

	project, err := h.store.load(ctx, projectID)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	result, err := h.coord.Run(ctx, project.State, coordinator.BatchRequest{
		ProjectID:        projectID,
		Mode:             entity.GenerationMode(req.Mode),
		Chapters:         req.Chapters,
		TemplateOverride: req.TemplateOverride,
	})
	if err != nil {
		// 失败的批次也可能产出部分章节，先落快照再报错
		if result != nil && len(result.Succeeded) > 0 {
			if saveErr := h.store.save(ctx, project); saveErr != nil {
				logger.Error(ctx, "failed to persist partial batch", saveErr)
			}
		}
		dto.AppError(c, err)
		return
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to persist batch result", err)
		dto.InternalError(c, "failed to persist batch result")
		return
	}

	dto.Success(c, dto.ToBatchResultResponse(result))
}

// RegenerateChapter 重新生成单章
// @Summary 替换单章内容，保留章节 ID 与反馈
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章号"
// @Param body body dto.RegenerateChapterRequest true "生成参数"
// @Success 200 {object} dto.Response[entity.GeneratedChapter]
// @Router /v1/projects/{pid}/chapters/{num}/regenerate [post]
func (h *ChapterHandler) RegenerateChapter(c *gin.Context) {
	num, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	var req dto.RegenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	projectID := c.Param("pid")
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)

	project, err := h.store.load(ctx, projectID)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	chapter, err := h.engine.GenerateChapter(ctx, project.State, projectID, num, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to persist regenerated chapter", err)
		dto.InternalError(c, "failed to persist regenerated chapter")
		return
	}

	dto.Success(c, chapter)
}

// EditChapter 交互式编辑
// @Summary 按编辑指令改写章节
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章号"
// @Param body body dto.EditChapterRequest true "编辑指令"
// @Success 200 {object} dto.Response[entity.GeneratedChapter]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{num}/edit [post]
func (h *ChapterHandler) EditChapter(c *gin.Context) {
	num, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	var req dto.EditChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	projectID := c.Param("pid")
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)

	project, err := h.store.load(ctx, projectID)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	chapter, err := h.engine.EditChapter(ctx, project.State, projectID, num, req.Instructions, req.ConsistencyNotes, req.TemplateOverride)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to persist edited chapter", err)
		dto.InternalError(c, "failed to persist edited chapter")
		return
	}

	dto.Success(c, chapter)
}

// AddFeedback 追加章节反馈条目
// @Summary 追加建议/错误/改进类反馈
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param num path int true "章号"
// @Param body body dto.FeedbackRequest true "反馈内容"
// @Success 200 {object} dto.Response[entity.GeneratedChapter]
// @Router /v1/projects/{pid}/chapters/{num}/feedback [post]
func (h *ChapterHandler) AddFeedback(c *gin.Context) {
	num, ok := bindChapterNumber(c)
	if !ok {
		return
	}

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	project, err := h.store.load(ctx, c.Param("pid"))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	chapter := project.State.ChapterByNumber(num)
	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	chapter.AppendFeedback(entity.FeedbackEntry{
		ID:          uuid.New().String(),
		Type:        entity.FeedbackType(req.Type),
		Category:    req.Category,
		Description: req.Description,
		Priority:    priority,
		CreatedAt:   time.Now(),
	})

	if err := h.store.save(ctx, project); err != nil {
		logger.Error(ctx, "failed to persist feedback", err)
		dto.InternalError(c, "failed to persist feedback")
		return
	}

	dto.Success(c, chapter)
}
