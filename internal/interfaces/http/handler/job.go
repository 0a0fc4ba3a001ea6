// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	"novel-journey-api/internal/interfaces/http/dto"
	"novel-journey-api/pkg/logger"
)

// JobHandler 生成任务处理器
type JobHandler struct {
	jobs repository.JobRepository
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs repository.JobRepository) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListProjectJobs 获取项目的生成任务记录
// @Summary 按项目列出章节生成任务
// @Tags Jobs
// @Produce json
// @Param pid path string true "项目 ID"
// @Param status query string false "任务状态过滤"
// @Success 200 {object} dto.Response[[]entity.GenerationJob]
// @Router /v1/projects/{pid}/jobs [get]
func (h *JobHandler) ListProjectJobs(c *gin.Context) {
	ctx := c.Request.Context()

	jobs, err := h.jobs.ListByProject(ctx, c.Param("pid"), entity.JobStatus(c.Query("status")))
	if err != nil {
		logger.Error(ctx, "failed to list jobs", err)
		dto.InternalError(c, "failed to list jobs")
		return
	}
	dto.Success(c, jobs)
}

// ListBatchJobs 获取单个批次的任务记录
// @Summary 按批次 ID 列出章节生成任务
// @Tags Jobs
// @Produce json
// @Param bid path string true "批次 ID"
// @Success 200 {object} dto.Response[[]entity.GenerationJob]
// @Router /v1/batches/{bid}/jobs [get]
func (h *JobHandler) ListBatchJobs(c *gin.Context) {
	ctx := c.Request.Context()

	jobs, err := h.jobs.ListByBatch(ctx, c.Param("bid"))
	if err != nil {
		logger.Error(ctx, "failed to list batch jobs", err)
		dto.InternalError(c, "failed to list batch jobs")
		return
	}
	dto.Success(c, jobs)
}

// GetJob 获取任务详情
// @Summary 获取单个生成任务
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[entity.GenerationJob]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	ctx := c.Request.Context()

	job, err := h.jobs.GetByID(ctx, c.Param("jid"))
	if err != nil {
		logger.Error(ctx, "failed to get job", err)
		dto.InternalError(c, "failed to get job")
		return
	}
	if job == nil {
		dto.NotFound(c, "job not found")
		return
	}
	dto.Success(c, job)
}
