// Package coordinator 负责多章批量生成的调度：串行、并行与选择性三种模式
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/domain/repository"
	apperrors "novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/metrics"
)

var tracer = otel.Tracer("coordinator")

// BatchRequest 一次批量生成请求
type BatchRequest struct {
	ProjectID string
	Mode      entity.GenerationMode
	// Chapters 选择性模式的目标章号；其余模式忽略
	Chapters         []int
	TemplateOverride string
}

// UnitFailure 单章失败记录
type UnitFailure struct {
	Chapter int    `json:"chapter"`
	Error   string `json:"error"`
}

// BatchResult 批量生成结果。部分失败不终止批次，失败章通过 Failed 返回。
type BatchResult struct {
	BatchID   string                `json:"batch_id"`
	Mode      entity.GenerationMode `json:"mode"`
	Succeeded []int                 `json:"succeeded"`
	Failed    []UnitFailure         `json:"failed,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
	Duration  time.Duration         `json:"duration"`
}

// Coordinator 批量生成协调器。
// 同一项目同一时刻只允许一个批次在执行。
type Coordinator struct {
	engine      *workflow.Engine
	jobs        repository.JobRepository
	maxParallel int

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New 创建协调器；maxParallel 为并行模式单批并发上限，0 表示不限制
func New(engine *workflow.Engine, jobs repository.JobRepository, maxParallel int) *Coordinator {
	return &Coordinator{
		engine:      engine,
		jobs:        jobs,
		maxParallel: maxParallel,
		inFlight:    make(map[string]struct{}),
	}
}

// Run 执行一个批次。ctx 取消时停止调度未开始的单元，已开始的单元随 ctx 中断。
func (c *Coordinator) Run(ctx context.Context, state *entity.WorkflowState, req BatchRequest) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "coordinator.Run",
		trace.WithAttributes(
			attribute.String("project_id", req.ProjectID),
			attribute.String("mode", string(req.Mode)),
		))
	defer span.End()

	if !req.Mode.Valid() {
		return nil, apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("unknown generation mode %q", req.Mode))
	}
	if state.NovelBlueprint == nil || len(state.NovelBlueprint.Chapters) == 0 {
		return nil, apperrors.ErrStageBlocked.WithDetail("no blueprint has been generated")
	}

	targets, err := c.planTargets(state, req)
	if err != nil {
		return nil, err
	}

	if err := c.acquire(req.ProjectID); err != nil {
		return nil, err
	}
	defer c.release(req.ProjectID)

	state.Progress.IsGenerating = true
	state.Progress.Mode = req.Mode
	state.Progress.TotalChapters = len(state.NovelBlueprint.Chapters)
	defer func() {
		state.Progress.IsGenerating = false
	}()

	metrics.BatchInFlight.Inc()
	defer metrics.BatchInFlight.Dec()

	result := &BatchResult{
		BatchID: uuid.New().String(),
		Mode:    req.Mode,
	}
	start := time.Now()

	switch req.Mode {
	case entity.ModeParallel:
		err = c.runParallel(ctx, state, req, targets, result)
	default:
		// 串行与选择性共用同一循环，差别只在目标章集合
		err = c.runOrdered(ctx, state, req, targets, result)
	}

	result.Duration = time.Since(start)
	metrics.BatchDuration.WithLabelValues(string(req.Mode)).Observe(result.Duration.Seconds())

	if err != nil {
		span.RecordError(err)
		return result, err
	}
	return result, nil
}

// planTargets 解析批次要生成的章号
func (c *Coordinator) planTargets(state *entity.WorkflowState, req BatchRequest) ([]int, error) {
	blueprint := state.NovelBlueprint

	if req.Mode == entity.ModeSelective {
		if len(req.Chapters) == 0 {
			return nil, apperrors.ErrValidationFailed.WithDetail("selective mode requires at least one chapter number")
		}
		targets := make([]int, 0, len(req.Chapters))
		seen := make(map[int]struct{}, len(req.Chapters))
		for _, n := range req.Chapters {
			if blueprint.OutlineFor(n) == nil {
				return nil, apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("no outline for chapter %d", n))
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			targets = append(targets, n)
		}
		sort.Ints(targets)
		return targets, nil
	}

	// 串行/并行：补齐所有尚未生成的章
	targets := make([]int, 0, len(blueprint.Chapters))
	for i := range blueprint.Chapters {
		n := blueprint.Chapters[i].Number
		if state.ChapterByNumber(n) == nil {
			targets = append(targets, n)
		}
	}
	sort.Ints(targets)
	if len(targets) == 0 {
		return nil, apperrors.ErrValidationFailed.WithDetail("all chapters are already generated")
	}
	return targets, nil
}

// runOrdered 按章号升序逐章生成。单章失败记录后继续后续章节。
func (c *Coordinator) runOrdered(ctx context.Context, state *entity.WorkflowState, req BatchRequest, targets []int, result *BatchResult) error {
	for _, n := range targets {
		if err := ctx.Err(); err != nil {
			c.markCancelled(ctx, req, result, targets, n)
			return err
		}

		job := c.startJob(ctx, req, result.BatchID, n)
		chapter, err := c.engine.GenerateChapter(ctx, state, req.ProjectID, n, req.TemplateOverride)
		if err != nil {
			c.finishJob(ctx, job, nil, err)
			result.Failed = append(result.Failed, UnitFailure{Chapter: n, Error: err.Error()})
			result.Warnings = append(result.Warnings, fmt.Sprintf("chapter %d failed: %v", n, err))
			logger.Warn(ctx, "chapter generation failed, continuing batch",
				"project_id", req.ProjectID,
				"chapter_number", n,
				"error", err.Error())
			continue
		}
		c.finishJob(ctx, job, chapter, nil)
		result.Succeeded = append(result.Succeeded, n)
	}
	return nil
}

// runParallel 并发生成。每个单元在批次开始时的状态快照上构建提示，
// 互相看不到同批其他章的结果；完成后统一合并回共享状态。
func (c *Coordinator) runParallel(ctx context.Context, state *entity.WorkflowState, req BatchRequest, targets []int, result *BatchResult) error {
	snapshot, err := cloneState(state)
	if err != nil {
		return apperrors.ErrInternalError.WithError(err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if c.maxParallel > 0 {
		g.SetLimit(c.maxParallel)
	}

	for _, n := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			unitState, err := cloneState(snapshot)
			if err != nil {
				return err
			}

			job := c.startJob(gctx, req, result.BatchID, n)
			chapter, err := c.engine.GenerateChapter(gctx, unitState, req.ProjectID, n, req.TemplateOverride)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.finishJob(gctx, job, nil, err)
				result.Failed = append(result.Failed, UnitFailure{Chapter: n, Error: err.Error()})
				result.Warnings = append(result.Warnings, fmt.Sprintf("chapter %d failed: %v", n, err))
				logger.Warn(gctx, "chapter generation failed, continuing batch",
					"project_id", req.ProjectID,
					"chapter_number", n,
					"error", err.Error())
				return nil
			}
			c.finishJob(gctx, job, chapter, nil)
			mergeChapter(state, chapter)
			result.Succeeded = append(result.Succeeded, n)
			return nil
		})
	}

	err = g.Wait()
	sort.Ints(result.Succeeded)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].Chapter < result.Failed[j].Chapter })
	return err
}

// markCancelled 为取消时尚未开始的单元落一条 cancelled 记录
func (c *Coordinator) markCancelled(ctx context.Context, req BatchRequest, result *BatchResult, targets []int, from int) {
	if c.jobs == nil {
		return
	}
	for _, n := range targets {
		if n < from {
			continue
		}
		job := entity.NewGenerationJob(req.ProjectID, result.BatchID, n, req.Mode)
		job.Cancel()
		if err := c.jobs.Create(context.WithoutCancel(ctx), job); err != nil {
			logger.Warn(ctx, "failed to record cancelled job", "chapter_number", n, "error", err.Error())
		}
	}
}

func (c *Coordinator) acquire(projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[projectID]; busy {
		return apperrors.ErrBatchInFlight.WithDetail("project " + projectID)
	}
	c.inFlight[projectID] = struct{}{}
	return nil
}

func (c *Coordinator) release(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, projectID)
}

// startJob 创建并启动一条单元执行记录；仓储缺失时返回 nil
func (c *Coordinator) startJob(ctx context.Context, req BatchRequest, batchID string, chapterNumber int) *entity.GenerationJob {
	if c.jobs == nil {
		return nil
	}
	job := entity.NewGenerationJob(req.ProjectID, batchID, chapterNumber, req.Mode)
	job.Start()
	if err := c.jobs.Create(ctx, job); err != nil {
		logger.Warn(ctx, "failed to record generation job",
			"chapter_number", chapterNumber,
			"error", err.Error())
		return nil
	}
	return job
}

func (c *Coordinator) finishJob(ctx context.Context, job *entity.GenerationJob, chapter *entity.GeneratedChapter, genErr error) {
	if c.jobs == nil || job == nil {
		return
	}
	if genErr != nil {
		job.Fail(genErr.Error())
	} else {
		if chapter != nil && chapter.Generation != nil {
			job.SetLLMMetrics(chapter.Generation.Model, chapter.Generation.PromptTokens, chapter.Generation.CompletionTokens)
		}
		job.Complete()
	}
	if err := c.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn(ctx, "failed to update generation job", "job_id", job.ID, "error", err.Error())
	}
}

// mergeChapter 把并行单元的产物合并回共享状态
func mergeChapter(state *entity.WorkflowState, chapter *entity.GeneratedChapter) {
	existing := state.ChapterByNumber(chapter.Number)
	if existing != nil {
		*existing = *chapter
	} else {
		state.GeneratedChapters = append(state.GeneratedChapters, *chapter)
		sort.Slice(state.GeneratedChapters, func(i, j int) bool {
			return state.GeneratedChapters[i].Number < state.GeneratedChapters[j].Number
		})
	}
	if chapter.Number > state.Progress.CurrentChapter {
		state.Progress.CurrentChapter = chapter.Number
	}
}

// cloneState 深拷贝工作流状态
func cloneState(state *entity.WorkflowState) (*entity.WorkflowState, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var clone entity.WorkflowState
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}
