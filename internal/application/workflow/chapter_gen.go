package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/application/prompt"
	"novel-journey-api/internal/domain/entity"
	apperrors "novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/logger"
	"novel-journey-api/pkg/metrics"
)

// Memory 章节记忆端口。
// 同步实现直接落库；异步实现把写路径投递到 Redis Stream，由 worker 消费。
type Memory interface {
	RecordChapterSummary(ctx context.Context, projectID string, chapterNumber int, chapterText string, summary entity.StructuredSummary) (*entity.ChapterSummary, error)
	RetrieveRelevant(ctx context.Context, projectID, queryText string, limit int) ([]*entity.ScoredSummary, error)
}

// GenerateChapter 生成或重新生成单章。
// 已存在同章号的章节时替换其内容，保留章节 ID 与反馈。
func (e *Engine) GenerateChapter(ctx context.Context, state *entity.WorkflowState, projectID string, chapterNumber int, templateOverride string) (*entity.GeneratedChapter, error) {
	ctx, span := tracer.Start(ctx, "workflow.GenerateChapter",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.Int("chapter_number", chapterNumber),
		))
	defer span.End()

	if state.CurrentStage != entity.StageChapterGeneration && state.CurrentStage != entity.StageInteractiveEditing {
		return nil, apperrors.ErrStageBlocked.WithDetail("chapter generation runs in stage chapter_generation or interactive_editing")
	}
	blueprint := state.NovelBlueprint
	if blueprint == nil {
		return nil, apperrors.ErrStageBlocked.WithDetail("no blueprint has been generated")
	}
	outline := blueprint.OutlineFor(chapterNumber)
	if outline == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(
			fmt.Sprintf("no outline for chapter %d", chapterNumber))
	}

	tpl, err := e.prompts.Resolve(prompt.ActionGenerateChapter, templateOverride)
	if err != nil {
		return nil, err
	}

	vars := e.chapterVars(ctx, state, projectID, outline)

	modelID, credential := e.modelFor(state, entity.StageChapterGeneration)
	result, err := e.gw.Generate(ctx, modelID, credential, tpl, vars,
		gateway.CallOptions{Action: string(prompt.ActionGenerateChapter)})
	if err != nil {
		metrics.ChapterGenerationTotal.WithLabelValues(string(state.Progress.Mode), "failed").Inc()
		span.RecordError(err)
		return nil, err
	}

	content := result.Text("chapter_content", "content")
	if strings.TrimSpace(content) == "" {
		metrics.ChapterGenerationTotal.WithLabelValues(string(state.Progress.Mode), "failed").Inc()
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned empty chapter content")
	}

	chapter := state.ChapterByNumber(chapterNumber)
	if chapter == nil {
		state.GeneratedChapters = append(state.GeneratedChapters, entity.GeneratedChapter{
			ID:     uuid.New().String(),
			Number: chapterNumber,
		})
		sort.Slice(state.GeneratedChapters, func(i, j int) bool {
			return state.GeneratedChapters[i].Number < state.GeneratedChapters[j].Number
		})
		chapter = state.ChapterByNumber(chapterNumber)
	}

	chapter.Title = outline.Title
	chapter.Synopsis = outline.Synopsis
	chapter.Status = entity.ChapterStatusDraft
	chapter.SetContent(content)
	chapter.Quality = EstimateQuality(chapter, blueprint)
	chapter.Metrics = EstimateMetrics(chapter)
	chapter.Generation = &entity.GenerationMetadata{
		Model:            result.ModelID,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		GeneratedAt:      time.Now().Format(time.RFC3339),
	}

	if chapterNumber > state.Progress.CurrentChapter {
		state.Progress.CurrentChapter = chapterNumber
	}

	status := "success"
	if !result.IsStructured() {
		status = "degraded"
	}
	metrics.ChapterGenerationTotal.WithLabelValues(string(state.Progress.Mode), status).Inc()
	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))

	if e.mem != nil && projectID != "" {
		e.writeMemory(ctx, state, projectID, chapter)
	}
	return chapter, nil
}

// chapterVars 组装单章生成的模板变量
func (e *Engine) chapterVars(ctx context.Context, state *entity.WorkflowState, projectID string, outline *entity.ChapterOutline) map[string]any {
	blueprint := state.NovelBlueprint

	previousSummary := ""
	if prev := state.ChapterByNumber(outline.Number - 1); prev != nil {
		previousSummary = prev.Synopsis
	}

	retrieved := ""
	if e.mem != nil && projectID != "" {
		limit := e.memCfg.TopK
		if e.memCfg.MaxPromptSummaries > 0 && e.memCfg.MaxPromptSummaries < limit {
			limit = e.memCfg.MaxPromptSummaries
		}
		hits, err := e.mem.RetrieveRelevant(ctx, projectID, outline.Synopsis, limit)
		if err != nil {
			// 检索失败降级为无上下文生成
			logger.Warn(ctx, "memory retrieval failed, generating without retrieved context",
				"project_id", projectID,
				"chapter_number", outline.Number,
				"error", err.Error())
		} else {
			retrieved = strings.TrimSpace(memory.AugmentPrompt("", hits))
		}
	}

	return map[string]any{
		"CHAPTER_NUMBER":               fmt.Sprintf("%d", outline.Number),
		"NOVEL_TITLE":                  novelTitle(state),
		"CHAPTER_TITLE":                outline.Title,
		"CHAPTER_SYNOPSIS":             outline.Synopsis,
		"CHAPTER_KEY_EVENTS":           strings.Join(outline.KeyEvents, "; "),
		"CHAPTER_CHARACTERS_INVOLVED":  strings.Join(characterNames(blueprint, outline.CharactersInvolved), ", "),
		"CHAPTER_EMOTIONAL_TONE":       outline.EmotionalTone,
		"CHAPTER_PACING":               outline.Pacing,
		"CHAPTER_PLOT_ADVANCEMENT":     outline.PlotAdvancement,
		"CHAPTER_WORD_TARGET":          fmt.Sprintf("%d", outline.WordTarget),
		"SOURCE_STYLE_PROFILE_SUMMARY": styleProfileSummary(state),
		"NOVEL_GLOBAL_SUMMARY":         globalSummary(state),
		"PREVIOUS_CHAPTER_SUMMARY":     previousSummary,
		"CHARACTER_ARC_PROGRESSION":    arcProgression(blueprint, outline.Number),
		"RETRIEVED_CONTEXT":            retrieved,
	}
}

// writeMemory 把章节摘要写入记忆；失败只告警，不影响生成结果
func (e *Engine) writeMemory(ctx context.Context, state *entity.WorkflowState, projectID string, chapter *entity.GeneratedChapter) {
	summary := BuildStructuredSummary(state, chapter)
	if _, err := e.mem.RecordChapterSummary(ctx, projectID, chapter.Number, chapter.Content, summary); err != nil {
		logger.Warn(ctx, "failed to record chapter memory",
			"project_id", projectID,
			"chapter_number", chapter.Number,
			"error", err.Error())
	}
}

// BuildStructuredSummary 从蓝图大纲与风格画像推导章节的结构化摘要
func BuildStructuredSummary(state *entity.WorkflowState, chapter *entity.GeneratedChapter) entity.StructuredSummary {
	summary := entity.StructuredSummary{}

	blueprint := state.NovelBlueprint
	if blueprint != nil {
		if outline := blueprint.OutlineFor(chapter.Number); outline != nil {
			summary.Characters = characterNames(blueprint, outline.CharactersInvolved)
			summary.PlotPoints = outline.KeyEvents
			summary.SpatialTemporalDetails = map[string]string{}
			if outline.EmotionalTone != "" {
				summary.SpatialTemporalDetails["emotional_tone"] = outline.EmotionalTone
			}
			if outline.Pacing != "" {
				summary.SpatialTemporalDetails["pacing"] = outline.Pacing
			}
		}
		summary.MainThemes = blueprint.PrimaryThemes
	}

	if state.SourceAnalysis != nil {
		p := state.SourceAnalysis.StyleProfile
		traits := map[string]string{}
		if p.ToneProfile != "" {
			traits["tone"] = p.ToneProfile
		}
		if p.NarrativePerspective != "" {
			traits["perspective"] = p.NarrativePerspective
		}
		if p.Vocabulary != "" {
			traits["vocabulary"] = p.Vocabulary
		}
		if len(traits) > 0 {
			summary.StylisticTraits = traits
		}
	}
	return summary
}

// globalSummary 作品级概要：蓝图总览描述优先，其次选中创意的梗概
func globalSummary(state *entity.WorkflowState) string {
	if state.NovelBlueprint != nil && state.NovelBlueprint.Overview.Description != "" {
		return state.NovelBlueprint.Overview.Description
	}
	if idea := state.SelectedIdea(); idea != nil {
		return idea.Synopsis
	}
	return ""
}

// arcProgression 汇总各角色在本章的发展事件
func arcProgression(blueprint *entity.NovelBlueprint, chapterNumber int) string {
	if blueprint == nil {
		return ""
	}
	var parts []string
	for i := range blueprint.Characters {
		c := &blueprint.Characters[i]
		for _, dev := range c.Development {
			if dev.Chapter != chapterNumber {
				continue
			}
			line := c.Name + ": " + dev.Event
			if dev.Growth != "" {
				line += " (" + dev.Growth + ")"
			}
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}
