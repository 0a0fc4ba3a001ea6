package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/prompt"
	"novel-journey-api/internal/domain/entity"
	apperrors "novel-journey-api/pkg/errors"
	"novel-journey-api/pkg/logger"
)

// AnalyzeSource 第一阶段：分析参考文本并生成风格画像
func (e *Engine) AnalyzeSource(ctx context.Context, state *entity.WorkflowState, title, author, sourceText, templateOverride string) (*entity.SourceAnalysis, error) {
	ctx, span := tracer.Start(ctx, "workflow.AnalyzeSource")
	defer span.End()

	if state.CurrentStage != entity.StageSourceAnalysis {
		return nil, apperrors.ErrStageBlocked.WithDetail("source analysis runs in stage source_analysis")
	}
	if state.StartedFresh {
		return nil, apperrors.ErrStageBlocked.WithDetail("project was started without source analysis")
	}

	wordCount := entity.CountWords(sourceText)
	if wordCount < e.genCfg.MinSourceWords {
		return nil, apperrors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("source text has %d words, minimum is %d", wordCount, e.genCfg.MinSourceWords))
	}

	tpl, err := e.prompts.Resolve(prompt.ActionAnalyzeSource, templateOverride)
	if err != nil {
		return nil, err
	}

	modelID, credential := e.modelFor(state, entity.StageSourceAnalysis)
	result, err := e.gw.Generate(ctx, modelID, credential, tpl, map[string]any{
		"SOURCE_TITLE":      title,
		"SOURCE_WORD_COUNT": fmt.Sprintf("%d", wordCount),
		"SOURCE_TEXT":       sourceText,
	}, gateway.CallOptions{Action: string(prompt.ActionAnalyzeSource)})
	if err != nil {
		return nil, err
	}
	if !result.IsStructured() {
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned unstructured style analysis")
	}

	var payload struct {
		entity.StyleProfile
		Themes []string `json:"themes"`
	}
	if err := decodeInto(result.Structured, &payload); err != nil {
		return nil, apperrors.ErrGenerationFailed.WithError(err)
	}

	analysis := &entity.SourceAnalysis{
		Title:        title,
		Author:       author,
		WordCount:    wordCount,
		StyleProfile: payload.StyleProfile,
		Themes:       payload.Themes,
		UploadedAt:   time.Now(),
	}
	state.SourceAnalysis = analysis
	return analysis, nil
}

// GenerateIdeas 第二阶段：生成候选创意，替换上一批结果
func (e *Engine) GenerateIdeas(ctx context.Context, state *entity.WorkflowState, count int, preferredGenre, templateOverride string) ([]entity.GeneratedIdea, error) {
	ctx, span := tracer.Start(ctx, "workflow.GenerateIdeas")
	defer span.End()

	if state.CurrentStage != entity.StageIdeaLab {
		return nil, apperrors.ErrStageBlocked.WithDetail("idea generation runs in stage idea_lab")
	}
	if count <= 0 {
		count = 3
	}

	tpl, err := e.prompts.Resolve(prompt.ActionGenerateIdeas, templateOverride)
	if err != nil {
		return nil, err
	}

	modelID, credential := e.modelFor(state, entity.StageIdeaLab)
	result, err := e.gw.Generate(ctx, modelID, credential, tpl, map[string]any{
		"IDEA_COUNT":                   fmt.Sprintf("%d", count),
		"SOURCE_STYLE_PROFILE_SUMMARY": styleProfileSummary(state),
		"PREFERRED_GENRE":              preferredGenre,
	}, gateway.CallOptions{Action: string(prompt.ActionGenerateIdeas)})
	if err != nil {
		return nil, err
	}

	raw, err := ideaItems(result)
	if err != nil {
		return nil, err
	}

	ideas := make([]entity.GeneratedIdea, 0, len(raw))
	for _, item := range raw {
		var idea entity.GeneratedIdea
		if err := decodeInto(item, &idea); err != nil {
			logger.Warn(ctx, "skipping malformed idea entry", "error", err.Error())
			continue
		}
		idea.ID = uuid.New().String()
		idea.Selected = false
		idea.Rating = EstimateIdeaRating(&idea)
		ideas = append(ideas, idea)
	}
	if len(ideas) == 0 {
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned no usable ideas")
	}

	state.GeneratedIdeas = ideas
	return ideas, nil
}

// SelectIdea 选中一个创意；整组中最多一个被选中
func (e *Engine) SelectIdea(state *entity.WorkflowState, ideaID string) error {
	if state.CurrentStage != entity.StageIdeaLab {
		return apperrors.ErrStageBlocked.WithDetail("idea selection runs in stage idea_lab")
	}

	found := false
	for i := range state.GeneratedIdeas {
		selected := state.GeneratedIdeas[i].ID == ideaID
		state.GeneratedIdeas[i].Selected = selected
		found = found || selected
	}
	if !found {
		return apperrors.ErrNotFound.WithDetail("idea " + ideaID)
	}
	return nil
}

// GenerateBlueprint 第三阶段：为选中的创意生成完整蓝图
func (e *Engine) GenerateBlueprint(ctx context.Context, state *entity.WorkflowState, templateOverride string) (*entity.NovelBlueprint, error) {
	ctx, span := tracer.Start(ctx, "workflow.GenerateBlueprint")
	defer span.End()

	if state.CurrentStage != entity.StageBlueprintBuilder {
		return nil, apperrors.ErrStageBlocked.WithDetail("blueprint generation runs in stage blueprint_builder")
	}
	idea := state.SelectedIdea()
	if idea == nil {
		return nil, apperrors.ErrStageBlocked.WithDetail("no idea has been selected")
	}

	tpl, err := e.prompts.Resolve(prompt.ActionGenerateBlueprint, templateOverride)
	if err != nil {
		return nil, err
	}

	modelID, credential := e.modelFor(state, entity.StageBlueprintBuilder)
	result, err := e.gw.Generate(ctx, modelID, credential, tpl, map[string]any{
		"IDEA_TITLE":                   idea.Title,
		"IDEA_SYNOPSIS":                idea.Synopsis,
		"ESTIMATED_CHAPTERS":           fmt.Sprintf("%d", idea.EstimatedChapters),
		"SOURCE_STYLE_PROFILE_SUMMARY": styleProfileSummary(state),
	}, gateway.CallOptions{Action: string(prompt.ActionGenerateBlueprint)})
	if err != nil {
		return nil, err
	}
	if !result.IsStructured() {
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned unstructured blueprint")
	}

	var payload struct {
		Overview      entity.BlueprintOverview  `json:"overview"`
		PlotStructure entity.PlotStructure      `json:"plot_structure"`
		Characters    []entity.CharacterProfile `json:"characters"`
		Chapters      []entity.ChapterOutline   `json:"chapters"`
		Themes        []string                  `json:"themes"`
	}
	if err := decodeInto(result.Structured, &payload); err != nil {
		return nil, apperrors.ErrGenerationFailed.WithError(err)
	}
	if len(payload.Chapters) == 0 {
		return nil, apperrors.ErrGenerationFailed.WithDetail("blueprint carries no chapter outlines")
	}

	for i := range payload.Chapters {
		if payload.Chapters[i].ID == "" {
			payload.Chapters[i].ID = uuid.New().String()
		}
		if payload.Chapters[i].Number == 0 {
			payload.Chapters[i].Number = i + 1
		}
	}
	for i := range payload.Characters {
		if payload.Characters[i].ID == "" {
			payload.Characters[i].ID = uuid.New().String()
		}
	}

	blueprint := &entity.NovelBlueprint{
		Idea:          *idea,
		Overview:      payload.Overview,
		PlotStructure: payload.PlotStructure,
		Characters:    payload.Characters,
		Chapters:      payload.Chapters,
		PrimaryThemes: payload.Themes,
	}
	if blueprint.Overview.Title == "" {
		blueprint.Overview.Title = idea.Title
	}
	if blueprint.Overview.ChapterCount == 0 {
		blueprint.Overview.ChapterCount = len(payload.Chapters)
	}

	state.NovelBlueprint = blueprint
	state.Progress.TotalChapters = len(payload.Chapters)
	return blueprint, nil
}

// EditChapter 第五阶段：按指令修订章节并标记为 edited
func (e *Engine) EditChapter(ctx context.Context, state *entity.WorkflowState, projectID string, chapterNumber int, instructions, consistencyNotes, templateOverride string) (*entity.GeneratedChapter, error) {
	ctx, span := tracer.Start(ctx, "workflow.EditChapter")
	defer span.End()

	if state.CurrentStage != entity.StageInteractiveEditing {
		return nil, apperrors.ErrStageBlocked.WithDetail("chapter editing runs in stage interactive_editing")
	}
	chapter := state.ChapterByNumber(chapterNumber)
	if chapter == nil {
		return nil, apperrors.ErrChapterNotFound.WithDetail(fmt.Sprintf("chapter %d", chapterNumber))
	}
	if !chapter.IsEditable() {
		return nil, apperrors.ErrValidationFailed.WithDetail(fmt.Sprintf("chapter %d is final", chapterNumber))
	}
	if strings.TrimSpace(instructions) == "" {
		return nil, apperrors.ErrValidationFailed.WithDetail("editing instructions are required")
	}

	tpl, err := e.prompts.Resolve(prompt.ActionEditChapter, templateOverride)
	if err != nil {
		return nil, err
	}

	modelID, credential := e.modelFor(state, entity.StageInteractiveEditing)
	result, err := e.gw.Generate(ctx, modelID, credential, tpl, map[string]any{
		"CHAPTER_NUMBER":    fmt.Sprintf("%d", chapterNumber),
		"NOVEL_TITLE":       novelTitle(state),
		"CHAPTER_CONTENT":   chapter.Content,
		"EDIT_INSTRUCTIONS": instructions,
		"CONSISTENCY_NOTES": consistencyNotes,
	}, gateway.CallOptions{Action: string(prompt.ActionEditChapter)})
	if err != nil {
		return nil, err
	}

	content := result.Text("chapter_content")
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned empty chapter content")
	}

	chapter.SetContent(content)
	chapter.Status = entity.ChapterStatusEdited
	chapter.Quality = EstimateQuality(chapter, state.NovelBlueprint)
	chapter.Metrics = EstimateMetrics(chapter)

	if result.IsStructured() {
		applyFeedback(chapter, result.Structured["feedback"])
	}

	if e.mem != nil && projectID != "" {
		e.writeMemory(ctx, state, projectID, chapter)
	}
	return chapter, nil
}

// FinalizeProject 第六阶段：生成终审质量报告并汇总项目
func (e *Engine) FinalizeProject(ctx context.Context, state *entity.WorkflowState, export entity.ExportSettings, templateOverride string) (*entity.FinalProject, error) {
	ctx, span := tracer.Start(ctx, "workflow.FinalizeProject")
	defer span.End()

	if state.CurrentStage != entity.StageFinalReview {
		return nil, apperrors.ErrStageBlocked.WithDetail("final review runs in stage final_review")
	}
	if len(state.GeneratedChapters) == 0 {
		return nil, apperrors.ErrStageBlocked.WithDetail("no chapters have been generated")
	}

	tpl, err := e.prompts.Resolve(prompt.ActionFinalReview, templateOverride)
	if err != nil {
		return nil, err
	}

	synopses := make([]string, 0, len(state.GeneratedChapters))
	for i := range state.GeneratedChapters {
		c := &state.GeneratedChapters[i]
		synopses = append(synopses, fmt.Sprintf("Chapter %d: %s", c.Number, c.Synopsis))
	}

	modelID, credential := e.modelFor(state, entity.StageFinalReview)
	report := AggregateQualityReport(state.GeneratedChapters)

	result, err := e.gw.Generate(ctx, modelID, credential, tpl, map[string]any{
		"NOVEL_TITLE":      novelTitle(state),
		"CHAPTER_COUNT":    fmt.Sprintf("%d", len(state.GeneratedChapters)),
		"TOTAL_WORD_COUNT": fmt.Sprintf("%d", state.TotalWordCount()),
		"CHAPTER_SYNOPSES": strings.Join(synopses, "\n"),
	}, gateway.CallOptions{Action: string(prompt.ActionFinalReview)})
	switch {
	case err != nil:
		// 终审报告可降级为本地汇总，不阻断项目完成
		logger.Warn(ctx, "final review generation failed, using aggregated report", "error", err.Error())
	case result.IsStructured():
		var llmReport entity.QualityReport
		if derr := decodeInto(result.Structured, &llmReport); derr == nil && llmReport.OverallQuality > 0 {
			report = llmReport
		}
	}

	if export.Format == "" {
		export.Format = "txt"
	}

	final := &entity.FinalProject{
		QualityReport:  report,
		ExportSettings: export,
		TotalWordCount: state.TotalWordCount(),
		ChapterCount:   len(state.GeneratedChapters),
		CompletedAt:    time.Now(),
	}
	state.FinalProject = final
	return final, nil
}

// ideaItems 解析创意列表：结构化结果的 ideas/items 键，或原始文本中的 JSON 数组
func ideaItems(result *gateway.Result) ([]map[string]any, error) {
	if result.IsStructured() {
		for _, key := range []string{"ideas", "items"} {
			if v, ok := result.Structured[key]; ok {
				return anySlice(v)
			}
		}
		// 单个创意对象也接受
		return []map[string]any{result.Structured}, nil
	}

	var arr []map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Raw)), &arr); err != nil {
		return nil, apperrors.ErrGenerationFailed.WithDetail("model returned unstructured idea list")
	}
	return arr, nil
}

func anySlice(v any) ([]map[string]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, apperrors.ErrGenerationFailed.WithDetail("idea list has unexpected shape")
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// applyFeedback 把结构化结果里的反馈条目追加到章节
func applyFeedback(chapter *entity.GeneratedChapter, v any) {
	items, ok := v.([]any)
	if !ok {
		return
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var fb entity.FeedbackEntry
		if err := decodeInto(m, &fb); err != nil {
			continue
		}
		if fb.Type == "" {
			fb.Type = entity.FeedbackSuggestion
		}
		fb.ID = uuid.New().String()
		fb.CreatedAt = time.Now()
		chapter.AppendFeedback(fb)
	}
}

// styleProfileSummary 把风格画像压缩为提示词片段；无画像（快捷入口）返回空串
func styleProfileSummary(state *entity.WorkflowState) string {
	if state.SourceAnalysis == nil {
		return ""
	}
	p := state.SourceAnalysis.StyleProfile

	var parts []string
	appendPart := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	appendPart("vocabulary", p.Vocabulary)
	appendPart("sentence structure", p.SentenceStructure)
	appendPart("tone", p.ToneProfile)
	appendPart("perspective", p.NarrativePerspective)
	appendPart("dialogue", p.DialogueStyle)
	appendPart("pacing", p.Pacing)
	appendPart("characterization", p.Characterization)
	if len(p.RhetoricalDevices) > 0 {
		parts = append(parts, "rhetorical devices: "+strings.Join(p.RhetoricalDevices, ", "))
	}
	return strings.Join(parts, "; ")
}

// novelTitle 解析作品标题：蓝图总览优先，其次选中创意
func novelTitle(state *entity.WorkflowState) string {
	if state.NovelBlueprint != nil && state.NovelBlueprint.Overview.Title != "" {
		return state.NovelBlueprint.Overview.Title
	}
	if idea := state.SelectedIdea(); idea != nil {
		return idea.Title
	}
	return "Untitled"
}

// decodeInto 通过 JSON 往返把 map 解码为具体类型
func decodeInto(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
