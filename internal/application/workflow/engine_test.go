package workflow

import (
	"context"
	"testing"

	"novel-journey-api/internal/config"
	"novel-journey-api/internal/domain/entity"
	apperrors "novel-journey-api/pkg/errors"
)

func newTestEngine() *Engine {
	return NewEngine(nil, nil, nil, "default-model",
		config.MemoryConfig{TopK: 3},
		config.GenerationConfig{MinSourceWords: 50})
}

// completeThrough 构造一个已完成至 target 阶段前置条件的状态
func completeThrough(target entity.Stage) *entity.WorkflowState {
	state := entity.NewWorkflowState()
	if target >= entity.StageIdeaLab {
		state.SourceAnalysis = &entity.SourceAnalysis{Title: "ref"}
	}
	if target >= entity.StageBlueprintBuilder {
		state.GeneratedIdeas = []entity.GeneratedIdea{{ID: "i1", Title: "idea", Selected: true}}
	}
	if target >= entity.StageChapterGeneration {
		state.NovelBlueprint = &entity.NovelBlueprint{
			Chapters: []entity.ChapterOutline{{ID: "c1", Number: 1, Title: "opening"}},
		}
		state.Progress.TotalChapters = 1
	}
	if target >= entity.StageInteractiveEditing {
		state.GeneratedChapters = []entity.GeneratedChapter{
			{ID: "g1", Number: 1, Content: "text", Status: entity.ChapterStatusDraft},
		}
	}
	if target >= entity.StageFinalReview {
		state.GeneratedChapters[0].Status = entity.ChapterStatusEdited
	}
	state.CurrentStage = target
	return state
}

func TestStartFreshSkipsSourceAnalysis(t *testing.T) {
	e := newTestEngine()
	state := e.StartFresh()

	if state.CurrentStage != entity.StageIdeaLab {
		t.Errorf("CurrentStage = %v, want idea_lab", state.CurrentStage)
	}
	if !e.StageCompleted(state, entity.StageSourceAnalysis) {
		t.Error("source analysis counts as completed for fresh projects")
	}

	_, err := e.AnalyzeSource(context.Background(), state, "t", "a", "some text", "")
	if !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("AnalyzeSource on fresh project: err = %v, want stage blocked", err)
	}
}

func TestAnalyzeSourceGuards(t *testing.T) {
	e := newTestEngine()

	state := completeThrough(entity.StageIdeaLab)
	if _, err := e.AnalyzeSource(context.Background(), state, "t", "a", "text", ""); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("wrong stage: err = %v, want stage blocked", err)
	}

	state = entity.NewWorkflowState()
	if _, err := e.AnalyzeSource(context.Background(), state, "t", "a", "too short", ""); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("short source: err = %v, want validation failed", err)
	}
}

func TestAdvanceRequiresCompletedStage(t *testing.T) {
	e := newTestEngine()
	state := entity.NewWorkflowState()

	if err := e.Advance(state); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("advance with incomplete stage: err = %v, want stage blocked", err)
	}

	state.SourceAnalysis = &entity.SourceAnalysis{Title: "ref"}
	if err := e.Advance(state); err != nil {
		t.Fatalf("advance with completed stage: %v", err)
	}
	if state.CurrentStage != entity.StageIdeaLab {
		t.Errorf("CurrentStage = %v, want idea_lab", state.CurrentStage)
	}
}

func TestAdvancePastFinalStage(t *testing.T) {
	e := newTestEngine()
	state := completeThrough(entity.StageFinalReview)

	if err := e.Advance(state); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("advance past final stage: err = %v, want stage blocked", err)
	}
}

func TestGoToBackwardAlwaysAllowed(t *testing.T) {
	e := newTestEngine()
	state := completeThrough(entity.StageChapterGeneration)

	if err := e.GoTo(state, entity.StageIdeaLab); err != nil {
		t.Fatalf("backward jump: %v", err)
	}
	if state.CurrentStage != entity.StageIdeaLab {
		t.Errorf("CurrentStage = %v, want idea_lab", state.CurrentStage)
	}
}

func TestGoToForwardChecksIntermediateStages(t *testing.T) {
	e := newTestEngine()

	state := entity.NewWorkflowState()
	state.SourceAnalysis = &entity.SourceAnalysis{Title: "ref"}
	// 阶段二未完成，跨两级前跳必须被拦
	if err := e.GoTo(state, entity.StageBlueprintBuilder); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("forward over incomplete stage: err = %v, want stage blocked", err)
	}

	state.GeneratedIdeas = []entity.GeneratedIdea{{ID: "i1", Selected: true}}
	if err := e.GoTo(state, entity.StageBlueprintBuilder); err != nil {
		t.Fatalf("forward with completed path: %v", err)
	}

	if err := e.GoTo(state, entity.Stage(9)); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("invalid stage: err = %v, want validation failed", err)
	}
}

func TestResetOnlyFromFinalReview(t *testing.T) {
	e := newTestEngine()

	state := completeThrough(entity.StageInteractiveEditing)
	if _, err := e.Reset(state); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("reset before final review: err = %v, want stage blocked", err)
	}

	state = completeThrough(entity.StageFinalReview)
	state.SelectedModels[int(entity.StageChapterGeneration)] = "gpt-4o"
	state.Credentials["gpt-4o"] = "sk-test"

	fresh, err := e.Reset(state)
	if err != nil {
		t.Fatalf("reset from final review: %v", err)
	}
	if fresh.CurrentStage != entity.StageSourceAnalysis {
		t.Errorf("fresh.CurrentStage = %v, want source_analysis", fresh.CurrentStage)
	}
	if fresh.NovelBlueprint != nil || len(fresh.GeneratedChapters) != 0 {
		t.Error("reset must discard generated artifacts")
	}
	if fresh.SelectedModels[int(entity.StageChapterGeneration)] != "gpt-4o" || fresh.Credentials["gpt-4o"] != "sk-test" {
		t.Error("reset must preserve model selections and credentials")
	}
}

func TestSelectIdeaExclusive(t *testing.T) {
	e := newTestEngine()
	state := completeThrough(entity.StageIdeaLab)
	state.GeneratedIdeas = []entity.GeneratedIdea{
		{ID: "a", Selected: true},
		{ID: "b"},
		{ID: "c"},
	}

	if err := e.SelectIdea(state, "b"); err != nil {
		t.Fatalf("SelectIdea: %v", err)
	}
	for _, idea := range state.GeneratedIdeas {
		if idea.Selected != (idea.ID == "b") {
			t.Errorf("idea %s selected = %v", idea.ID, idea.Selected)
		}
	}

	if err := e.SelectIdea(state, "nope"); !isCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown idea: err = %v, want not found", err)
	}

	state.CurrentStage = entity.StageBlueprintBuilder
	if err := e.SelectIdea(state, "a"); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("selection outside idea lab: err = %v, want stage blocked", err)
	}
}

func TestStageCompletedChapterGeneration(t *testing.T) {
	e := newTestEngine()
	state := completeThrough(entity.StageChapterGeneration)

	if e.StageCompleted(state, entity.StageChapterGeneration) {
		t.Error("no chapters yet, stage must not count as completed")
	}

	state.GeneratedChapters = []entity.GeneratedChapter{{Number: 1, Status: entity.ChapterStatusDraft}}
	state.Progress.IsGenerating = true
	if e.StageCompleted(state, entity.StageChapterGeneration) {
		t.Error("stage must not complete while a batch is in flight")
	}

	state.Progress.IsGenerating = false
	if !e.StageCompleted(state, entity.StageChapterGeneration) {
		t.Error("chapters present and batch idle, stage should be completed")
	}
}

func TestSelectModelAndCredential(t *testing.T) {
	e := newTestEngine()
	state := entity.NewWorkflowState()

	if err := e.SelectModel(state, entity.Stage(0), "m"); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("invalid stage: err = %v, want validation failed", err)
	}
	if err := e.SelectModel(state, entity.StageChapterGeneration, "claude-3-opus"); err != nil {
		t.Fatalf("SelectModel: %v", err)
	}
	e.SetCredential(state, "claude-3-opus", "sk-live")

	modelID, credential := e.modelFor(state, entity.StageChapterGeneration)
	if modelID != "claude-3-opus" || credential != "sk-live" {
		t.Errorf("modelFor = (%s, %s)", modelID, credential)
	}

	// 未选择的阶段回落到默认模型
	modelID, credential = e.modelFor(state, entity.StageIdeaLab)
	if modelID != "default-model" || credential != "" {
		t.Errorf("default modelFor = (%s, %s)", modelID, credential)
	}
}

func isCode(err error, code apperrors.ErrorCode) bool {
	if err == nil {
		return false
	}
	return apperrors.AsAppError(err).Code == code
}
