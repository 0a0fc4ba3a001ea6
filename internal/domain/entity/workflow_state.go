// Package entity 定义领域实体
package entity

import (
	"time"
)

// Stage 工作流阶段 (1..6)
type Stage int

const (
	StageSourceAnalysis     Stage = 1
	StageIdeaLab            Stage = 2
	StageBlueprintBuilder   Stage = 3
	StageChapterGeneration  Stage = 4
	StageInteractiveEditing Stage = 5
	StageFinalReview        Stage = 6
)

// String 返回阶段名称
func (s Stage) String() string {
	switch s {
	case StageSourceAnalysis:
		return "source_analysis"
	case StageIdeaLab:
		return "idea_lab"
	case StageBlueprintBuilder:
		return "blueprint_builder"
	case StageChapterGeneration:
		return "chapter_generation"
	case StageInteractiveEditing:
		return "interactive_editing"
	case StageFinalReview:
		return "final_review"
	default:
		return "unknown"
	}
}

// Valid 检查阶段编号是否合法
func (s Stage) Valid() bool {
	return s >= StageSourceAnalysis && s <= StageFinalReview
}

// GenerationMode 章节批量生成执行模式
type GenerationMode string

const (
	ModeSequential GenerationMode = "sequential"
	ModeParallel   GenerationMode = "parallel"
	ModeSelective  GenerationMode = "selective"
)

// Valid 检查执行模式是否合法
func (m GenerationMode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeSelective:
		return true
	}
	return false
}

// GenerationProgress 章节生成进度
type GenerationProgress struct {
	CurrentChapter int            `json:"current_chapter"`
	TotalChapters  int            `json:"total_chapters"`
	IsGenerating   bool           `json:"is_generating"`
	Mode           GenerationMode `json:"mode"`
}

// WorkflowState 工作流聚合状态。
// 只能通过 workflow.Engine 的转移方法修改，不允许直接写字段。
type WorkflowState struct {
	CurrentStage Stage `json:"current_stage"`

	// StartedFresh 标记从第二阶段直接开始（无源文本分析）
	StartedFresh bool `json:"started_fresh"`

	SourceAnalysis    *SourceAnalysis    `json:"source_analysis,omitempty"`
	GeneratedIdeas    []GeneratedIdea    `json:"generated_ideas,omitempty"`
	NovelBlueprint    *NovelBlueprint    `json:"novel_blueprint,omitempty"`
	GeneratedChapters []GeneratedChapter `json:"generated_chapters,omitempty"`
	FinalProject      *FinalProject      `json:"final_project,omitempty"`

	Progress GenerationProgress `json:"progress"`

	// SelectedModels 阶段号 -> 模型 ID
	SelectedModels map[int]string `json:"selected_models,omitempty"`
	// Credentials 模型 ID -> API Key；随调用传递，不进入适配器缓存身份
	Credentials map[string]string `json:"credentials,omitempty"`

	LastSaved *time.Time `json:"last_saved,omitempty"`
}

// NewWorkflowState 创建初始状态（完整流程入口，从第一阶段开始）
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{
		CurrentStage:   StageSourceAnalysis,
		SelectedModels: make(map[int]string),
		Credentials:    make(map[string]string),
		Progress:       GenerationProgress{Mode: ModeSequential},
	}
}

// SelectedIdea 返回被选中的创意；无选中返回 nil
func (s *WorkflowState) SelectedIdea() *GeneratedIdea {
	for i := range s.GeneratedIdeas {
		if s.GeneratedIdeas[i].Selected {
			return &s.GeneratedIdeas[i]
		}
	}
	return nil
}

// ChapterByNumber 按章号查找已生成章节；未找到返回 nil
func (s *WorkflowState) ChapterByNumber(number int) *GeneratedChapter {
	for i := range s.GeneratedChapters {
		if s.GeneratedChapters[i].Number == number {
			return &s.GeneratedChapters[i]
		}
	}
	return nil
}

// TotalWordCount 所有已生成章节的总字数
func (s *WorkflowState) TotalWordCount() int {
	total := 0
	for i := range s.GeneratedChapters {
		total += s.GeneratedChapters[i].WordCount
	}
	return total
}
