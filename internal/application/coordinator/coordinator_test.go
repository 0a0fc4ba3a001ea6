package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"novel-journey-api/internal/application/gateway"
	"novel-journey-api/internal/application/prompt"
	"novel-journey-api/internal/application/workflow"
	"novel-journey-api/internal/config"
	"novel-journey-api/internal/domain/entity"
	apperrors "novel-journey-api/pkg/errors"
)

// scriptedAdapter 以渲染后的提示词为章号脚本化成败。
// 测试用模板只含 [CHAPTER_NUMBER]，渲染结果即章号。
type scriptedAdapter struct {
	failChapters map[string]bool
}

func (a *scriptedAdapter) ProcessPrompt(_ context.Context, renderedPrompt string, _ gateway.CallOptions) (*gateway.Result, error) {
	if a.failChapters[renderedPrompt] {
		return nil, fmt.Errorf("provider refused chapter %s", renderedPrompt)
	}
	content := fmt.Sprintf("Draft for chapter %s. The journey continued at dawn and nothing was the same afterwards.", renderedPrompt)
	return gateway.NewStructuredResult("default-model", map[string]any{"chapter_content": content}), nil
}

func (a *scriptedAdapter) ModelID() string { return "default-model" }

type scriptedFactory struct {
	adapter gateway.ModelAdapter
}

func (f *scriptedFactory) Get(context.Context, string, string) (gateway.ModelAdapter, error) {
	return f.adapter, nil
}

func (f *scriptedFactory) Known(string) bool { return true }

// fakeJobRepo 内存任务仓储
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs []*entity.GenerationJob
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *fakeJobRepo) Update(context.Context, *entity.GenerationJob) error { return nil }

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*entity.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, nil
}

func (r *fakeJobRepo) ListByBatch(_ context.Context, batchID string) ([]*entity.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.GenerationJob, 0)
	for _, j := range r.jobs {
		if j.BatchID == batchID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListByProject(_ context.Context, projectID string, status entity.JobStatus) ([]*entity.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.GenerationJob, 0)
	for _, j := range r.jobs {
		if j.ProjectID == projectID && (status == "" || j.Status == status) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) countByStatus(status entity.JobStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}

func newTestCoordinator(failChapters map[string]bool, maxParallel int) (*Coordinator, *fakeJobRepo) {
	factory := &scriptedFactory{adapter: &scriptedAdapter{failChapters: failChapters}}
	engine := workflow.NewEngine(gateway.New(factory, nil), prompt.NewRegistry(), nil,
		"default-model", config.MemoryConfig{TopK: 3}, config.GenerationConfig{})
	jobs := &fakeJobRepo{}
	return New(engine, jobs, maxParallel), jobs
}

func generationState(chapterCount int) *entity.WorkflowState {
	state := entity.NewWorkflowState()
	state.CurrentStage = entity.StageChapterGeneration
	state.GeneratedIdeas = []entity.GeneratedIdea{{ID: "i1", Title: "The Crossing", Selected: true}}

	outlines := make([]entity.ChapterOutline, 0, chapterCount)
	for n := 1; n <= chapterCount; n++ {
		outlines = append(outlines, entity.ChapterOutline{
			ID:       uuid.New().String(),
			Number:   n,
			Title:    fmt.Sprintf("Chapter %d", n),
			Synopsis: fmt.Sprintf("events of chapter %d", n),
		})
	}
	state.NovelBlueprint = &entity.NovelBlueprint{
		Idea:     state.GeneratedIdeas[0],
		Overview: entity.BlueprintOverview{Title: "The Crossing", ChapterCount: chapterCount},
		Chapters: outlines,
	}
	state.Progress.TotalChapters = chapterCount
	return state
}

func batchReq(mode entity.GenerationMode, chapters ...int) BatchRequest {
	return BatchRequest{
		ProjectID:        "p1",
		Mode:             mode,
		Chapters:         chapters,
		TemplateOverride: "[CHAPTER_NUMBER]",
	}
}

func TestRunSequentialContinuesPastFailure(t *testing.T) {
	coord, jobs := newTestCoordinator(map[string]bool{"2": true}, 0)
	state := generationState(3)

	result, err := coord.Run(context.Background(), state, batchReq(entity.ModeSequential))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := result.Succeeded, []int{1, 3}; !equalInts(got, want) {
		t.Errorf("Succeeded = %v, want %v", got, want)
	}
	if len(result.Failed) != 1 || result.Failed[0].Chapter != 2 {
		t.Errorf("Failed = %v, want chapter 2", result.Failed)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v", result.Warnings)
	}

	if state.ChapterByNumber(1) == nil || state.ChapterByNumber(3) == nil {
		t.Error("successful chapters missing from state")
	}
	if state.ChapterByNumber(2) != nil {
		t.Error("failed chapter must not enter state")
	}
	if state.Progress.IsGenerating {
		t.Error("IsGenerating must clear after the batch")
	}
	if jobs.countByStatus(entity.JobStatusFailed) != 1 {
		t.Errorf("failed jobs = %d, want 1", jobs.countByStatus(entity.JobStatusFailed))
	}
	if jobs.countByStatus(entity.JobStatusCompleted) != 2 {
		t.Errorf("completed jobs = %d, want 2", jobs.countByStatus(entity.JobStatusCompleted))
	}
}

// recordingAdapter 记录每次生成收到的完整提示词
type recordingAdapter struct {
	mu      sync.Mutex
	prompts []string
}

func (a *recordingAdapter) ProcessPrompt(_ context.Context, renderedPrompt string, _ gateway.CallOptions) (*gateway.Result, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, renderedPrompt)
	a.mu.Unlock()
	content := "The road narrowed past the ford and the travelers pressed on until dusk."
	return gateway.NewStructuredResult("default-model", map[string]any{"chapter_content": content}), nil
}

func (a *recordingAdapter) ModelID() string { return "default-model" }

func TestRunSequentialCarriesPreviousSynopsis(t *testing.T) {
	adapter := &recordingAdapter{}
	engine := workflow.NewEngine(gateway.New(&scriptedFactory{adapter: adapter}, nil), prompt.NewRegistry(), nil,
		"default-model", config.MemoryConfig{TopK: 3}, config.GenerationConfig{})
	coord := New(engine, &fakeJobRepo{}, 0)
	state := generationState(3)

	// 不覆盖模板：使用内置单章模板，校验上一章梗概进入提示词
	result, err := coord.Run(context.Background(), state, BatchRequest{
		ProjectID: "p1",
		Mode:      entity.ModeSequential,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := result.Succeeded, []int{1, 2, 3}; !equalInts(got, want) {
		t.Fatalf("Succeeded = %v, want %v", got, want)
	}
	if len(adapter.prompts) != 3 {
		t.Fatalf("prompts recorded = %d, want 3", len(adapter.prompts))
	}
	if !strings.Contains(adapter.prompts[1], "Previous chapter summary: events of chapter 1") {
		t.Errorf("chapter 2 prompt missing chapter 1 synopsis:\n%s", adapter.prompts[1])
	}
	if !strings.Contains(adapter.prompts[2], "Previous chapter summary: events of chapter 2") {
		t.Errorf("chapter 3 prompt missing chapter 2 synopsis:\n%s", adapter.prompts[2])
	}
	p := state.Progress
	if p.CurrentChapter != 3 || p.TotalChapters != 3 || p.IsGenerating {
		t.Errorf("progress = (%d,%d,%v), want (3,3,false)", p.CurrentChapter, p.TotalChapters, p.IsGenerating)
	}
}

func TestRunSelectiveTargetsOnlyRequested(t *testing.T) {
	coord, _ := newTestCoordinator(nil, 0)
	state := generationState(5)

	result, err := coord.Run(context.Background(), state, batchReq(entity.ModeSelective, 4, 2, 4))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := result.Succeeded, []int{2, 4}; !equalInts(got, want) {
		t.Errorf("Succeeded = %v, want %v", got, want)
	}
	if state.ChapterByNumber(1) != nil || state.ChapterByNumber(3) != nil || state.ChapterByNumber(5) != nil {
		t.Error("selective mode must not touch unrequested chapters")
	}
}

func TestRunSelectiveValidation(t *testing.T) {
	coord, _ := newTestCoordinator(nil, 0)
	state := generationState(3)

	if _, err := coord.Run(context.Background(), state, batchReq(entity.ModeSelective)); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("no chapters: err = %v, want validation failed", err)
	}
	if _, err := coord.Run(context.Background(), state, batchReq(entity.ModeSelective, 99)); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("unknown chapter: err = %v, want validation failed", err)
	}
}

func TestRunParallelPartialFailure(t *testing.T) {
	coord, _ := newTestCoordinator(map[string]bool{"3": true}, 2)
	state := generationState(4)

	result, err := coord.Run(context.Background(), state, batchReq(entity.ModeParallel))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := result.Succeeded, []int{1, 2, 4}; !equalInts(got, want) {
		t.Errorf("Succeeded = %v, want %v", got, want)
	}
	if len(result.Failed) != 1 || result.Failed[0].Chapter != 3 {
		t.Errorf("Failed = %v, want chapter 3", result.Failed)
	}

	// 合并后的章节按章号有序
	numbers := make([]int, 0, len(state.GeneratedChapters))
	for i := range state.GeneratedChapters {
		numbers = append(numbers, state.GeneratedChapters[i].Number)
	}
	if !sort.IntsAreSorted(numbers) {
		t.Errorf("chapters out of order: %v", numbers)
	}
}

func TestRunRejectsConcurrentBatchForSameProject(t *testing.T) {
	coord, _ := newTestCoordinator(nil, 0)
	state := generationState(2)

	if err := coord.acquire("p1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer coord.release("p1")

	_, err := coord.Run(context.Background(), state, batchReq(entity.ModeSequential))
	if !isCode(err, apperrors.CodeBatchInFlight) {
		t.Errorf("err = %v, want batch in flight", err)
	}

	// 其他项目不受影响
	other := batchReq(entity.ModeSequential)
	other.ProjectID = "p2"
	if _, err := coord.Run(context.Background(), generationState(1), other); err != nil {
		t.Errorf("other project blocked: %v", err)
	}
}

func TestRunGuards(t *testing.T) {
	coord, _ := newTestCoordinator(nil, 0)

	req := batchReq(entity.GenerationMode("bulk"))
	if _, err := coord.Run(context.Background(), generationState(1), req); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("invalid mode: err = %v, want validation failed", err)
	}

	state := entity.NewWorkflowState()
	state.CurrentStage = entity.StageChapterGeneration
	if _, err := coord.Run(context.Background(), state, batchReq(entity.ModeSequential)); !isCode(err, apperrors.CodeStageBlocked) {
		t.Errorf("no blueprint: err = %v, want stage blocked", err)
	}

	full := generationState(1)
	full.GeneratedChapters = []entity.GeneratedChapter{{Number: 1, Content: "done"}}
	if _, err := coord.Run(context.Background(), full, batchReq(entity.ModeSequential)); !isCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("nothing to generate: err = %v, want validation failed", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	coord, jobs := newTestCoordinator(nil, 0)
	state := generationState(3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := coord.Run(ctx, state, batchReq(entity.ModeSequential))
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(result.Succeeded) != 0 {
		t.Errorf("Succeeded = %v, want none", result.Succeeded)
	}
	if got := jobs.countByStatus(entity.JobStatusCancelled); got != 3 {
		t.Errorf("cancelled jobs = %d, want 3", got)
	}
	if state.Progress.IsGenerating {
		t.Error("IsGenerating must clear after cancellation")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isCode(err error, code apperrors.ErrorCode) bool {
	if err == nil {
		return false
	}
	return apperrors.AsAppError(err).Code == code
}
