package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "novel-journey-api/pkg/errors"
)

// fakeAdapter 按预设结果或错误响应
type fakeAdapter struct {
	modelID string
	result  *Result
	err     error
	calls   int
	prompts []string
}

func (a *fakeAdapter) ProcessPrompt(_ context.Context, renderedPrompt string, _ CallOptions) (*Result, error) {
	a.calls++
	a.prompts = append(a.prompts, renderedPrompt)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *fakeAdapter) ModelID() string { return a.modelID }

// fakeFactory 固定的模型 -> 适配器映射；getErrs 模拟按模型的工厂错误
type fakeFactory struct {
	adapters map[string]*fakeAdapter
	getErrs  map[string]error
}

func (f *fakeFactory) Get(_ context.Context, modelID, _ string) (ModelAdapter, error) {
	if err := f.getErrs[modelID]; err != nil {
		return nil, err
	}
	a, ok := f.adapters[modelID]
	if !ok {
		return nil, apperrors.ErrUnconfiguredModel.WithDetail(modelID)
	}
	return a, nil
}

func (f *fakeFactory) Known(modelID string) bool {
	if _, ok := f.adapters[modelID]; ok {
		return true
	}
	_, ok := f.getErrs[modelID]
	return ok
}

func TestGenerateRendersTemplate(t *testing.T) {
	adapter := &fakeAdapter{
		modelID: "m1",
		result:  NewStructuredResult("m1", map[string]any{"ok": true}),
	}
	gw := New(&fakeFactory{adapters: map[string]*fakeAdapter{"m1": adapter}}, nil)

	_, err := gw.Generate(context.Background(), "m1", "", "Write about [TOPIC].",
		map[string]any{"TOPIC": "dragons"}, CallOptions{Action: "test"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := adapter.prompts[0]; got != "Write about dragons." {
		t.Errorf("rendered prompt = %q", got)
	}
}

func TestGenerateUnknownModelFailsImmediately(t *testing.T) {
	fallback := &fakeAdapter{
		modelID: "backup",
		result:  NewStructuredResult("backup", map[string]any{}),
	}
	gw := New(&fakeFactory{adapters: map[string]*fakeAdapter{"backup": fallback}},
		map[string][]string{"missing": {"backup"}})

	_, err := gw.Generate(context.Background(), "missing", "", "x", nil, CallOptions{Action: "test"})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeUnconfiguredModel {
		t.Errorf("code = %s, want %s", appErr.Code, apperrors.CodeUnconfiguredModel)
	}
	if fallback.calls != 0 {
		t.Error("fallback chain must not run for an unconfigured model")
	}
}

func TestGenerateMissingCredentialFailsFast(t *testing.T) {
	backup := &fakeAdapter{
		modelID: "backup",
		result:  NewStructuredResult("backup", map[string]any{"content": "ok"}),
	}
	factory := &fakeFactory{
		adapters: map[string]*fakeAdapter{"backup": backup},
		getErrs:  map[string]error{"needs-key": apperrors.ErrMissingCredential.WithDetail("needs-key")},
	}
	gw := New(factory, map[string][]string{"needs-key": {"backup"}})

	_, err := gw.Generate(context.Background(), "needs-key", "", "x", nil, CallOptions{Action: "chapter"})
	if err == nil {
		t.Fatal("expected error for missing credential")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeMissingCredential {
		t.Errorf("code = %s, want %s", appErr.Code, apperrors.CodeMissingCredential)
	}
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		t.Error("credential error must surface verbatim, not as a chain error")
	}
	if backup.calls != 0 {
		t.Error("fallback chain must not run when the requested model lacks its credential")
	}
}

func TestGenerateFallsBackOnFailure(t *testing.T) {
	primary := &fakeAdapter{modelID: "primary", err: errors.New("provider down")}
	backup := &fakeAdapter{
		modelID: "backup",
		result:  NewStructuredResult("backup", map[string]any{"content": "ok"}),
	}
	gw := New(&fakeFactory{adapters: map[string]*fakeAdapter{"primary": primary, "backup": backup}},
		map[string][]string{"primary": {"backup"}})

	result, err := gw.Generate(context.Background(), "primary", "", "x", nil, CallOptions{Action: "chapter"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.ModelID != "backup" {
		t.Errorf("result.ModelID = %q, want backup", result.ModelID)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, backup.calls)
	}
}

func TestGenerateNoChainFailsOnFirstError(t *testing.T) {
	primary := &fakeAdapter{modelID: "primary", err: errors.New("boom")}
	gw := New(&fakeFactory{adapters: map[string]*fakeAdapter{"primary": primary}}, nil)

	_, err := gw.Generate(context.Background(), "primary", "", "x", nil, CallOptions{Action: "ideas"})
	if err == nil {
		t.Fatal("expected chain error")
	}
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("error type = %T, want *ChainError", err)
	}
	if len(chainErr.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(chainErr.Attempts))
	}
}

func TestChainErrorMessageListsModels(t *testing.T) {
	err := &ChainError{
		Action: "blueprint",
		Attempts: []AttemptError{
			{ModelID: "a", Err: errors.New("first")},
			{ModelID: "b", Err: errors.New("second")},
		},
	}
	msg := err.Error()
	if !strings.Contains(msg, "all models failed for action blueprint") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "a -> b") {
		t.Errorf("message should list tried models, got %q", msg)
	}
	if !errors.Is(err, err.Last()) {
		t.Error("Unwrap should expose the last attempt error")
	}
}

func TestGenerateDegradedResultIsNotFailure(t *testing.T) {
	primary := &fakeAdapter{modelID: "primary", result: NewRawResult("primary", "plain prose")}
	backup := &fakeAdapter{modelID: "backup", result: NewStructuredResult("backup", map[string]any{})}
	gw := New(&fakeFactory{adapters: map[string]*fakeAdapter{"primary": primary, "backup": backup}},
		map[string][]string{"primary": {"backup"}})

	result, err := gw.Generate(context.Background(), "primary", "", "x", nil, CallOptions{Action: "chapter"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.IsStructured() {
		t.Error("expected raw result from primary")
	}
	if backup.calls != 0 {
		t.Error("degraded parse must not trigger fallback")
	}
}

func TestResultText(t *testing.T) {
	structured := NewStructuredResult("m", map[string]any{"chapter_content": "body", "empty": "  "})
	if got := structured.Text("empty", "chapter_content"); got != "body" {
		t.Errorf("Text = %q, want body", got)
	}
	if got := structured.Text("missing"); got != "" {
		t.Errorf("Text on missing key = %q, want empty", got)
	}

	raw := NewRawResult("m", "raw text")
	if got := raw.Text("anything"); got != "raw text" {
		t.Errorf("raw Text = %q", got)
	}
}
