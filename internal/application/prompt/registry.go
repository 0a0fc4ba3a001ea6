package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// Action 生成调用的用途标识
type Action string

const (
	ActionAnalyzeSource     Action = "analyze_source"
	ActionGenerateIdeas     Action = "generate_ideas"
	ActionGenerateBlueprint Action = "generate_blueprint"
	ActionGenerateChapter   Action = "generate_chapter"
	ActionEditChapter       Action = "edit_chapter"
	ActionFinalReview       Action = "final_review"
)

// Registry 提示模板注册表。
// 每个 action 内置一份默认模板；请求可携带自定义模板覆盖。
type Registry struct {
	mu    sync.RWMutex
	cache map[Action]string
}

// NewRegistry 创建模板注册表
func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[Action]string),
	}
}

// Get 返回 action 的默认模板
func (r *Registry) Get(action Action) (string, error) {
	if r == nil {
		return "", fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[action]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[action]; ok {
		return tpl, nil
	}

	path, err := resolveTemplateFile(action)
	if err != nil {
		return "", err
	}
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template for %s: %w", action, err)
	}
	tpl := strings.TrimSpace(string(b))
	r.cache[action] = tpl
	return tpl, nil
}

// Resolve 返回请求自带的模板，为空时回退到默认模板
func (r *Registry) Resolve(action Action, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}
	return r.Get(action)
}

func resolveTemplateFile(action Action) (string, error) {
	switch action {
	case ActionAnalyzeSource:
		return "templates/analyze_source.txt", nil
	case ActionGenerateIdeas:
		return "templates/generate_ideas.txt", nil
	case ActionGenerateBlueprint:
		return "templates/generate_blueprint.txt", nil
	case ActionGenerateChapter:
		return "templates/generate_chapter.txt", nil
	case ActionEditChapter:
		return "templates/edit_chapter.txt", nil
	case ActionFinalReview:
		return "templates/final_review.txt", nil
	default:
		return "", fmt.Errorf("unknown action: %s", action)
	}
}
