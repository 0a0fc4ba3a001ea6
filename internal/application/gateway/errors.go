package gateway

import (
	"fmt"
	"strings"
)

// AttemptError 回退链中单次尝试的失败记录
type AttemptError struct {
	ModelID string
	Err     error
}

// ChainError 整条回退链耗尽后的聚合错误。
// 携带每次尝试的底层错误与调用用途，便于调用方决定是否重试。
type ChainError struct {
	Action   string
	Attempts []AttemptError
}

// Error 实现 error 接口
func (e *ChainError) Error() string {
	last := e.Last()
	models := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		models = append(models, a.ModelID)
	}
	return fmt.Sprintf("all models failed for action %s (tried %s), last error: %v",
		e.Action, strings.Join(models, " -> "), last)
}

// Unwrap 返回最后一次尝试的底层错误
func (e *ChainError) Unwrap() error {
	return e.Last()
}

// Last 返回最后一次尝试的错误；无记录返回 nil
func (e *ChainError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
