package workflow

import (
	"context"
	"sync"
	"time"

	"novel-journey-api/pkg/logger"
)

// SaveFunc 持久化当前工作流状态
type SaveFunc func(ctx context.Context) error

// Autosaver 周期性保存工作流状态。
// 生命周期与所属项目会话绑定：Start 启动，Stop 或 ctx 结束时退出。
// 显式保存与定时保存共用同一把锁，不会并发写同一份状态。
type Autosaver struct {
	interval time.Duration
	save     SaveFunc

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutosaver 创建自动保存器；interval <= 0 时使用 30 秒
func NewAutosaver(interval time.Duration, save SaveFunc) *Autosaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		interval: interval,
		save:     save,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动定时保存循环；重复调用无效果
func (a *Autosaver) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	go func() {
		defer close(a.done)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-a.stop:
				return
			case <-ticker.C:
				if err := a.SaveNow(ctx); err != nil {
					logger.Warn(ctx, "autosave failed", "error", err.Error())
				}
			}
		}
	}()
}

// SaveNow 立即执行一次保存；与定时保存互斥
func (a *Autosaver) SaveNow(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.save(ctx)
}

// Stop 停止定时循环并等待退出；可重复调用
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})

	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if started {
		<-a.done
	}
}
