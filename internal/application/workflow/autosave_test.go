package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAutosaverPeriodicSave(t *testing.T) {
	var mu sync.Mutex
	saves := 0

	saver := NewAutosaver(10*time.Millisecond, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		saves++
		return nil
	})

	saver.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	saver.Stop()

	mu.Lock()
	got := saves
	mu.Unlock()
	if got == 0 {
		t.Error("no periodic saves happened")
	}

	// Stop 之后不再触发
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	after := saves
	mu.Unlock()
	if after != got {
		t.Errorf("saves continued after Stop: %d -> %d", got, after)
	}
}

func TestAutosaverSaveNow(t *testing.T) {
	calls := 0
	saver := NewAutosaver(time.Hour, func(context.Context) error {
		calls++
		return errors.New("disk full")
	})

	if err := saver.SaveNow(context.Background()); err == nil {
		t.Error("SaveNow must surface the save error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestAutosaverStopIdempotent(t *testing.T) {
	saver := NewAutosaver(time.Hour, func(context.Context) error { return nil })
	saver.Start(context.Background())
	saver.Start(context.Background())

	saver.Stop()
	saver.Stop()
}

func TestAutosaverStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	saver := NewAutosaver(5*time.Millisecond, func(context.Context) error { return nil })
	saver.Start(ctx)

	cancel()
	done := make(chan struct{})
	go func() {
		saver.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
