package rollingbatch

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/rollingbatch/pkg/transfer"
)

func TestRun_ProcessesEverything(t *testing.T) {
	engine := newTestEngine(t, newFakeMux(1), testConfig())

	for i := 0; i < 120; i++ {
		engine.Enqueue(newFakeItem("x"))
	}

	if err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !engine.IsIdle() {
		t.Error("engine should be idle after Run")
	}
	if engine.Results().Count() != 120 {
		t.Errorf("result count = %d, want 120", engine.Results().Count())
	}
	stats := engine.Stats()
	if stats.Admitted != 120 || stats.Completed != 120 || stats.Failed != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	engine := newTestEngine(t, newFakeMux(0), testConfig())
	engine.Enqueue(newFakeItem("stuck"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_ManagerFault(t *testing.T) {
	mux := newFakeMux(1)
	mux.performCode = transfer.MultiInternalError
	engine := newTestEngine(t, mux, testConfig())
	engine.Enqueue(newFakeItem("a"))

	err := engine.Run(context.Background())
	if !errors.Is(err, transfer.ErrManagerFatal) {
		t.Errorf("Run() error = %v, want ErrManagerFatal", err)
	}
}

func TestRun_Closed(t *testing.T) {
	engine := newTestEngine(t, newFakeMux(1), testConfig())
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := engine.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() error = %v, want ErrClosed", err)
	}
}
