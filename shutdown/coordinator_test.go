package shutdown

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPhasesRunInOrder(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	c.RegisterFuncWithPhase("stores", record("stores"), PhaseCloseStores)
	c.RegisterFuncWithPhase("dispatcher", record("dispatcher"), PhaseStopIntake)
	c.RegisterFuncWithPhase("drain", record("drain"), PhaseDrain)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"dispatcher", "drain", "stores"}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, order[i])
		}
	}
}

func TestSamePhaseConcurrent(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	start := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(2)

	// Both handlers block until the other arrives; sequential
	// execution would deadlock past the timeout.
	handler := func(ctx context.Context) error {
		arrived.Done()
		select {
		case <-start:
			return nil
		case <-time.After(2 * time.Second):
			return fmt.Errorf("peer never arrived")
		}
	}
	go func() {
		arrived.Wait()
		close(start)
	}()

	c.RegisterFuncWithPhase("a", handler, PhaseDrain)
	c.RegisterFuncWithPhase("b", handler, PhaseDrain)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestHandlerErrorReported(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	c.RegisterFunc("bad", func(ctx context.Context) error {
		return fmt.Errorf("refused")
	})
	ran := false
	c.RegisterFuncWithPhase("later", func(ctx context.Context) error {
		ran = true
		return nil
	}, PhaseCloseStores)

	err := c.Shutdown(context.Background())
	if err != ErrHandlerFailed {
		t.Errorf("Expected ErrHandlerFailed, got %v", err)
	}
	if !ran {
		t.Error("Expected later phases to still run")
	}

	failed := c.Result().FailedHandlers()
	if len(failed) != 1 || failed[0] != "bad" {
		t.Errorf("Expected [bad], got %v", failed)
	}
}

func TestShutdownTimeout(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	c.RegisterFuncWithPhase("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, PhaseStopIntake)
	c.RegisterFuncWithPhase("never", func(ctx context.Context) error {
		t.Error("Later phase ran after timeout")
		return nil
	}, PhaseCloseStores)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Shutdown(ctx); err != ErrTimeout {
		// The slow handler errors first, which is also acceptable.
		if err != ErrHandlerFailed {
			t.Errorf("Expected timeout or handler failure, got %v", err)
		}
	}
}

func TestDoubleShutdown(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	c.RegisterFunc("ok", func(ctx context.Context) error { return nil })

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	// Second call returns the completed shutdown's result.
	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil on second call, got %v", err)
	}
}

func TestDoneAndErr(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	select {
	case <-c.Done():
		t.Fatal("Done closed before shutdown")
	default:
	}
	if c.Err() != nil {
		t.Error("Expected nil Err before shutdown")
	}

	c.Shutdown(context.Background())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after shutdown")
	}
}

func TestTrigger(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	c.HandleSignals()

	done := make(chan struct{})
	c.RegisterFunc("mark", func(ctx context.Context) error {
		close(done)
		return nil
	})

	c.Trigger()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger did not start shutdown")
	}
}
