package results

import (
	"context"
	"testing"
	"time"

	"github.com/vinayprograms/conductor/bus"
	"github.com/vinayprograms/conductor/tasks"
)

func TestPublishAndGet(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	err := p.Publish(ctx, "task-1", Result{
		Status:    StatusSuccess,
		AgentID:   "coder-1",
		AgentType: tasks.TypeCoding,
		Output:    "patch written",
		Attempts:  1,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, err := p.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Output != "patch written" || got.AgentID != "coder-1" {
		t.Errorf("Unexpected result: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}
}

func TestGetMissing(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	if _, err := p.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	if err := p.Publish(ctx, "", Result{Status: StatusSuccess}); err != ErrInvalidTaskID {
		t.Errorf("Expected ErrInvalidTaskID, got %v", err)
	}
	if err := p.Publish(ctx, "task-1", Result{Status: "bogus"}); err != ErrInvalidStatus {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusPending})
	first, _ := p.Get(ctx, "task-1")

	time.Sleep(time.Millisecond)
	p.Publish(ctx, "task-1", Result{Status: StatusSuccess, Output: "done"})
	second, _ := p.Get(ctx, "task-1")

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("Expected CreatedAt preserved across updates")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("Expected UpdatedAt to advance")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch, err := p.Subscribe("task-1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusPending})
	p.Publish(ctx, "task-1", Result{Status: StatusSuccess, Output: "done"})

	first := <-ch
	if first.Status != StatusPending {
		t.Errorf("Expected pending first, got %s", first.Status)
	}

	second := <-ch
	if second.Status != StatusSuccess {
		t.Errorf("Expected success, got %s", second.Status)
	}

	// Terminal result closes the subscription.
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after terminal result")
	}
}

func TestSubscribeExistingTerminal(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusFailed, Error: "gave up"})

	ch, err := p.Subscribe("task-1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	got, ok := <-ch
	if !ok {
		t.Fatal("Expected stored result delivered")
	}
	if got.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", got.Status)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed for terminal result")
	}
}

func TestListFilters(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusSuccess, AgentType: tasks.TypeResearch})
	p.Publish(ctx, "task-2", Result{Status: StatusFailed, AgentType: tasks.TypeCoding})
	p.Publish(ctx, "task-3", Result{Status: StatusSuccess, AgentType: tasks.TypeCoding})

	got, err := p.List(ResultFilter{Status: StatusSuccess})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 successes, got %d", len(got))
	}

	got, _ = p.List(ResultFilter{AgentType: tasks.TypeCoding})
	if len(got) != 2 {
		t.Errorf("Expected 2 coding results, got %d", len(got))
	}

	got, _ = p.List(ResultFilter{Status: StatusSuccess, AgentType: tasks.TypeCoding})
	if len(got) != 1 || got[0].TaskID != "task-3" {
		t.Errorf("Expected task-3 only, got %v", got)
	}
}

func TestDelete(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusSuccess})

	if err := p.Delete(ctx, "task-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := p.Get(ctx, "task-1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := p.Delete(ctx, "task-1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBusPublisherBroadcast(t *testing.T) {
	mb := bus.NewMemoryBus(bus.DefaultConfig())
	defer mb.Close()

	p := NewBusPublisher(mb, DefaultBusPublisherConfig())
	defer p.Close()

	ch, err := p.Subscribe("task-1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	terminal, err := mb.Subscribe("results.terminal")
	if err != nil {
		t.Fatalf("Terminal subscribe failed: %v", err)
	}

	ctx := context.Background()
	if err := p.Publish(ctx, "task-1", Result{Status: StatusSuccess, Output: "done"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-ch:
		if got.Status != StatusSuccess {
			t.Errorf("Expected success, got %s", got.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber did not receive result")
	}

	select {
	case msg := <-terminal.Messages():
		if len(msg.Data) == 0 {
			t.Error("Expected terminal payload")
		}
	case <-time.After(time.Second):
		t.Fatal("Terminal subject did not receive result")
	}
}

func TestBusPublisherGet(t *testing.T) {
	mb := bus.NewMemoryBus(bus.DefaultConfig())
	defer mb.Close()

	p := NewBusPublisher(mb, DefaultBusPublisherConfig())
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{Status: StatusFailed, Error: "nope", Attempts: 3})

	got, err := p.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Attempts != 3 || got.Error != "nope" {
		t.Errorf("Unexpected result: %+v", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ctx := context.Background()
	p.Publish(ctx, "task-1", Result{
		Status:   StatusSuccess,
		Metadata: map[string]string{"k": "v"},
	})

	got, _ := p.Get(ctx, "task-1")
	got.Metadata["k"] = "mutated"

	again, _ := p.Get(ctx, "task-1")
	if again.Metadata["k"] != "v" {
		t.Error("Get returned a shared map instead of a clone")
	}
}
