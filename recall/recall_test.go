package recall

import (
	"context"
	"testing"
	"time"

	"github.com/vinayprograms/conductor/bus"
	"github.com/vinayprograms/conductor/results"
	"github.com/vinayprograms/conductor/tasks"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func terminalResult(taskID, output string) *results.Result {
	return &results.Result{
		TaskID:    taskID,
		AgentID:   "research-1",
		AgentType: tasks.TypeResearch,
		Status:    results.StatusSuccess,
		Output:    output,
		Attempts:  1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestIndexAndGet(t *testing.T) {
	a := newTestArchive(t)

	if err := a.IndexResult(terminalResult("task-1", "kubernetes scheduler findings")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}

	doc, err := a.Get("task-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Output != "kubernetes scheduler findings" || doc.AgentType != "research" {
		t.Errorf("Unexpected document: %+v", doc)
	}

	if _, err := a.Get("no-such-task"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIndexRejectsNonTerminal(t *testing.T) {
	a := newTestArchive(t)

	r := terminalResult("task-1", "partial")
	r.Status = results.StatusPending
	if err := a.IndexResult(r); err != ErrNotTerminal {
		t.Errorf("Expected ErrNotTerminal, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	a := newTestArchive(t)

	if err := a.IndexResult(terminalResult("task-1", "the scheduler uses a priority heap")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}
	if err := a.IndexResult(terminalResult("task-2", "database replication lag analysis")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}

	hits, err := a.Search("priority heap", SearchOpts{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Expected at least one hit")
	}
	if hits[0].TaskID != "task-1" {
		t.Errorf("Expected task-1 as best hit, got %s", hits[0].TaskID)
	}
}

func TestSearchFilters(t *testing.T) {
	a := newTestArchive(t)

	ok := terminalResult("task-1", "scan results clean")
	if err := a.IndexResult(ok); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}

	failed := terminalResult("task-2", "")
	failed.Status = results.StatusFailed
	failed.Error = "scan results unavailable"
	if err := a.IndexResult(failed); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}

	hits, err := a.Search("scan results", SearchOpts{Status: "failed"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].TaskID != "task-2" {
		t.Errorf("Expected only the failed result, got %+v", hits)
	}

	hits, err = a.Search("scan results", SearchOpts{AgentType: "coding"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Expected no hits for unused agent type, got %+v", hits)
	}
}

func TestReindexReplaces(t *testing.T) {
	a := newTestArchive(t)

	if err := a.IndexResult(terminalResult("task-1", "first version")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}
	if err := a.IndexResult(terminalResult("task-1", "second version")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}

	count, err := a.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 document after reindex, got %d", count)
	}

	doc, err := a.Get("task-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Output != "second version" {
		t.Errorf("Expected replacement, got %q", doc.Output)
	}
}

func TestDelete(t *testing.T) {
	a := newTestArchive(t)

	if err := a.IndexResult(terminalResult("task-1", "ephemeral")); err != nil {
		t.Fatalf("IndexResult failed: %v", err)
	}
	if err := a.Delete("task-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := a.Get("task-1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestFollowIndexesTerminalResults(t *testing.T) {
	a := newTestArchive(t)

	mb := bus.NewMemoryBus(bus.DefaultConfig())
	defer mb.Close()

	cfg := results.DefaultBusPublisherConfig()
	pub := results.NewBusPublisher(mb, cfg)
	defer pub.Close()

	f, err := Follow(a, mb, cfg.TerminalSubject)
	if err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	defer f.Stop()

	ctx := context.Background()

	// Pending results never reach the terminal subject.
	if err := pub.Publish(ctx, "task-1", results.Result{
		TaskID: "task-1", Status: results.StatusPending,
	}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := pub.Publish(ctx, "task-1", results.Result{
		TaskID:    "task-1",
		AgentType: tasks.TypeResearch,
		Status:    results.StatusSuccess,
		Output:    "archived output",
		Attempts:  1,
	}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := a.Count(); count == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	doc, err := a.Get("task-1")
	if err != nil {
		t.Fatalf("Get after follow failed: %v", err)
	}
	if doc.Output != "archived output" || doc.Status != "success" {
		t.Errorf("Unexpected archived document: %+v", doc)
	}
}
