package state

import (
	"fmt"
	"sync"
	"testing"
)

func TestPutAndGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Put("research.findings", "three competitors identified"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	val, err := s.Get("research.findings")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "three competitors identified" {
		t.Errorf("Expected stored value, got %q", val)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLastWriterWins(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("key", "first")
	s.Put("key", "second")

	val, err := s.Get("key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "second" {
		t.Errorf("Expected second, got %q", val)
	}
}

func TestRevisionIncreases(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("a", "1")
	first, err := s.GetKeyValue("a")
	if err != nil {
		t.Fatalf("GetKeyValue failed: %v", err)
	}

	s.Put("a", "2")
	second, _ := s.GetKeyValue("a")

	if second.Revision <= first.Revision {
		t.Errorf("Expected revision to increase: %d then %d",
			first.Revision, second.Revision)
	}
	if second.Created != first.Created {
		t.Error("Expected Created to be preserved across updates")
	}
}

func TestDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("key", "value")
	if err := s.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("key"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := s.Delete("key"); err != nil {
		t.Errorf("Expected nil on missing delete, got %v", err)
	}
}

func TestKeysPattern(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("research.one", "a")
	s.Put("research.two", "b")
	s.Put("coding.one", "c")

	keys, err := s.Keys("research.*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %d: %v", len(keys), keys)
	}

	all, _ := s.Keys("*")
	if len(all) != 3 {
		t.Errorf("Expected 3 keys for *, got %d", len(all))
	}
}

func TestSnapshot(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("a", "1")
	s.Put("b", "2")

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap) != 2 || snap["a"] != "1" || snap["b"] != "2" {
		t.Errorf("Unexpected snapshot: %v", snap)
	}

	// Snapshot is a copy, not a view.
	s.Put("c", "3")
	if _, ok := snap["c"]; ok {
		t.Error("Snapshot reflected a later write")
	}
}

func TestValidateKey(t *testing.T) {
	cases := []struct {
		key   string
		valid bool
	}{
		{"ok", true},
		{"dotted.key", true},
		{"", false},
		{"has space", false},
		{".leading", false},
		{"trailing.", false},
	}
	for _, c := range cases {
		err := ValidateKey(c.key)
		if c.valid && err != nil {
			t.Errorf("Key %q: expected valid, got %v", c.key, err)
		}
		if !c.valid && err == nil {
			t.Errorf("Key %q: expected error", c.key)
		}
	}
}

func TestWatch(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ch, err := s.Watch("research.*")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	s.Put("research.findings", "data")
	s.Put("coding.other", "ignored")
	s.Delete("research.findings")

	kv := <-ch
	if kv.Key != "research.findings" || kv.Operation != OpPut {
		t.Errorf("Unexpected first event: %+v", kv)
	}

	kv = <-ch
	if kv.Key != "research.findings" || kv.Operation != OpDelete {
		t.Errorf("Unexpected second event: %+v", kv)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Put("shared", fmt.Sprintf("writer-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	// The store survives the race and holds one of the written values.
	val, err := s.Get("shared")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val == "" {
		t.Error("Expected a value after concurrent writes")
	}

	kv, _ := s.GetKeyValue("shared")
	if kv.Revision != 800 {
		t.Errorf("Expected 800 revisions, got %d", kv.Revision)
	}
}

func TestClose(t *testing.T) {
	s := NewMemoryStore()
	s.Put("key", "value")

	ch, _ := s.Watch("*")

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}

	if _, ok := <-ch; ok {
		t.Error("Expected watch channel to be closed")
	}
	if err := s.Put("key", "value"); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
