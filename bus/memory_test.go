package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub, err := b.Subscribe("tasks.terminal")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := b.Publish("tasks.terminal", []byte("done")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Data) != "done" {
			t.Errorf("Expected done, got %q", msg.Data)
		}
		if msg.Subject != "tasks.terminal" {
			t.Errorf("Expected subject preserved, got %q", msg.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("Message not delivered")
	}
}

func TestFanOut(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub1, _ := b.Subscribe("events")
	sub2, _ := b.Subscribe("events")

	b.Publish("events", []byte("x"))

	for i, sub := range []Subscription{sub1, sub2} {
		select {
		case <-sub.Messages():
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d did not receive message", i)
		}
	}
}

func TestSubjectIsolation(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub, _ := b.Subscribe("tasks.result.a")
	b.Publish("tasks.result.b", []byte("other"))

	select {
	case msg := <-sub.Messages():
		t.Errorf("Received message for another subject: %q", msg.Subject)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueueSubscribeBalances(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub1, err := b.QueueSubscribe("work", "archivers")
	if err != nil {
		t.Fatalf("QueueSubscribe failed: %v", err)
	}
	sub2, _ := b.QueueSubscribe("work", "archivers")

	b.Publish("work", []byte("one"))

	// Exactly one queue member receives the message.
	received := 0
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case <-sub1.Messages():
			received++
		case <-sub2.Messages():
			received++
		case <-timeout:
			if received != 1 {
				t.Errorf("Expected exactly 1 delivery, got %d", received)
			}
			return
		}
	}
}

func TestQueueSubscribeRequiresQueue(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	if _, err := b.QueueSubscribe("work", ""); err != ErrInvalidQueue {
		t.Errorf("Expected ErrInvalidQueue, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	sub, _ := b.Subscribe("events")
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("Expected channel closed after unsubscribe")
	}

	// Publishing after unsubscribe is harmless.
	if err := b.Publish("events", []byte("x")); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestInvalidSubject(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())
	defer b.Close()

	if err := b.Publish("", nil); err != ErrInvalidSubject {
		t.Errorf("Expected ErrInvalidSubject, got %v", err)
	}
	if _, err := b.Subscribe(""); err != ErrInvalidSubject {
		t.Errorf("Expected ErrInvalidSubject, got %v", err)
	}
}

func TestClose(t *testing.T) {
	b := NewMemoryBus(DefaultConfig())

	sub, _ := b.Subscribe("events")

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("Expected subscriber channel closed")
	}
	if err := b.Publish("events", nil); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
