package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("hello")
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Publish(1)
	bus.Close()
	if v, ok := <-ch1; !ok || v != 1 {
		t.Fatalf("expected buffered event before close, got %v %v", v, ok)
	}
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	<-ch2
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
	bus.Publish(2)
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTypedBuffered[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	if got := bus.Dropped(); got != 3 {
		t.Fatalf("expected 3 dropped, got %d", got)
	}
	if v := <-ch; v != 0 {
		t.Fatalf("expected first event kept, got %d", v)
	}
	if NewTypedBuffered[int](0).buffer != DefaultBuffer {
		t.Fatalf("expected default buffer")
	}
}

func TestTypedBusConsume(t *testing.T) {
	bus := NewTypedBuffered[int](4)
	var got []int
	done := bus.Consume(context.Background(), func(v int) { got = append(got, v) })
	bus.Publish(1)
	bus.Publish(2)
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestTypedBusConsumeCancel(t *testing.T) {
	bus := NewTyped[int]()
	ctx, cancel := context.WithCancel(context.Background())
	done := bus.Consume(ctx, func(int) {})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
	bus.Publish(1)
	if bus.Dropped() != 0 {
		t.Fatalf("unsubscribed consumer must not count drops")
	}
}
