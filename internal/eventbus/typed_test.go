package eventbus

import "testing"

type progress struct {
	nodes     int
	objective float64
}

func TestTypedBus_PublishSubscribe(t *testing.T) {
	bus := NewTyped[progress](0)
	ch := bus.Subscribe()
	bus.Publish(progress{nodes: 3, objective: 12.5})
	v := <-ch
	if v.nodes != 3 || v.objective != 12.5 {
		t.Fatalf("unexpected event %+v", v)
	}
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestTypedBus_DropsWhenFull(t *testing.T) {
	bus := NewTyped[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	if got := bus.Dropped(); got != 3 {
		t.Fatalf("expected 3 dropped got %d", got)
	}
	if v := <-ch; v != 0 {
		t.Fatalf("expected oldest event kept, got %d", v)
	}
}

func TestTypedBus_Close(t *testing.T) {
	bus := NewTyped[int](1)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Publish(7)
	bus.Close()
	if v, ok := <-ch1; !ok || v != 7 {
		t.Fatalf("expected buffered event before close, got %d %v", v, ok)
	}
	if _, ok := <-ch1; ok {
		t.Fatal("expected ch1 closed")
	}
	<-ch2
	if _, ok := <-ch2; ok {
		t.Fatal("expected ch2 closed")
	}
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatal("expected closed channel from closed bus")
	}
	bus.Publish(8)
	bus.Close()
}

func TestTypedBus_UnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64](0)
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
