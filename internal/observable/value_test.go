package observable

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesCurrentValue(t *testing.T) {
	v := New(7)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	if got := receive(t, ch); got != 7 {
		t.Fatalf("expected initial value 7, got %d", got)
	}
}

func TestSlowSubscriberSeesOnlyLatest(t *testing.T) {
	v := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	for i := 1; i <= 5; i++ {
		v.Set(i)
	}
	if got := receive(t, ch); got != 5 {
		t.Fatalf("expected latest value 5, got %d", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected no backlog, got %d", extra)
	default:
	}
}

func TestUpdateAppliesToCurrent(t *testing.T) {
	v := New([]string{"a"})
	got := v.Update(func(cur []string) []string { return append(cur, "b") })
	if len(got) != 2 || v.Get()[1] != "b" {
		t.Fatalf("expected [a b], got %v", v.Get())
	}
}

func TestSubscriptionClosesOnCancel(t *testing.T) {
	v := New("x")
	ctx, cancel := context.WithCancel(context.Background())
	ch := v.Subscribe(ctx)
	receive(t, ch)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				v.Set("after close")
				return
			}
		case <-deadline:
			t.Fatalf("expected channel to close after cancel")
		}
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}
