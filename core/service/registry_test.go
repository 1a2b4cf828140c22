package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
)

func TestRegistryBroadcastDeliversToAllSubscribers(t *testing.T) {
	r := NewRegistry()
	a := r.Register()
	b := r.Register()

	for i := 0; i < 5; i++ {
		r.Broadcast(models.NewMsgEvent(fmt.Sprintf("event-%d", i)))
	}

	for name, sub := range map[string]*Subscriber{"a": a, "b": b} {
		for i := 0; i < 5; i++ {
			select {
			case ev := <-sub.Events():
				if ev.Msg != fmt.Sprintf("event-%d", i) {
					t.Errorf("subscriber %s: event %d = %q, want event-%d", name, i, ev.Msg, i)
				}
			default:
				t.Fatalf("subscriber %s: missing event %d", name, i)
			}
		}
		select {
		case ev := <-sub.Events():
			t.Errorf("subscriber %s: unexpected extra event %+v", name, ev)
		default:
		}
	}
}

func TestRegistryUnregisteredSubscriberReceivesNothing(t *testing.T) {
	r := NewRegistry()
	sub := r.Register()
	r.Unregister(sub)

	r.Broadcast(models.NewMsgEvent("after"))

	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel after unregister")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	sub := r.Register()

	r.Unregister(sub)
	r.Unregister(sub) // must not panic or double-close
}

func TestRegistryDropsSubscriberWithFullQueue(t *testing.T) {
	r := NewRegistry()
	slow := r.Register()

	// Fill the queue without draining it; the overflowing broadcast must
	// return promptly and drop the subscriber instead of blocking.
	for i := 0; i <= subscriberBuffer; i++ {
		r.Broadcast(models.NewMsgEvent("flood"))
	}

	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (slow subscriber dropped)", r.Len())
	}

	// The channel is closed after the buffered backlog.
	received := 0
	for range slow.Events() {
		received++
	}
	if received != subscriberBuffer {
		t.Errorf("slow subscriber received %d events, want %d", received, subscriberBuffer)
	}
}

func TestRegistryConcurrentBroadcastAndMembership(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Churning subscribers while a producer broadcasts from another goroutine
	// must never corrupt the registry.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Broadcast(models.NewMsgEvent("tick"))
		}
		close(done)
	}()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				sub := r.Register()
				go func() {
					for range sub.Events() {
					}
				}()
				time.Sleep(time.Millisecond)
				r.Unregister(sub)

				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
}
