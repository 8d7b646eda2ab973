package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBasicPubSub(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), TopicUpdated)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	owner, neighbor := uuid.New(), uuid.New()
	ps.Publish(Notice{Topic: TopicUpdated, Owner: owner, Neighbor: neighbor, Generation: 3, Points: 10})

	select {
	case n := <-sub.Channel():
		if n.Owner != owner || n.Neighbor != neighbor || n.Generation != 3 || n.Points != 10 {
			t.Errorf("unexpected notice %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for notice")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), TopicRemoved)
	if err != nil {
		t.Fatal(err)
	}
	ps.Publish(Notice{Topic: TopicUpdated})

	select {
	case n := <-sub.Channel():
		t.Fatalf("received notice for another topic: %+v", n)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMultipleSubscribers(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	const numSubscribers = 5
	subs := make([]*Subscription, numSubscribers)
	for i := range subs {
		sub, err := ps.Subscribe(context.Background(), TopicCleared)
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		subs[i] = sub
	}
	if got := ps.GetSubscriberCount(TopicCleared); got != numSubscribers {
		t.Fatalf("subscriber count = %d, want %d", got, numSubscribers)
	}

	ps.Publish(Notice{Topic: TopicCleared, Generation: 1})

	for i, sub := range subs {
		select {
		case n := <-sub.Channel():
			if n.Generation != 1 {
				t.Errorf("Subscriber %d: got %+v", i, n)
			}
		case <-time.After(time.Second):
			t.Errorf("Subscriber %d: timeout", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), TopicUpdated)
	sub.Unsubscribe()
	sub.Unsubscribe()

	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed")
	}
	if got := ps.GetSubscriberCount(TopicUpdated); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
}

func TestContextCancellation(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := ps.Subscribe(ctx, TopicUpdated)
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), TopicUpdated)
	defer sub.Unsubscribe()

	for i := 0; i < DefaultBuffer+7; i++ {
		ps.Publish(Notice{Topic: TopicUpdated, Generation: uint64(i)})
	}
	if got := ps.Dropped(); got != 7 {
		t.Errorf("dropped = %d, want 7", got)
	}
}

func TestShutdown(t *testing.T) {
	ps := NewPubSub()
	sub, _ := ps.Subscribe(context.Background(), TopicUpdated)

	ps.Shutdown()
	ps.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed after shutdown")
	}
	if _, err := ps.Subscribe(context.Background(), TopicUpdated); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown: err = %v, want ErrShutdown", err)
	}
	ps.Publish(Notice{Topic: TopicUpdated})
}

func TestConcurrentPublishUnsubscribe(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		sub, _ := ps.Subscribe(context.Background(), TopicUpdated)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ps.Publish(Notice{Topic: TopicUpdated, Generation: uint64(j)})
			}
		}()
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}
