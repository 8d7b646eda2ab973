// Package pubsub fans geometry change notices out to in-process listeners.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Topic names a notice stream.
type Topic string

const (
	TopicUpdated Topic = "geometry.updated"
	TopicRemoved Topic = "geometry.removed"
	TopicCleared Topic = "geometry.cleared"
)

// Notice describes a change to one owner's cable geometry. Neighbor is the
// nil UUID for owner-wide notices (TopicCleared).
type Notice struct {
	Topic      Topic
	Owner      uuid.UUID
	Neighbor   uuid.UUID
	Generation uint64
	Points     int
}

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// ErrShutdown is returned when subscribing to a PubSub that has been shut down.
var ErrShutdown = errors.New("pubsub: shut down")

// PubSub provides publish/subscribe of Notices
type PubSub struct {
	subscribers map[Topic]map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	dropped     atomic.Uint64
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     Topic
	channel   chan Notice
	ps        *PubSub
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPubSub creates a new PubSub instance
func NewPubSub() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic]map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a new subscription to a topic. The subscription ends when
// ctx is cancelled, Unsubscribe is called or the PubSub shuts down; its
// channel is then closed.
func (ps *PubSub) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	ps.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Notice, DefaultBuffer),
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			cancel()
		}
	}()

	return sub, nil
}

// Publish sends n to every subscriber of n.Topic without blocking. Notices
// for a subscriber whose buffer is full are dropped and counted.
func (ps *PubSub) Publish(n Notice) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.shutdownMu.Unlock()

	// Deliver under the read lock so a concurrent Unsubscribe cannot close a
	// channel mid-send.
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for sub := range ps.subscribers[n.Topic] {
		select {
		case sub.channel <- n:
		default:
			ps.dropped.Add(1)
		}
	}
}

// Dropped returns how many notices were discarded because a subscriber was slow.
func (ps *PubSub) Dropped() uint64 {
	return ps.dropped.Load()
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the PubSub
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic, subs := range ps.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Channel returns the subscription's notice channel
func (s *Subscription) Channel() <-chan Notice {
	return s.channel
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()

	if subs := s.ps.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
