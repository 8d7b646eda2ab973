package events

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// MemoryFactory creates sockets connected through an in-process hub. PUB
// semantics match mangos: frames are dropped for slow or absent subscribers.
type MemoryFactory struct {
	mu   sync.Mutex
	pubs map[string]*memPub
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{pubs: make(map[string]*memPub)}
}

func (f *MemoryFactory) NewPubSocket() (ListenSocket, error) {
	return &memPub{hub: f}, nil
}

func (f *MemoryFactory) NewSubSocket() (SubscribeSocket, error) {
	return &memSub{hub: f, inbox: make(chan []byte, 256), done: make(chan struct{})}, nil
}

var _ SocketFactory = (*MemoryFactory)(nil)

type memPub struct {
	hub  *MemoryFactory
	addr string

	mu     sync.RWMutex
	subs   map[*memSub]struct{}
	closed bool
}

func (p *memPub) Listen(addr string) error {
	p.hub.mu.Lock()
	defer p.hub.mu.Unlock()
	if _, taken := p.hub.pubs[addr]; taken {
		return fmt.Errorf("listen %s: address in use", addr)
	}
	p.addr = addr
	p.subs = make(map[*memSub]struct{})
	p.hub.pubs[addr] = p
	return nil
}

func (p *memPub) Send(data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrSocketClosed
	}
	for s := range p.subs {
		s.deliver(data)
	}
	return nil
}

func (p *memPub) Recv() ([]byte, error)              { return nil, fmt.Errorf("recv on PUB socket") }
func (p *memPub) SetRecvDeadline(time.Duration) error { return nil }

func (p *memPub) Close() error {
	p.hub.mu.Lock()
	if p.hub.pubs[p.addr] == p {
		delete(p.hub.pubs, p.addr)
	}
	p.hub.mu.Unlock()

	p.mu.Lock()
	p.closed = true
	p.subs = nil
	p.mu.Unlock()
	return nil
}

func (p *memPub) attach(s *memSub) {
	p.mu.Lock()
	if !p.closed {
		p.subs[s] = struct{}{}
	}
	p.mu.Unlock()
}

func (p *memPub) detach(s *memSub) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

type memSub struct {
	hub   *MemoryFactory
	pub   *memPub
	inbox chan []byte
	done  chan struct{}
	once  sync.Once

	mu       sync.Mutex
	topics   [][]byte
	deadline time.Duration
}

func (s *memSub) Dial(addr string) error {
	s.hub.mu.Lock()
	p, ok := s.hub.pubs[addr]
	s.hub.mu.Unlock()
	if !ok {
		return fmt.Errorf("dial %s: connection refused", addr)
	}
	s.pub = p
	p.attach(s)
	return nil
}

func (s *memSub) Subscribe(topic []byte) error {
	s.mu.Lock()
	s.topics = append(s.topics, bytes.Clone(topic))
	s.mu.Unlock()
	return nil
}

func (s *memSub) SetRecvDeadline(d time.Duration) error {
	s.mu.Lock()
	s.deadline = d
	s.mu.Unlock()
	return nil
}

func (s *memSub) deliver(data []byte) {
	s.mu.Lock()
	match := false
	for _, t := range s.topics {
		if bytes.HasPrefix(data, t) {
			match = true
			break
		}
	}
	s.mu.Unlock()
	if !match {
		return
	}
	select {
	case s.inbox <- bytes.Clone(data):
	default:
	}
}

func (s *memSub) Recv() ([]byte, error) {
	s.mu.Lock()
	d := s.deadline
	s.mu.Unlock()

	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case data := <-s.inbox:
		return data, nil
	case <-s.done:
		return nil, ErrSocketClosed
	case <-timeout:
		return nil, ErrRecvTimeout
	}
}

func (s *memSub) Send([]byte) error { return fmt.Errorf("send on SUB socket") }

func (s *memSub) Close() error {
	s.once.Do(func() {
		if s.pub != nil {
			s.pub.detach(s)
		}
		close(s.done)
	})
	return nil
}

// Subscribers returns how many SUB sockets are attached to the publisher
// listening on addr.
func (f *MemoryFactory) Subscribers(addr string) int {
	f.mu.Lock()
	p, ok := f.pubs[addr]
	f.mu.Unlock()
	if !ok {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
