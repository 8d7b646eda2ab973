package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-cables/pkg/logging"
)

// Publisher sends events on a PUB socket. It implements Applier so a
// simulation can drive a remote network the same way it drives a local one.
type Publisher struct {
	socket ListenSocket
	addr   string
	log    logging.Logger
	seq    atomic.Uint64

	mu      sync.Mutex
	running bool
}

// NewPublisher creates a publisher that will bind to addr.
func NewPublisher(factory SocketFactory, addr string, log logging.Logger) (*Publisher, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Publisher{socket: socket, addr: addr, log: log.With(logging.Component("publisher"))}, nil
}

// Start binds the socket.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("publisher already running")
	}
	if err := p.socket.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}
	p.running = true
	p.log.Info("publisher started", logging.Addr(p.addr))
	return nil
}

// Apply stamps e with the next sequence number and sends it.
func (p *Publisher) Apply(e Event) error {
	e.Seq = p.seq.Add(1)
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.socket.Send(frame); err != nil {
		return fmt.Errorf("send %s: %w", e.Kind, err)
	}
	return nil
}

// Sent returns the number of events published.
func (p *Publisher) Sent() uint64 {
	return p.seq.Load()
}

// Close releases the socket.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return p.socket.Close()
}
