package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/metrics"
)

// Reject reasons for EventsRejectedTotal.
const (
	RejectDecode = "decode"
	RejectApply  = "apply"
)

// Receive retry bounds. The delay doubles after each consecutive failure.
const (
	DefaultRetryDelay = 100 * time.Millisecond
	MaxRetryDelay     = 5 * time.Second
)

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	Addr        string
	RecvTimeout time.Duration
	// RetryDelay is the first pause after a failed receive.
	RetryDelay time.Duration
}

// Subscriber receives events from a publisher and applies them.
type Subscriber struct {
	socket  SubscribeSocket
	cfg     SubscriberConfig
	applier Applier
	log     logging.Logger
	metrics *metrics.Registry

	applied atomic.Uint64
	lastSeq atomic.Uint64
	gaps    atomic.Uint64
	lastAt  atomic.Int64
	failed  atomic.Uint64
}

// NewSubscriber creates a subscriber. reg may be nil.
func NewSubscriber(factory SocketFactory, cfg SubscriberConfig, applier Applier, log logging.Logger, reg *metrics.Registry) (*Subscriber, error) {
	socket, err := factory.NewSubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Subscriber{
		socket:  socket,
		cfg:     cfg,
		applier: applier,
		log:     log.With(logging.Component("subscriber")),
		metrics: reg,
	}, nil
}

// Run dials the publisher and applies events until ctx is done. The socket
// is closed on return.
func (s *Subscriber) Run(ctx context.Context) error {
	defer s.socket.Close()

	if err := s.socket.Dial(s.cfg.Addr); err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.Addr, err)
	}
	if err := s.socket.Subscribe(Topic); err != nil {
		return err
	}
	if err := s.socket.SetRecvDeadline(s.cfg.RecvTimeout); err != nil {
		return err
	}
	s.log.Info("subscriber connected", logging.Addr(s.cfg.Addr))

	delay := s.cfg.RetryDelay
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := s.socket.Recv()
		switch {
		case errors.Is(err, ErrRecvTimeout):
			continue
		case errors.Is(err, ErrSocketClosed):
			return nil
		case err != nil:
			s.failed.Add(1)
			s.log.Warn("receive failed", logging.Error(err), logging.Duration("retry_in", delay))
			if !sleepCtx(ctx, delay) {
				return nil
			}
			delay = min(delay*2, MaxRetryDelay)
			continue
		}
		delay = s.cfg.RetryDelay
		s.handle(frame)
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Subscriber) handle(frame []byte) {
	e, err := Decode(frame)
	if err != nil {
		s.reject(RejectDecode, err)
		return
	}

	if last := s.lastSeq.Swap(e.Seq); last != 0 && e.Seq > last+1 {
		s.gaps.Add(e.Seq - last - 1)
		s.log.Warn("events lost", logging.Uint64("from", last+1), logging.Uint64("to", e.Seq-1))
	}

	if err := s.applier.Apply(e); err != nil {
		s.reject(RejectApply, err)
		return
	}
	s.applied.Add(1)
	s.lastAt.Store(time.Now().UnixNano())
	if s.metrics != nil {
		s.metrics.RecordEvent(string(e.Kind))
	}
}

func (s *Subscriber) reject(reason string, err error) {
	s.log.Debug("event rejected", logging.String("reason", reason), logging.Error(err))
	if s.metrics != nil {
		s.metrics.RecordEventRejected(reason)
	}
}

// Applied returns the number of events applied successfully.
func (s *Subscriber) Applied() uint64 { return s.applied.Load() }

// Lost returns how many sequence numbers were skipped.
func (s *Subscriber) Lost() uint64 { return s.gaps.Load() }

// RecvFailures returns how many receives failed with an error other than a
// timeout.
func (s *Subscriber) RecvFailures() uint64 { return s.failed.Load() }

// LastApplied returns when the last event was applied, or the zero time.
func (s *Subscriber) LastApplied() time.Time {
	ns := s.lastAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
