// Package scheduler turns topology changes into background cable
// computations and writes the results into a geocache.Cache.
//
// Endpoint positions and slack are captured synchronously when a link is
// added or changed; the curve itself is evaluated on an Executor. Each job
// carries the generation reserved for it, so the cache keeps the most
// recently requested cable regardless of completion order, and a job whose
// endpoint was destroyed in the meantime discards its result.
package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/geocache"
	"github.com/dd0wney/cluso-cables/pkg/logging"
	"github.com/dd0wney/cluso-cables/pkg/metrics"
	"github.com/dd0wney/cluso-cables/pkg/pubsub"
	"github.com/dd0wney/cluso-cables/pkg/topology"
)

// Outcome labels for finished jobs, in addition to geocache.WriteResult names.
const (
	OutcomeDestroyed = "destroyed"
	OutcomePanic     = "panic"
)

// Options configures a Scheduler. Zero fields get defaults: a GoExecutor,
// default cable options, no logging, no metrics and no notices.
type Options struct {
	Executor Executor
	Config   *config.Store
	Logger   logging.Logger
	Metrics  *metrics.Registry
	Notices  *pubsub.PubSub
}

// Scheduler implements topology.Observer.
type Scheduler struct {
	cache   *geocache.Cache
	exec    Executor
	cfg     *config.Store
	log     logging.Logger
	metrics *metrics.Registry
	notices *pubsub.PubSub

	closed atomic.Bool
}

var _ topology.Observer = (*Scheduler)(nil)

// New creates a scheduler writing into cache.
func New(cache *geocache.Cache, opts Options) (*Scheduler, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: nil cache", ErrMalformedInput)
	}
	s := &Scheduler{
		cache:   cache,
		exec:    opts.Executor,
		cfg:     opts.Config,
		log:     orNop(opts.Logger).With(logging.Component("scheduler")),
		metrics: opts.Metrics,
		notices: opts.Notices,
	}
	if s.exec == nil {
		s.exec = NewGoExecutor(s.log)
	}
	if s.cfg == nil {
		store, err := config.NewStore(config.DefaultCableOptions())
		if err != nil {
			return nil, err
		}
		s.cfg = store
	}
	return s, nil
}

// Cache returns the cache the scheduler writes into.
func (s *Scheduler) Cache() *geocache.Cache {
	return s.cache
}

// Config returns the option store jobs snapshot from.
func (s *Scheduler) Config() *config.Store {
	return s.cfg
}

// Enqueue requests a fresh cable for the link owned by owner. It snapshots
// both connection points and the owner's slack, reserves a generation and
// hands the computation to the executor. A destroyed endpoint makes this a
// no-op that returns generation 0.
func (s *Scheduler) Enqueue(owner, neighbor topology.Node) (uint64, error) {
	if owner == nil || neighbor == nil {
		return 0, fmt.Errorf("%w: nil endpoint", ErrMalformedInput)
	}
	if owner.ID() == neighbor.ID() {
		return 0, fmt.Errorf("%w: %s linked to itself", ErrMalformedInput, owner.ID())
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if owner.IsDestroyed() || neighbor.IsDestroyed() {
		return 0, nil
	}

	job := Job{
		Owner:      owner,
		Neighbor:   neighbor,
		Generation: s.cache.Reserve(owner.ID(), neighbor.ID()),
		Start:      owner.ConnectionPoint(),
		End:        neighbor.ConnectionPoint(),
		Slack:      owner.Slack(),
		Options:    s.cfg.Cables(),
	}

	// A destroy that lands between the check above and Reserve has already
	// cleaned the cache, so the reservation must be undone here.
	if owner.IsDestroyed() || neighbor.IsDestroyed() {
		s.release(owner, neighbor)
		return 0, nil
	}

	if !s.exec.Submit(func() { s.run(job) }) {
		s.log.Warn("executor refused job", logging.Owner(owner.ID()), logging.Neighbor(neighbor.ID()))
		return job.Generation, ErrClosed
	}
	if s.metrics != nil {
		s.metrics.RecordJobEnqueued()
	}
	return job.Generation, nil
}

// Regenerate re-enqueues every listed link of owner. It returns how many
// jobs were submitted.
func (s *Scheduler) Regenerate(owner topology.Node, neighbors []topology.Node) int {
	n := 0
	for _, nb := range neighbors {
		gen, err := s.Enqueue(owner, nb)
		if err != nil {
			s.log.Warn("regenerate failed", logging.Owner(owner.ID()), logging.Neighbor(nb.ID()), logging.Error(err))
			continue
		}
		if gen != 0 {
			n++
		}
	}
	return n
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	outcome, points := OutcomePanic, 0
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordJobFinished(outcome, time.Since(start), points)
		}
		s.log.Debug("job finished",
			logging.Owner(job.Owner.ID()),
			logging.Neighbor(job.Neighbor.ID()),
			logging.Generation(job.Generation),
			logging.Outcome(outcome),
			logging.Points(points),
			logging.Latency(time.Since(start)))
	}()

	outcome, points = s.execute(job)
}

func (s *Scheduler) execute(job Job) (string, int) {
	if !job.Live() {
		return OutcomeDestroyed, 0
	}
	pts := job.Compute()
	// An endpoint may have been destroyed while the curve was evaluated.
	if !job.Live() {
		return OutcomeDestroyed, 0
	}

	res := s.cache.Upsert(job.Owner.ID(), job.Neighbor.ID(), job.Generation, pts)
	if res != geocache.Applied {
		return res.String(), 0
	}

	if s.metrics != nil {
		s.metrics.SetCacheEntries(s.cache.Size())
	}
	s.publish(pubsub.Notice{
		Topic:      pubsub.TopicUpdated,
		Owner:      job.Owner.ID(),
		Neighbor:   job.Neighbor.ID(),
		Generation: job.Generation,
		Points:     len(pts),
	})
	return res.String(), len(pts)
}

func (s *Scheduler) publish(n pubsub.Notice) {
	if s.notices != nil {
		s.notices.Publish(n)
	}
}

// release drops a reservation made for an endpoint that died meanwhile.
func (s *Scheduler) release(owner, neighbor topology.Node) {
	if owner.IsDestroyed() {
		s.cache.DropOwner(owner.ID())
	} else {
		s.cache.Remove(owner.ID(), neighbor.ID())
	}
	s.log.Debug("reservation released", logging.Owner(owner.ID()), logging.Neighbor(neighbor.ID()))
}

func (s *Scheduler) removed(reason string, count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheRemoval(reason, count)
	s.metrics.SetCacheEntries(s.cache.Size())
}

// OnLinkAdded enqueues a computation for the owning side.
func (s *Scheduler) OnLinkAdded(node, peer topology.Node, isOwningSide bool) {
	if !isOwningSide {
		return
	}
	if _, err := s.Enqueue(node, peer); err != nil {
		s.log.Warn("enqueue failed", logging.Owner(node.ID()), logging.Neighbor(peer.ID()), logging.Error(err))
	}
}

// OnLinkRemoved drops the owning side's entry. In-flight jobs for the link
// are rejected by the cache when they finish.
func (s *Scheduler) OnLinkRemoved(node, peer topology.Node, isOwningSide bool) {
	if !isOwningSide {
		return
	}
	if !s.cache.Remove(node.ID(), peer.ID()) {
		return
	}
	s.removed(metrics.RemovalUnlink, 1)
	s.publish(pubsub.Notice{Topic: pubsub.TopicRemoved, Owner: node.ID(), Neighbor: peer.ID()})
}

// OnLinksReset clears every entry owned by owner.
func (s *Scheduler) OnLinksReset(owner topology.Node) {
	n := s.cache.Clear(owner.ID())
	s.removed(metrics.RemovalReset, n)
	s.publish(pubsub.Notice{Topic: pubsub.TopicCleared, Owner: owner.ID()})
	s.log.Debug("links reset", logging.Owner(owner.ID()), logging.Count(n))
}

// OnLinksChanged regenerates the listed links of owner.
func (s *Scheduler) OnLinksChanged(owner topology.Node, owned []topology.Node) {
	s.Regenerate(owner, owned)
}

// OnNodeDestroyed forgets everything the node owned.
func (s *Scheduler) OnNodeDestroyed(node topology.Node) {
	n := s.cache.DropOwner(node.ID())
	s.removed(metrics.RemovalDestroy, n)
	s.publish(pubsub.Notice{Topic: pubsub.TopicCleared, Owner: node.ID()})
	s.log.Debug("node destroyed", logging.Node(node.ID()), logging.Count(n))
}

// Close stops accepting work and, if the executor owns goroutines, waits
// for queued jobs to finish.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if c, ok := s.exec.(closer); ok {
		c.Close()
	}
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	return s.closed.Load()
}
