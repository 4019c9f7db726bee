// Package coordinator serializes every state-changing operation through a
// single writer goroutine. A mutation is applied to the in-memory store,
// made durable by the persistence engine, and only then are its events
// handed to the fan-out bus, so any event an external client observes
// corresponds to durable state.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nullgrid/nullgrid/internal/events"
	"github.com/nullgrid/nullgrid/internal/metrics"
	"github.com/nullgrid/nullgrid/internal/models"
	"github.com/nullgrid/nullgrid/internal/presence"
)

// ErrStopped is returned to callers whose work could not be made durable
// before shutdown.
var ErrStopped = errors.New("coordinator stopped")

// Saver persists a store snapshot. It is only ever invoked from the
// coordinator goroutine, never concurrently with itself.
type Saver interface {
	Save(*models.PersistedStore) error
}

// State is everything the single writer owns: the durable store and the
// runtime session tracker. Mutations may touch both; only store changes
// need persisting.
type State struct {
	Store    *models.PersistedStore
	Sessions *presence.Tracker
}

// Result is what a mutation produced: the events to fan out once the
// change is durable, and whether the durable store was touched at all
// (session-only mutations are not persisted).
type Result struct {
	Events []events.Event
	Dirty  bool
}

// Mutation is one atomic unit of work. It must be fast and must not
// block; expensive work (password hashing) happens before submission.
type Mutation func(*State) (Result, error)

// Options tune the coordinator.
type Options struct {
	// FlushInterval batches saves: mutations committed within the window
	// share one store write. Zero saves on every mutation. Events and
	// caller acks are held until the covering flush succeeds either way.
	FlushInterval time.Duration
	// RetryInterval is the pause before re-attempting a flush whose
	// in-line retries were exhausted.
	RetryInterval time.Duration
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

type op struct {
	mutate Mutation
	view   func(*State) error
	done   chan error
}

// Coordinator is the single-writer serialization point.
type Coordinator struct {
	saver Saver
	bus   *events.Bus
	state *State
	ops   chan op

	flushInterval time.Duration
	retryInterval time.Duration

	// owned by the run loop
	pending []events.Event
	waiters []chan error
	dirty   bool

	degraded atomic.Bool
	m        *metrics.Metrics
	log      *slog.Logger
}

// New creates a coordinator over the given state. Run must be started
// before Apply or View are called.
func New(saver Saver, bus *events.Bus, state *State, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}
	return &Coordinator{
		saver:         saver,
		bus:           bus,
		state:         state,
		ops:           make(chan op),
		flushInterval: opts.FlushInterval,
		retryInterval: opts.RetryInterval,
		m:             opts.Metrics,
		log:           opts.Logger,
	}
}

// Run services mutations until ctx is cancelled. It makes a final flush
// attempt on shutdown so committed work is not lost.
func (c *Coordinator) Run(ctx context.Context) {
	var flushC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return

		case o := <-c.ops:
			if o.view != nil {
				o.done <- o.view(c.state)
				continue
			}
			res, err := o.mutate(c.state)
			if err != nil {
				o.done <- err
				continue
			}
			c.m.MutationsApplied.Inc()
			c.m.SessionsOnline.Set(float64(len(c.state.Sessions.All())))
			c.pending = append(c.pending, res.Events...)
			c.waiters = append(c.waiters, o.done)
			if res.Dirty {
				c.dirty = true
			}
			if c.flushInterval <= 0 || !c.dirty {
				if !c.flush(ctx) {
					flushC = time.After(c.retryInterval)
				}
			} else if flushC == nil {
				flushC = time.After(c.flushInterval)
			}

		case <-flushC:
			flushC = nil
			if !c.flush(ctx) {
				flushC = time.After(c.retryInterval)
			}
		}
	}
}

// Apply submits a mutation and blocks until it is durable and its events
// are published, or ctx expires. A ctx error does not roll back an
// already-applied mutation.
func (c *Coordinator) Apply(ctx context.Context, m Mutation) error {
	done := make(chan error, 1)
	select {
	case c.ops <- op{mutate: m, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View runs fn on the coordinator goroutine for a consistent read of the
// state. fn must copy out what it needs and must not retain pointers.
func (c *Coordinator) View(ctx context.Context, fn func(*State) error) error {
	done := make(chan error, 1)
	select {
	case c.ops <- op{view: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Degraded reports whether saves are currently failing and events are
// being held back.
func (c *Coordinator) Degraded() bool {
	return c.degraded.Load()
}

// flush persists the store if dirty, then publishes held events in commit
// order and releases waiting callers. Returns false if the save failed
// after in-line retries; the caller schedules another attempt and all
// events and acks stay held.
func (c *Coordinator) flush(ctx context.Context) bool {
	start := time.Now()
	if c.dirty {
		snapshot := c.state.Store.Clone()
		backoff := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			c.m.SaveTotal.Inc()
			if err := c.saver.Save(snapshot); err != nil {
				c.log.Warn("store save failed, retrying", "err", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			c.m.SaveFailures.Inc()
			if !c.degraded.Swap(true) {
				c.m.Degraded.Set(1)
			}
			c.log.Error("store save failing, holding events and acks",
				"err", err, "held_events", len(c.pending), "held_callers", len(c.waiters))
			return false
		}
		c.dirty = false
	}
	if c.degraded.Swap(false) {
		c.m.Degraded.Set(0)
		c.log.Info("persistence recovered")
	}
	c.m.FlushDuration.Observe(time.Since(start).Seconds())

	for _, ev := range c.pending {
		c.bus.Publish(ev)
	}
	c.pending = nil
	for _, done := range c.waiters {
		done <- nil
	}
	c.waiters = nil
	return true
}

// shutdown makes a last flush attempt with a grace period, then fails any
// callers that could not be made durable.
func (c *Coordinator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if c.flush(ctx) {
		return
	}
	for _, done := range c.waiters {
		done <- ErrStopped
	}
	c.waiters = nil
	c.pending = nil
}
