// Package coordinator holds the per-request registry of deferred and cleanup
// actions.
//
// Deferred actions touch resources owned by a record (attach, reorder,
// delete attachments) and may only run once the record has a durable id.
// Cleanup actions release resources held by removed items; they only need
// ids that already exist, so they run before the record is saved.
//
// Both queues are FIFO and run each action exactly once: an action is
// dequeued before it runs and never requeued.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/formtree/internal/formerr"
	"github.com/roach88/formtree/internal/ir"
)

// Action is a deferred action. It receives the identified owning record.
type Action func(ctx context.Context, record ir.RecordRef) error

// Cleanup is a cleanup action.
type Cleanup func(ctx context.Context) error

// entry pairs an action with a label for logs.
type entry[F any] struct {
	label string
	fn    F
}

// Coordinator is a request-scoped registry of deferred and cleanup actions.
//
// Thread-safety: registration may happen from any goroutine, but a
// Coordinator belongs to one request and is normally used sequentially.
type Coordinator struct {
	mu       sync.Mutex
	deferred []entry[Action]
	cleanup  []entry[Cleanup]
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used to trace action execution.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates an empty Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDeferred queues fn to run after the record is saved.
// The label only shows up in logs and errors.
func (c *Coordinator) AddDeferred(label string, fn Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = append(c.deferred, entry[Action]{label: label, fn: fn})
}

// AddCleanup queues fn to release resources of a removed item.
func (c *Coordinator) AddCleanup(label string, fn Cleanup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup = append(c.cleanup, entry[Cleanup]{label: label, fn: fn})
}

// Len returns the number of pending deferred and cleanup actions.
func (c *Coordinator) Len() (deferred, cleanup int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deferred), len(c.cleanup)
}

// Discard drops every pending action without running it. Used when the
// request fails before the record is saved.
func (c *Coordinator) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = nil
	c.cleanup = nil
}

// RunDeferred runs every deferred action in registration order against
// record.
//
// It fails with a persistence order error, running nothing, if record has
// no id yet. The first failing action stops the run; its error is returned
// and the remaining actions stay queued.
func (c *Coordinator) RunDeferred(ctx context.Context, record ir.RecordRef) error {
	if !record.Identified() {
		return formerr.PersistenceOrder(record.String())
	}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, ok := c.next()
		if !ok {
			return nil
		}
		c.logger.Debug("running deferred action",
			"record", record.String(),
			"action", e.label,
			"seq", i)
		if err := e.fn(ctx, record); err != nil {
			return fmt.Errorf("deferred action %d (%s): %w", i, e.label, err)
		}
	}
}

func (c *Coordinator) next() (entry[Action], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.deferred) == 0 {
		return entry[Action]{}, false
	}
	e := c.deferred[0]
	c.deferred = c.deferred[1:]
	return e, true
}

// RunCleanup runs every cleanup action in registration order.
//
// A failing action does not stop the others. Every failure is wrapped as a
// cleanup failure and the failures are joined into the returned error.
func (c *Coordinator) RunCleanup(ctx context.Context) error {
	c.mu.Lock()
	pending := c.cleanup
	c.cleanup = nil
	c.mu.Unlock()

	var errs []error
	for i, e := range pending {
		c.logger.Debug("running cleanup action", "action", e.label, "seq", i)
		if err := e.fn(ctx); err != nil {
			c.logger.Warn("cleanup action failed", "action", e.label, "error", err)
			errs = append(errs, formerr.CleanupFailure(i, fmt.Errorf("%s: %w", e.label, err)))
		}
	}
	return errors.Join(errs...)
}
