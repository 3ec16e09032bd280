// Package optimistic applies local state changes before the server confirms
// them and reconciles or rolls back once it answers.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"Tally/internal/core/posts"
)

// Kind names the type of mutation. The in-flight lock is per (entity, kind).
type Kind string

const (
	KindLike   Kind = "like"
	KindFollow Kind = "follow"
	KindDelete Kind = "delete"
)

// DefaultTimeout bounds a confirm call when none is configured
const DefaultTimeout = 30 * time.Second

// Records is a keyed set of snapshots the coordinator reads and overwrites
type Records[S any] interface {
	Get(id posts.ID) (S, bool)
	Put(id posts.ID, value S)
}

// Holder is implemented by record sets that can shield an entity from
// concurrent server writes while a mutation is pending
type Holder interface {
	Hold(id posts.ID)
	Release(id posts.ID)
}

// Reconcile maps the current snapshot onto the server-authoritative one
type Reconcile[S any] func(current S) S

// Mutation describes one optimistic change
type Mutation[S any] struct {
	// Apply computes the pending snapshot from the previous one
	Apply func(previous S) S
	// Confirm performs the server call. Its Reconcile overwrites the
	// pending snapshot with server fields; nil keeps the pending snapshot.
	Confirm  func(ctx context.Context) (Reconcile[S], error)
	EntityID posts.ID
	Kind     Kind
}

type lockKey struct {
	id   posts.ID
	kind Kind
}

type confirmResult[S any] struct {
	reconcile Reconcile[S]
	err       error
}

// Coordinator runs optimistic mutations against one record set
type Coordinator[S any] struct {
	records Records[S]
	logger  *slog.Logger
	pending map[lockKey]struct{}
	timeout time.Duration
	mu      sync.Mutex
}

// NewCoordinator creates a coordinator. timeout <= 0 uses DefaultTimeout.
func NewCoordinator[S any](records Records[S], timeout time.Duration, logger *slog.Logger) *Coordinator[S] {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator[S]{
		records: records,
		timeout: timeout,
		pending: make(map[lockKey]struct{}),
		logger:  logger,
	}
}

// Pending reports whether a mutation of kind is in flight for id
func (c *Coordinator[S]) Pending(id posts.ID, kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[lockKey{id: id, kind: kind}]
	return ok
}

// Mutate applies m optimistically and blocks until the server confirms,
// rejects, or the timeout fires. It returns the snapshot left in the store.
//
// On failure the exact previous snapshot is written back and the returned
// error wraps both ErrRolledBack and the cause.
func (c *Coordinator[S]) Mutate(ctx context.Context, m Mutation[S]) (S, error) {
	var zero S

	if m.EntityID.IsZero() {
		return zero, posts.NewValidationError("id", "entity id is required")
	}
	if m.Apply == nil || m.Confirm == nil {
		return zero, posts.NewValidationError("mutation", "apply and confirm are required")
	}

	key := lockKey{id: m.EntityID, kind: m.Kind}

	// 1. Take the per-entity lock and capture the previous snapshot.
	c.mu.Lock()
	if _, busy := c.pending[key]; busy {
		c.mu.Unlock()
		return zero, ErrMutationInFlight
	}
	previous, ok := c.records.Get(m.EntityID)
	if !ok {
		c.mu.Unlock()
		return zero, ErrEntityNotFound
	}
	c.pending[key] = struct{}{}
	c.mu.Unlock()

	holder, holds := c.records.(Holder)
	if holds {
		holder.Hold(m.EntityID)
	}
	defer func() {
		if holds {
			holder.Release(m.EntityID)
		}
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}()

	// 2. Apply the pending snapshot. Every view reads the same record.
	pending := m.Apply(previous)
	c.records.Put(m.EntityID, pending)

	// 3. Confirm with the server.
	reconcile, err := c.confirm(ctx, m)
	if err != nil {
		// 4. Full rollback to the captured snapshot.
		c.records.Put(m.EntityID, previous)
		c.logger.Warn("optimistic mutation rolled back",
			"entity", m.EntityID,
			"kind", m.Kind,
			"error", err)
		return previous, fmt.Errorf("%w: %w", ErrRolledBack, err)
	}

	current, ok := c.records.Get(m.EntityID)
	if !ok {
		current = pending
	}
	if reconcile != nil {
		current = reconcile(current)
		c.records.Put(m.EntityID, current)
	}

	c.logger.Info("optimistic mutation confirmed",
		"entity", m.EntityID,
		"kind", m.Kind)
	return current, nil
}

// confirm runs m.Confirm under the coordinator timeout. A confirm that
// outlives the timeout is abandoned and its result discarded.
func (c *Coordinator[S]) confirm(ctx context.Context, m Mutation[S]) (Reconcile[S], error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan confirmResult[S], 1)
	go func() {
		r, err := m.Confirm(ctx)
		done <- confirmResult[S]{reconcile: r, err: err}
	}()

	select {
	case res := <-done:
		return res.reconcile, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrConfirmTimeout, c.timeout)
		}
		return nil, ctx.Err()
	}
}
