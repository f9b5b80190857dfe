package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// KeyedFetcher loads the resource identified by key.
type KeyedFetcher[K comparable, T any] func(ctx context.Context, key K) (T, error)

type registryEntry[T any] struct {
	ch   *Channel[T]
	refs int
}

// Registry holds parameterized channels, one per key. A key's channel is
// created by its first subscriber and dropped when its last one leaves.
type Registry[K comparable, T any] struct {
	name     string
	interval time.Duration
	fetch    KeyedFetcher[K, T]
	opts     []Option

	mu      sync.Mutex
	entries map[K]*registryEntry[T]
}

func NewRegistry[K comparable, T any](name string, interval time.Duration, fetch KeyedFetcher[K, T], opts ...Option) *Registry[K, T] {
	return &Registry[K, T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		opts:     opts,
		entries:  make(map[K]*registryEntry[T]),
	}
}

func (r *Registry[K, T]) Name() string { return r.name }

// Subscribe subscribes to key's channel, creating it when absent.
func (r *Registry[K, T]) Subscribe(key K) *Subscription[T] {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		fetch := r.fetch
		e = &registryEntry[T]{
			ch: NewChannel(fmt.Sprintf("%s[%v]", r.name, key), r.interval, func(ctx context.Context) (T, error) {
				return fetch(ctx, key)
			}, r.opts...),
		}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	s := e.ch.Subscribe()
	s.release = append(s.release, func() { r.release(key, e) })
	return s
}

func (r *Registry[K, T]) release(key K, e *registryEntry[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs <= 0 && r.entries[key] == e {
		delete(r.entries, key)
	}
}

// Get returns key's channel if it currently has subscribers.
func (r *Registry[K, T]) Get(key K) (*Channel[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// Len returns the number of live channels.
func (r *Registry[K, T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sync revalidates (or refreshes when force is set) every live channel
// concurrently and returns their joined errors once all settled.
func (r *Registry[K, T]) Sync(ctx context.Context, force bool) error {
	r.mu.Lock()
	chans := make([]*Channel[T], 0, len(r.entries))
	for _, e := range r.entries {
		chans = append(chans, e.ch)
	}
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, ch := range chans {
		ch := ch
		g.Go(func() error {
			if err := ch.Sync(ctx, force); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// WaitSettled reads s until a state carries a value or an error and no fetch
// is in flight, or until ctx is done. A stale value counts as settled.
func WaitSettled[T any](ctx context.Context, s *Subscription[T]) (State[T], error) {
	for {
		select {
		case <-ctx.Done():
			return State[T]{}, ctx.Err()
		case st, ok := <-s.C:
			if !ok {
				return State[T]{}, errors.New("poll: subscription closed")
			}
			if st.HasValue || (st.Err != nil && !st.IsLoading) {
				return st, nil
			}
		}
	}
}
