// Package memo provides the per-run lookup cache that deduplicates registry
// calls within one batch. Concurrent callers asking for the same key share a
// single in-flight call; completed results are kept until the run ends.
package memo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo caches results by key for the lifetime of one run. Errors are cached
// too so a failing lookup is not repeated by every item that needs it.
type Memo struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry
	calls   int
}

type entry struct {
	value any
	err   error
}

// New returns an empty memo.
func New() *Memo {
	return &Memo{entries: make(map[string]entry)}
}

// Do returns the cached result for key or runs fn once to produce it.
// Context cancellation errors are not cached, so a later caller with a live
// context retries.
func (m *Memo) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	m.mu.RLock()
	if e, ok := m.entries[key]; ok {
		m.mu.RUnlock()
		return e.value, e.err
	}
	m.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := m.group.DoChan(key, func() (any, error) {
		m.mu.Lock()
		m.calls++
		m.mu.Unlock()
		value, err := fn(ctx)
		if err == nil || ctx.Err() == nil {
			m.mu.Lock()
			m.entries[key] = entry{value: value, err: err}
			m.mu.Unlock()
		}
		return value, err
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	default:
	}
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		// The call may have finished while the deadline fired.
		select {
		case res := <-ch:
			return res.Val, res.Err
		default:
		}
		m.group.Forget(key)
		return nil, ctx.Err()
	}
}

// Calls returns how many times a producer function actually ran.
func (m *Memo) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Len returns the number of cached keys.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get is a typed wrapper around Do.
func Get[T any](ctx context.Context, m *Memo, key string, fn func(context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}
	value, err := m.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	typed, _ := value.(T)
	return typed, err
}

type contextKey struct{}

// WithMemo attaches m to ctx.
func WithMemo(ctx context.Context, m *Memo) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the memo attached to ctx, or nil.
func FromContext(ctx context.Context) *Memo {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(contextKey{}).(*Memo)
	return m
}

// Lookup memoizes fn under key using the memo in ctx. Without a memo it calls
// fn directly.
func Lookup[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	return Get(ctx, FromContext(ctx), key, fn)
}
