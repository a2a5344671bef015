// Package pool provides typed object pooling on top of sync.Pool.
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a generic object pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)

	gets   atomic.Int64
	puts   atomic.Int64
	news   atomic.Int64
	drops  atomic.Int64
	accept func(T) bool
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithAccept sets a predicate deciding whether a returned object is kept.
// Rejected objects are dropped for the GC, which bounds pooled memory.
func WithAccept[T any](accept func(T) bool) Option[T] {
	return func(p *Pool[T]) { p.accept = accept }
}

// NewPool creates a new object pool. resetFunc runs on every Put.
func NewPool[T any](newFunc func() T, resetFunc func(*T), opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{reset: resetFunc}
	p.pool.New = func() any {
		p.news.Add(1)
		return newFunc()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get retrieves an object from the pool.
func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.accept != nil && !p.accept(obj) {
		p.drops.Add(1)
		return
	}
	p.puts.Add(1)
	if p.reset != nil {
		p.reset(&obj)
	}
	p.pool.Put(obj)
}

// Stats returns pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Gets:  p.gets.Load(),
		Puts:  p.puts.Load(),
		News:  p.news.Load(),
		Drops: p.drops.Load(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Gets  int64
	Puts  int64
	News  int64
	Drops int64
}

// HitRate returns the fraction of Gets served without allocating.
func (s PoolStats) HitRate() float64 {
	if s.Gets == 0 {
		return 0
	}
	hits := s.Gets - s.News
	if hits < 0 {
		hits = 0
	}
	return float64(hits) / float64(s.Gets)
}

// NewBufferPool pools bytes.Buffers, dropping any that grew past maxCap.
func NewBufferPool(maxCap int) *Pool[*bytes.Buffer] {
	return NewPool(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b **bytes.Buffer) { (*b).Reset() },
		WithAccept(func(b *bytes.Buffer) bool { return maxCap <= 0 || b.Cap() <= maxCap }),
	)
}
