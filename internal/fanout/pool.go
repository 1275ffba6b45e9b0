// Package fanout executes independent single-dimension aggregations
// concurrently on a bounded worker pool and joins them in request order.
package fanout

import "context"

// Pool bounds the number of in-flight fan-out tasks across all concurrent
// requests. A nil channel is never handed out; zero or negative sizes fall
// back to a single slot.
type Pool struct {
	sem chan struct{}
}

// NewPool builds a pool with the given number of slots.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Do runs fn once a slot is free. Waiting respects ctx so a request whose
// sibling task already failed does not queue for a slot it no longer needs.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}
