package chat

import (
	"context"
	"sync"
	"time"
)

// Relay runs prompts off the caller's goroutine with a bound on how many are
// in flight.
type Relay struct {
	r       Replier
	timeout time.Duration
	slots   chan struct{}

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRelay(r Replier, maxInFlight int, timeout time.Duration) *Relay {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		r:       r,
		timeout: timeout,
		slots:   make(chan struct{}, maxInFlight),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Ask starts prompt in the background and calls done with the outcome. It
// returns false without calling done when the relay is saturated or closed.
func (r *Relay) Ask(prompt string, done func(Reply, error)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.slots <- struct{}{}:
	default:
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()
		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()
		rep, err := r.r.Reply(ctx, prompt)
		done(rep, err)
	}()
	return true
}

// Close cancels in-flight prompts and waits for their callbacks.
func (r *Relay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
	return nil
}
