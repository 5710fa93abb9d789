package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voxelyard.dev/internal/sim/manifest"
)

// ErrStopped is returned by requests made after Run has returned.
var ErrStopped = errors.New("world stopped")

type subscribeReq struct {
	ID   string
	Resp chan (<-chan Snapshot)
}

type manifestReq struct {
	Resp chan manifestResp
}

type manifestResp struct {
	M   manifest.Manifest
	Err error
}

// Run owns the world until ctx is cancelled or Stop is called. Inputs that
// arrive between ticks are merged into one sample. Attached resources are
// released before Run returns.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	delta := 1 / float64(w.cfg.TickRateHz)
	defer w.doneOnce.Do(func() { close(w.done) })
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.shutdown()

	var pending Input
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case in := <-w.inputs:
			pending = pending.merge(in)
		case req := <-w.subscribe:
			w.handleSubscribe(req)
		case id := <-w.unsubscribe:
			w.handleUnsubscribe(id)
		case req := <-w.manifestReq:
			m, err := w.Manifest()
			req.Resp <- manifestResp{M: m, Err: err}
		case done := <-w.resetReq:
			w.Reset()
			close(done)
		case <-ticker.C:
			snap := w.Tick(delta, pending)
			pending = pending.consumed()
			for _, ch := range w.subscribers {
				sendLatest(ch, snap)
			}
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Done is closed once Run has returned and attached resources are released.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) shutdown() {
	w.Stop()
	for id := range w.subscribers {
		w.handleUnsubscribe(id)
	}
	_ = w.Release()
}

// StepOnce advances one tick with the fixed tick delta, as Run does. It is
// meant for replays and tests that drive the world without a ticker.
func (w *World) StepOnce(in Input) (tick uint64, digest string) {
	tick = w.tick
	snap := w.Tick(1/float64(w.cfg.TickRateHz), in)
	return tick, snap.Digest
}

// SubmitInput queues an input sample for the next tick. It never blocks; a
// sample is dropped when the queue is full.
func (w *World) SubmitInput(in Input) bool {
	select {
	case w.inputs <- in:
		return true
	default:
		return false
	}
}

// Subscribe returns a channel of snapshots that always holds the latest one.
func (w *World) Subscribe(ctx context.Context, id string) (<-chan Snapshot, error) {
	resp := make(chan (<-chan Snapshot), 1)
	select {
	case w.subscribe <- subscribeReq{ID: id, Resp: resp}:
	case <-w.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ch := <-resp:
		return ch, nil
	case <-w.stop:
		select {
		case ch := <-resp:
			return ch, nil
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *World) Unsubscribe(id string) {
	select {
	case w.unsubscribe <- id:
	case <-w.stop:
	}
}

func (w *World) RequestManifest(ctx context.Context) (manifest.Manifest, error) {
	resp := make(chan manifestResp, 1)
	select {
	case w.manifestReq <- manifestReq{Resp: resp}:
	case <-w.stop:
		return manifest.Manifest{}, ErrStopped
	case <-ctx.Done():
		return manifest.Manifest{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.M, r.Err
	case <-w.stop:
		select {
		case r := <-resp:
			return r.M, r.Err
		default:
			return manifest.Manifest{}, ErrStopped
		}
	case <-ctx.Done():
		return manifest.Manifest{}, ctx.Err()
	}
}

func (w *World) RequestReset(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case w.resetReq <- done:
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.stop:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("reset: %w", ctx.Err())
	}
}

func (w *World) handleSubscribe(req subscribeReq) {
	if old, ok := w.subscribers[req.ID]; ok {
		close(old)
	}
	ch := make(chan Snapshot, 1)
	w.subscribers[req.ID] = ch
	sendLatest(ch, w.Snapshot())
	req.Resp <- ch
}

func (w *World) handleUnsubscribe(id string) {
	if ch, ok := w.subscribers[id]; ok {
		close(ch)
		delete(w.subscribers, id)
	}
}

func sendLatest(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
