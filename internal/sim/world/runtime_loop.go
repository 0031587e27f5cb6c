package world

import (
	"context"
	"time"
)

// Run drives the world until the context is cancelled or Stop is called.
// Control requests are handled between ticks; the clock only advances while
// the simulation is started and not paused.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.ctrl:
			w.handleControl(req)
		case req := <-w.createOrder:
			w.handleCreateOrder(req)
		case req := <-w.cancelOrd:
			err := w.cancelOrder(req.orderID)
			if err == nil {
				w.publishSnapshot()
			}
			req.resp <- err
		case req := <-w.command:
			w.handleCommand(req)
		case sub := <-w.subscribe:
			w.subs[sub.ID] = sub
			w.greet(sub)
		case id := <-w.unsubscribe:
			delete(w.subs, id)
		case <-ticker.C:
			if !w.running || w.paused {
				continue
			}
			w.stepInternal()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick regardless of running state.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce() (tick uint64, digest string) {
	w.stepInternal()
	return w.tick.Load(), w.stateDigest()
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
