package interaction

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/cligent-go/internal/domain"
)

// await runs work in state while a watch unit services user interrupts and
// drives the progress tick. An interrupt cancels the context handed to work,
// and await then reports domain.ErrCancelled whatever work returned.
func (l *Loop) await(ctx context.Context, state domain.LoopState, work func(context.Context) error) error {
	l.setState(state)

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var interrupted atomic.Bool
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(workCtx)
	g.Go(func() error {
		defer close(done)
		return work(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(domain.SpinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-l.Display.Interrupts():
				interrupted.Store(true)
				cancel()
				return nil
			case <-ticker.C:
				l.Display.Tick()
			}
		}
	})

	err := g.Wait()
	switch {
	case interrupted.Load():
		return domain.ErrCancelled
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

// drainInterrupts discards interrupts delivered while the loop was idle.
func (l *Loop) drainInterrupts() {
	for {
		select {
		case <-l.Display.Interrupts():
		default:
			return
		}
	}
}
