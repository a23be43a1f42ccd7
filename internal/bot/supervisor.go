package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ashureev/tradebot/internal/transport"
)

// Start connects and runs the event loop in its own goroutine until ctx is done,
// Stop is called, or a fault escapes the loop.
func (b *Bot) Start(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if b.log.Closed() {
		if err := b.openLog(); err != nil {
			b.running.Store(false)
			return err
		}
		b.wire()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	q := newEventQueue(loopCtx, b.logger)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.loopErr = nil
	b.queue.Store(q)

	b.logger.Info("Connecting...")
	q.post(startEvent{})
	go q.pump(b.client)
	go b.supervise(loopCtx, cancel, b.done)

	b.publishStatus()
	b.logger.Info("Done loading bot")
	return nil
}

// Stop cancels the loop and waits for the full stop to finish. It returns the fault
// that ended the loop, if any.
func (b *Bot) Stop() error {
	b.lifecycle.Lock()
	cancel, done := b.cancel, b.done
	if cancel == nil {
		err := b.loopErr
		b.lifecycle.Unlock()
		return err
	}
	b.lifecycle.Unlock()

	b.logger.Debug("Trying to shut down bot loop")
	cancel()
	<-done

	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	return b.loopErr
}

// Done is closed once the current run has fully stopped.
func (b *Bot) Done() <-chan struct{} {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	return b.done
}

func (b *Bot) supervise(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	err := b.runLoop(ctx)
	// Dials, injections and fetches started by the loop all hang off ctx.
	cancel()
	if err != nil {
		b.logger.Error("Unhandled fault in bot event loop", "error", err)
		b.logger.Info("This bot died. Stopping it..")
	}
	b.lifecycle.Lock()
	b.loopErr = err
	b.lifecycle.Unlock()
	b.fullStop()
}

// runLoop drains the queue until ctx is done. Faults inside a single dispatch are
// contained; anything else is returned.
func (b *Bot) runLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event loop panic: %v\n%s", r, debug.Stack())
		}
	}()

	q := b.queue.Load()
	for {
		if ctx.Err() != nil {
			return nil
		}

		ev, err := q.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for next event: %w", err)
		}

		if err := b.dispatchGuarded(ctx, ev); err != nil && ctx.Err() == nil {
			if transport.IsTransient(err) {
				b.logger.Error("Transport fault, cooling down", "kind", ev.Kind(), "cooldown", b.cfg.TransportCooldown, "error", err)
				if !sleep(ctx, b.cfg.TransportCooldown) {
					return nil
				}
			} else {
				b.logger.Error("Fault while handling event, continuing", "kind", ev.Kind(), "error", err)
			}
		}
	}
}

func (b *Bot) dispatchGuarded(ctx context.Context, ev transport.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %s: %v", ev.Kind(), r)
			b.logger.Debug("Recovered handler panic", "stack", string(debug.Stack()))
		}
	}()
	return b.Dispatch(ctx, ev)
}

// fullStop disconnects, drops every handler and the live trade, and releases the log.
func (b *Bot) fullStop() {
	b.queue.Store(nil)
	if b.stopOffers != nil {
		b.stopOffers()
		b.stopOffers = nil
	}
	b.offerPolling = false
	b.trades.CloseTrade()
	b.cookies.Invalidate()
	if err := b.client.Disconnect(); err != nil {
		b.logger.Warn("Disconnect failed", "error", err)
	}
	b.registry.Clear()
	b.friends = nil
	b.setState(StateDisconnected)
	b.running.Store(false)
	b.publishStatus()

	b.lifecycle.Lock()
	b.cancel = nil
	b.lifecycle.Unlock()

	if err := b.log.Close(); err != nil {
		b.logger.Warn("Close bot log failed", "error", err)
	}
}

// HandleCommand runs command on the bot's own handler inside the event loop and
// returns its output.
func (b *Bot) HandleCommand(ctx context.Context, command string) (string, error) {
	if !b.running.Load() || b.log.Closed() {
		return "", ErrNotRunning
	}
	reply := make(chan commandResult, 1)
	if !b.inject(commandEvent{command: command, reply: reply}) {
		return "", ErrNotRunning
	}
	select {
	case r := <-reply:
		return r.output, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
