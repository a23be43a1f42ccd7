package bot

import (
	"context"
	"log/slog"

	"github.com/ashureev/tradebot/internal/transport"
)

const injectBuffer = 64

// eventQueue merges network events with events injected by timers, workers and
// operator calls into the single stream the loop consumes.
type eventQueue struct {
	ctx      context.Context
	network  chan transport.Event
	injected chan transport.Event
	failed   chan error
	logger   *slog.Logger
}

func newEventQueue(ctx context.Context, logger *slog.Logger) *eventQueue {
	return &eventQueue{
		ctx:      ctx,
		network:  make(chan transport.Event),
		injected: make(chan transport.Event, injectBuffer),
		failed:   make(chan error, 1),
		logger:   logger,
	}
}

// pump forwards client events until ctx is done or the client fails.
func (q *eventQueue) pump(client transport.Client) {
	for {
		ev, err := client.WaitForNextEvent(q.ctx)
		if err != nil {
			if q.ctx.Err() == nil {
				q.failed <- err
			}
			return
		}
		select {
		case q.network <- ev:
		case <-q.ctx.Done():
			return
		}
	}
}

// next blocks until an event is available. A pump failure is returned as an error.
func (q *eventQueue) next(ctx context.Context) (transport.Event, error) {
	select {
	case ev := <-q.injected:
		return ev, nil
	case ev := <-q.network:
		return ev, nil
	case err := <-q.failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// inject blocks until ev is queued or the loop is gone.
func (q *eventQueue) inject(ev transport.Event) bool {
	select {
	case q.injected <- ev:
		return true
	case <-q.ctx.Done():
		return false
	}
}

// post queues ev from the loop goroutine itself without ever blocking it.
func (q *eventQueue) post(ev transport.Event) {
	select {
	case q.injected <- ev:
	default:
		q.logger.Debug("Event queue full, posting in background", "kind", ev.Kind())
		go q.inject(ev)
	}
}
