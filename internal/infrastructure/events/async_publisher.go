package events

import (
	"context"
	"errors"
	"sync"

	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrQueueFull       = errors.New("publish queue full")
)

type publishJob struct {
	routingKey string
	data       contracts.RoomEventData
}

// AsyncPublisher hands events to a background worker so callers on the
// realtime path never wait on the broker. Events are dropped when the
// queue is full.
type AsyncPublisher struct {
	next   RoomPublisher
	queue  chan publishJob
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsyncPublisher(next RoomPublisher, buffer int, logger logging.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		next:   next,
		queue:  make(chan publishJob, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)

	for job := range p.queue {
		var err error
		ctx := context.Background()
		switch job.routingKey {
		case contracts.EventMemberJoined:
			err = p.next.PublishMemberJoined(ctx, job.data)
		case contracts.EventMemberLeft:
			err = p.next.PublishMemberLeft(ctx, job.data)
		case contracts.EventMessageSent:
			err = p.next.PublishMessageSent(ctx, job.data)
		}
		if err != nil {
			p.logger.Warn(logging.RabbitMQ, logging.Publish, "failed to publish room event", map[logging.ExtraKey]any{
				logging.RoomID:       job.data.RoomID,
				logging.Reason:       job.routingKey,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

func (p *AsyncPublisher) enqueue(routingKey string, data contracts.RoomEventData) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- publishJob{routingKey: routingKey, data: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) PublishMemberJoined(_ context.Context, data contracts.RoomEventData) error {
	return p.enqueue(contracts.EventMemberJoined, data)
}

func (p *AsyncPublisher) PublishMemberLeft(_ context.Context, data contracts.RoomEventData) error {
	return p.enqueue(contracts.EventMemberLeft, data)
}

func (p *AsyncPublisher) PublishMessageSent(_ context.Context, data contracts.RoomEventData) error {
	return p.enqueue(contracts.EventMessageSent, data)
}

// Close stops accepting events and waits for the queue to drain.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
