// Package event is a small asynchronous in-process event bus. A single
// dispatch goroutine drains the queue in publish order, which gives causal
// ordering within one attempt's events for free.
package event

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ExamSubmitted    = "exam.submitted"
	ExamTimedOut     = "exam.timed_out"
	GradingCompleted = "grading.completed"
	ResultPublished  = "result.published"
)

type Event struct {
	Name       string
	AttemptID  uint
	Payload    map[string]interface{}
	OccurredAt time.Time
}

type Bus struct {
	mu     sync.RWMutex
	subs   []func(Event)
	queue  chan Event
	done   chan struct{}
	closed bool
}

func NewBus() *Bus {
	b := &Bus{
		queue: make(chan Event, 256),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish never blocks the caller for long: if the queue is full the event is
// dropped with an error log. Domain events are notifications, not state.
func (b *Bus) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	select {
	case b.queue <- evt:
	default:
		log.Error().Str("event", evt.Name).Uint("attempt_id", evt.AttemptID).Msg("Event queue full, dropping event")
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.queue)
	<-b.done
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for evt := range b.queue {
		b.mu.RLock()
		subs := b.subs
		b.mu.RUnlock()
		for _, fn := range subs {
			fn(evt)
		}
	}
}

// LogSubscriber is the default sink: it forwards every domain event to the
// structured log, standing in for the external notification collaborator.
func LogSubscriber(evt Event) {
	log.Info().
		Str("event", evt.Name).
		Uint("attempt_id", evt.AttemptID).
		Interface("payload", evt.Payload).
		Msg("Domain event")
}
