package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

type envelope struct {
	school string
	event  any
}

// Hub dispatches events to the registry off the caller's goroutine.
// Publish never blocks: events go onto a buffered queue consumed by Run, and
// if the queue is full the event is delivered from a goroutine of its own.
type Hub struct {
	registry *Registry
	queue    chan envelope
	done     chan struct{}
}

func NewHub(registry *Registry, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		registry: registry,
		queue:    make(chan envelope, queueSize),
		done:     make(chan struct{}),
	}
}

// Publish schedules event for delivery to every channel of school. Once Run
// has returned, events are dropped.
func (h *Hub) Publish(school string, event any) {
	select {
	case <-h.done:
		slog.Debug("hub stopped, dropping event", "school", school)
		return
	default:
	}

	env := envelope{school: school, event: event}
	select {
	case h.queue <- env:
	default:
		go h.deliver(env)
	}
}

// Run delivers queued events until ctx is done, then drains what is left.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case env := <-h.queue:
			h.deliver(env)
		case <-ctx.Done():
			h.drain()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) drain() {
	for {
		select {
		case env := <-h.queue:
			h.deliver(env)
		default:
			return
		}
	}
}

func (h *Hub) deliver(env envelope) {
	payload, err := json.Marshal(env.event)
	if err != nil {
		slog.Error("encoding event", "school", env.school, "error", err)
		return
	}
	n := h.registry.Broadcast(env.school, payload)
	slog.Debug("event delivered", "school", env.school, "channels", n)
}
