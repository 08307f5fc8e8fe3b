package ws

import (
	"errors"
	"log/slog"
	"sync"
)

var ErrRegistryClosed = errors.New("registry closed")

// Channel is a live push channel to one client.
type Channel interface {
	// Send queues payload for delivery. It must not block; an error means
	// the channel is dead or too slow and will be dropped.
	Send(payload []byte) error
	Close() error
}

// partition holds the channels of one school. Each partition has its own
// lock so traffic in one school never waits on another.
type partition struct {
	mu       sync.RWMutex
	channels map[Channel]struct{}
}

// Registry tracks live channels per school. It is created once at startup
// and torn down with Close on shutdown.
type Registry struct {
	mu      sync.RWMutex
	schools map[string]*partition
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{schools: make(map[string]*partition)}
}

// partition returns the partition of school, creating it if create is set.
// Partitions are never removed so a concurrent Join can't land in a
// partition that has just been dropped from the map.
func (r *Registry) partition(school string, create bool) *partition {
	r.mu.RLock()
	p, ok := r.schools[school]
	r.mu.RUnlock()
	if ok || !create {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.schools[school]; !ok {
		p = &partition{channels: make(map[Channel]struct{})}
		r.schools[school] = p
	}
	return p
}

// Join registers ch under school. Callers must have authorized the channel.
func (r *Registry) Join(school string, ch Channel) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRegistryClosed
	}

	p := r.partition(school, true)
	p.mu.Lock()
	p.channels[ch] = struct{}{}
	p.mu.Unlock()

	// lost a race with Close
	r.mu.RLock()
	closed = r.closed
	r.mu.RUnlock()
	if closed {
		r.Leave(school, ch)
		return ErrRegistryClosed
	}
	return nil
}

// Leave removes ch from school. Unknown channels are ignored.
func (r *Registry) Leave(school string, ch Channel) {
	p := r.partition(school, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	delete(p.channels, ch)
	p.mu.Unlock()
}

func (p *partition) snapshot() []Channel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	channels := make([]Channel, 0, len(p.channels))
	for ch := range p.channels {
		channels = append(channels, ch)
	}
	return channels
}

// Broadcast sends payload to every channel of school and returns how many
// accepted it. Channels that fail are removed and closed.
func (r *Registry) Broadcast(school string, payload []byte) int {
	p := r.partition(school, false)
	if p == nil {
		return 0
	}

	delivered := 0
	for _, ch := range p.snapshot() {
		if err := ch.Send(payload); err != nil {
			slog.Debug("dropping channel after failed send", "school", school, "error", err)
			r.Leave(school, ch)
			_ = ch.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// Count returns the number of channels registered under school.
func (r *Registry) Count(school string) int {
	p := r.partition(school, false)
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels)
}

// Stats returns the channel count per school with at least one channel.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	schools := make([]string, 0, len(r.schools))
	for school := range r.schools {
		schools = append(schools, school)
	}
	r.mu.RUnlock()

	stats := make(map[string]int, len(schools))
	for _, school := range schools {
		if n := r.Count(school); n > 0 {
			stats[school] = n
		}
	}
	return stats
}

// Close closes every registered channel and rejects further joins.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	partitions := make(map[string]*partition, len(r.schools))
	for school, p := range r.schools {
		partitions[school] = p
	}
	r.mu.Unlock()

	for school, p := range partitions {
		for _, ch := range p.snapshot() {
			r.Leave(school, ch)
			if err := ch.Close(); err != nil {
				slog.Debug("closing channel", "school", school, "error", err)
			}
		}
	}
}
