package ws

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu       sync.Mutex
	received [][]byte
	fail     bool
	closed   bool
}

func (f *fakeChannel) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return errors.New("broken pipe")
	}
	f.received = append(f.received, payload)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestBroadcastReachesAllChannels(t *testing.T) {
	r := NewRegistry()
	channels := make([]*fakeChannel, 5)
	for i := range channels {
		channels[i] = &fakeChannel{}
		require.NoError(t, r.Join("east", channels[i]))
	}

	assert.Equal(t, 5, r.Broadcast("east", []byte(`{"type":"message_new"}`)))
	for _, ch := range channels {
		assert.Equal(t, 1, ch.count())
	}
}

func TestBroadcastPrunesFailedChannels(t *testing.T) {
	r := NewRegistry()
	var healthy, broken []*fakeChannel
	for i := 0; i < 6; i++ {
		ch := &fakeChannel{fail: i%3 == 0}
		if ch.fail {
			broken = append(broken, ch)
		} else {
			healthy = append(healthy, ch)
		}
		require.NoError(t, r.Join("east", ch))
	}

	assert.Equal(t, len(healthy), r.Broadcast("east", []byte("x")))
	assert.Equal(t, len(healthy), r.Count("east"))
	for _, ch := range broken {
		assert.True(t, ch.isClosed())
	}

	// pruned channels receive nothing further
	assert.Equal(t, len(healthy), r.Broadcast("east", []byte("y")))
	for _, ch := range healthy {
		assert.Equal(t, 2, ch.count())
	}
}

func TestBroadcastIsScopedToSchool(t *testing.T) {
	r := NewRegistry()
	east, west := &fakeChannel{}, &fakeChannel{}
	r.Join("east", east)
	r.Join("west", west)

	r.Broadcast("east", []byte("x"))
	assert.Equal(t, 1, east.count())
	assert.Equal(t, 0, west.count())
}

func TestBroadcastToEmptySchool(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Broadcast("nowhere", []byte("x")))

	ch := &fakeChannel{}
	r.Join("east", ch)
	r.Leave("east", ch)
	assert.Equal(t, 0, r.Broadcast("east", []byte("x")))
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	ch := &fakeChannel{}

	r.Leave("east", ch)
	r.Join("east", ch)
	r.Leave("east", ch)
	r.Leave("east", ch)
	assert.Equal(t, 0, r.Count("east"))
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Join("east", &fakeChannel{})
	r.Join("east", &fakeChannel{})
	r.Join("west", &fakeChannel{})
	gone := &fakeChannel{}
	r.Join("north", gone)
	r.Leave("north", gone)

	assert.Equal(t, map[string]int{"east": 2, "west": 1}, r.Stats())
}

func TestCloseClosesChannelsAndRejectsJoins(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeChannel{}, &fakeChannel{}
	r.Join("east", a)
	r.Join("west", b)

	r.Close()
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Empty(t, r.Stats())
	assert.ErrorIs(t, r.Join("east", &fakeChannel{}), ErrRegistryClosed)

	r.Close()
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		school := fmt.Sprintf("school-%d", i%3)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ch := &fakeChannel{fail: j%7 == 0}
				r.Join(school, ch)
				if j%2 == 0 {
					r.Leave(school, ch)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Broadcast(school, []byte("tick"))
				r.Stats()
			}
		}()
	}
	wg.Wait()

	// one more round prunes every failing channel
	for i := 0; i < 3; i++ {
		school := fmt.Sprintf("school-%d", i)
		delivered := r.Broadcast(school, []byte("final"))
		assert.Equal(t, delivered, r.Count(school))
	}
}
