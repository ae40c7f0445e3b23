package settings

import (
	"context"
	"sync"
)

const subscriberBufferCap = 64

// Change is one settings write, delivered to dispatcher subscribers.
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

// Dispatcher fans out settings changes to subscribers. Sends never
// block: a subscriber that falls behind loses changes rather than
// stalling the writer.
type Dispatcher struct {
	mu     sync.Mutex
	subs   map[uint64]chan Change
	nextID uint64
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[uint64]chan Change)}
}

// Subscribe registers a new subscriber. The channel is closed when ctx
// is cancelled.
func (d *Dispatcher) Subscribe(ctx context.Context) <-chan Change {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	ch := make(chan Change, subscriberBufferCap)
	d.subs[id] = ch
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.unsubscribe(id)
	}()
	return ch
}

func (d *Dispatcher) Publish(change Change) {
	d.mu.Lock()
	for _, sub := range d.subs {
		select {
		case sub <- change:
		default:
		}
	}
	d.mu.Unlock()
}

func (d *Dispatcher) unsubscribe(id uint64) {
	d.mu.Lock()
	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
	d.mu.Unlock()
}
