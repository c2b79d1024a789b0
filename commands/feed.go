package commands

import (
	"sync"
	"time"

	"github.com/arcwell/robogate/types"
)

// Event is one command's ack/result, broadcast to every /ws/feedback
// subscriber (spec.md §6: "/ws/feedback streams per-command ack/result
// events").
type Event struct {
	Method string              `json:"method"`
	Source types.CommandSource `json:"source"`
	Time   time.Time           `json:"time"`
	Error  string              `json:"error,omitempty"`
}

// Feed fans out command events to subscribers. Each subscriber gets a
// buffered channel; a slow reader drops the oldest unread event rather
// than blocking the command path, the same conflation discipline the
// aggregator applies to state snapshots.
type Feed struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewFeed returns an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	unsubscribe := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
	return ch, unsubscribe
}

func (f *Feed) publish(evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}
