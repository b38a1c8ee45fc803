package convo

import (
	"sync"
	"time"

	model "github.com/parleylab/parley/internal/model/convo"
)

// Event is one committed turn, fanned out to streaming transports.
type Event struct {
	ConversationID string     `json:"conversationId"`
	Step           model.Step `json:"step"`
	Ts             int64      `json:"ts"`
}

// Broker fans turn events out to per-conversation subscribers. Slow
// subscribers are skipped rather than blocking the progress path.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for one conversation's events. The returned cancel
// function must be called to release the subscription.
func (b *Broker) Subscribe(conversationID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[chan Event]struct{})
	}
	b.subs[conversationID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[conversationID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, conversationID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a step to every subscriber of the conversation.
func (b *Broker) Publish(conversationID string, step model.Step) {
	event := Event{ConversationID: conversationID, Step: step, Ts: time.Now().Unix()}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[conversationID] {
		select {
		case ch <- event:
		default:
		}
	}
}
