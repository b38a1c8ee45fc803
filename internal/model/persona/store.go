package persona

import "math/rand"

// Store exposes persona selection for the conversation service.
type Store interface {
	List() []Persona
	Pick() Persona
	PickTopic() string
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items  []Persona
	topics []string
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas
// and topics.
func NewMemoryStore(items []Persona, topics []string) *MemoryStore {
	return &MemoryStore{
		items:  append([]Persona(nil), items...),
		topics: append([]string(nil), topics...),
	}
}

// List returns the configured personas.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// Pick selects a persona for a new conversation.
func (s *MemoryStore) Pick() Persona {
	return s.items[rand.Intn(len(s.items))]
}

// PickTopic selects a playground topic for a new conversation.
func (s *MemoryStore) PickTopic() string {
	return s.topics[rand.Intn(len(s.topics))]
}
