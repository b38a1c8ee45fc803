package session

import "strconv"

// Option is one offered reply, addressed by its stable key.
type Option struct {
	Key   string
	Label string
}

// OptionSet holds the reply choices offered for the current turn: a live
// keyed set plus at most one parked option, the last one clicked but not yet
// sent. The set is replaced wholesale at every turn boundary via Seed.
type OptionSet struct {
	live   map[string]string
	order  []string
	parked *Option
}

// NewOptionSet returns an empty set.
func NewOptionSet() *OptionSet {
	return &OptionSet{live: make(map[string]string)}
}

// Seed replaces the whole set with the server-provided labels, keyed by their
// position. Any parked option is discarded.
func (s *OptionSet) Seed(labels []string) {
	s.live = make(map[string]string, len(labels))
	s.order = make([]string, 0, len(labels))
	for i, label := range labels {
		key := strconv.Itoa(i)
		s.live[key] = label
		s.order = append(s.order, key)
	}
	s.parked = nil
}

// Click applies the swap rule: the previously parked option (if any) returns
// to the live set, the clicked option leaves it and becomes parked. Clicking
// the parked option again is a no-op. Returns false for unknown keys.
func (s *OptionSet) Click(key string) bool {
	if s.parked != nil && s.parked.Key == key {
		return true
	}
	label, ok := s.live[key]
	if !ok {
		return false
	}
	if s.parked != nil {
		s.live[s.parked.Key] = s.parked.Label
	}
	delete(s.live, key)
	s.parked = &Option{Key: key, Label: label}
	return true
}

// Live returns the currently visible options in seed order.
func (s *OptionSet) Live() []Option {
	options := make([]Option, 0, len(s.live))
	for _, key := range s.order {
		if label, ok := s.live[key]; ok {
			options = append(options, Option{Key: key, Label: label})
		}
	}
	return options
}

// Parked returns a copy of the parked option, or nil.
func (s *OptionSet) Parked() *Option {
	if s.parked == nil {
		return nil
	}
	parked := *s.parked
	return &parked
}

// Len reports the size of the live set.
func (s *OptionSet) Len() int {
	return len(s.live)
}

// IsListed reports whether the draft equals the parked label or any live
// label.
func (s *OptionSet) IsListed(draft string) bool {
	if s.parked != nil && s.parked.Label == draft {
		return true
	}
	for _, label := range s.live {
		if label == draft {
			return true
		}
	}
	return false
}

// IsNonOption reports whether the draft counts as free text rather than one
// of the offered options. The caller gates empty drafts before sending.
func (s *OptionSet) IsNonOption(draft string) bool {
	return !s.IsListed(draft)
}

// KeyFor resolves the key whose label matches the draft, preferring the
// parked option, then live options in seed order.
func (s *OptionSet) KeyFor(draft string) (string, bool) {
	if s.parked != nil && s.parked.Label == draft {
		return s.parked.Key, true
	}
	for _, key := range s.order {
		if label, ok := s.live[key]; ok && label == draft {
			return key, true
		}
	}
	return "", false
}
