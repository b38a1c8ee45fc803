package convo

import (
	"github.com/parleylab/parley/internal/flow"
)

// Kind selects between the numbered tutoring levels and the free playground.
type Kind string

const (
	KindLevel      Kind = "level"
	KindPlayground Kind = "playground"
)

// Scenario frames one conversation: the perspective each side plays from and
// who is expected to open.
type Scenario struct {
	UserPerspective  string `json:"userPerspective"`
	AgentPerspective string `json:"agentPerspective"`
	UserInitiated    bool   `json:"isUserInitiated"`
}

// Info carries the immutable setup of a conversation.
type Info struct {
	Kind       Kind     `json:"kind"`
	Level      int      `json:"level"`
	Topic      string   `json:"topic,omitempty"`
	AgentVoice string   `json:"agentVoice,omitempty"`
	Scenario   Scenario `json:"scenario"`
}

// Stage returns the stage name the conversation counts toward.
func (i Info) Stage() string {
	if i.Kind == KindPlayground {
		return flow.StagePlayground
	}
	switch i.Level {
	case 0:
		return flow.StageLevel0
	default:
		return flow.StageLevel1
	}
}

// MessageOption is a generated candidate reply held server-side while the
// conversation waits for the user's choice.
type MessageOption struct {
	Response string     `json:"response"`
	Checks   []flow.Ref `json:"checks,omitempty"`
	Next     flow.Ref   `json:"next"`
}

// FailedCheck records one feedback check the user's message did not pass.
type FailedCheck struct {
	Source flow.Ref `json:"source"`
	Reason string   `json:"reason"`
}

// StateKind tags the persisted progression state.
type StateKind string

const (
	// StateActive: the flow machine is at Ref; the next progress call
	// generates whatever that state produces.
	StateActive StateKind = "active"
	// StateAwaiting: options were generated and the service waits for the
	// user's selection.
	StateAwaiting StateKind = "awaiting"
	// StateFeedback: the user's last message failed checks; the next
	// progress call generates the feedback card.
	StateFeedback StateKind = "feedback"
)

// State is the persisted progression state. Field use depends on Kind.
type State struct {
	Kind        StateKind       `json:"kind"`
	Ref         *flow.Ref       `json:"ref,omitempty"`
	Options     []MessageOption `json:"options,omitempty"`
	AllowCustom bool            `json:"allowCustom,omitempty"`
	Failed      []FailedCheck   `json:"failed,omitempty"`
	Next        *flow.Ref       `json:"next,omitempty"`
}

// Conversation is the root persisted aggregate. State is nil until the first
// progress call initializes the flow machine.
type Conversation struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	Agent     string    `json:"agent"`
	Info      Info      `json:"info"`
	State     *State    `json:"state,omitempty"`
	Elements  []Element `json:"elements"`
	CreatedTs int64     `json:"createdTs"`
}

// StateView is the client-facing projection of State: only whether the
// conversation waits on a choice and, if so, the option labels.
type StateView struct {
	Waiting     bool     `json:"waiting"`
	Options     []string `json:"options"`
	AllowCustom bool     `json:"allowCustom,omitempty"`
}

// View projects the persisted state for clients. Nil stays nil so clients can
// tell an uninitialized conversation apart from an active one.
func (c *Conversation) View() *StateView {
	if c.State == nil {
		return nil
	}
	if c.State.Kind != StateAwaiting {
		return &StateView{Waiting: false}
	}
	labels := make([]string, 0, len(c.State.Options))
	for _, opt := range c.State.Options {
		labels = append(labels, opt.Response)
	}
	return &StateView{Waiting: true, Options: labels, AllowCustom: c.State.AllowCustom}
}

// Summary is the list-endpoint projection.
type Summary struct {
	ID        string `json:"id"`
	Agent     string `json:"agent"`
	Kind      Kind   `json:"kind"`
	Level     int    `json:"level"`
	Topic     string `json:"topic,omitempty"`
	CreatedTs int64  `json:"createdTs"`
}

// Summarize projects the conversation for listings.
func (c *Conversation) Summarize() Summary {
	return Summary{
		ID:        c.ID,
		Agent:     c.Agent,
		Kind:      c.Info.Kind,
		Level:     c.Info.Level,
		Topic:     c.Info.Topic,
		CreatedTs: c.CreatedTs,
	}
}
