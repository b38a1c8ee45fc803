package flow

import "fmt"

// RefKind distinguishes the three families of flow states.
type RefKind string

const (
	RefUser     RefKind = "user"
	RefAgent    RefKind = "agent"
	RefFeedback RefKind = "feedback"
)

// Ref points at a state inside one Context.
type Ref struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}

func UserRef(id string) Ref     { return Ref{Kind: RefUser, ID: id} }
func AgentRef(id string) Ref    { return Ref{Kind: RefAgent, ID: id} }
func FeedbackRef(id string) Ref { return Ref{Kind: RefFeedback, ID: id} }

// Option is one possible reply in a user or agent state. Prompt is the
// generation instruction, Checks are the feedback checks applied when the
// reply is actually sent.
type Option struct {
	Prompt string
	Checks []Ref
	Next   Ref
}

// UserState offers reply options to the user. AllowCustom marks states where
// a free-typed reply is accepted alongside the generated options.
type UserState struct {
	Options     []Option
	AllowCustom bool
}

// AgentState drives the automated party's next message.
type AgentState struct {
	Options []Option
}

// FeedbackState describes one coachable mistake: Check is the criterion the
// user's message is analyzed against, Prompt steers the generated feedback.
type FeedbackState struct {
	Check  string
	Prompt string
}

// State is the tagged union of the three state families.
type State struct {
	Kind     RefKind
	User     *UserState
	Agent    *AgentState
	Feedback *FeedbackState
}

// Context is one stage's complete state machine.
type Context struct {
	Stage        string
	UserScenario string
	AgentScenario string
	UserInitiated bool

	states       map[Ref]State
	initialUser  Ref
	initialAgent Ref
	customChecks []Ref
}

// State resolves a ref inside the context.
func (c *Context) State(ref Ref) (State, bool) {
	s, ok := c.states[ref]
	return s, ok
}

// InitialRef returns the entry state depending on who opens the conversation.
func (c *Context) InitialRef(userInitiated bool) Ref {
	if userInitiated {
		return c.initialUser
	}
	return c.initialAgent
}

// CustomChecks are the feedback checks applied to free-typed replies, which
// have no authored option to carry checks of their own.
func (c *Context) CustomChecks() []Ref {
	return append([]Ref(nil), c.customChecks...)
}

// Validate ensures every transition and check resolves to a declared state.
// Contexts are package data; a broken ref is a programming error.
func (c *Context) Validate() error {
	check := func(ref Ref, where string) error {
		if _, ok := c.states[ref]; !ok {
			return fmt.Errorf("stage %s: %s points at undeclared state %s/%s", c.Stage, where, ref.Kind, ref.ID)
		}
		return nil
	}

	if err := check(c.initialUser, "initial user ref"); err != nil {
		return err
	}
	if err := check(c.initialAgent, "initial agent ref"); err != nil {
		return err
	}
	for _, ref := range c.customChecks {
		if err := check(ref, "custom check"); err != nil {
			return err
		}
	}

	for ref, state := range c.states {
		var options []Option
		switch state.Kind {
		case RefUser:
			options = state.User.Options
		case RefAgent:
			options = state.Agent.Options
		case RefFeedback:
			continue
		}
		if len(options) == 0 {
			return fmt.Errorf("stage %s: state %s/%s has no options", c.Stage, ref.Kind, ref.ID)
		}
		for _, opt := range options {
			if err := check(opt.Next, "option next"); err != nil {
				return err
			}
			for _, cr := range opt.Checks {
				if err := check(cr, "option check"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
