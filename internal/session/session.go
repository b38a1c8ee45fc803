package session

import (
	"context"
	"strconv"

	model "github.com/parleylab/parley/internal/model/convo"
)

// Conversation is the client-side projection of one persisted conversation.
type Conversation struct {
	ID        string           `json:"id"`
	Agent     string           `json:"agent"`
	Info      model.Info       `json:"info"`
	State     *model.StateView `json:"state,omitempty"`
	Elements  []model.Element  `json:"elements"`
	CreatedTs int64            `json:"createdTs"`
}

// Client is the conversation service surface the session depends on. The
// HTTP implementation lives in this package; tests substitute a stub.
type Client interface {
	Create(ctx context.Context, kind model.Kind, level int) (*Conversation, error)
	List(ctx context.Context, kind model.Kind, level int) ([]model.Summary, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	Advance(ctx context.Context, id string, option model.SelectedOption) (model.Step, error)
}

// Session owns the client-side state of one open conversation: the display
// timeline, the option set, the draft reply, and the busy gate. It is bound
// to a single conversation and a single caller; methods are not safe for
// concurrent use.
type Session struct {
	client   Client
	userName string

	id          string
	agent       string
	info        model.Info
	timeline    []Unit
	options     *OptionSet
	draft       string
	selected    string
	allowCustom bool
	busy        bool
	maxStage    string
}

// NewSession creates an unstarted session for the named user.
func NewSession(client Client, userName string) *Session {
	return &Session{
		client:   client,
		userName: userName,
		options:  NewOptionSet(),
	}
}

// StartRequest selects what Start opens: an existing conversation by id, or a
// fresh one in the given stage when the id is empty.
type StartRequest struct {
	ConversationID string
	Kind           model.Kind
	Level          int
}

// Start creates or resumes the conversation and settles the session into its
// first presentable state. Resuming a conversation that waits on a choice
// reuses the persisted options without a network round-trip, unless the last
// timeline unit is feedback: then the user answers free-text first. A
// conversation with no progression state yet is advanced immediately.
func (s *Session) Start(ctx context.Context, req StartRequest) error {
	if s.busy {
		return nil
	}
	s.busy = true
	defer func() { s.busy = false }()

	var conv *Conversation
	var err error
	if req.ConversationID == "" {
		conv, err = s.client.Create(ctx, req.Kind, req.Level)
	} else {
		conv, err = s.client.Get(ctx, req.ConversationID)
	}
	if err != nil {
		return err
	}

	s.id = conv.ID
	s.agent = conv.Agent
	s.info = conv.Info
	s.timeline = BuildTimeline(conv.Elements, s.userName, "")
	s.draft = InitialDraft(conv.Elements)
	s.options.Seed(nil)
	s.selected = ""
	s.allowCustom = false

	if conv.State != nil && conv.State.Waiting {
		if n := len(s.timeline); n > 0 && s.timeline[n-1].Type == UnitFeedback {
			return nil
		}
		s.options.Seed(conv.State.Options)
		s.allowCustom = conv.State.AllowCustom
		return nil
	}

	force := conv.State == nil && !conv.Info.Scenario.UserInitiated
	return s.fetchNextStep(ctx, force)
}

// OnDraftChange replaces the draft reply.
func (s *Session) OnDraftChange(text string) {
	if s.busy {
		return
	}
	s.draft = text
}

// OnOptionClick parks the clicked option and copies its label into the
// draft. A previously parked option returns to the live set.
func (s *Session) OnOptionClick(key string) {
	if s.busy {
		return
	}
	if !s.options.Click(key) {
		return
	}
	s.selected = key
	if parked := s.options.Parked(); parked != nil {
		s.draft = parked.Label
	}
}

// Send submits the draft reply and applies the resulting turn. An empty
// draft, or a send while another operation is outstanding, is a no-op. The
// timeline and option set are only touched after the service confirmed the
// turn.
func (s *Session) Send(ctx context.Context) error {
	if s.busy || s.draft == "" {
		return nil
	}
	s.busy = true
	defer func() { s.busy = false }()

	draft := s.draft

	var option model.SelectedOption
	if s.options.IsNonOption(draft) {
		option = model.SelectCustom(draft)
	} else {
		key, _ := s.options.KeyFor(draft)
		index, err := strconv.Atoi(key)
		if err != nil {
			option = model.SelectCustom(draft)
		} else {
			option = model.SelectIndex(index)
		}
	}

	step, err := s.client.Advance(ctx, s.id, option)
	if err != nil {
		return err
	}

	s.timeline = append(s.timeline, newTextUnit(true, draft))
	s.draft = ""
	s.selected = ""
	s.options.Seed(nil)
	s.allowCustom = false

	return s.applyStep(ctx, step, true)
}

// fetchNextStep advances the conversation without a selection. When the
// automated party replies, or the caller forces it for agent-initiated
// scenarios, a second advance call obtains the option list so both arrive as
// one settled state.
func (s *Session) fetchNextStep(ctx context.Context, force bool) error {
	first, err := s.client.Advance(ctx, s.id, model.SelectNone())
	if err != nil {
		return err
	}

	if first.Type != model.StepAP && !force {
		return s.applyStep(ctx, first, false)
	}

	if first.Content != "" {
		s.timeline = append(s.timeline, newTextUnit(false, first.Content))
	}
	s.noteStage(first)

	second, err := s.client.Advance(ctx, s.id, model.SelectNone())
	if err != nil {
		return err
	}
	return s.applyStep(ctx, second, false)
}

// applyStep folds one turn result into the session. followUp chains the
// option fetch after an automated reply, which Send needs because the
// service answers a consumed choice with the agent's message first.
func (s *Session) applyStep(ctx context.Context, step model.Step, followUp bool) error {
	s.noteStage(step)

	switch step.Type {
	case model.StepAP:
		if step.Content != "" {
			s.timeline = append(s.timeline, newTextUnit(false, step.Content))
		}
		if followUp {
			next, err := s.client.Advance(ctx, s.id, model.SelectNone())
			if err != nil {
				return err
			}
			return s.applyStep(ctx, next, false)
		}
		s.options.Seed(nil)
	case model.StepOptions:
		s.options.Seed(step.Options)
		s.allowCustom = step.AllowCustom
	case model.StepFeedback:
		if step.Feedback != nil {
			s.timeline = append(s.timeline, newFeedbackUnit(step.Feedback.Title, step.Feedback.Body, step.Feedback.FollowUp))
			s.draft = step.Feedback.FollowUp
		}
		s.options.Seed(nil)
	}
	return nil
}

func (s *Session) noteStage(step model.Step) {
	if step.MaxUnlockedStage != "" {
		s.maxStage = step.MaxUnlockedStage
	}
}

// ID returns the conversation id, empty before Start.
func (s *Session) ID() string { return s.id }

// Agent returns the automated party's name.
func (s *Session) Agent() string { return s.agent }

// Info returns the conversation setup.
func (s *Session) Info() model.Info { return s.info }

// Timeline returns the display units in order.
func (s *Session) Timeline() []Unit { return s.timeline }

// Options returns the live option set.
func (s *Session) Options() *OptionSet { return s.options }

// Draft returns the reply being composed.
func (s *Session) Draft() string { return s.draft }

// Selected returns the key of the most recently clicked option, empty when
// none is parked.
func (s *Session) Selected() string { return s.selected }

// AllowCustom reports whether the current turn accepts free-typed replies.
func (s *Session) AllowCustom() bool { return s.allowCustom }

// Busy reports whether a send or fetch is outstanding.
func (s *Session) Busy() bool { return s.busy }

// MaxUnlockedStage returns the latest unlock progress reported by the
// service, empty until a turn carried it.
func (s *Session) MaxUnlockedStage() string { return s.maxStage }
