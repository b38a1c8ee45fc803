package convo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleylab/parley/internal/flow"
	model "github.com/parleylab/parley/internal/model/convo"
	"github.com/parleylab/parley/internal/model/persona"
	"github.com/parleylab/parley/internal/store"
)

var (
	ErrNotFound              = errors.New("conversation not found")
	ErrStageLocked           = errors.New("stage not unlocked")
	ErrUnknownStage          = errors.New("unknown stage")
	ErrInvalidSelection      = errors.New("invalid selection")
	ErrInvalidState          = errors.New("conversation state is invalid")
	ErrGenerationUnavailable = errors.New("message generation unavailable")
)

// Store is the persistence surface the service needs. *store.DB satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, id, userName string) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, c *model.Conversation) error
	ListConversations(ctx context.Context, userName string, kind model.Kind, level int) ([]model.Summary, error)
	EnsureUser(ctx context.Context, name string) (store.User, error)
	IncrementMessageCount(ctx context.Context, name, stage string) (int, error)
	UnlockStage(ctx context.Context, name, stage string) error
}

// MessageRequest asks for one in-character message.
type MessageRequest struct {
	SenderName    string
	SenderVoice   string
	RecipientName string
	Scenario      string
	Instructions  string
	Transcript    []model.Message
}

// FeedbackDraft is generated coaching copy. Clarification steers the
// follow-up message generated afterwards.
type FeedbackDraft struct {
	Title         string
	Body          string
	Clarification string
}

// FeedbackRequest asks for a feedback card about the user's latest message.
type FeedbackRequest struct {
	UserName   string
	AgentName  string
	Coaching   []string
	Transcript []model.Message
}

// CheckItem pairs a feedback-state ref with its criterion text.
type CheckItem struct {
	Ref       flow.Ref
	Criterion string
}

// CheckRequest asks which checks the user's latest message fails.
type CheckRequest struct {
	UserName   string
	AgentName  string
	Checks     []CheckItem
	Transcript []model.Message
}

// Generator produces conversation content. The eino-backed implementation
// lives in service/ai.
type Generator interface {
	GenerateMessage(ctx context.Context, req MessageRequest) (string, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (FeedbackDraft, error)
	CheckMessage(ctx context.Context, req CheckRequest) ([]model.FailedCheck, error)
}

// Service drives conversation creation and turn progression.
type Service struct {
	store    Store
	personas persona.Store
	gen      Generator
	broker   *Broker
	now      func() time.Time
}

// NewService wires the conversation service. gen may be nil, in which case
// progression reports ErrGenerationUnavailable but reads still work.
func NewService(st Store, personas persona.Store, gen Generator) *Service {
	return &Service{
		store:    st,
		personas: personas,
		gen:      gen,
		broker:   NewBroker(),
		now:      time.Now,
	}
}

// Broker exposes the turn-event broker for streaming transports.
func (s *Service) Broker() *Broker {
	return s.broker
}

// CreateRequest selects the stage for a new conversation.
type CreateRequest struct {
	Kind  model.Kind
	Level int
}

func stageContext(info model.Info) (*flow.Context, error) {
	if info.Kind == model.KindPlayground {
		return flow.Playground, nil
	}
	levels := flow.LevelContexts()
	if info.Level < 0 || info.Level >= len(levels) {
		return nil, fmt.Errorf("%w: level %d", ErrUnknownStage, info.Level)
	}
	return levels[info.Level], nil
}

// Create starts a new conversation in the requested stage.
func (s *Service) Create(ctx context.Context, userName string, req CreateRequest) (*model.Conversation, error) {
	info := model.Info{Kind: req.Kind, Level: req.Level}
	if req.Kind == model.KindPlayground {
		info.Level = 0
	}

	fc, err := stageContext(info)
	if err != nil {
		return nil, err
	}

	user, err := s.store.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}
	if !flow.Unlocked(fc.Stage, user.MaxUnlockedStage) {
		return nil, fmt.Errorf("%w: %s", ErrStageLocked, fc.Stage)
	}

	agent := s.personas.Pick()
	topic := ""
	if req.Kind == model.KindPlayground {
		topic = s.personas.PickTopic()
	}

	replacer := strings.NewReplacer("{agent}", agent.Name, "{topic}", topic)
	info.Topic = topic
	info.AgentVoice = agent.Voice
	info.Scenario = model.Scenario{
		UserPerspective:  replacer.Replace(fc.UserScenario),
		AgentPerspective: replacer.Replace(fc.AgentScenario),
		UserInitiated:    fc.UserInitiated,
	}

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		UserName:  userName,
		Agent:     agent.Name,
		Info:      info,
		Elements:  []model.Element{},
		CreatedTs: s.now().Unix(),
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	log.Printf("[convo] created conversation id=%s stage=%s agent=%s", conv.ID, fc.Stage, agent.Name)
	return conv, nil
}

// List returns the user's conversations for one stage, oldest first.
func (s *Service) List(ctx context.Context, userName string, kind model.Kind, level int) ([]model.Summary, error) {
	return s.store.ListConversations(ctx, userName, kind, level)
}

// Get loads one conversation owned by the user.
func (s *Service) Get(ctx context.Context, userName, id string) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id, userName)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return conv, err
}

// Progress advances the conversation one turn. The returned step is also
// published to the broker on success. Local state is only persisted after
// every generation succeeded, so a failed call leaves the transcript intact.
func (s *Service) Progress(ctx context.Context, userName, id string, option model.SelectedOption) (model.Step, error) {
	if s.gen == nil {
		return model.Step{}, ErrGenerationUnavailable
	}

	conv, err := s.Get(ctx, userName, id)
	if err != nil {
		return model.Step{}, err
	}

	fc, err := stageContext(conv.Info)
	if err != nil {
		return model.Step{}, err
	}

	user, err := s.store.EnsureUser(ctx, userName)
	if err != nil {
		return model.Step{}, err
	}
	maxStage := user.MaxUnlockedStage

	if conv.State == nil {
		ref := fc.InitialRef(conv.Info.Scenario.UserInitiated)
		conv.State = &model.State{Kind: model.StateActive, Ref: &ref}
	}

	if conv.State.Kind == model.StateAwaiting {
		maxStage, err = s.consumeSelection(ctx, conv, fc, option, maxStage)
		if err != nil {
			return model.Step{}, err
		}
	} else if option.Kind != model.OptionNone {
		return model.Step{}, fmt.Errorf("%w: no pending choice", ErrInvalidSelection)
	}

	step, err := s.produceStep(ctx, conv, fc)
	if err != nil {
		return model.Step{}, err
	}
	step.MaxUnlockedStage = maxStage

	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		return model.Step{}, err
	}

	s.broker.Publish(conv.ID, step)
	return step, nil
}

// consumeSelection applies the user's choice to an awaiting conversation:
// appends the message element, counts it toward stage unlocks, and moves the
// state to feedback or active. Returns the possibly updated max stage.
func (s *Service) consumeSelection(ctx context.Context, conv *model.Conversation, fc *flow.Context, option model.SelectedOption, maxStage string) (string, error) {
	var response string
	var checks []flow.Ref
	var next flow.Ref

	switch option.Kind {
	case model.OptionIndex:
		if option.Index < 0 || option.Index >= len(conv.State.Options) {
			return "", fmt.Errorf("%w: index %d out of range", ErrInvalidSelection, option.Index)
		}
		chosen := conv.State.Options[option.Index]
		response, checks, next = chosen.Response, chosen.Checks, chosen.Next
	case model.OptionCustom:
		if !conv.State.AllowCustom {
			return "", fmt.Errorf("%w: free-typed replies not allowed here", ErrInvalidSelection)
		}
		if strings.TrimSpace(option.Message) == "" {
			return "", fmt.Errorf("%w: empty message", ErrInvalidSelection)
		}
		// A free-typed reply has no authored transition: hand the turn to
		// the agent and run the stage-wide checks.
		response = option.Message
		checks = fc.CustomChecks()
		next = fc.InitialRef(false)
	default:
		return "", fmt.Errorf("%w: a choice is required", ErrInvalidSelection)
	}

	conv.Elements = append(conv.Elements, model.NewMessageElement(conv.UserName, response))

	stage := conv.Info.Stage()
	count, err := s.store.IncrementMessageCount(ctx, conv.UserName, stage)
	if err != nil {
		return "", err
	}
	if unlocked := flow.NextUnlock(stage, count); unlocked != stage && !flow.Unlocked(unlocked, maxStage) {
		if err := s.store.UnlockStage(ctx, conv.UserName, unlocked); err != nil {
			return "", err
		}
		maxStage = unlocked
		log.Printf("[convo] user=%s unlocked stage=%s", conv.UserName, unlocked)
	}

	failed, err := s.runChecks(ctx, conv, fc, checks)
	if err != nil {
		return "", err
	}

	if len(failed) > 0 {
		conv.State = &model.State{Kind: model.StateFeedback, Failed: failed, Next: &next}
	} else {
		conv.State = &model.State{Kind: model.StateActive, Ref: &next}
	}
	return maxStage, nil
}

func (s *Service) runChecks(ctx context.Context, conv *model.Conversation, fc *flow.Context, checks []flow.Ref) ([]model.FailedCheck, error) {
	if len(checks) == 0 {
		return nil, nil
	}

	items := make([]CheckItem, 0, len(checks))
	for _, ref := range checks {
		state, ok := fc.State(ref)
		if !ok || state.Kind != flow.RefFeedback {
			return nil, fmt.Errorf("%w: check %s/%s unresolved", ErrInvalidState, ref.Kind, ref.ID)
		}
		items = append(items, CheckItem{Ref: ref, Criterion: state.Feedback.Check})
	}

	return s.gen.CheckMessage(ctx, CheckRequest{
		UserName:   conv.UserName,
		AgentName:  conv.Agent,
		Checks:     items,
		Transcript: transcript(conv),
	})
}

// produceStep generates whatever the current state calls for.
func (s *Service) produceStep(ctx context.Context, conv *model.Conversation, fc *flow.Context) (model.Step, error) {
	switch conv.State.Kind {
	case model.StateActive:
		if conv.State.Ref == nil {
			return model.Step{}, fmt.Errorf("%w: active state without ref", ErrInvalidState)
		}
		state, ok := fc.State(*conv.State.Ref)
		if !ok {
			return model.Step{}, fmt.Errorf("%w: state %s/%s unresolved", ErrInvalidState, conv.State.Ref.Kind, conv.State.Ref.ID)
		}
		switch state.Kind {
		case flow.RefUser:
			return s.offerOptions(ctx, conv, state.User)
		case flow.RefAgent:
			return s.agentTurn(ctx, conv, state.Agent)
		default:
			return model.Step{}, fmt.Errorf("%w: cannot resume at a feedback state", ErrInvalidState)
		}
	case model.StateFeedback:
		return s.feedbackTurn(ctx, conv)
	default:
		return model.Step{}, fmt.Errorf("%w: unexpected state %s", ErrInvalidState, conv.State.Kind)
	}
}

// offerOptions generates up to three candidate replies and parks the
// conversation awaiting the user's choice.
func (s *Service) offerOptions(ctx context.Context, conv *model.Conversation, state *flow.UserState) (model.Step, error) {
	candidates := append([]flow.Option(nil), state.Options...)
	if len(candidates) > 3 {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		candidates = candidates[:3]
	}

	options := make([]model.MessageOption, 0, len(candidates))
	for _, opt := range candidates {
		content, err := s.gen.GenerateMessage(ctx, MessageRequest{
			SenderName:    conv.UserName,
			RecipientName: conv.Agent,
			Scenario:      conv.Info.Scenario.UserPerspective,
			Instructions:  opt.Prompt,
			Transcript:    transcript(conv),
		})
		if err != nil {
			return model.Step{}, err
		}
		options = append(options, model.MessageOption{Response: content, Checks: opt.Checks, Next: opt.Next})
	}

	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	conv.State = &model.State{
		Kind:        model.StateAwaiting,
		Options:     options,
		AllowCustom: state.AllowCustom,
	}

	labels := make([]string, 0, len(options))
	for _, opt := range options {
		labels = append(labels, opt.Response)
	}
	return model.Step{Type: model.StepOptions, Options: labels, AllowCustom: state.AllowCustom}, nil
}

// agentTurn generates the automated party's next message.
func (s *Service) agentTurn(ctx context.Context, conv *model.Conversation, state *flow.AgentState) (model.Step, error) {
	opt := state.Options[rand.Intn(len(state.Options))]

	content, err := s.gen.GenerateMessage(ctx, MessageRequest{
		SenderName:    conv.Agent,
		SenderVoice:   conv.Info.AgentVoice,
		RecipientName: conv.UserName,
		Scenario:      conv.Info.Scenario.AgentPerspective,
		Instructions:  opt.Prompt,
		Transcript:    transcript(conv),
	})
	if err != nil {
		return model.Step{}, err
	}

	conv.Elements = append(conv.Elements, model.NewMessageElement(conv.Agent, content))
	conv.State = &model.State{Kind: model.StateActive, Ref: &opt.Next}

	return model.Step{Type: model.StepAP, Content: content}, nil
}

// feedbackTurn generates the feedback card plus its suggested follow-up and
// re-enters the awaiting state with the follow-up as the single option.
// Free-typed replies are accepted here: the user answers feedback in their
// own words if they prefer.
func (s *Service) feedbackTurn(ctx context.Context, conv *model.Conversation) (model.Step, error) {
	fc, err := stageContext(conv.Info)
	if err != nil {
		return model.Step{}, err
	}
	if conv.State.Next == nil {
		return model.Step{}, fmt.Errorf("%w: feedback state without continuation", ErrInvalidState)
	}
	next := *conv.State.Next

	coaching := make([]string, 0, len(conv.State.Failed))
	for _, failed := range conv.State.Failed {
		state, ok := fc.State(failed.Source)
		if !ok || state.Kind != flow.RefFeedback {
			return model.Step{}, fmt.Errorf("%w: feedback source %s/%s unresolved", ErrInvalidState, failed.Source.Kind, failed.Source.ID)
		}
		point := state.Feedback.Prompt
		if failed.Reason != "" {
			point += " Observed: " + failed.Reason
		}
		coaching = append(coaching, point)
	}

	draft, err := s.gen.GenerateFeedback(ctx, FeedbackRequest{
		UserName:   conv.UserName,
		AgentName:  conv.Agent,
		Coaching:   coaching,
		Transcript: transcript(conv),
	})
	if err != nil {
		return model.Step{}, err
	}

	followUp, err := s.gen.GenerateMessage(ctx, MessageRequest{
		SenderName:    conv.UserName,
		RecipientName: conv.Agent,
		Scenario:      conv.Info.Scenario.UserPerspective,
		Instructions:  "You follow up to clarify your previous message. " + draft.Clarification,
		Transcript:    transcript(conv),
	})
	if err != nil {
		return model.Step{}, err
	}

	fb := model.Feedback{Title: draft.Title, Body: draft.Body, FollowUp: followUp}
	conv.Elements = append(conv.Elements, model.NewFeedbackElement(fb))
	conv.State = &model.State{
		Kind:        model.StateAwaiting,
		Options:     []model.MessageOption{{Response: followUp, Next: next}},
		AllowCustom: true,
	}

	return model.Step{Type: model.StepFeedback, Feedback: &fb}, nil
}

// transcript extracts the message elements for generation prompts.
func transcript(conv *model.Conversation) []model.Message {
	messages := make([]model.Message, 0, len(conv.Elements))
	for _, elem := range conv.Elements {
		if elem.Type == model.ElementMessage && elem.Message != nil {
			messages = append(messages, *elem.Message)
		}
	}
	return messages
}
