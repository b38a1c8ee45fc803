package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/parleylab/parley/internal/analysis/clarity"
	"github.com/parleylab/parley/internal/config"
	model "github.com/parleylab/parley/internal/model/convo"
	convosvc "github.com/parleylab/parley/internal/service/convo"
)

// Service generates conversation content through the configured chat model.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

var _ convosvc.Generator = (*Service)(nil)

// NewService compiles the generation chain against the configured model.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

type messagePayload struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// GenerateMessage produces one in-character message for either side of the
// conversation.
func (s *Service) GenerateMessage(ctx context.Context, req convosvc.MessageRequest) (string, error) {
	input := map[string]any{
		"system":  messageSystemPrompt(req),
		"history": historyMessages(req.Transcript, req.SenderName),
		"query":   messageQuery(req.Transcript),
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to generate message: %w", err)
	}

	var payload messagePayload
	if err := decodePayload(msg.Content, &payload); err != nil {
		return "", fmt.Errorf("failed to parse generated message: %w", err)
	}
	if payload.Sender != req.SenderName {
		return "", fmt.Errorf("generated message attributed to %q, want %q", payload.Sender, req.SenderName)
	}
	if strings.TrimSpace(payload.Message) == "" {
		return "", fmt.Errorf("generated message is empty")
	}
	return payload.Message, nil
}

type feedbackPayload struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Clarification string `json:"clarification"`
}

// GenerateFeedback produces the coaching card for the user's latest message.
func (s *Service) GenerateFeedback(ctx context.Context, req convosvc.FeedbackRequest) (convosvc.FeedbackDraft, error) {
	window := recentWindow(req.Transcript, req.UserName)

	input := map[string]any{
		"system": feedbackSystemPrompt(req),
		"query":  transcriptJSON(window),
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return convosvc.FeedbackDraft{}, fmt.Errorf("failed to generate feedback: %w", err)
	}

	var payload feedbackPayload
	if err := decodePayload(msg.Content, &payload); err != nil {
		return convosvc.FeedbackDraft{}, fmt.Errorf("failed to parse feedback: %w", err)
	}
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Body) == "" {
		return convosvc.FeedbackDraft{}, fmt.Errorf("feedback payload incomplete")
	}

	return convosvc.FeedbackDraft{
		Title:         payload.Title,
		Body:          payload.Body,
		Clarification: payload.Clarification,
	}, nil
}

type failedCheckPayload struct {
	ID       string `json:"id"`
	Offender string `json:"offender"`
	Reason   string `json:"reason"`
}

type checksPayload struct {
	FailedChecks []failedCheckPayload `json:"failedChecks"`
}

// CheckMessage asks the model which checks the user's latest message fails,
// falling back to the heuristic detector when the model cannot answer.
func (s *Service) CheckMessage(ctx context.Context, req convosvc.CheckRequest) ([]model.FailedCheck, error) {
	if len(req.Checks) == 0 {
		return nil, nil
	}

	window := recentWindow(req.Transcript, req.UserName)

	input := map[string]any{
		"system": checkSystemPrompt(req),
		"query":  transcriptJSON(window),
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] check invoke failed, using heuristics: %v", err)
		return heuristicChecks(req), nil
	}

	var payload checksPayload
	if err := decodePayload(msg.Content, &payload); err != nil {
		log.Printf("[ai] check output parse failed, using heuristics: %v", err)
		return heuristicChecks(req), nil
	}

	known := make(map[string]convosvc.CheckItem, len(req.Checks))
	for _, item := range req.Checks {
		known[item.Ref.ID] = item
	}

	var failed []model.FailedCheck
	for _, fc := range payload.FailedChecks {
		item, ok := known[fc.ID]
		if !ok {
			log.Printf("[ai] dropping unknown check id %q", fc.ID)
			continue
		}
		if fc.Offender != req.UserName {
			continue
		}
		failed = append(failed, model.FailedCheck{Source: item.Ref, Reason: fc.Reason})
	}
	return failed, nil
}

// heuristicChecks runs the keyword detector on the user's latest message as a
// degraded substitute for the model-based analysis.
func heuristicChecks(req convosvc.CheckRequest) []model.FailedCheck {
	latest := ""
	for i := len(req.Transcript) - 1; i >= 0; i-- {
		if req.Transcript[i].Sender == req.UserName {
			latest = req.Transcript[i].Body
			break
		}
	}
	if latest == "" {
		return nil
	}

	var failed []model.FailedCheck
	for _, item := range req.Checks {
		findings := clarity.Detect(latest, clarity.Check(item.Ref.ID))
		if len(findings) == 0 {
			continue
		}
		failed = append(failed, model.FailedCheck{
			Source: item.Ref,
			Reason: fmt.Sprintf("the message uses the phrase %q", findings[0].Phrase),
		})
	}
	return failed
}

// historyMessages maps the transcript onto chat roles from the sender's
// point of view.
func historyMessages(transcript []model.Message, senderName string) []*schema.Message {
	const historyLimit = 10

	if len(transcript) == 0 {
		return nil
	}

	start := 0
	if len(transcript) > historyLimit {
		start = len(transcript) - historyLimit
	}

	history := make([]*schema.Message, 0, len(transcript)-start)
	for _, msg := range transcript[start:] {
		if msg.Sender == senderName {
			history = append(history, schema.AssistantMessage(msg.Body, nil))
		} else {
			history = append(history, schema.UserMessage(msg.Body))
		}
	}
	return history
}

// recentWindow keeps the messages since the exchange being analyzed started:
// everything after the agent message that preceded the user's latest reply.
func recentWindow(transcript []model.Message, userName string) []model.Message {
	start := 0
	for i := len(transcript) - 3; i >= 0; i-- {
		if transcript[i].Sender != userName {
			start = i + 1
			break
		}
	}
	return transcript[start:]
}

func transcriptJSON(transcript []model.Message) string {
	if len(transcript) == 0 {
		return "[CONVERSATION START]"
	}
	data, err := json.Marshal(transcript)
	if err != nil {
		return "[CONVERSATION START]"
	}
	return string(data)
}

func messageQuery(transcript []model.Message) string {
	if len(transcript) == 0 {
		return "[CONVERSATION START] Send your opening message."
	}
	return "Send your next message."
}

// decodePayload parses a JSON object from model output, tolerating markdown
// code fences around it.
func decodePayload(content string, out any) error {
	trimmed := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(trimmed, "```json"); ok {
		trimmed = after
	} else if after, ok := strings.CutPrefix(trimmed, "```"); ok {
		trimmed = after
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	trimmed = strings.TrimSpace(trimmed)

	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}
