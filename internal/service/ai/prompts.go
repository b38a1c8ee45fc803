package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	convosvc "github.com/parleylab/parley/internal/service/convo"
)

func messageSystemPrompt(req convosvc.MessageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, chatting over text with %s.\n", req.SenderName, req.RecipientName)
	if req.SenderVoice != "" {
		fmt.Fprintf(&b, "Your voice: %s.\n", req.SenderVoice)
	}
	fmt.Fprintf(&b, "Scenario: %s\n", req.Scenario)
	if req.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", req.Instructions)
	}
	b.WriteString(
		"Keep your message under 50 words and appropriate for a text conversation. " +
			"Keep the conversation going. Respond ONLY with a JSON object with the key " +
			"'message' containing your next message and the key 'sender' containing '")
	b.WriteString(req.SenderName)
	b.WriteString("'. Do not repeat previous messages.")
	return b.String()
}

func feedbackSystemPrompt(req convosvc.FeedbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"You are a communication coach. Provide feedback on the ongoing text "+
			"conversation between %s (the user) and %s. Address the following points:\n",
		req.UserName, req.AgentName)
	for _, point := range req.Coaching {
		b.WriteString("- ")
		b.WriteString(point)
		b.WriteString("\n")
	}
	b.WriteString(
		"Use second-person pronouns to address the user directly. Respond ONLY with a " +
			"JSON object with the key 'title' containing a title of at most 50 characters, " +
			"the key 'body' containing the feedback in at most 100 words, and the key " +
			"'clarification' outlining what the user should do next: apologize for the " +
			"mistake and clarify what they meant. The clarification is a directive, not " +
			"a message.")
	return b.String()
}

func checkSystemPrompt(req convosvc.CheckRequest) string {
	type checkEntry struct {
		ID    string `json:"id"`
		Check string `json:"check"`
	}
	entries := make([]checkEntry, 0, len(req.Checks))
	for _, item := range req.Checks {
		entries = append(entries, checkEntry{ID: item.Ref.ID, Check: item.Criterion})
	}
	list, _ := json.Marshal(entries)

	var b strings.Builder
	fmt.Fprintf(&b,
		"You are a communication coach. Analyze the conversation between %s (the user) "+
			"and %s and decide whether the latest message sent by %s passes each of these "+
			"checks:\n%s\n",
		req.UserName, req.AgentName, req.UserName, list)
	fmt.Fprintf(&b,
		"A check fails when the message does not meet its criterion. Respond ONLY with "+
			"a JSON object with the key 'failedChecks' containing a list of objects with "+
			"the keys 'id' (the id of the failed check), 'reason' (why it failed), and "+
			"'offender' (always '%s'). Use an empty list when nothing fails. Do NOT "+
			"perform checks that are not listed.",
		req.UserName)
	return b.String()
}
