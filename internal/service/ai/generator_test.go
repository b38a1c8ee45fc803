package ai

import (
	"strings"
	"testing"

	"github.com/parleylab/parley/internal/flow"
	model "github.com/parleylab/parley/internal/model/convo"
	convosvc "github.com/parleylab/parley/internal/service/convo"
)

func TestDecodePayloadPlain(t *testing.T) {
	var payload messagePayload
	if err := decodePayload(`{"message":"hi","sender":"Chris"}`, &payload); err != nil {
		t.Fatalf("decodePayload err: %v", err)
	}
	if payload.Message != "hi" || payload.Sender != "Chris" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDecodePayloadFenced(t *testing.T) {
	content := "```json\n{\"message\":\"hi\",\"sender\":\"Chris\"}\n```"
	var payload messagePayload
	if err := decodePayload(content, &payload); err != nil {
		t.Fatalf("decodePayload err: %v", err)
	}
	if payload.Message != "hi" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDecodePayloadGarbage(t *testing.T) {
	var payload messagePayload
	if err := decodePayload("sorry, I cannot do that", &payload); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
}

func TestRecentWindow(t *testing.T) {
	transcript := []model.Message{
		{Sender: "Chris", Body: "old question"},
		{Sender: "bob", Body: "old answer"},
		{Sender: "Chris", Body: "how was your week?"},
		{Sender: "bob", Body: "like a million bucks"},
	}
	window := recentWindow(transcript, "bob")
	if len(window) != 2 {
		t.Fatalf("expected 2 messages in window, got %d", len(window))
	}
	if window[0].Body != "how was your week?" {
		t.Fatalf("unexpected window start: %+v", window[0])
	}
}

func TestRecentWindowShortTranscript(t *testing.T) {
	transcript := []model.Message{{Sender: "bob", Body: "hi"}}
	window := recentWindow(transcript, "bob")
	if len(window) != 1 {
		t.Fatalf("expected full transcript, got %d messages", len(window))
	}
}

func TestHeuristicChecks(t *testing.T) {
	req := convosvc.CheckRequest{
		UserName:  "bob",
		AgentName: "Chris",
		Checks: []convosvc.CheckItem{
			{Ref: flow.FeedbackRef("figurative"), Criterion: "avoids figurative language"},
		},
		Transcript: []model.Message{
			{Sender: "Chris", Body: "how was your week?"},
			{Sender: "bob", Body: "I feel like a million bucks today!"},
		},
	}

	failed := heuristicChecks(req)
	if len(failed) != 1 {
		t.Fatalf("expected one failed check, got %d", len(failed))
	}
	if failed[0].Source.ID != "figurative" {
		t.Fatalf("unexpected source: %+v", failed[0].Source)
	}
	if !strings.Contains(failed[0].Reason, "like a") {
		t.Fatalf("reason should name the phrase, got %q", failed[0].Reason)
	}
}

func TestHeuristicChecksCleanMessage(t *testing.T) {
	req := convosvc.CheckRequest{
		UserName: "bob",
		Checks: []convosvc.CheckItem{
			{Ref: flow.FeedbackRef("figurative"), Criterion: "avoids figurative language"},
		},
		Transcript: []model.Message{{Sender: "bob", Body: "My week was busy but good."}},
	}
	if failed := heuristicChecks(req); failed != nil {
		t.Fatalf("expected no failures, got %+v", failed)
	}
}

func TestCheckSystemPromptListsIDs(t *testing.T) {
	prompt := checkSystemPrompt(convosvc.CheckRequest{
		UserName:  "bob",
		AgentName: "Chris",
		Checks: []convosvc.CheckItem{
			{Ref: flow.FeedbackRef("vague"), Criterion: "gives a specific answer"},
		},
	})
	if !strings.Contains(prompt, `"id":"vague"`) {
		t.Fatalf("prompt should list check ids:\n%s", prompt)
	}
	if !strings.Contains(prompt, "'bob'") {
		t.Fatalf("prompt should pin the offender name:\n%s", prompt)
	}
}
