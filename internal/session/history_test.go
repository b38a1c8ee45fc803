package session

import (
	"testing"

	model "github.com/parleylab/parley/internal/model/convo"
)

func TestBuildTimelineSenderAttribution(t *testing.T) {
	elements := []model.Element{
		model.NewMessageElement("alice", "hi"),
	}

	units := BuildTimeline(elements, "bob", "")
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Type != UnitText || units[0].Text == nil {
		t.Fatalf("expected text unit, got %+v", units[0])
	}
	if units[0].Text.SentByUser {
		t.Fatal("message from alice must not count as sent by bob")
	}
	if units[0].Text.Content != "hi" {
		t.Fatalf("unexpected content %q", units[0].Text.Content)
	}
}

func TestBuildTimelinePreservesOrderAndLength(t *testing.T) {
	elements := []model.Element{
		model.NewMessageElement("Chris", "how was your week?"),
		model.NewMessageElement("bob", "pretty good"),
		model.NewFeedbackElement(model.Feedback{Title: "Heads up", Body: "Be specific.", FollowUp: "I finished the report."}),
		model.NewMessageElement("bob", "I finished the report."),
	}

	units := BuildTimeline(elements, "bob", "")
	if len(units) != len(elements) {
		t.Fatalf("expected %d units, got %d", len(elements), len(units))
	}
	if units[0].Text == nil || units[0].Text.SentByUser {
		t.Fatalf("unit 0 should be an agent message, got %+v", units[0])
	}
	if units[1].Text == nil || !units[1].Text.SentByUser {
		t.Fatalf("unit 1 should be a user message, got %+v", units[1])
	}
	if units[2].Type != UnitFeedback || units[2].Feedback.Choice != "I finished the report." {
		t.Fatalf("unit 2 should carry the feedback follow-up, got %+v", units[2])
	}
	if units[3].Text == nil || !units[3].Text.SentByUser {
		t.Fatalf("unit 3 should be a user message, got %+v", units[3])
	}
}

func TestBuildTimelineAppendsAutomatedMessage(t *testing.T) {
	elements := []model.Element{
		model.NewMessageElement("bob", "hello"),
	}

	units := BuildTimeline(elements, "bob", "hey bob!")
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	last := units[len(units)-1]
	if last.Type != UnitText || last.Text.SentByUser || last.Text.Content != "hey bob!" {
		t.Fatalf("expected trailing automated unit, got %+v", last)
	}
}

func TestBuildTimelineEmpty(t *testing.T) {
	if units := BuildTimeline(nil, "bob", ""); len(units) != 0 {
		t.Fatalf("expected empty timeline, got %d units", len(units))
	}
	units := BuildTimeline(nil, "bob", "welcome")
	if len(units) != 1 || units[0].Text.Content != "welcome" {
		t.Fatalf("expected single synthetic unit, got %+v", units)
	}
}

func TestInitialDraftFromTrailingFeedback(t *testing.T) {
	elements := []model.Element{
		model.NewMessageElement("bob", "like a million bucks"),
		model.NewFeedbackElement(model.Feedback{Title: "Figurative", Body: "Say it plainly.", FollowUp: "ok"}),
	}
	if draft := InitialDraft(elements); draft != "ok" {
		t.Fatalf("expected follow-up draft, got %q", draft)
	}
}

func TestInitialDraftEmptyCases(t *testing.T) {
	if draft := InitialDraft(nil); draft != "" {
		t.Fatalf("expected empty draft for empty history, got %q", draft)
	}
	elements := []model.Element{model.NewMessageElement("bob", "hi")}
	if draft := InitialDraft(elements); draft != "" {
		t.Fatalf("expected empty draft after a plain message, got %q", draft)
	}
}
