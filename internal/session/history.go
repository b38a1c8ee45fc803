package session

import (
	model "github.com/parleylab/parley/internal/model/convo"
)

// UnitType tags a timeline display unit.
type UnitType string

const (
	UnitText     UnitType = "text"
	UnitFeedback UnitType = "feedback"
)

// TextUnit is one plain message in the timeline.
type TextUnit struct {
	SentByUser bool
	Content    string
}

// FeedbackUnit is an evaluative card with its suggested continuation.
type FeedbackUnit struct {
	Title  string
	Body   string
	Choice string
}

// Unit is one entry of the display timeline. Exactly one of Text and
// Feedback is set, matching Type.
type Unit struct {
	Type     UnitType
	Text     *TextUnit
	Feedback *FeedbackUnit
}

func newTextUnit(sentByUser bool, content string) Unit {
	return Unit{Type: UnitText, Text: &TextUnit{SentByUser: sentByUser, Content: content}}
}

func newFeedbackUnit(title, body, choice string) Unit {
	return Unit{Type: UnitFeedback, Feedback: &FeedbackUnit{Title: title, Body: body, Choice: choice}}
}

// BuildTimeline converts persisted conversation elements into the ordered
// display timeline. Order is preserved one to one; when apMessage is
// non-empty, one synthetic trailing automated text unit is appended.
func BuildTimeline(elements []model.Element, userName, apMessage string) []Unit {
	units := make([]Unit, 0, len(elements)+1)
	for _, elem := range elements {
		switch elem.Type {
		case model.ElementMessage:
			if elem.Message == nil {
				continue
			}
			units = append(units, newTextUnit(elem.Message.Sender == userName, elem.Message.Body))
		case model.ElementFeedback:
			if elem.Feedback == nil {
				continue
			}
			units = append(units, newFeedbackUnit(elem.Feedback.Title, elem.Feedback.Body, elem.Feedback.FollowUp))
		}
	}
	if apMessage != "" {
		units = append(units, newTextUnit(false, apMessage))
	}
	return units
}

// InitialDraft seeds the compose box at session start: the follow-up of the
// last element when that element is feedback, empty otherwise.
func InitialDraft(elements []model.Element) string {
	if len(elements) == 0 {
		return ""
	}
	last := elements[len(elements)-1]
	if last.Type == model.ElementFeedback && last.Feedback != nil {
		return last.Feedback.FollowUp
	}
	return ""
}
