package convo

// ElementType tags the entries of a conversation transcript.
type ElementType string

const (
	ElementMessage  ElementType = "message"
	ElementFeedback ElementType = "feedback"
)

// Message is one turn authored by a named participant.
type Message struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// Feedback is an evaluative element with one suggested continuation the user
// can send as-is.
type Feedback struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	FollowUp string `json:"followUp"`
}

// Element is the persisted tagged union of transcript entries. Exactly one of
// Message and Feedback is set, matching Type.
type Element struct {
	Type     ElementType `json:"type"`
	Message  *Message    `json:"message,omitempty"`
	Feedback *Feedback   `json:"feedback,omitempty"`
}

// NewMessageElement wraps a participant turn.
func NewMessageElement(sender, body string) Element {
	return Element{Type: ElementMessage, Message: &Message{Sender: sender, Body: body}}
}

// NewFeedbackElement wraps a feedback card.
func NewFeedbackElement(fb Feedback) Element {
	return Element{Type: ElementFeedback, Feedback: &fb}
}
