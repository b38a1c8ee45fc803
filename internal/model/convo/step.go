package convo

// StepType classifies what a progress call produced.
type StepType string

const (
	// StepAP: the automated party sent a message.
	StepAP StepType = "ap"
	// StepOptions: it is the user's turn; options are offered.
	StepOptions StepType = "options"
	// StepFeedback: a feedback card was generated.
	StepFeedback StepType = "feedback"
)

// Step is the tagged result of advancing a conversation one turn.
type Step struct {
	Type        StepType  `json:"type"`
	Content     string    `json:"content,omitempty"`
	Options     []string  `json:"options,omitempty"`
	AllowCustom bool      `json:"allowCustom,omitempty"`
	Feedback    *Feedback `json:"feedback,omitempty"`
	// MaxUnlockedStage echoes the user's unlock progress so clients can
	// surface newly available stages without a second request.
	MaxUnlockedStage string `json:"maxUnlockedStage,omitempty"`
}

// OptionKind tags the user's selection submitted to a progress call.
type OptionKind string

const (
	// OptionNone: no selection; used when the user has no pending turn.
	OptionNone OptionKind = "none"
	// OptionIndex: one of the offered options, by position.
	OptionIndex OptionKind = "index"
	// OptionCustom: a free-typed reply. Carrying a custom message is what
	// tells the service the reply was not one of the offered options.
	OptionCustom OptionKind = "custom"
)

// SelectedOption is the body of a progress request.
type SelectedOption struct {
	Kind    OptionKind `json:"kind"`
	Index   int        `json:"index,omitempty"`
	Message string     `json:"message,omitempty"`
}

func SelectNone() SelectedOption          { return SelectedOption{Kind: OptionNone} }
func SelectIndex(i int) SelectedOption    { return SelectedOption{Kind: OptionIndex, Index: i} }
func SelectCustom(msg string) SelectedOption {
	return SelectedOption{Kind: OptionCustom, Message: msg}
}
