package flow

// The stage contexts below are authored data, reviewed rather than generated.
// Each one is a small cyclic machine: agent states produce the automated
// party's turns, user states produce the offered reply options, feedback
// states describe the mistakes worth coaching on. Options that exhibit the
// mistake carry the matching check so a coachable moment is only triggered
// when the user actually picks (or types) such a reply.

var figurativeCheck = FeedbackRef("figurative")

// FigurativeLanguage is level-0: practicing direct phrasing instead of
// idioms and similes that can be read literally.
var FigurativeLanguage = &Context{
	Stage: StageLevel0,
	UserScenario: "You are catching up over text with your coworker {agent}. " +
		"You want to tell them about your week and make plans for the team outing.",
	AgentScenario: "You are {agent}, catching up over text with a coworker. You " +
		"interpret language literally, so figurative expressions confuse you. " +
		"You are friendly and genuinely interested in the conversation.",
	UserInitiated: false,
	initialUser:   UserRef("greet"),
	initialAgent:  AgentRef("greet"),
	customChecks:  []Ref{figurativeCheck},
	states: map[Ref]State{
		AgentRef("greet"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "Open the conversation with a friendly greeting and ask how the other person's week has been.", Next: UserRef("greet")},
			},
		}},
		UserRef("greet"): {Kind: RefUser, User: &UserState{
			Options: []Option{
				{Prompt: "Greet them back and say directly that your week has been busy but good.", Next: AgentRef("ask")},
				{Prompt: "Greet them back using an idiom or simile about how your week went, such as feeling 'like a million bucks' or being 'swamped'.", Checks: []Ref{figurativeCheck}, Next: AgentRef("ask")},
				{Prompt: "Greet them back briefly and ask how their own week has been.", Next: AgentRef("ask")},
			},
		}},
		AgentRef("ask"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "Ask an open question about the team outing plans, such as when or where it should happen.", Next: UserRef("answer")},
				{Prompt: "Share one concrete detail about your week and ask what the other person thinks about the outing.", Next: UserRef("answer")},
			},
		}},
		UserRef("answer"): {Kind: RefUser, User: &UserState{
			Options: []Option{
				{Prompt: "Answer the question plainly and state your preference directly.", Next: AgentRef("react")},
				{Prompt: "Answer using a figure of speech, for example telling them to 'break a leg' or that the plan is 'a piece of cake'.", Checks: []Ref{figurativeCheck}, Next: AgentRef("react")},
				{Prompt: "Answer directly and add one clarifying question about the details.", Next: AgentRef("react")},
			},
		}},
		AgentRef("react"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "React to what was just said and keep the conversation moving with a follow-up question.", Next: UserRef("answer")},
			},
		}},
		figurativeCheck: {Kind: RefFeedback, Feedback: &FeedbackState{
			Check: "The message avoids idioms, similes, metaphors, and other figurative language that could be interpreted literally.",
			Prompt: "Explain that figurative language can be confusing for people who interpret words literally, name the exact phrase that was used, and suggest a direct rewording.",
		}},
	},
}

var vagueCheck = FeedbackRef("vague")

// BluntLanguage is level-1: practicing answers that are specific and
// complete instead of vague or evasive.
var BluntLanguage = &Context{
	Stage: StageLevel1,
	UserScenario: "You are messaging {agent}, a colleague who once worked with a " +
		"client you are about to take over. You answer their questions about the " +
		"handover.",
	AgentScenario: "You are {agent}. A colleague is taking over one of your former " +
		"clients and you are asking them questions over text to make sure the " +
		"handover goes well. You take answers at face value and do not guess at " +
		"unstated intentions.",
	UserInitiated: true,
	initialUser:   UserRef("greet"),
	initialAgent:  AgentRef("ask"),
	customChecks:  []Ref{vagueCheck},
	states: map[Ref]State{
		UserRef("greet"): {Kind: RefUser, User: &UserState{
			Options: []Option{
				{Prompt: "Open the conversation, confirm you worked with the client, and offer to answer questions.", Next: AgentRef("ask")},
				{Prompt: "Open the conversation with a vague remark that you 'know a thing or two' about the client without committing to anything.", Checks: []Ref{vagueCheck}, Next: AgentRef("ask")},
			},
		}},
		AgentRef("ask"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "Ask one open-ended question about the client: how they like to communicate, what they care about, or what to watch out for.", Next: UserRef("answer")},
			},
		}},
		UserRef("answer"): {Kind: RefUser, User: &UserState{
			Options: []Option{
				{Prompt: "Answer with a specific, complete piece of information about the client.", Next: AgentRef("follow")},
				{Prompt: "Answer vaguely in a way that can be read several ways, even though you know the exact answer.", Checks: []Ref{vagueCheck}, Next: AgentRef("follow")},
				{Prompt: "Answer specifically and mention one thing you are unsure about, saying so directly.", Next: AgentRef("follow")},
			},
		}},
		AgentRef("follow"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "Acknowledge the answer and ask a follow-up question that digs one level deeper.", Next: UserRef("answer")},
			},
		}},
		vagueCheck: {Kind: RefFeedback, Feedback: &FeedbackState{
			Check: "The message gives a specific, complete answer rather than a vague or evasive one.",
			Prompt: "Point out which part of the answer was vague, explain how it could be misread, and suggest what a specific version would say.",
		}},
	},
}

// Playground is the free-form stage: an open conversation on a topic the
// user cares about, with custom replies always allowed.
var Playground = &Context{
	Stage: StagePlayground,
	UserScenario: "You are interested in {topic} and chat with {agent}, who knows " +
		"the field well, to deepen your understanding. Ask questions and keep the " +
		"conversation going.",
	AgentScenario: "You are {agent}, knowledgeable about {topic}. Help the other " +
		"person understand the topic better: explain key points and answer their " +
		"questions in a conversational tone.",
	UserInitiated: true,
	initialUser:   UserRef("turn"),
	initialAgent:  AgentRef("turn"),
	states: map[Ref]State{
		UserRef("turn"): {Kind: RefUser, User: &UserState{
			AllowCustom: true,
			Options: []Option{
				{Prompt: "Ask a question about an aspect of the topic that has not come up yet.", Next: AgentRef("turn")},
				{Prompt: "React to the last message and share your own view on it.", Next: AgentRef("turn")},
				{Prompt: "Ask for a concrete example or a recommendation related to the topic.", Next: AgentRef("turn")},
				{Prompt: "Steer the conversation toward a neighboring aspect of the topic you are curious about.", Next: AgentRef("turn")},
			},
		}},
		AgentRef("turn"): {Kind: RefAgent, Agent: &AgentState{
			Options: []Option{
				{Prompt: "Answer the last message helpfully and end with something that invites a reply.", Next: UserRef("turn")},
				{Prompt: "Share an interesting detail about the topic connected to what was just discussed.", Next: UserRef("turn")},
			},
		}},
	},
}

// ContextForStage resolves a stage name to its context.
func ContextForStage(stage string) (*Context, bool) {
	switch stage {
	case StageLevel0:
		return FigurativeLanguage, true
	case StageLevel1:
		return BluntLanguage, true
	case StagePlayground:
		return Playground, true
	}
	return nil, false
}

// LevelContexts returns the numbered level contexts in order.
func LevelContexts() []*Context {
	return []*Context{FigurativeLanguage, BluntLanguage}
}
